package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CampusPoker/internal/identity"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func fakeClient(hub *Hub, userID string) *Client {
	return &Client{
		User: identity.Profile{UserID: userID, Name: userID},
		Send: make(chan OutgoingMessage, 4),
		Hub:  hub,
	}
}

func waitFor(t *testing.T, ch chan OutgoingMessage) OutgoingMessage {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return OutgoingMessage{}
	}
}

func TestHubSendToPlayer(t *testing.T) {
	hub := runHub(t)
	c1 := fakeClient(hub, "alice")
	c2 := fakeClient(hub, "bob")
	hub.register <- c1
	hub.register <- c2

	hub.SendToPlayer("alice", OutgoingMessage{Event: "table_state"})

	m := waitFor(t, c1.Send)
	assert.Equal(t, "table_state", m.Event)
	select {
	case <-c2.Send:
		t.Fatal("bob must not receive alice's message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubReconnectReplacesClient(t *testing.T) {
	hub := runHub(t)
	old := fakeClient(hub, "alice")
	hub.register <- old

	fresh := fakeClient(hub, "alice")
	hub.register <- fresh

	// the stale connection's channel is closed
	_, ok := <-old.Send
	assert.False(t, ok)

	hub.SendToPlayer("alice", OutgoingMessage{Event: "table_state"})
	assert.Equal(t, "table_state", waitFor(t, fresh.Send).Event)
}

func TestHubIncomingStampsCallback(t *testing.T) {
	hub := runHub(t)
	got := make(chan IncomingMessage, 1)
	hub.OnIncoming = func(m IncomingMessage) { got <- m }

	hub.incoming <- IncomingMessage{Action: "call", From: identity.Profile{UserID: "alice"}}

	select {
	case m := <-got:
		assert.Equal(t, "call", m.Action)
		assert.Equal(t, "alice", m.From.UserID)
	case <-time.After(time.Second):
		t.Fatal("incoming message never dispatched")
	}
}

func TestHubConnectHooks(t *testing.T) {
	hub := runHub(t)
	connected := make(chan string, 1)
	disconnected := make(chan string, 1)
	hub.OnConnect = func(id string) { connected <- id }
	hub.OnDisconnect = func(id string) { disconnected <- id }

	c := fakeClient(hub, "alice")
	hub.register <- c
	select {
	case id := <-connected:
		assert.Equal(t, "alice", id)
	case <-time.After(time.Second):
		t.Fatal("connect hook never fired")
	}

	hub.unregister <- c
	select {
	case id := <-disconnected:
		assert.Equal(t, "alice", id)
	case <-time.After(time.Second):
		t.Fatal("disconnect hook never fired")
	}
}

func TestServeWSRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := runHub(t)

	incoming := make(chan IncomingMessage, 1)
	hub.OnIncoming = func(m IncomingMessage) { incoming <- m }

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		// stand-in for the JWT middleware
		c.Set("userId", "alice")
		c.Set("name", "Alice")
		c.Set("handle", "@alice")
	}, ServeWS(hub))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	// commands arrive stamped with the session profile, never the payload
	require.NoError(t, conn.WriteJSON(map[string]any{"action": "raise", "amount": 40}))
	select {
	case m := <-incoming:
		assert.Equal(t, "raise", m.Action)
		assert.Equal(t, int64(40), m.Amount)
		assert.Equal(t, "alice", m.From.UserID)
		assert.Equal(t, "@alice", m.From.Handle)
	case <-time.After(time.Second):
		t.Fatal("no incoming message")
	}

	// outgoing messages reach the socket as JSON
	hub.SendToPlayer("alice", OutgoingMessage{Event: "table_state", Data: map[string]any{"pot": 30}})
	var out OutgoingMessage
	require.NoError(t, conn.ReadJSON(&out))
	assert.Equal(t, "table_state", out.Event)
}
