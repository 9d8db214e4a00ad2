package websocket

import (
	"net/http"

	"CampusPoker/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws (JWT middleware resolves the profile before we get here)
func ServeWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := identity.Profile{
			UserID: c.GetString("userId"),
			Name:   c.GetString("name"),
			Handle: c.GetString("handle"),
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		client := &Client{
			User: user,
			Conn: conn,
			Send: make(chan OutgoingMessage, 32),
			Hub:  hub,
		}

		hub.register <- client

		go client.writePump()
		go client.readPump()
	}
}
