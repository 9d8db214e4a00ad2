package websocket

import (
	"log"
	"sync"
)

type HubInterface interface {
	SendToPlayer(userID string, msg OutgoingMessage)
	Close()
}

type Hub struct {
	clients    map[string]*Client // userID -> client
	register   chan *Client
	unregister chan *Client
	sendOne    chan sendReq
	incoming   chan IncomingMessage
	OnIncoming func(IncomingMessage)
	// OnConnect and OnDisconnect fire from the hub loop; handlers that
	// send back through the hub must do so from another goroutine.
	OnConnect    func(userID string)
	OnDisconnect func(userID string)
	quit         chan struct{}
	mu           sync.RWMutex
}

type sendReq struct {
	UserID  string
	Message OutgoingMessage
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sendOne:    make(chan sendReq),
		incoming:   make(chan IncomingMessage, 32),
		quit:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			// a reconnect replaces the old connection
			if old, ok := h.clients[c.User.UserID]; ok {
				close(old.Send)
			}
			h.clients[c.User.UserID] = c
			log.Printf("hub: %s connected (%d online)", c.User.UserID, len(h.clients))
			h.mu.Unlock()
			if h.OnConnect != nil {
				h.OnConnect(c.User.UserID)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			cur, ok := h.clients[c.User.UserID]
			if ok && cur == c {
				delete(h.clients, c.User.UserID)
				log.Printf("hub: %s disconnected (%d online)", c.User.UserID, len(h.clients))
				close(c.Send)
			}
			h.mu.Unlock()
			if ok && cur == c && h.OnDisconnect != nil {
				h.OnDisconnect(c.User.UserID)
			}

		case req := <-h.sendOne:
			h.mu.RLock()
			if client, ok := h.clients[req.UserID]; ok {
				select {
				case client.Send <- req.Message:
				default:
					// slow consumer, drop rather than stall the hub
				}
			}
			h.mu.RUnlock()

		case msg := <-h.incoming:
			if h.OnIncoming != nil {
				h.OnIncoming(msg)
			}

		case <-h.quit:
			h.mu.Lock()
			for _, c := range h.clients {
				close(c.Send)
			}
			h.clients = make(map[string]*Client)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) SendToPlayer(userID string, msg OutgoingMessage) {
	h.sendOne <- sendReq{UserID: userID, Message: msg}
}

func (h *Hub) Close() {
	close(h.quit)
}
