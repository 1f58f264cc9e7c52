package notify

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans out published payloads to WebSocket subscribers grouped by
// topic. It implements Publisher. Broadcast is fire-and-forget: slow or
// broken connections are dropped, and a topic with no subscribers
// discards the payload.
type Hub struct {
	clients    map[string]map[*websocket.Conn]bool // topic -> set of clients
	broadcast  chan broadcastMessage
	register   chan subscription
	unregister chan subscription
	mu         sync.Mutex
}

type subscription struct {
	conn  *websocket.Conn
	topic string
}

type broadcastMessage struct {
	topic   string
	payload any
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*websocket.Conn]bool),
		broadcast:  make(chan broadcastMessage, 256),
		register:   make(chan subscription),
		unregister: make(chan subscription),
	}
}

// Run services register/unregister/broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case sub := <-h.register:
			h.mu.Lock()
			if h.clients[sub.topic] == nil {
				h.clients[sub.topic] = make(map[*websocket.Conn]bool)
			}
			h.clients[sub.topic][sub.conn] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[sub.topic][sub.conn]; ok {
				delete(h.clients[sub.topic], sub.conn)
				sub.conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients[msg.topic] {
				if err := conn.WriteJSON(msg.payload); err != nil {
					log.Printf("ws write topic=%s: %v", msg.topic, err)
					conn.Close()
					delete(h.clients[msg.topic], conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a payload for fan-out. Never blocks; if the broadcast
// queue is full the sample is dropped (at-most-once delivery).
func (h *Hub) Publish(topic string, payload any) {
	select {
	case h.broadcast <- broadcastMessage{topic: topic, payload: payload}:
	default:
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve upgrades an HTTP request to a WebSocket subscription on topic.
// The connection stays registered until the client closes it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade topic=%s: %v", topic, err)
		return
	}
	h.register <- subscription{conn: conn, topic: topic}

	// Read loop exists only to detect the client going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister <- subscription{conn: conn, topic: topic}
				return
			}
		}
	}()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, conns := range h.clients {
		for conn := range conns {
			conn.Close()
		}
		delete(h.clients, topic)
	}
}
