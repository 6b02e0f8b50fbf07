package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xmproxy/webapp/internal/eventbus"
)

// Message is one WebSocket push frame.
type Message struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan Message
}

// StatusHub fans bus events out to WebSocket clients. Browsers keep polling
// /api/status; the hub exists so transitions show up without waiting for the
// next poll tick.
type StatusHub struct {
	monitor  StatusProvider
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewStatusHub creates the hub.
func NewStatusHub(monitor StatusProvider) *StatusHub {
	return &StatusHub{
		monitor: monitor,
		clients: make(map[string]*wsClient),
		upgrader: websocket.Upgrader{
			// The UI is served from the appliance itself; the API carries no
			// credentials that another origin could replay.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run forwards bus events to connected clients until ctx is cancelled.
// A nil bus leaves the hub serving only the per-connect status snapshot.
func (h *StatusHub) Run(ctx context.Context, bus *eventbus.Bus) {
	if bus == nil {
		<-ctx.Done()
		return
	}

	statusSub := bus.Subscribe(eventbus.TopicStatusChanged, 16)
	restartSub := bus.Subscribe(eventbus.TopicRestart, 16)
	configSub := bus.Subscribe(eventbus.TopicConfigSaved, 16)
	defer statusSub.Close()
	defer restartSub.Close()
	defer configSub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-statusSub.Events():
			h.broadcast(Message{Type: "status", Data: env.Payload, Timestamp: env.Timestamp})
		case env := <-restartSub.Events():
			h.broadcast(Message{Type: "restart", Data: env.Payload, Timestamp: env.Timestamp})
		case env := <-configSub.Events():
			h.broadcast(Message{Type: "config", Data: env.Payload, Timestamp: env.Timestamp})
		}
	}
}

// HandleWebSocket upgrades the connection and streams events until the
// client goes away. The first frame is always the current status snapshot.
func (h *StatusHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[StatusHub] upgrade failed: %v", err)
		return
	}

	client := &wsClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, 32),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	log.Printf("[StatusHub] client %s connected", client.id)

	client.send <- Message{
		Type:      "status",
		Data:      eventbus.StatusEvent{Current: string(h.monitor.Last())},
		Timestamp: time.Now().UTC(),
	}

	go h.writePump(client)
	h.readUntilClosed(client)
}

// readUntilClosed drains inbound frames; the stream is one-way, so the only
// thing a read can tell us is that the peer disconnected.
func (h *StatusHub) readUntilClosed(client *wsClient) {
	defer h.removeClient(client)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StatusHub) writePump(client *wsClient) {
	for message := range client.send {
		if err := client.conn.WriteJSON(message); err != nil {
			return
		}
	}
}

// removeClient detaches and closes the client. Closing send happens under
// the write lock so broadcast, which sends under the read lock, cannot race
// it.
func (h *StatusHub) removeClient(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	h.mu.Unlock()

	client.conn.Close()
	log.Printf("[StatusHub] client %s disconnected", client.id)
}

// ClientCount returns the number of connected clients.
func (h *StatusHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *StatusHub) broadcast(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("[StatusHub] dropping %s frame for slow client %s", message.Type, client.id)
		}
	}
}
