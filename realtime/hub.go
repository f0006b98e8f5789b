package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"service-booking/logger"
	"service-booking/middleware"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks the connected socket per subject id and pushes event payloads
// to it. Delivery is best-effort: an absent or slow client is dropped, never
// waited on.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.clients[c.SubjectID]; ok {
		close(old.Send)
	}
	h.clients[c.SubjectID] = c
}

// RemoveClient drops the connection only if it is still the registered one,
// so a reconnect is never torn down by its predecessor's dying read pump.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.SubjectID]; ok && cur == c {
		close(cur.Send)
		delete(h.clients, c.SubjectID)
	}
}

// SendToSubject pushes one named event to a subject's socket if connected.
func (h *Hub) SendToSubject(subjectID, event string, payload interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
	if err != nil {
		logger.Error("Failed to marshal realtime event "+event, err)
		return
	}

	// The send must happen under the lock: Send is closed under the write
	// lock on removal or replacement, and a send racing that close would
	// panic the dispatcher. The select never blocks, so the lock is held
	// only momentarily.
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[subjectID]
	if !ok {
		return
	}

	select {
	case c.Send <- msg:
	default:
		// Slow consumer; drop the connection rather than the mutation path.
		go h.RemoveClient(c)
	}
}

// ServeWS upgrades the connection. The client authenticates with the same
// bearer token as the REST API, passed as a query parameter.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	claims, err := middleware.VerifyJWT(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	subjectID, _ := claims["sub"].(string)
	if subjectID == "" {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade websocket connection", err)
		return
	}

	client := &Client{
		SubjectID: subjectID,
		Conn:      conn,
		Send:      make(chan []byte, 16),
		hub:       h,
	}
	h.AddClient(client)

	go client.writePump()
	go client.readPump()
}
