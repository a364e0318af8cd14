package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event types pushed over the progress feed
const (
	EventResponseEvaluated = "response_evaluated"
	EventSessionCompleted  = "session_completed"
	EventSessionCancelled  = "session_cancelled"
)

// Event is a one-way progress notification about an interview session
type Event struct {
	Type         string    `json:"type"`
	SessionID    string    `json:"session_id"`
	QuestionID   string    `json:"question_id,omitempty"`
	Score        *float64  `json:"score,omitempty"`
	OverallScore *float64  `json:"overall_score,omitempty"`
	Answered     int       `json:"answered,omitempty"`
	Total        int       `json:"total,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type userEvent struct {
	userID  string
	payload []byte
}

// Hub fans interview progress events out to each user's open connections.
// Delivery is best-effort: a slow or closed client is dropped, never waited on.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan userEvent
	mu         sync.RWMutex
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan userEvent, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			if h.byUser[client.UserID] == nil {
				h.byUser[client.UserID] = make(map[*Client]bool)
			}
			h.byUser[client.UserID][client] = true
			h.mu.Unlock()
			slog.Info("Client registered", "user_id", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.dropClient(client)
			}
			h.mu.Unlock()
			slog.Info("Client unregistered", "user_id", client.UserID)

		case event := <-h.events:
			h.mu.Lock()
			for client := range h.byUser[event.userID] {
				select {
				case client.Send <- event.payload:
				default:
					h.dropClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// dropClient must be called with the hub lock held
func (h *Hub) dropClient(client *Client) {
	delete(h.clients, client)
	if peers, ok := h.byUser[client.UserID]; ok {
		delete(peers, client)
		if len(peers) == 0 {
			delete(h.byUser, client.UserID)
		}
	}
	close(client.Send)
}

// PublishToUser queues an event for every connection the user has open. It
// never blocks the caller; when the queue is full the event is dropped.
func (h *Hub) PublishToUser(userID string, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err, "type", event.Type)
		return
	}

	select {
	case h.events <- userEvent{userID: userID, payload: payload}:
	default:
		slog.Warn("Event queue full, dropping event", "user_id", userID, "type", event.Type)
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		Hub:    h,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		UserID: userID,
	}

	h.register <- client
	return client
}

// ReadPump drains the connection for control frames. The feed is one-way, so
// inbound data frames are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4 * 1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
