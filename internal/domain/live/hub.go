// Package live pushes booking and window events to websocket subscribers of
// a room's schedule.
package live

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"deptrooms/internal/events"
	"deptrooms/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// Message is the envelope of everything the hub writes to a client.
type Message struct {
	Type   string        `json:"type"`
	RoomID int64         `json:"room_id,omitempty"`
	Event  *events.Event `json:"event,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type clientMessage struct {
	Type   string `json:"type"`
	RoomID int64  `json:"room_id"`
}

type connection struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[int64]bool
}

// Hub tracks schedule subscribers. A user may hold several connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{connections: make(map[*connection]struct{})}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
	metrics.LiveSubscribers.Set(float64(len(h.connections)))
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
	metrics.LiveSubscribers.Set(float64(len(h.connections)))
}

// Publish delivers e to every connection subscribed to e.RoomID. Slow
// clients miss events rather than block the publisher.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(Message{Type: string(e.Type), RoomID: e.RoomID, Event: &e})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if !c.rooms[e.RoomID] {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Printf("[WARN] live event dropped user_id=%d room_id=%d type=%s", c.userID, e.RoomID, e.Type)
		}
	}
	return nil
}

// Subscribers returns the number of open connections.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ServeWS registers conn and runs its read and write loops until the client
// disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, userID int64) {
	c := &connection{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[int64]bool),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("live connection closed user_id=%d error=%v", c.userID, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.RoomID <= 0 {
			h.reply(c, Message{Type: "error", Error: "expected {\"type\":\"subscribe\"|\"unsubscribe\",\"room_id\":N}"})
			continue
		}

		switch msg.Type {
		case "subscribe":
			h.mu.Lock()
			c.rooms[msg.RoomID] = true
			h.mu.Unlock()
			h.reply(c, Message{Type: "subscribed", RoomID: msg.RoomID})
		case "unsubscribe":
			h.mu.Lock()
			delete(c.rooms, msg.RoomID)
			h.mu.Unlock()
			h.reply(c, Message{Type: "unsubscribed", RoomID: msg.RoomID})
		default:
			h.reply(c, Message{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

func (h *Hub) reply(c *connection, m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
