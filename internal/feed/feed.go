// Package feed streams engine events to dashboard clients over
// WebSocket. Each client picks the bus topics it wants with a
// subscribe/unsubscribe op message.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/logs"

	"main/internal/bus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Frame is the wire format pushed to clients.
type Frame struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	TsEvent int64  `json:"tsEvent"`
	Payload any    `json:"payload"`
}

type opMessage struct {
	Op     string   `json:"op"`
	Topics []string `json:"topics"`
}

// Hub fans engine events out to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Pump forwards events from the bus topics to subscribed clients until
// the context is canceled or the bus closes.
func (h *Hub) Pump(ctx context.Context, b *bus.Bus, topics ...string) {
	var wg sync.WaitGroup
	for _, topic := range topics {
		events, cancel := b.Subscribe(topic)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					h.Broadcast(event)
				}
			}
		}()
	}
	wg.Wait()
}

// Broadcast pushes one event to every client subscribed to its topic.
// Slow clients lose the frame rather than blocking the hub.
func (h *Hub) Broadcast(event bus.Event) {
	frame, err := json.Marshal(Frame{
		Topic:   event.Topic,
		Type:    event.Header.Type.String(),
		Seq:     event.Header.Seq,
		TsEvent: event.Header.TsEvent,
		Payload: event.Payload,
	})
	if err != nil {
		logs.Errorf("feed: marshal frame, err: %+v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.subscribed(event.Topic) {
			continue
		}
		select {
		case c.send <- frame:
		default:
		}
	}
}

// Handler upgrades HTTP requests and runs the client pumps.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logs.Errorf("feed: upgrade, err: %+v", err)
			return
		}
		c := &client{
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			topics: make(map[string]struct{}),
		}
		h.attach(c)
		go c.writePump()
		go c.readPump(func() { h.detach(c) })
	})
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) attach(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	logs.Infof("feed: client connected, total: %d", total)
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()
	logs.Infof("feed: client disconnected, total: %d", total)
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	topics map[string]struct{}
}

func (c *client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.topics[topic]
	return ok
}

func (c *client) apply(msg opMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Op {
	case "subscribe":
		for _, topic := range msg.Topics {
			c.topics[topic] = struct{}{}
		}
	case "unsubscribe":
		for _, topic := range msg.Topics {
			delete(c.topics, topic)
		}
	default:
		logs.Warnf("feed: unknown op: %s", msg.Op)
	}
}

func (c *client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logs.Warnf("feed: read, err: %+v", err)
			}
			return
		}
		var msg opMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logs.Warnf("feed: invalid message, err: %+v", err)
			continue
		}
		c.apply(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
