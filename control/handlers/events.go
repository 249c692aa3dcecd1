package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sv4u/mtag/tagger/scanner"
)

const (
	eventClientBufferSize = 64
	eventHistorySize      = 100
	eventPingInterval     = 30 * time.Second
	eventWriteTimeout     = 10 * time.Second
	eventReadTimeout      = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The review page is served from the same origin; anything else is refused.
	CheckOrigin: sameOrigin,
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// DirEvent is one message on /api/events.
type DirEvent struct {
	Timestamp int64  `json:"timestamp"`
	Path      string `json:"path"`
	Op        string `json:"op"`
}

// EventBroadcaster fans directory events out to websocket clients and keeps a
// short history for clients that connect later.
type EventBroadcaster struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}
	history []DirEvent
}

type eventClient struct {
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// NewEventBroadcaster creates an empty broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients: make(map[*eventClient]struct{}),
		history: make([]DirEvent, 0, eventHistorySize),
	}
}

// Publish adapts a scanner event and broadcasts it.
func (b *EventBroadcaster) Publish(ev scanner.Event) {
	b.Broadcast(DirEvent{Timestamp: time.Now().Unix(), Path: ev.Path, Op: ev.Op})
}

// Broadcast records ev and sends it to every client. Slow clients miss it.
func (b *EventBroadcaster) Broadcast(ev DirEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("WARN: event_marshal_failed error=%v", err)
		return
	}

	b.mu.Lock()
	if len(b.history) >= eventHistorySize {
		b.history = b.history[1:]
	}
	b.history = append(b.history, ev)
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			log.Printf("WARN: websocket client buffer full, dropping event")
		}
	}
}

// History returns a copy of the buffered events, oldest first.
func (b *EventBroadcaster) History() []DirEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]DirEvent, len(b.history))
	copy(out, b.history)
	return out
}

// ClientCount returns the number of connected clients.
func (b *EventBroadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// ServeHTTP upgrades to a websocket, replays history and streams new events.
func (b *EventBroadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	// Replay before registering so live events cannot interleave with it.
	for _, ev := range b.History() {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			return
		}
	}

	client := &eventClient{conn: conn, send: make(chan []byte, eventClientBufferSize)}
	b.mu.Lock()
	b.clients[client] = struct{}{}
	b.mu.Unlock()

	go b.writePump(client)
	go b.readPump(client)
}

func (b *EventBroadcaster) writePump(c *eventClient) {
	ticker := time.NewTicker(eventPingInterval)
	defer func() {
		ticker.Stop()
		b.closeClient(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only detects disconnects; clients never send anything.
func (b *EventBroadcaster) readPump(c *eventClient) {
	defer b.closeClient(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(eventReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(eventReadTimeout))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARN: websocket unexpected close: %v", err)
			}
			return
		}
	}
}

// closeClient takes b.mu before c.mu, never the reverse.
func (b *EventBroadcaster) closeClient(c *eventClient) {
	b.mu.Lock()
	delete(b.clients, c)
	b.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
		c.conn.Close()
	}
}
