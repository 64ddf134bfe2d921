// Package livefeed pushes recorded guest activity to connected admin dashboards over
// websockets.
package livefeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/observability"
	"github.com/marigold-events/wedding-rsvp-api/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message is the wire shape pushed to dashboards.
type Message struct {
	ID         string            `json:"id"`
	GuestID    string            `json:"guestId"`
	Kind       string            `json:"kind"`
	OccurredAt time.Time         `json:"occurredAt"`
	Payload    map[string]string `json:"payload,omitempty"`
}

func messageFromEvent(e domain.ActivityEvent) Message {
	return Message{
		ID:         string(e.ID),
		GuestID:    string(e.GuestID),
		Kind:       string(e.Kind),
		OccurredAt: e.OccurredAt.UTC(),
		Payload:    e.Payload,
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans activity out to websocket subscribers. Slow subscribers drop messages rather
// than block publishers.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*subscriber]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func NewHub(l zerolog.Logger) *Hub {
	return &Hub{
		log: l.With().Str("component", "livefeed").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*subscriber]struct{}),
	}
}

// Publish implements activityfeed.Publisher.
func (h *Hub) Publish(e domain.ActivityEvent) {
	b, err := json.Marshal(messageFromEvent(e))
	if err != nil {
		h.log.Error().Err(err).Msg("marshal activity")
		return
	}
	h.broadcast(b)
}

func (h *Hub) broadcast(b []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		select {
		case s.send <- b:
		default:
			h.log.Warn().Msg("dropping activity for slow subscriber")
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams activity until the client disconnects or the
// hub closes. Authentication happens in middleware before this handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s := &subscriber{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	h.register(s)
	defer h.unregister(s)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(s)
	}()
	h.readLoop(s)
	s.stop()
	<-writerDone
	_ = conn.Close()
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	h.clients[s] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	observability.LiveFeedClients.Set(float64(n))
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	delete(h.clients, s)
	n := len(h.clients)
	h.mu.Unlock()
	observability.LiveFeedClients.Set(float64(n))
}

// readLoop drains client frames so control messages (pong, close) are processed.
func (h *Hub) readLoop(s *subscriber) {
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("activity stream closed")
			}
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = s.conn.Close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			// Unblocks readLoop when the hub is closing.
			_ = s.conn.Close()
			return
		}
	}
}

// Close disconnects every subscriber and waits for their handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for s := range h.clients {
		s.stop()
	}
	h.mu.Unlock()
	h.wg.Wait()
}
