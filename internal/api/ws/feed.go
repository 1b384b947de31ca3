package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
)

var _ port.Publisher = (*Hub)(nil)

// Frame is one message on the public feed.
type Frame struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

const (
	ChannelTrades   = "trades"
	ChannelForfeits = "forfeits"
	ChannelFlags    = "flags"
	ChannelBook     = "book"
)

// Hub fans engine output out to connected websocket clients. A slow client
// is disconnected rather than allowed to stall the feed.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Sugar().Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 256)}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop drains and discards client messages so pings and close frames
// are processed.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(channel string, data any) error {
	b, err := json.Marshal(Frame{Channel: channel, Data: data})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		select {
		case c.send <- b:
		default:
			delete(h.conns, c)
			close(c.send)
		}
	}
	return nil
}

func (h *Hub) PublishTrade(_ context.Context, t *domain.Trade) error {
	return h.broadcast(ChannelTrades, t)
}

func (h *Hub) PublishForfeit(_ context.Context, f *domain.ForfeitedCommitment) error {
	return h.broadcast(ChannelForfeits, f)
}

func (h *Hub) PublishFlag(_ context.Context, f *domain.FlaggedTrade) error {
	return h.broadcast(ChannelFlags, f)
}

// BroadcastBook pushes a book snapshot to every subscriber.
func (h *Hub) BroadcastBook(snap *domain.BookSnapshot) error {
	return h.broadcast(ChannelBook, snap)
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		delete(h.conns, c)
		close(c.send)
	}
	return nil
}
