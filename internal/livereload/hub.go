// Package livereload tells connected browsers to reload after a rebuild.
package livereload

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/weaving/internal/events"
	"git.home.luguber.info/inful/weaving/internal/logfields"
	"git.home.luguber.info/inful/weaving/internal/metrics"
)

// Message is the text frame sent to clients on every reload.
const Message = "reload"

const (
	clientBuffer = 4
	writeWait    = 5 * time.Second
	pingPeriod   = 30 * time.Second
	readLimit    = 512
)

// ReloadEvent asks every client to reload. Seq identifies the rebuild that
// produced it; an event whose Seq is not newer than the last one published
// is dropped.
type ReloadEvent struct {
	Seq uint64
}

// Hub manages WebSocket clients for reload broadcasts.
type Hub struct {
	mu       sync.Mutex
	nextID   uint64
	clients  map[uint64]*client
	lastSeq  uint64
	closed   bool
	upgrader websocket.Upgrader
	recorder metrics.Recorder
	logger   *slog.Logger
}

type client struct {
	id   uint64
	ch   chan ReloadEvent
	done chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(h *Hub) {
		if r != nil {
			h.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:  make(map[uint64]*client),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and keeps the client registered until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug("WebSocket upgrade failed", logfields.Error(err))
		return
	}

	c := &client{ch: make(chan ReloadEvent, clientBuffer), done: make(chan struct{})}
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, c)
	}()

	// The reader only detects the peer going away.
	conn.SetReadLimit(readLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c.id)
	<-writerDone
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	defer func() { _ = conn.Close() }()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.remove(c.id)
				return
			}
		case evt := <-c.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(Message)); err != nil {
				h.logger.Debug("Reload write failed", logfields.Seq(evt.Seq), logfields.Error(err))
				h.remove(c.id)
				return
			}
		}
	}
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.nextID++
	c.id = h.nextID
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.recorder.SetConnectedClients(n)
	h.logger.Debug("Live reload client connected", logfields.Clients(n))
	return true
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.recorder.SetConnectedClients(n)
		h.logger.Debug("Live reload client disconnected", logfields.Clients(n))
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues evt for every client without blocking. Clients whose
// queue is full are disconnected. It returns the number of clients the
// event was queued for.
func (h *Hub) Publish(evt ReloadEvent) int {
	h.mu.Lock()
	if h.closed || evt.Seq <= h.lastSeq {
		h.mu.Unlock()
		return 0
	}
	h.lastSeq = evt.Seq
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	sent, dropped := 0, 0
	for _, c := range snapshot {
		select {
		case c.ch <- evt:
			sent++
		default:
			dropped++
			h.remove(c.id)
		}
	}
	h.recorder.IncReloadBroadcast()
	h.logger.Debug("Reload broadcast", logfields.Seq(evt.Seq), logfields.Clients(sent), slog.Int("dropped", dropped))
	return sent
}

// Follow publishes a reload for every build that completed without a fatal
// error, until ctx is done or builds is closed. Builds with page-local
// failures still reload.
func (h *Hub) Follow(ctx context.Context, builds <-chan events.BuildCompleted) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-builds:
			if !ok {
				return
			}
			if b.Err != nil {
				h.logger.Debug("Skipping reload for failed build", logfields.Seq(b.Seq), logfields.Error(b.Err))
				continue
			}
			h.Publish(ReloadEvent{Seq: b.Seq})
		}
	}
}

// Shutdown disconnects every client and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = make(map[uint64]*client)
	h.mu.Unlock()

	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetConnectedClients(0)
}
