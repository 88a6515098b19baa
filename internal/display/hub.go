package display

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Peers only send control frames
	maxMessageSize = 512

	// Frames queued per peer before it is dropped as too slow
	sendBuffer = 16
)

type peer struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub streams frames to WebSocket peers at /ws and serves /metrics on the
// same listener.
//
// Show never blocks: a peer whose queue is full is disconnected.
type Hub struct {
	router   *chi.Mux
	server   *http.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[*peer]struct{}
	last  []byte

	listener net.Listener
	served   chan error
}

// NewHub creates a hub for addr. rec may be nil.
func NewHub(addr string, rec *metrics.Recorder) *Hub {
	h := &Hub{
		router: chi.NewRouter(),
		peers:  make(map[*peer]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only and served on the device LAN.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	h.router.Use(middleware.Recoverer)
	h.router.Get("/ws", h.handleWebSocket)
	h.router.Method(http.MethodGet, "/metrics", rec.Handler())

	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Handler returns the hub router.
func (h *Hub) Handler() http.Handler {
	return h.router
}

// Show implements Display.
func (h *Hub) Show(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		logging.Error("Failed to encode frame", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = data
	for p := range h.peers {
		select {
		case p.send <- data:
		default:
			logging.Warn("Dropping slow display peer", zap.String("remote_addr", p.conn.RemoteAddr().String()))
			h.dropLocked(p)
		}
	}
}

// Peers returns the number of connected peers.
func (h *Hub) Peers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}

	p := &peer{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.peers[p] = struct{}{}
	if h.last != nil {
		p.send <- h.last
	}
	h.mu.Unlock()

	logging.Info("Display peer connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(p)
	h.readPump(p)
}

// readPump discards peer messages and notices disconnects.
func (h *Hub) readPump(p *peer) {
	defer func() {
		h.drop(p)
		_ = p.conn.Close()
		logging.Info("Display peer disconnected", zap.String("remote_addr", p.conn.RemoteAddr().String()))
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(p)
}

func (h *Hub) dropLocked(p *peer) {
	if _, ok := h.peers[p]; !ok {
		return
	}
	delete(h.peers, p)
	close(p.send)
}

// Start binds the listen address and serves in the background.
func (h *Hub) Start() error {
	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("display listen on %s: %w", h.server.Addr, err)
	}
	h.listener = ln
	h.served = make(chan error, 1)

	go func() {
		err := h.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		h.served <- err
	}()

	logging.Info("Display feed started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (h *Hub) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return h.server.Addr
}

// Shutdown closes every peer and stops the listener.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	for p := range h.peers {
		h.dropLocked(p)
	}
	h.mu.Unlock()

	if h.served == nil {
		return nil
	}
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("display shutdown: %w", err)
	}
	err := <-h.served
	h.served = nil
	return err
}
