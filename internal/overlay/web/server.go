// Package web hosts the overlay as a websocket feed for browser sources such
// as a streaming scene. Clients receive the current state on connect and
// every change after it.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/screenlingo/internal/display"
	apperrors "github.com/GriffinCanCode/screenlingo/internal/errors"
	"github.com/GriffinCanCode/screenlingo/internal/history"
	"github.com/GriffinCanCode/screenlingo/internal/trace"
)

// Message is one overlay update.
type Message struct {
	Type  string  `json:"type"`
	Text  string  `json:"text,omitempty"`
	Alpha float64 `json:"alpha,omitempty"`
}

// Snapshotter exposes the display state for /api/state.
type Snapshotter interface {
	Snapshot() display.Snapshot
}

// Config holds server settings. History, when set, is served at
// /api/history.
type Config struct {
	Addr    string
	History *history.Store
}

type client struct {
	send chan Message
}

// Server is a display.Host that renders to websocket clients.
type Server struct {
	cfg Config
	log *slog.Logger

	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	label    string
	visible  bool
	alpha    float64
	snapshot func() display.Snapshot
	addr     string

	ready    chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
}

// New creates a server. Nothing listens until Run.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		cfg:     cfg,
		log:     slog.Default().With("component", "web"),
		clients: make(map[*client]struct{}),
		ready:   make(chan struct{}),
		quit:    make(chan struct{}),
	}
}

// SelfExcluding is true: browser sources are composited outside the
// captured screen.
func (s *Server) SelfExcluding() bool { return true }

func (s *Server) Show() {
	s.broadcast(Message{Type: TypeShow}, func() { s.visible = true })
}

func (s *Server) Hide() {
	s.broadcast(Message{Type: TypeHide}, func() { s.visible = false })
}

func (s *Server) SetLabel(text string) {
	s.broadcast(Message{Type: TypeLabel, Text: text}, func() { s.label = text })
}

func (s *Server) SetTransparency(alpha float64) {
	s.broadcast(Message{Type: TypeAlpha, Alpha: alpha}, func() { s.alpha = alpha })
}

// Close tells clients the overlay is gone and disconnects them.
func (s *Server) Close() {
	s.broadcast(Message{Type: TypeClose}, func() {})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

// Quit ends the UI loop.
func (s *Server) Quit() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or the configured one before Run.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == "" {
		return s.cfg.Addr
	}
	return s.addr
}

// broadcast applies update to the replay state and queues msg for every
// client under one lock, so each client sees changes in order.
func (s *Server) broadcast(msg Message, update func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update()
	if s.closed {
		return
	}
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.log.Warn("websocket client too slow, disconnecting", "type", msg.Type)
			close(c.send)
			delete(s.clients, c)
		}
	}
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	c.send <- Message{Type: TypeLabel, Text: s.label}
	c.send <- Message{Type: TypeAlpha, Alpha: s.alpha}
	if s.visible {
		c.send <- Message{Type: TypeShow}
	} else {
		c.send <- Message{Type: TypeHide}
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	log := trace.Logger(r.Context())
	c := &client{send: make(chan Message, ClientBuffer)}
	if !s.register(c) {
		_ = conn.Close(websocket.StatusGoingAway, "overlay closed")
		return
	}
	defer s.unregister(c)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	// Clients never send; CloseRead handles control frames and reports a
	// peer close through ctx.
	ctx := conn.CloseRead(context.Background())
	for {
		select {
		case <-ctx.Done():
			log.Debug("websocket closed by peer", "remote", r.RemoteAddr)
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "overlay closed")
				return
			}
			wctx, cancel := context.WithTimeout(ctx, WriteTimeout)
			err := wsjson.Write(wctx, conn, msg)
			cancel()
			if err != nil {
				log.Debug("websocket write error", "error", err)
				return
			}
		}
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if snap == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "overlay not running"})
		return
	}
	_ = json.NewEncoder(w).Encode(snap())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.NotFound(w, r)
		return
	}
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.cfg.History.Last(limit))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Run serves clients and ticks t on a goroutine locked to its OS thread
// until t terminates or Quit is called.
func (s *Server) Run(t display.Ticker, every time.Duration) error {
	if every <= 0 {
		every = display.DefaultTick
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return apperrors.Wrap(err, apperrors.RendererFailed, "listen").WithMetadata("addr", s.cfg.Addr)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	if sn, ok := t.(Snapshotter); ok {
		s.snapshot = sn.Snapshot
	}
	s.mu.Unlock()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: ReadHeaderTimeout}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("web overlay server error", "error", err)
		}
	}()
	close(s.ready)
	s.log.Info("overlay serving", "addr", s.Addr(), "tick", every)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		s.loop(t, every)
	}()
	<-loopDone

	s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.RendererFailed, "shutdown web overlay")
	}
	return nil
}

func (s *Server) loop(t display.Ticker, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case <-ticker.C:
			if !t.Tick() {
				return
			}
		}
	}
}
