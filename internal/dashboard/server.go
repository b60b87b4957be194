package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sleep-futures/internal/observability"
)

// Message is the WebSocket envelope.
type Message struct {
	Type string    `json:"type"`
	Data *Snapshot `json:"data"`
}

// Options for creating Server.
type Options struct {
	Loader          Loader
	RefreshInterval time.Duration // 0 disables periodic refresh
	Metrics         *observability.Metrics
	MetricsHandler  http.Handler // defaults to observability.Handler()
	Logger          *zerolog.Logger
	AllowedOrigins  []string // empty allows any origin
}

// Server serves the latest snapshot.
type Server struct {
	loader          Loader
	refreshInterval time.Duration
	metrics         *observability.Metrics
	metricsHandler  http.Handler
	logger          zerolog.Logger
	upgrader        websocket.Upgrader
	hub             *Hub

	mu       sync.RWMutex
	snapshot *Snapshot
	message  []byte
}

// New creates a dashboard server.
func New(opts Options) *Server {
	s := &Server{
		loader:          opts.Loader,
		refreshInterval: opts.RefreshInterval,
		metrics:         opts.Metrics,
		metricsHandler:  opts.MetricsHandler,
		logger:          zerolog.Nop(),
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("component", "dashboard").Logger()
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultMetrics
	}
	if s.metricsHandler == nil {
		s.metricsHandler = observability.Handler()
	}
	s.hub = NewHub(func(n int) { s.metrics.DashboardClients.Set(float64(n)) })
	s.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	return s
}

// Snapshot returns the current snapshot, nil before the first refresh.
func (s *Server) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh loads a new snapshot and pushes it to WebSocket clients.
// On error the previous snapshot stays in place.
func (s *Server) Refresh(ctx context.Context) error {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	msg, err := json.Marshal(Message{Type: "snapshot", Data: snap})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	s.snapshot = snap
	s.message = msg
	s.mu.Unlock()

	s.hub.Broadcast(msg)
	s.logger.Info().Str("run_id", snap.RunID).Int("clients", s.hub.Len()).Msg("snapshot refreshed")
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/daily", s.serveSnapshot(func(snap *Snapshot) any { return snap.Daily }))
	mux.HandleFunc("/api/predictions", s.serveSnapshot(func(snap *Snapshot) any { return snap.Predictions }))
	mux.HandleFunc("/api/strategy", s.serveSnapshot(func(snap *Snapshot) any { return snap.Strategy }))
	mux.HandleFunc("/api/summary", s.serveSnapshot(func(snap *Snapshot) any {
		return struct {
			RunID       string      `json:"run_id"`
			GeneratedAt time.Time   `json:"generated_at"`
			Summary     SummaryView `json:"summary"`
		}{snap.RunID, snap.GeneratedAt, snap.Summary}
	}))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run refreshes once, then serves addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var tick <-chan time.Time
	if s.refreshInterval > 0 {
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.hub.CloseAll()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		case <-tick:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error().Err(err).Msg("refresh failed, keeping previous snapshot")
			}
		}
	}
}

func (s *Server) serveSnapshot(view func(*Snapshot) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := s.Snapshot()
		if snap == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no snapshot loaded"})
			return
		}
		writeJSON(w, http.StatusOK, view(snap))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{"status": "ok", "clients": s.hub.Len()}
	if snap := s.Snapshot(); snap != nil {
		resp["run_id"] = snap.RunID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}

	// Registering under the read lock orders this client against Refresh:
	// it gets either the queued snapshot or the next broadcast.
	s.mu.RLock()
	if s.message != nil {
		c.send <- s.message
	}
	s.hub.register(c)
	s.mu.RUnlock()

	go c.writePump()
	go c.readPump(s.hub)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}
