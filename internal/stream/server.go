package stream

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/journal"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/rng"
)

// Server accepts stream connections and runs one session per connection.
type Server struct {
	cfg      Config
	source   quote.Source
	recorder journal.Recorder
	logger   *slog.Logger
	upgrader websocket.Upgrader
	paths    map[string]bool
	seeds    rng.Source // nil when sessions draw random seeds

	mu       sync.Mutex
	sessions map[string]*session
	stopping bool
	wg       sync.WaitGroup
}

// NewServer creates a stream server. A nil recorder discards journal events.
func NewServer(cfg Config, source quote.Source, recorder journal.Recorder, logger *slog.Logger) *Server {
	if recorder == nil {
		recorder = journal.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.AliasPath == "" {
		cfg.AliasPath = def.AliasPath
	}
	if cfg.DefaultInterval == 0 {
		cfg.DefaultInterval = def.DefaultInterval
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = def.MinInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	s := &Server{
		cfg:      cfg,
		source:   source,
		recorder: recorder,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		paths: map[string]bool{
			normalizePath(cfg.Path):      true,
			normalizePath(cfg.AliasPath): true,
		},
		sessions: make(map[string]*session),
	}
	if cfg.Seed != 0 {
		s.seeds = rng.New(cfg.Seed)
	}
	return s
}

// ServeHTTP upgrades the request and serves a session until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	allowed := s.paths[normalizePath(r.URL.Path)]
	if !allowed && !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()
	if stopping {
		http.Error(w, ErrServerStopping.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		metrics.Connections.WithLabelValues("upgrade_failed").Inc()
		s.logger.Debug("upgrade failed", "path", r.URL.Path, "error", err)
		return
	}

	if !allowed {
		metrics.Connections.WithLabelValues("rejected").Inc()
		s.logger.Warn("rejected connection", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, closeTextInvalidPath)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
		conn.Close()
		return
	}

	id := uuid.NewString()
	sess := newSession(id, &s.cfg, conn, s.source, s.sessionRandom(), s.recorder,
		s.logger.With("session_id", id, "remote_addr", r.RemoteAddr))

	if !s.track(sess) {
		sess.shutdown(websocket.CloseGoingAway, closeTextShutdown, nil, reasonShutdown)
		return
	}
	defer s.untrack(sess)

	metrics.Connections.WithLabelValues("accepted").Inc()
	sess.logger.Info("session opened", "path", r.URL.Path)
	sess.serve(NormalizeSymbol(r.URL.Query().Get("symbol")))
}

// Shutdown closes every live session with 1001 (going away) and waits for
// them to finish or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	live := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		live = append(live, sess)
	}
	s.mu.Unlock()

	s.logger.Info("closing sessions", "count", len(live))
	for _, sess := range live {
		sess.shutdown(websocket.CloseGoingAway, closeTextShutdown, nil, reasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSessions returns the number of open sessions.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) track(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.sessions[sess.id] = sess
	s.wg.Add(1)
	metrics.SessionsActive.Inc()
	return true
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	metrics.SessionsActive.Dec()
	s.wg.Done()
}

// sessionRandom derives a per-session source from the server seed so a seeded
// server replays the same chaos across runs.
func (s *Server) sessionRandom() rng.Source {
	if s.seeds == nil {
		return rng.New(0)
	}
	return rng.New(uint64(s.seeds.IntN(math.MaxInt)) + 1)
}
