package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/chaos"
	"github.com/rickgao/stockfeed/internal/journal"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/rng"
	"github.com/rickgao/stockfeed/internal/schedule"
)

// wsConn is the subset of *websocket.Conn a session uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// session runs one client connection.
type session struct {
	id       string
	cfg      *Config
	conn     wsConn
	source   quote.Source
	random   rng.Source
	injector *chaos.Injector
	updates  *schedule.UpdateScheduler
	recorder journal.Recorder
	logger   *slog.Logger

	ctx    context.Context // Cancelled on close; parent of every cycle
	cancel context.CancelFunc

	// writeMu serializes frames and the closed transition. closed is only
	// set while writeMu is held, so a write that sees it false completes
	// before the close frame.
	writeMu sync.Mutex
	closed  atomic.Bool

	mu          sync.Mutex // Guards the fields below
	symbol      string
	interval    time.Duration
	cycleCancel context.CancelFunc
	cycles      int // Cycles started, for tests
	disconnect  *schedule.Disconnect

	done chan struct{}
}

func newSession(id string, cfg *Config, conn wsConn, source quote.Source, random rng.Source, recorder journal.Recorder, logger *slog.Logger) *session {
	if random == nil {
		random = rng.New(0)
	}
	if recorder == nil {
		recorder = journal.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:       id,
		cfg:      cfg,
		conn:     conn,
		source:   source,
		random:   random,
		injector: chaos.NewInjector(cfg.Chaos, random),
		updates:  schedule.NewUpdateScheduler(cfg.Schedule, random),
		recorder: recorder,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		interval: cfg.DefaultInterval,
		done:     make(chan struct{}),
	}
}

// serve sends ready, arms the forced disconnect, starts the initial
// subscription if any, and reads control messages until the connection ends.
func (s *session) serve(initialSymbol string) {
	defer close(s.done)

	if s.cfg.ReadLimit > 0 {
		s.conn.SetReadLimit(s.cfg.ReadLimit)
	}

	s.recorder.Record(journal.NewEvent(s.id, journal.KindConnected, initialSymbol, ""))
	s.send(TypeReady, ReadyMessage{Type: TypeReady, Message: s.cfg.ReadyMessage})

	s.mu.Lock()
	if !s.closed.Load() {
		s.disconnect = schedule.ArmDisconnect(s.cfg.Schedule, s.random, s.forceReset)
		s.logger.Debug("forced disconnect armed", "after", s.disconnect.Delay())
	}
	s.mu.Unlock()

	if initialSymbol != "" {
		s.subscribe(initialSymbol, s.cfg.DefaultInterval)
	}

	s.readLoop()
}

func (s *session) readLoop() {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			reason := reasonReadError
			if s.closed.Load() || websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				reason = reasonClientClosed
			} else {
				s.logger.Debug("read failed", "error", err)
			}
			s.terminate(reason)
			return
		}
		s.handle(data)
	}
}

func (s *session) handle(data []byte) {
	msg, err := parseInbound(data, s.cfg)
	if err != nil {
		s.sendError(MsgInvalidFormat, 0)
		return
	}

	switch msg.Type {
	case TypePing:
		s.handlePing()
	case TypeSubscribe:
		s.handleSubscribe(msg)
	default:
		s.logger.Debug("ignoring message", "type", msg.Type)
	}
}

func (s *session) handlePing() {
	if s.injector.DropHeartbeat() {
		metrics.ChaosEvents.WithLabelValues("heartbeat_drop").Inc()
		return
	}
	s.send(TypePong, PongMessage{Type: TypePong, At: time.Now().UnixMilli()})
}

func (s *session) handleSubscribe(msg inbound) {
	if msg.Symbol != "" {
		s.recorder.Record(journal.NewEvent(s.id, journal.KindSubscribed, msg.Symbol,
			fmt.Sprintf("interval_ms=%d", msg.Interval.Milliseconds())))
	}
	s.subscribe(msg.Symbol, msg.Interval)
}

// subscribe replaces the subscription and restarts the update cycle. An empty
// symbol leaves the session unsubscribed.
func (s *session) subscribe(symbol string, interval time.Duration) {
	s.mu.Lock()
	if s.cycleCancel != nil {
		s.cycleCancel()
		s.cycleCancel = nil
	}
	s.symbol = symbol
	s.interval = interval
	if s.closed.Load() {
		s.mu.Unlock()
		return
	}
	if symbol == "" {
		s.mu.Unlock()
		s.sendError(MsgSymbolRequired, 0)
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.cycleCancel = cancel
	s.cycles++
	s.mu.Unlock()

	s.logger.Info("subscribed", "symbol", symbol, "interval_ms", interval.Milliseconds())
	go s.runCycle(ctx, symbol, interval)
}

// runCycle pushes once without chaos, then fires scheduled pushes until ctx
// is cancelled by a resubscribe or close.
func (s *session) runCycle(ctx context.Context, symbol string, interval time.Duration) {
	s.push(ctx, symbol)
	if ctx.Err() != nil {
		return
	}

	timer := time.NewTimer(s.updates.Next(interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		timer.Reset(s.updates.Next(interval))
		go s.scheduledPush(ctx, symbol)
	}
}

// push fetches and writes one quote with no chaos applied.
func (s *session) push(ctx context.Context, symbol string) {
	payload, err := s.fetch(ctx, symbol)
	if err != nil {
		s.reportFetchError(symbol, err)
		return
	}
	s.write(payload, TypeQuote)
}

// scheduledPush runs one scheduled tick through the chaos injector.
func (s *session) scheduledPush(ctx context.Context, symbol string) {
	n, burst := s.injector.Burst()
	if !burst {
		s.chaoticPush(ctx, symbol)
		return
	}
	metrics.ChaosEvents.WithLabelValues("burst").Inc()
	s.logger.Debug("burst", "symbol", symbol, "pushes", n)
	for i := 0; i < n; i++ {
		time.AfterFunc(s.injector.BurstOffset(i), func() {
			s.chaoticPush(ctx, symbol)
		})
	}
}

// chaoticPush fetches a quote and delivers it through delay, corruption and
// duplication.
func (s *session) chaoticPush(ctx context.Context, symbol string) {
	if s.closed.Load() {
		return
	}
	payload, err := s.fetch(ctx, symbol)
	if err != nil {
		s.reportFetchError(symbol, err)
		return
	}

	plan := s.injector.Plan(payload)
	if plan.Corrupted() {
		metrics.ChaosEvents.WithLabelValues("corrupt_" + plan.Corruption.String()).Inc()
	}
	if plan.Duplicated() {
		metrics.ChaosEvents.WithLabelValues("duplicate").Inc()
	}
	if plan.Delayed() {
		metrics.ChaosEvents.WithLabelValues("delay").Inc()
		time.AfterFunc(plan.Delay, func() {
			s.deliver(plan)
		})
		return
	}
	s.deliver(plan)
}

func (s *session) deliver(plan chaos.Plan) {
	for i := 0; i < plan.Copies; i++ {
		if err := s.write(plan.Payload, TypeQuote); err != nil {
			return
		}
	}
}

// fetch returns a serialized quote message for symbol.
func (s *session) fetch(ctx context.Context, symbol string) ([]byte, error) {
	start := time.Now()
	q, err := s.source.Quote(ctx, symbol)
	metrics.FetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(QuoteMessage{
		Type:      TypeQuote,
		Symbol:    symbol,
		Data:      q,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quote: %w", err)
	}
	return payload, nil
}

// reportFetchError turns a data source failure into an error message.
// Cancellation means the cycle was superseded or the session closed.
func (s *session) reportFetchError(symbol string, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	s.logger.Debug("quote fetch failed", "symbol", symbol, "error", err)
	s.sendError(quote.Message(err), quote.StatusCode(err))
}

func (s *session) sendError(message string, status int) {
	s.send(TypeError, ErrorMessage{Type: TypeError, Message: message, Status: status})
}

func (s *session) send(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("marshal message", "type", kind, "error", err)
		return
	}
	s.write(data, kind)
}

// write sends one text frame unless the session has closed. A transport
// failure closes the session.
func (s *session) write(data []byte, kind string) error {
	s.writeMu.Lock()
	if s.closed.Load() {
		s.writeMu.Unlock()
		metrics.WritesSkipped.Inc()
		return ErrSessionClosed
	}
	err := s.writeLocked(data)
	if err != nil {
		s.closed.Store(true)
	}
	s.writeMu.Unlock()

	if err != nil {
		s.logger.Debug("write failed", "type", kind, "error", err)
		s.finish(reasonWriteError)
		return fmt.Errorf("write %s: %w", kind, err)
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()
	return nil
}

// writeLocked must be called with writeMu held.
func (s *session) writeLocked(data []byte) error {
	if s.cfg.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// forceReset is the disconnect timer's callback.
func (s *session) forceReset() {
	if s.closed.Load() {
		return
	}
	notice, err := json.Marshal(ResetMessage{Type: TypeReset, Reason: s.cfg.ResetReason})
	if err != nil {
		s.logger.Error("marshal reset", "error", err)
		return
	}
	s.recorder.Record(journal.NewEvent(s.id, journal.KindReset, s.currentSymbol(), s.cfg.ResetReason))
	if s.shutdown(websocket.CloseServiceRestart, closeTextReset, notice, reasonServerReset) {
		metrics.ForcedDisconnects.Inc()
		metrics.MessagesSent.WithLabelValues(TypeReset).Inc()
		s.logger.Info("forced disconnect")
	}
}

// terminate closes the session without a close frame.
func (s *session) terminate(reason string) {
	s.shutdown(0, "", nil, reason)
}

// shutdown closes the session once, optionally writing notice and then a close
// frame with code first. It reports whether this call closed the session.
func (s *session) shutdown(code int, text string, notice []byte, reason string) bool {
	s.writeMu.Lock()
	if s.closed.Load() {
		s.writeMu.Unlock()
		return false
	}
	if notice != nil {
		if err := s.writeLocked(notice); err != nil {
			s.logger.Debug("write notice failed", "error", err)
		}
	}
	if code != 0 {
		msg := websocket.FormatCloseMessage(code, text)
		if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
			s.logger.Debug("write close failed", "code", code, "error", err)
		}
	}
	s.closed.Store(true)
	s.writeMu.Unlock()

	s.finish(reason)
	return true
}

// finish releases everything a closed session holds. Called exactly once,
// after closed was set.
func (s *session) finish(reason string) {
	s.cancel()

	s.mu.Lock()
	if s.cycleCancel != nil {
		s.cycleCancel()
		s.cycleCancel = nil
	}
	d := s.disconnect
	symbol := s.symbol
	s.mu.Unlock()

	if d != nil {
		d.Stop()
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("close conn", "error", err)
	}

	metrics.SessionsClosed.WithLabelValues(reason).Inc()
	s.recorder.Record(journal.NewEvent(s.id, journal.KindClosed, symbol, reason))
	s.logger.Info("session closed", "reason", reason)
}

func (s *session) currentSymbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

// state returns the subscription for tests and diagnostics.
func (s *session) state() (symbol string, interval time.Duration, subscribed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol, s.interval, s.cycleCancel != nil
}
