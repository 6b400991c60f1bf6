package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/stockfeed/internal/metrics"
)

// Writer batches journal events and copies them into the database.
type Writer struct {
	cfg    Config
	db     Copier
	logger *slog.Logger

	// Input from sessions
	input chan Event

	// Owned by run
	batch []Event

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

// NewWriter creates a new Writer.
func NewWriter(cfg Config, db Copier, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	defaults := DefaultConfig()
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaults.FlushTimeout
	}
	if cfg.Table == "" {
		cfg.Table = defaults.Table
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		input:  make(chan Event, cfg.BufferSize),
		batch:  make([]Event, 0, cfg.BatchSize),
	}
}

// Record enqueues an event, dropping it when the buffer is full.
func (w *Writer) Record(e Event) {
	select {
	case w.input <- e:
	default:
		w.mu.Lock()
		w.stats.Dropped++
		w.mu.Unlock()
		metrics.JournalEvents.WithLabelValues("dropped").Inc()
	}
}

// Start begins consuming events.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.run()

	w.logger.Info("session journal started",
		"table", w.cfg.Table,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop flushes pending events and shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("session journal stopped")
		return nil
	case <-ctx.Done():
		w.logger.Warn("session journal stop timed out")
		return ctx.Err()
	}
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			w.flush()
			return
		case e := <-w.input:
			w.batch = append(w.batch, e)
			if len(w.batch) >= w.cfg.BatchSize {
				w.flush()
			}
		case <-ticker.C:
			w.flush()
		}
	}
}

// drain moves whatever is queued into the batch, flushing full batches.
func (w *Writer) drain() {
	for {
		select {
		case e := <-w.input:
			w.batch = append(w.batch, e)
			if len(w.batch) >= w.cfg.BatchSize {
				w.flush()
			}
		default:
			return
		}
	}
}

// flush copies the current batch. Failed batches are logged and discarded.
func (w *Writer) flush() {
	if len(w.batch) == 0 {
		return
	}
	batch := w.batch
	w.batch = make([]Event, 0, w.cfg.BatchSize)

	start := time.Now()

	// Runs after shutdown too, so it cannot inherit w.ctx.
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.FlushTimeout)
	defer cancel()

	rows := pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
		e := batch[i]
		return []any{e.ID, e.SessionID, string(e.Kind), e.Symbol, e.Detail, e.At}, nil
	})

	n, err := w.db.CopyFrom(ctx, pgx.Identifier{w.cfg.Table}, columns, rows)

	w.mu.Lock()
	w.stats.Flushes++
	if err != nil {
		w.stats.Failed += int64(len(batch))
	} else {
		w.stats.Written += n
	}
	w.mu.Unlock()

	if err != nil {
		metrics.JournalEvents.WithLabelValues("failed").Add(float64(len(batch)))
		w.logger.Error("journal copy failed", "error", err, "count", len(batch))
		return
	}

	metrics.JournalEvents.WithLabelValues("written").Add(float64(n))
	w.logger.Debug("flushed journal",
		"count", n,
		"duration", time.Since(start),
	)
}
