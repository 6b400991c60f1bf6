package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kind classifies a journal event.
type Kind string

const (
	KindConnected  Kind = "connected"
	KindSubscribed Kind = "subscribed"
	KindReset      Kind = "reset"
	KindClosed     Kind = "closed"
)

// Event is one row of the session journal.
type Event struct {
	ID        uuid.UUID
	SessionID string
	Kind      Kind
	Symbol    string
	Detail    string
	At        time.Time
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(sessionID string, kind Kind, symbol, detail string) Event {
	return Event{
		ID:        uuid.New(),
		SessionID: sessionID,
		Kind:      kind,
		Symbol:    symbol,
		Detail:    detail,
		At:        time.Now().UTC(),
	}
}

// Recorder accepts journal events. Record must not block.
type Recorder interface {
	Record(e Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(Event) {}

// Copier is the subset of *pgxpool.Pool used by the Writer.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Config contains configuration for the journal writer.
type Config struct {
	Table         string        // Destination table
	BatchSize     int           // Rows per COPY
	FlushInterval time.Duration // Maximum time between flushes
	BufferSize    int           // Pending events before Record starts dropping
	FlushTimeout  time.Duration // Deadline for a single COPY
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "session_events",
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
		BufferSize:    10000,
		FlushTimeout:  10 * time.Second,
	}
}

// Stats are cumulative writer counters.
type Stats struct {
	Written int64 `json:"written"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
	Flushes int64 `json:"flushes"`
}

var columns = []string{"id", "session_id", "kind", "symbol", "detail", "occurred_at"}
