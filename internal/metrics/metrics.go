package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session metrics
var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stockfeed_sessions_active",
		Help: "Current number of open stream sessions.",
	})

	Connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_connections_total",
			Help: "Stream connection attempts by outcome (accepted, rejected, upgrade_failed).",
		},
		[]string{"result"},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_sessions_closed_total",
			Help: "Closed sessions by reason.",
		},
		[]string{"reason"},
	)

	ForcedDisconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_forced_disconnects_total",
		Help: "Sessions closed by the scheduled server reset.",
	})
)

// Delivery metrics
var (
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_messages_sent_total",
			Help: "Frames written to clients by message type.",
		},
		[]string{"type"},
	)

	WritesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockfeed_writes_skipped_total",
		Help: "Writes abandoned because the session had already closed.",
	})

	ChaosEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_chaos_events_total",
			Help: "Chaos effects applied to outbound messages by kind.",
		},
		[]string{"kind"},
	)

	FetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stockfeed_quote_fetch_seconds",
		Help:    "Latency of data source quote fetches.",
		Buckets: prometheus.DefBuckets,
	})
)

// Journal metrics
var (
	JournalEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfeed_journal_events_total",
			Help: "Session journal events by outcome (written, dropped, failed).",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(SessionsActive, Connections, SessionsClosed, ForcedDisconnects)
	prometheus.MustRegister(MessagesSent, WritesSkipped, ChaosEvents, FetchLatency)
	prometheus.MustRegister(JournalEvents)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
