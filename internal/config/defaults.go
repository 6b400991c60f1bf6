package config

import (
	"time"

	"github.com/rickgao/stockfeed/internal/chaos"
	"github.com/rickgao/stockfeed/internal/schedule"
)

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceRemote    = "remote"
)

// Default values for optional configuration fields.
const (
	DefaultAddr              = ":8080"
	DefaultPath              = "/ws/stocks"
	DefaultAliasPath         = "/ws"
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultIntervalMs        = 1000
	DefaultMinIntervalMs     = 700
	DefaultMaxIntervalMs     = 10000
	DefaultWriteTimeout      = 5 * time.Second
	DefaultReadLimit         = 4096
	DefaultReadyMessage      = "Connected to stock stream"
	DefaultResetReason       = "Simulated server restart"
	DefaultSourceKind        = SourceSynthetic
	DefaultLatencyMin        = 50 * time.Millisecond
	DefaultLatencyMax        = 250 * time.Millisecond
	DefaultVolatility        = 0.002
	DefaultSourceTimeout     = 10 * time.Second
	DefaultRetryBackoff      = 200 * time.Millisecond
	DefaultJournalTable      = "session_events"
	DefaultJournalBatchSize  = 500
	DefaultJournalFlush      = 2 * time.Second
	DefaultJournalBufferSize = 10000
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills every zero-valued optional field.
func (c *FeedConfig) ApplyDefaults() {
	// Server defaults
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultPath
	}
	if c.Server.AliasPath == "" {
		c.Server.AliasPath = DefaultAliasPath
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Stream defaults
	if c.Stream.DefaultIntervalMs == 0 {
		c.Stream.DefaultIntervalMs = DefaultIntervalMs
	}
	if c.Stream.MinIntervalMs == 0 {
		c.Stream.MinIntervalMs = DefaultMinIntervalMs
	}
	if c.Stream.MaxIntervalMs == 0 {
		c.Stream.MaxIntervalMs = DefaultMaxIntervalMs
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.ReadLimit == 0 {
		c.Stream.ReadLimit = DefaultReadLimit
	}
	if c.Stream.ReadyMessage == "" {
		c.Stream.ReadyMessage = DefaultReadyMessage
	}
	if c.Stream.ResetReason == "" {
		c.Stream.ResetReason = DefaultResetReason
	}

	applyScheduleDefaults(&c.Schedule)
	applyChaosDefaults(&c.Chaos)

	// Source defaults
	if c.Source.Kind == "" {
		c.Source.Kind = DefaultSourceKind
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Source.RetryBackoff == 0 {
		c.Source.RetryBackoff = DefaultRetryBackoff
	}
	if c.Source.LatencyMin == 0 {
		c.Source.LatencyMin = DefaultLatencyMin
	}
	if c.Source.LatencyMax == 0 {
		c.Source.LatencyMax = DefaultLatencyMax
	}
	if c.Source.Volatility == 0 {
		c.Source.Volatility = DefaultVolatility
	}

	// Journal defaults
	if c.Journal.Table == "" {
		c.Journal.Table = DefaultJournalTable
	}
	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultJournalFlush
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultJournalBufferSize
	}

	applyDBDefaults(&c.Database)

	// Metrics defaults
	if c.Metrics.Enabled == nil {
		enabled := true
		c.Metrics.Enabled = &enabled
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	def := schedule.DefaultConfig()
	if s.SpikeProbability == nil {
		s.SpikeProbability = float64Ptr(def.SpikeProbability)
	}
	if s.SpikeDuration == 0 {
		s.SpikeDuration = def.SpikeDuration
	}
	if s.SpikeInterval == 0 {
		s.SpikeInterval = def.SpikeInterval
	}
	if s.JitterMin == 0 {
		s.JitterMin = def.JitterMin
	}
	if s.JitterMax == 0 {
		s.JitterMax = def.JitterMax
	}
	if s.MinDelay == 0 {
		s.MinDelay = def.MinDelay
	}
	if s.MaxDelay == 0 {
		s.MaxDelay = def.MaxDelay
	}
	if s.DisconnectMin == 0 {
		s.DisconnectMin = def.DisconnectMin
	}
	if s.DisconnectMax == 0 {
		s.DisconnectMax = def.DisconnectMax
	}
}

func applyChaosDefaults(c *ChaosConfig) {
	def := chaos.DefaultConfig()
	if c.BurstProbability == nil {
		c.BurstProbability = float64Ptr(def.BurstProbability)
	}
	if c.BurstMin == 0 {
		c.BurstMin = def.BurstMin
	}
	if c.BurstMax == 0 {
		c.BurstMax = def.BurstMax
	}
	if c.BurstSpacing == 0 {
		c.BurstSpacing = def.BurstSpacing
	}
	if c.DelayProbability == nil {
		c.DelayProbability = float64Ptr(def.DelayProbability)
	}
	if c.DelayMin == 0 {
		c.DelayMin = def.DelayMin
	}
	if c.DelayMax == 0 {
		c.DelayMax = def.DelayMax
	}
	if c.CorruptProbability == nil {
		c.CorruptProbability = float64Ptr(def.CorruptProbability)
	}
	if c.DuplicateProbability == nil {
		c.DuplicateProbability = float64Ptr(def.DuplicateProbability)
	}
	if c.DuplicateMin == 0 {
		c.DuplicateMin = def.DuplicateMin
	}
	if c.DuplicateMax == 0 {
		c.DuplicateMax = def.DuplicateMax
	}
	if c.HeartbeatDropProbability == nil {
		c.HeartbeatDropProbability = float64Ptr(def.HeartbeatDropProbability)
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}
