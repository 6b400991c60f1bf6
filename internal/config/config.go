package config

import "time"

// FeedConfig is the root configuration for a feed server.
type FeedConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Stream   StreamConfig   `yaml:"stream"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Chaos    ChaosConfig    `yaml:"chaos"`
	Source   SourceConfig   `yaml:"source"`
	Journal  JournalConfig  `yaml:"journal"`
	Database DBConfig       `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Path            string        `yaml:"path"`       // Canonical stream endpoint
	AliasPath       string        `yaml:"alias_path"` // Equivalent alternate endpoint
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StreamConfig holds per-session settings.
type StreamConfig struct {
	DefaultIntervalMs int           `yaml:"default_interval_ms"`
	MinIntervalMs     int           `yaml:"min_interval_ms"`
	MaxIntervalMs     int           `yaml:"max_interval_ms"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ReadLimit         int64         `yaml:"read_limit"` // Max inbound frame size in bytes
	Seed              uint64        `yaml:"seed"`       // 0 = random per process
	ReadyMessage      string        `yaml:"ready_message"`
	ResetReason       string        `yaml:"reset_reason"`
}

// ScheduleConfig holds update cadence and forced-disconnect settings.
type ScheduleConfig struct {
	SpikeProbability *float64     `yaml:"spike_probability"`
	SpikeDuration    time.Duration `yaml:"spike_duration"`
	SpikeInterval    time.Duration `yaml:"spike_interval"`
	JitterMin        float64       `yaml:"jitter_min"`
	JitterMax        float64       `yaml:"jitter_max"`
	MinDelay         time.Duration `yaml:"min_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	DisconnectMin    time.Duration `yaml:"disconnect_min"`
	DisconnectMax    time.Duration `yaml:"disconnect_max"`
}

// ChaosConfig holds failure-injection settings.
type ChaosConfig struct {
	Disabled                 bool          `yaml:"disabled"`
	BurstProbability         *float64      `yaml:"burst_probability"`
	BurstMin                 int           `yaml:"burst_min"`
	BurstMax                 int           `yaml:"burst_max"`
	BurstSpacing             time.Duration `yaml:"burst_spacing"`
	DelayProbability         *float64      `yaml:"delay_probability"`
	DelayMin                 time.Duration `yaml:"delay_min"`
	DelayMax                 time.Duration `yaml:"delay_max"`
	CorruptProbability       *float64      `yaml:"corrupt_probability"`
	DuplicateProbability     *float64      `yaml:"duplicate_probability"`
	DuplicateMin             int           `yaml:"duplicate_min"`
	DuplicateMax             int           `yaml:"duplicate_max"`
	HeartbeatDropProbability *float64      `yaml:"heartbeat_drop_probability"`
}

// SourceConfig holds data source settings.
type SourceConfig struct {
	Kind string `yaml:"kind"` // synthetic or remote

	// Synthetic
	Seed       uint64        `yaml:"seed"`
	LatencyMin time.Duration `yaml:"latency_min"`
	LatencyMax time.Duration `yaml:"latency_max"`
	Drift      float64       `yaml:"drift"`
	Volatility float64       `yaml:"volatility"`

	// Remote
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// JournalConfig holds session journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Table         string        `yaml:"table"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, tint
}
