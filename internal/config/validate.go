package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if err := validatePath("server.path", c.Server.Path); err != nil {
		return err
	}
	if err := validatePath("server.alias_path", c.Server.AliasPath); err != nil {
		return err
	}
	if strings.TrimSuffix(c.Server.Path, "/") == strings.TrimSuffix(c.Server.AliasPath, "/") {
		return errors.New("server.alias_path must differ from server.path")
	}

	if c.Stream.MinIntervalMs < 1 {
		return errors.New("stream.min_interval_ms must be >= 1")
	}
	if c.Stream.MaxIntervalMs < c.Stream.MinIntervalMs {
		return fmt.Errorf("stream.max_interval_ms must be >= min_interval_ms, got %d < %d",
			c.Stream.MaxIntervalMs, c.Stream.MinIntervalMs)
	}
	if c.Stream.DefaultIntervalMs < c.Stream.MinIntervalMs || c.Stream.DefaultIntervalMs > c.Stream.MaxIntervalMs {
		return fmt.Errorf("stream.default_interval_ms must be within [%d, %d], got %d",
			c.Stream.MinIntervalMs, c.Stream.MaxIntervalMs, c.Stream.DefaultIntervalMs)
	}
	if c.Stream.ReadLimit < 1 {
		return errors.New("stream.read_limit must be >= 1")
	}

	if err := c.Schedule.validate(); err != nil {
		return err
	}
	if err := c.Chaos.validate(); err != nil {
		return err
	}

	switch c.Source.Kind {
	case SourceSynthetic:
	case SourceRemote:
		if c.Source.URL == "" {
			return errors.New("source.url is required for remote source")
		}
		if c.Source.MaxRetries < 0 {
			return errors.New("source.max_retries must be >= 0")
		}
	default:
		return fmt.Errorf("source.kind must be synthetic or remote, got %q", c.Source.Kind)
	}
	if c.Source.LatencyMax < c.Source.LatencyMin {
		return errors.New("source.latency_max must be >= latency_min")
	}
	if c.Source.Volatility < 0 {
		return errors.New("source.volatility must be >= 0")
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.Metrics.IsEnabled() {
		if err := validatePath("metrics.path", c.Metrics.Path); err != nil {
			return err
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json", "tint":
	default:
		return fmt.Errorf("log.format must be one of text, json, tint, got %q", c.Log.Format)
	}

	return nil
}

// IsEnabled reports whether metrics are served. Unset means enabled.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

func (s *ScheduleConfig) validate() error {
	if err := validateProbability("schedule.spike_probability", s.SpikeProbability); err != nil {
		return err
	}
	if s.JitterMin <= 0 || s.JitterMax < s.JitterMin {
		return fmt.Errorf("schedule.jitter_min/jitter_max must satisfy 0 < min <= max, got %v/%v", s.JitterMin, s.JitterMax)
	}
	if err := validateRange("schedule.min_delay/max_delay", s.MinDelay, s.MaxDelay); err != nil {
		return err
	}
	return validateRange("schedule.disconnect_min/disconnect_max", s.DisconnectMin, s.DisconnectMax)
}

func (c *ChaosConfig) validate() error {
	probs := []struct {
		name string
		p    *float64
	}{
		{"chaos.burst_probability", c.BurstProbability},
		{"chaos.delay_probability", c.DelayProbability},
		{"chaos.corrupt_probability", c.CorruptProbability},
		{"chaos.duplicate_probability", c.DuplicateProbability},
		{"chaos.heartbeat_drop_probability", c.HeartbeatDropProbability},
	}
	for _, pr := range probs {
		if err := validateProbability(pr.name, pr.p); err != nil {
			return err
		}
	}
	if c.BurstMin < 1 || c.BurstMax < c.BurstMin {
		return fmt.Errorf("chaos.burst_min/burst_max must satisfy 1 <= min <= max, got %d/%d", c.BurstMin, c.BurstMax)
	}
	if c.DuplicateMin < 1 || c.DuplicateMax < c.DuplicateMin {
		return fmt.Errorf("chaos.duplicate_min/duplicate_max must satisfy 1 <= min <= max, got %d/%d", c.DuplicateMin, c.DuplicateMax)
	}
	return validateRange("chaos.delay_min/delay_max", c.DelayMin, c.DelayMax)
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validatePath(name, p string) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s must start with /, got %q", name, p)
	}
	return nil
}

func validateProbability(name string, p *float64) error {
	if p == nil {
		return nil
	}
	if *p < 0 || *p > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %v", name, *p)
	}
	return nil
}

func validateRange(name string, lo, hi time.Duration) error {
	if lo < 0 || hi < lo {
		return fmt.Errorf("%s must satisfy 0 <= min <= max, got %s/%s", name, lo, hi)
	}
	return nil
}
