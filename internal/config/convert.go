package config

import (
	"log/slog"
	"time"

	"github.com/rickgao/stockfeed/internal/chaos"
	"github.com/rickgao/stockfeed/internal/journal"
	"github.com/rickgao/stockfeed/internal/quote"
	"github.com/rickgao/stockfeed/internal/schedule"
	"github.com/rickgao/stockfeed/internal/stream"
)

// Build returns the immutable chaos profile. Disabled zeroes every probability
// but keeps the configured ranges.
func (c ChaosConfig) Build() chaos.Config {
	cfg := chaos.Config{
		BurstProbability:         deref(c.BurstProbability),
		BurstMin:                 c.BurstMin,
		BurstMax:                 c.BurstMax,
		BurstSpacing:             c.BurstSpacing,
		DelayProbability:         deref(c.DelayProbability),
		DelayMin:                 c.DelayMin,
		DelayMax:                 c.DelayMax,
		CorruptProbability:       deref(c.CorruptProbability),
		DuplicateProbability:     deref(c.DuplicateProbability),
		DuplicateMin:             c.DuplicateMin,
		DuplicateMax:             c.DuplicateMax,
		HeartbeatDropProbability: deref(c.HeartbeatDropProbability),
	}
	if c.Disabled {
		cfg.BurstProbability = 0
		cfg.DelayProbability = 0
		cfg.CorruptProbability = 0
		cfg.DuplicateProbability = 0
		cfg.HeartbeatDropProbability = 0
	}
	return cfg
}

// Build returns the immutable schedule constants.
func (s ScheduleConfig) Build() schedule.Config {
	return schedule.Config{
		SpikeProbability: deref(s.SpikeProbability),
		SpikeDuration:    s.SpikeDuration,
		SpikeInterval:    s.SpikeInterval,
		JitterMin:        s.JitterMin,
		JitterMax:        s.JitterMax,
		MinDelay:         s.MinDelay,
		MaxDelay:         s.MaxDelay,
		DisconnectMin:    s.DisconnectMin,
		DisconnectMax:    s.DisconnectMax,
	}
}

// Build returns the synthetic source settings.
func (s SourceConfig) Build() quote.Config {
	return quote.Config{
		Seed:       s.Seed,
		LatencyMin: s.LatencyMin,
		LatencyMax: s.LatencyMax,
		Drift:      s.Drift,
		Volatility: s.Volatility,
	}
}

// NewSource builds the configured quote source.
func (s SourceConfig) NewSource(logger *slog.Logger) quote.Source {
	if s.Kind == SourceRemote {
		return quote.NewRemote(s.URL, s.APIKey,
			quote.WithTimeout(s.Timeout),
			quote.WithRetries(s.MaxRetries, s.RetryBackoff),
			quote.WithLogger(logger),
		)
	}
	return quote.NewSynthetic(s.Build(), logger)
}

// Build returns the journal writer settings.
func (j JournalConfig) Build() journal.Config {
	cfg := journal.DefaultConfig()
	cfg.Table = j.Table
	cfg.BatchSize = j.BatchSize
	cfg.FlushInterval = j.FlushInterval
	cfg.BufferSize = j.BufferSize
	return cfg
}

// StreamConfig assembles the stream server settings from the server, stream,
// schedule and chaos sections.
func (c *FeedConfig) StreamConfig() stream.Config {
	return stream.Config{
		Path:            c.Server.Path,
		AliasPath:       c.Server.AliasPath,
		DefaultInterval: time.Duration(c.Stream.DefaultIntervalMs) * time.Millisecond,
		MinInterval:     time.Duration(c.Stream.MinIntervalMs) * time.Millisecond,
		MaxInterval:     time.Duration(c.Stream.MaxIntervalMs) * time.Millisecond,
		WriteTimeout:    c.Stream.WriteTimeout,
		ReadLimit:       c.Stream.ReadLimit,
		ReadyMessage:    c.Stream.ReadyMessage,
		ResetReason:     c.Stream.ResetReason,
		Seed:            c.Stream.Seed,
		Chaos:           c.Chaos.Build(),
		Schedule:        c.Schedule.Build(),
	}
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
