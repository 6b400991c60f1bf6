package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var errInvalidFormat = errors.New("invalid message format")

// inbound is a decoded control message.
type inbound struct {
	Type     string
	Symbol   string        // Normalized; empty when missing or not a string
	Interval time.Duration // Already clamped
}

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// parseInbound decodes a control message. Anything that is not a JSON object
// with a string "type" is rejected.
func parseInbound(data []byte, cfg *Config) (inbound, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return inbound{}, errInvalidFormat
	}

	typ, ok := jsonString(raw["type"])
	if !ok {
		return inbound{}, errInvalidFormat
	}

	msg := inbound{Type: typ}
	if typ == TypeSubscribe {
		symbol, _ := jsonString(raw["symbol"])
		msg.Symbol = NormalizeSymbol(symbol)
		ms, ok := parseIntervalMs(raw["intervalMs"])
		msg.Interval = clampInterval(ms, ok, cfg)
	}
	return msg, nil
}

// jsonString returns v as a string if it is a JSON string literal.
func jsonString(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// parseIntervalMs accepts a JSON number or a numeric string.
func parseIntervalMs(v json.RawMessage) (float64, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return 0, false
	}

	var ms float64
	if s, ok := jsonString(v); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		ms = f
	} else if err := json.Unmarshal(v, &ms); err != nil {
		return 0, false
	}

	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0, false
	}
	return ms, true
}

// clampInterval rounds ms and clamps it to the configured bounds. A missing or
// malformed value yields the default interval.
func clampInterval(ms float64, ok bool, cfg *Config) time.Duration {
	if !ok {
		return cfg.DefaultInterval
	}
	lo := float64(cfg.MinInterval.Milliseconds())
	hi := float64(cfg.MaxInterval.Milliseconds())
	r := math.Round(ms)
	switch {
	case r < lo:
		return cfg.MinInterval
	case r > hi:
		return cfg.MaxInterval
	}
	return time.Duration(r) * time.Millisecond
}

// normalizePath strips a single trailing slash from anything but the root.
func normalizePath(p string) string {
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		return p[:len(p)-1]
	}
	return p
}
