package chaos

import (
	"encoding/json"
	"testing"
)

func TestCorruption_Apply(t *testing.T) {
	payload := []byte(`{"type":"stockQuote","symbol":"AAPL"}`)

	tests := []struct {
		name string
		kind Corruption
		want string
	}{
		{"truncate", CorruptTruncate, string(payload[:len(payload)*7/10])},
		{"drop last", CorruptDropLast, `{"type":"stockQuote","symbol":"AAPL"`},
		{"append garbage", CorruptAppendGarbage, string(payload) + garbageSuffix},
		{"strip quote", CorruptStripQuote, `{type":"stockQuote","symbol":"AAPL"}`},
		{"none", CorruptNone, string(payload)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.kind.Apply(payload)
			if string(got) != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
			if tt.kind != CorruptNone && json.Valid(got) {
				t.Errorf("Apply() produced valid JSON %q", got)
			}
		})
	}

	if string(payload) != `{"type":"stockQuote","symbol":"AAPL"}` {
		t.Errorf("input mutated: %q", payload)
	}
}

func TestCorruption_ApplyEmpty(t *testing.T) {
	for _, kind := range corruptionKinds {
		got := kind.Apply(nil)
		if kind == CorruptAppendGarbage {
			if string(got) != garbageSuffix {
				t.Errorf("%s on empty = %q, want %q", kind, got, garbageSuffix)
			}
			continue
		}
		if len(got) != 0 {
			t.Errorf("%s on empty = %q, want empty", kind, got)
		}
	}
}

func TestCorruption_String(t *testing.T) {
	if CorruptStripQuote.String() != "strip_quote" {
		t.Errorf("String() = %q, want strip_quote", CorruptStripQuote.String())
	}
	if Corruption(99).String() != "none" {
		t.Errorf("unknown String() = %q, want none", Corruption(99).String())
	}
}
