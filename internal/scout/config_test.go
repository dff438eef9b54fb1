package scout

import (
	"testing"
	"time"
)

func TestConfigGetters(t *testing.T) {
	cfg := Config{
		"name":     "market",
		"count":    3,
		"ratio":    0.25,
		"symbols":  []interface{}{"BTC", "ETH"},
		"interval": "45s",
		"enabled":  true,
	}

	if got := cfg.String("name", "x"); got != "market" {
		t.Fatalf("String = %q", got)
	}
	if got := cfg.Int("count", 0); got != 3 {
		t.Fatalf("Int = %d", got)
	}
	if got := cfg.Float("ratio", 0); got != 0.25 {
		t.Fatalf("Float = %v", got)
	}
	if got := cfg.Strings("symbols", nil); len(got) != 2 || got[0] != "BTC" {
		t.Fatalf("Strings = %v", got)
	}
	if got := cfg.Duration("interval", 0); got != 45*time.Second {
		t.Fatalf("Duration = %v", got)
	}
	if !cfg.Bool("enabled", false) {
		t.Fatalf("Bool = false")
	}
}

func TestConfigDefaultsAndUnknownKeys(t *testing.T) {
	cfg := Config{"unrecognized_key": 42}

	if got := cfg.String("missing", "fallback"); got != "fallback" {
		t.Fatalf("String default = %q", got)
	}
	if got := cfg.Int("missing", 7); got != 7 {
		t.Fatalf("Int default = %d", got)
	}
	if got := cfg.Duration("missing", time.Minute); got != time.Minute {
		t.Fatalf("Duration default = %v", got)
	}
	if got := cfg.Strings("missing", []string{"a"}); len(got) != 1 {
		t.Fatalf("Strings default = %v", got)
	}
}

func TestConfigNumericCoercion(t *testing.T) {
	// YAML and JSON layers hand over different numeric types.
	cfg := Config{"n": float64(30), "secs": 30}

	if got := cfg.Int("n", 0); got != 30 {
		t.Fatalf("Int from float64 = %d", got)
	}
	if got := cfg.Float("secs", 0); got != 30 {
		t.Fatalf("Float from int = %v", got)
	}
	if got := cfg.Duration("secs", 0); got != 30*time.Second {
		t.Fatalf("Duration from int seconds = %v", got)
	}
}
