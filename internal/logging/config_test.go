package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		" DEBUG ":  zerolog.DebugLevel,
		"warning":  zerolog.WarnLevel,
		"off":      zerolog.Disabled,
		"error":    zerolog.ErrorLevel,
		"info":     zerolog.InfoLevel,
		"disabled": zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v, %v", raw, got, ok)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("unknown level accepted")
	}
	if _, ok := parseLevel(""); ok {
		t.Fatalf("empty level accepted")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")
	t.Setenv(EnvLogBypass, "maybe")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Bypass {
		t.Fatalf("unparseable bool must keep the default")
	}
}

func TestApplyFiltersByLevel(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	apply(Config{Level: zerolog.WarnLevel, NoColor: true, Out: &buf})
	Infof("replica.Store quiet id=%d", 1)
	Warnf("replica.Store loud id=%d", 2)
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud id=2") {
		t.Fatalf("unexpected output: %q", out)
	}

	buf.Reset()
	apply(Config{Level: zerolog.TraceLevel, Bypass: true, Out: &buf})
	Errorf("dropped")
	if buf.Len() != 0 {
		t.Fatalf("bypass must discard output: %q", buf.String())
	}
}
