package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevelAliases(t *testing.T) {
	cases := map[string]zerolog.Level{
		"diagnostics": zerolog.TraceLevel,
		" Debug ":     zerolog.DebugLevel,
		"warning":     zerolog.WarnLevel,
		"off":         zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := ParseLevel(raw)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q)=%v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogBypass, "true")
	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.Bypass {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestApplyBypassWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Apply(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf})
	logger.Info().Str("component", "pipeline").Msg("started")
	if !strings.Contains(buf.String(), `"component":"pipeline"`) {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
