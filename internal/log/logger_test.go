package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf, Service: "test"})

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info entry written at warn level: %s", buf.String())
	}

	l.Warn().Str("stepper", "rk4").Msg("visible")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["service"] != "test" || entry["stepper"] != "rk4" || entry["message"] != "visible" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewFallsBackToEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.Warn().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("warn entry written at error level: %s", buf.String())
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "loud", Output: &buf})

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	if n := bytes.Count(buf.Bytes(), []byte("\n")); n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}
