package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production", "warn")
	log.Info().Msg("hidden")
	log.Warn().Str("entity", "bill").Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "shown" || line["entity"] != "bill" || line["service"] != "recoup" {
		t.Errorf("line = %v", line)
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production", "loud")
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug logged at fallback level: %q", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Error("info not logged at fallback level")
	}
}
