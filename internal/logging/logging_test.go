package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "info", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	comp := Component(logger, "pipeline")
	comp.Info().Str("guild_id", "g1").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "pipeline" {
		t.Errorf("expected component field, got %v", line["component"])
	}
	if line["message"] != "hello" {
		t.Errorf("expected message 'hello', got %v", line["message"])
	}
}

func TestInitWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "error", false)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at error level, got %q", buf.String())
	}
}
