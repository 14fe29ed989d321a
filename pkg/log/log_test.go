package log_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/dukex/flowlink/pkg/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, log.ParseLevel(tt.input))
		})
	}
}

func TestSetupWriter_JSON(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer

	log.SetupWriter(&buf, "debug", "json")
	log.WithModule("orchestrator").Debug("hello", "workflow_id", "wf-1")

	assert.Contains(t, buf.String(), `"module":"orchestrator"`)
	assert.Contains(t, buf.String(), `"workflow_id":"wf-1"`)
}

func TestSetupWriter_FiltersBelowLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buf bytes.Buffer

	log.SetupWriter(&buf, "warn", "text")
	slog.Info("ignored")
	slog.Warn("kept")

	assert.NotContains(t, buf.String(), "ignored")
	assert.Contains(t, buf.String(), "kept")
}
