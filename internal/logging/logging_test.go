package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, WarnLevel, cfg.Level)
	assert.Equal(t, os.Stderr, cfg.Output)
	assert.False(t, cfg.Pretty)
	assert.Equal(t, time.RFC3339, cfg.TimeFormat)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{"  DEBUG  ", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"off", Disabled},
		{"", WarnLevel},
		{"INVALID", WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestInit_LevelFiltering(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	Debug().Msg("hidden")
	Info().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestComponent(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, Output: &buf})

	log := Component("changeset")
	log.Debug().Str("uri", "/a.ts").Msg("recomputed")

	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	assert.Contains(t, line, `"component":"changeset"`)
	assert.Contains(t, line, `"uri":"/a.ts"`)
}

func TestInit_Pretty(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf, Pretty: true})
	Info().Msg("pretty message")

	assert.Contains(t, buf.String(), "pretty message")
	assert.NotContains(t, buf.String(), `"message"`)
}
