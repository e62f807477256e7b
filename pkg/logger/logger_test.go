package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("started")
	assert.FileExists(t, path)
}

func TestFieldsAreStructured(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With(String("component", "trainer"))

	l.Warn("fit slow",
		String("asset", "bitcoin"),
		Int("rows", 120),
		Float64("r2", 0.5),
		Bool("cached", false),
		Error(errors.New("boom")),
	)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "fit slow", got["message"])
	assert.Equal(t, "trainer", got["component"])
	assert.Equal(t, "bitcoin", got["asset"])
	assert.Equal(t, float64(120), got["rows"])
	assert.Equal(t, 0.5, got["r2"])
	assert.Equal(t, false, got["cached"])
	assert.Equal(t, "boom", got["error"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	Nop().Error("discarded")
}

func TestWithKeepsFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel).With(
		Int("workers", 4),
		Duration("budget_ms", 1500*time.Millisecond),
		Strings("assets", []string{"bitcoin", "ethereum"}),
	)
	l.Info("training")

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, float64(4), got["workers"])
	assert.Equal(t, 1500.0, got["budget_ms"])
	assert.Equal(t, "bitcoin, ethereum", got["assets"])
}
