package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ksscraper/pkg/config"
)

func bufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger()
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "json format", cfg: &config.LoggingConfig{Level: "debug", Format: "json"}},
		{name: "invalid log level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
			if tt.cfg.File != "" {
				l.Info("to file")
				_, statErr := os.Stat(tt.cfg.File)
				assert.NoError(t, statErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"invalid", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.WithField("key", "AI|live").
		WithFields(map[string]interface{}{"page": 3, "wait": 2 * time.Second}).
		WithError(errors.New("boom")).
		Warn("chained")

	out := buf.String()
	assert.Contains(t, out, "chained")
	assert.Contains(t, out, `"key":"AI|live"`)
	assert.Contains(t, out, `"page":3`)
	assert.Contains(t, out, `"error":"boom"`)
}

func TestWithErrorNil(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)
	assert.Same(t, l, l.WithError(nil))
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "https://example.test/a", 200, 15*time.Millisecond)
	LogRequest(tl, "GET", "https://example.test/b", 403, time.Millisecond)
	LogRequest(tl, "GET", "https://example.test/c", 503, time.Millisecond)
	LogRetry(tl, "https://example.test/b", 0, 3, 403, 15*time.Second)
	LogPageProgress(tl, "AI|live", 2, 20, 40, 45)

	assert.Len(t, tl.GetMessagesByLevel("DEBUG"), 1)
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 2)
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)

	msgs := tl.GetMessagesByLevel("INFO")
	require.Len(t, msgs, 1)
	assert.Equal(t, 40, msgs[0].Fields["running_total"])
	assert.Equal(t, 45, msgs[0].Fields["reported_total"])
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("component", "store").WithError(errors.New("disk full"))
	child.Error("append failed")
	tl.Info("parent")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "store", msgs[0].Fields["component"])
	assert.EqualError(t, msgs[0].Error, "disk full")
	assert.True(t, tl.HasMessage("append"))

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug", Format: "json"}))
	assert.NotNil(t, GetLogger())

	tl := NewTestLogger()
	SetLogger(tl)
	defer SetLogger(nil)

	Info("info message")
	Warn("warn message")
	WithFields(map[string]interface{}{"k": "v"}).Error("with fields")
	assert.Len(t, tl.GetMessages(), 3)
	assert.True(t, strings.HasPrefix(tl.GetMessages()[2].Message, "with"))
}
