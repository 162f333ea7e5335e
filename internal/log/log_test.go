package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want slog.Level
		err  error
	}{
		"error":   {in: "error", want: slog.LevelError},
		"warn":    {in: "WARN", want: slog.LevelWarn},
		"warning": {in: "warning", want: slog.LevelWarn},
		"blank":   {in: "", want: slog.LevelWarn},
		"info":    {in: "info", want: slog.LevelInfo},
		"debug":   {in: "Debug", want: slog.LevelDebug},
		"unknown": {in: "trace", err: log.ErrUnknownLevel},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.in)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := log.New(&buf, model.LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)

	logger.Info("rule table loaded", "rows", 3)
	logger.Debug("view cache hit")
	assert.Contains(t, buf.String(), `"msg":"rule table loaded"`)
	assert.Contains(t, buf.String(), `"rows":3`)
	assert.NotContains(t, buf.String(), "cache hit")

	buf.Reset()
	logger, err = log.New(&buf, model.LogConfig{Format: "logfmt"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("reload failed", "error", "boom")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=\"reload failed\"")

	buf.Reset()
	logger, err = log.New(&buf, model.DefaultConfig().Log)
	require.NoError(t, err)
	logger.Warn("watching source")
	assert.Contains(t, buf.String(), "rulelens")
	assert.Contains(t, buf.String(), "watching source")
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := log.New(&bytes.Buffer{}, model.LogConfig{Format: "xml"})
	require.ErrorIs(t, err, log.ErrUnknownFormat)

	_, err = log.New(&bytes.Buffer{}, model.LogConfig{Level: "loud"})
	require.ErrorIs(t, err, log.ErrUnknownLevel)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := log.NewContext(context.Background(), logger)

	assert.Same(t, logger, log.WithContext(ctx))
	assert.Same(t, slog.Default(), log.WithContext(context.Background()))
}
