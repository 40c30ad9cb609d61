package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDualHandlerMirrorsErrorsToSecondary(t *testing.T) {
	var primaryBuf bytes.Buffer
	var secondaryBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	secondary := slog.NewTextHandler(&secondaryBuf, nil)
	logger := slog.New(NewDualHandler(primary, secondary, nil))

	logger.Error("boom", slog.String("foo", "bar"))
	logger.Info("still going")

	require.Contains(t, primaryBuf.String(), "boom")
	require.Contains(t, primaryBuf.String(), "still going")
	require.Contains(t, secondaryBuf.String(), "boom")
	require.NotContains(t, secondaryBuf.String(), "still going")
}

func TestDualHandlerMirrorThreshold(t *testing.T) {
	var primaryBuf bytes.Buffer
	var secondaryBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelError})
	secondary := slog.NewTextHandler(&secondaryBuf, nil)
	logger := slog.New(NewDualHandler(primary, secondary, slog.LevelWarn))

	logger.Warn("window lookup failed")
	logger.Info("polling")

	require.Empty(t, primaryBuf.String())
	require.Contains(t, secondaryBuf.String(), "window lookup failed")
	require.NotContains(t, secondaryBuf.String(), "polling")
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestDualHandlerKeepsAttrs(t *testing.T) {
	var secondaryBuf bytes.Buffer

	logger := slog.New(NewDualHandler(nil, slog.NewTextHandler(&secondaryBuf, nil), nil))
	logger.With("generation", 4).WithGroup("window").Error("failed", "handle", "0x1")

	require.Contains(t, secondaryBuf.String(), "generation=4")
	require.Contains(t, secondaryBuf.String(), "window.handle=0x1")
}

func TestConsoleHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewConsoleHandler(&buf, slog.LevelWarn)).With("mode", "x/y")
	logger.Info("hidden")
	logger.Error("embedding attempt failed", "error", errors.New("launch app.exe: not found\ncheck the path"))
	logger.Warn("", "error", "lookup failed")

	require.Equal(t, "Error: embedding attempt failed\n"+
		"  error: launch app.exe: not found\n"+
		"    check the path\n"+
		"  mode: x/y\n"+
		"Warning: lookup failed\n"+
		"  mode: x/y\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("TRACE")
	require.NoError(t, err)
	require.Equal(t, LevelTrace, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
	require.Equal(t, slog.LevelError, ConfigLevelStringToSlogLevel("loud"))
}

func TestNewWritesFileAndMirrorsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "embedctl.log")
	var stderr bytes.Buffer

	logger, closer, err := New(Options{Level: "trace", File: path, Stderr: &stderr})
	require.NoError(t, err)

	logger.Log(context.Background(), LevelTrace, "tick")
	logger.Error("launch failed")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "level=TRACE msg=tick")
	require.Contains(t, string(raw), "launch failed")

	require.Contains(t, stderr.String(), "launch failed")
	require.NotContains(t, stderr.String(), "tick")
}

func TestNewWithoutFileLogsToStderr(t *testing.T) {
	var stderr bytes.Buffer

	logger, closer, err := New(Options{Level: "info", Stderr: &stderr})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("started")
	logger.Debug("noise")

	require.Contains(t, stderr.String(), "started")
	require.NotContains(t, stderr.String(), "noise")
	require.False(t, IsTerminal(&stderr))
}
