package log

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithLifecycleLogContextMerges(t *testing.T) {
	t.Parallel()

	ctx := WithLifecycleLogContext(context.Background(), LifecycleLogContext{
		WindowTitle: "Motioninput v3.4",
		Mode:        "a/b",
		Generation:  3,
	})
	ctx = WithLifecycleLogContext(ctx, LifecycleLogContext{LaunchID: " abc ", Mode: "  "})

	got := LifecycleLogContextFromContext(ctx)
	require.Equal(t, LifecycleLogContext{
		WindowTitle: "Motioninput v3.4",
		Mode:        "a/b",
		Generation:  3,
		LaunchID:    "abc",
	}, got)
}

func TestLoggerForAddsAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLifecycleLogContext(context.Background(), LifecycleLogContext{Mode: "a/b", Generation: 7})
	LoggerFor(ctx, base).Info("hello")

	require.Contains(t, buf.String(), "mode=a/b")
	require.Contains(t, buf.String(), "generation=7")
	require.Same(t, base, LoggerFor(context.Background(), base))
}
