package processes

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSpawner struct {
	mu       sync.Mutex
	commands []Command
	pid      int
	err      error
}

func (s *recordingSpawner) Spawn(_ context.Context, cmd Command) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return s.pid, s.err
}

func (s *recordingSpawner) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Command(nil), s.commands...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitDone(t *testing.T, l *Launch) {
	t.Helper()
	select {
	case <-l.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("launch did not finish")
	}
}

func TestLaunchSpawnsAfterClosingExisting(t *testing.T) {
	t.Parallel()

	spawner := &recordingSpawner{pid: 77}
	recordPath := filepath.Join(t.TempDir(), RecordFileName)
	launcher := NewLauncher(Options{Spawner: spawner, RecordPath: recordPath, Logger: discardLogger()})

	var order []string
	var mu sync.Mutex
	spec := Spec{
		Executable:  "motioninput.exe",
		WorkingDir:  filepath.FromSlash("/opt/MotionInput"),
		Args:        DefaultArgs,
		ConfigPath:  "/data/config.json",
		Mode:        "a/b",
		WindowTitle: "Motioninput v3.4",
		CloseExisting: func(context.Context) (window.Handle, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "close")
			assert.Empty(t, spawner.Commands(), "close must run before spawn")
			return 0x42, nil
		},
	}

	launch := launcher.Launch(context.Background(), spec)
	require.NotEmpty(t, launch.ID())
	waitDone(t, launch)

	require.NoError(t, launch.Err())
	require.Equal(t, 77, launch.PID())
	require.Equal(t, window.Handle(0x42), launch.StaleWindow())
	require.Equal(t, []string{"close"}, order)

	cmds := spawner.Commands()
	require.Len(t, cmds, 1)
	require.Equal(t, filepath.Join(spec.WorkingDir, "motioninput.exe"), cmds[0].Path)
	require.Equal(t, spec.WorkingDir, cmds[0].Dir)
	require.Equal(t, []string{"--config", "/data/config.json"}, cmds[0].Args)

	record, err := LoadRecord(recordPath)
	require.NoError(t, err)
	require.Equal(t, launch.ID(), record.ID)
	require.Equal(t, 77, record.PID)
	require.Equal(t, "a/b", record.Mode)
}

func TestLaunchReportsSpawnFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("file not found")
	spawner := &recordingSpawner{err: cause}
	recordPath := filepath.Join(t.TempDir(), RecordFileName)
	launcher := NewLauncher(Options{Spawner: spawner, RecordPath: recordPath, Logger: discardLogger()})

	launch := launcher.Launch(context.Background(), Spec{Executable: "missing.exe"})
	waitDone(t, launch)

	var launchErr *LaunchError
	require.ErrorAs(t, launch.Err(), &launchErr)
	require.ErrorIs(t, launch.Err(), cause)
	require.Equal(t, "missing.exe", launchErr.Executable)

	_, err := LoadRecord(recordPath)
	require.Error(t, err, "no record is written for a failed launch")
}

func TestLaunchSkipsSpawnWhenCancelled(t *testing.T) {
	t.Parallel()

	spawner := &recordingSpawner{pid: 1}
	launcher := NewLauncher(Options{Spawner: spawner, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	launch := launcher.Launch(ctx, Spec{Executable: "app.exe"})
	waitDone(t, launch)

	require.ErrorIs(t, launch.Err(), context.Canceled)
	require.Empty(t, spawner.Commands())
}

func TestLaunchRejectsBadTemplate(t *testing.T) {
	t.Parallel()

	spawner := &recordingSpawner{pid: 1}
	launcher := NewLauncher(Options{Spawner: spawner, Logger: discardLogger()})

	launch := launcher.Launch(context.Background(), Spec{Executable: "app.exe", Args: []string{"{{ .Nope }}"}})
	waitDone(t, launch)

	var launchErr *LaunchError
	require.ErrorAs(t, launch.Err(), &launchErr)
	require.Empty(t, spawner.Commands())
}

func TestResolveExecutable(t *testing.T) {
	t.Parallel()

	dir := filepath.FromSlash("/opt/app")
	abs, err := filepath.Abs(filepath.FromSlash("/usr/bin/app"))
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "app.exe"), ResolveExecutable("app.exe", dir))
	require.Equal(t, abs, ResolveExecutable(abs, dir))
	require.Equal(t, "app.exe", ResolveExecutable("app.exe", ""))
}
