// Package processes starts the embedded application without blocking the
// caller and records the most recent launch for diagnostics.
package processes

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkwak13/winter-sports/internal/log"
	"github.com/mkwak13/winter-sports/internal/window"
)

// Command is a fully rendered process invocation.
type Command struct {
	Path string
	Dir  string
	Args []string
}

// Spawner starts a process and returns its PID without waiting for it.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (int, error)
}

type SpawnerKey struct{}

// SpawnerContextKey carries a Spawner in a context.
var SpawnerContextKey = SpawnerKey{}

// ExecSpawner starts processes with os/exec. The child is released right
// after it starts; its exit is never observed.
type ExecSpawner struct{}

func (ExecSpawner) Spawn(_ context.Context, c Command) (int, error) {
	// exec.CommandContext would kill the child when ctx ends; the embedded
	// app must outlive the attempt that launched it.
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return pid, nil
}

// LaunchError reports that the embedded app could not be started.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Spec describes one launch.
type Spec struct {
	Executable string
	WorkingDir string
	// Args are text/templates rendered against ArgsData.
	Args       []string
	ConfigPath string
	Mode       string
	// WindowTitle is copied into the launch record.
	WindowTitle string
	// CloseExisting, when set, runs before the spawn to close any instance
	// already on screen. The handle it returns is exposed as StaleWindow.
	CloseExisting func(ctx context.Context) (window.Handle, error)
}

// Launch is the pending result of Launcher.Launch. Accessors other than ID
// and Done are only meaningful after Done is closed.
type Launch struct {
	id    string
	done  chan struct{}
	pid   int
	stale window.Handle
	err   error
}

func (l *Launch) ID() string {
	return l.id
}

// Done is closed once the spawn has been attempted.
func (l *Launch) Done() <-chan struct{} {
	return l.done
}

// Err returns a *LaunchError when the process could not be started.
func (l *Launch) Err() error {
	return l.err
}

func (l *Launch) PID() int {
	return l.pid
}

// StaleWindow is the window closed before spawning, or zero.
func (l *Launch) StaleWindow() window.Handle {
	return l.stale
}

// Options configures a Launcher.
type Options struct {
	Spawner Spawner
	// RecordPath is where the last launch record is written. Empty disables
	// the record.
	RecordPath string
	Logger     *slog.Logger
}

// Launcher spawns the embedded app on its own goroutine.
type Launcher struct {
	spawner    Spawner
	recordPath string
	logger     *slog.Logger
	now        func() time.Time
}

// NewLauncher builds a Launcher. A nil Spawner selects ExecSpawner.
func NewLauncher(opts Options) *Launcher {
	spawner := opts.Spawner
	if spawner == nil {
		spawner = ExecSpawner{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		spawner:    spawner,
		recordPath: opts.RecordPath,
		logger:     logger,
		now:        time.Now,
	}
}

// Launch returns immediately. The close of any existing instance, argument
// rendering and the spawn itself run on a separate goroutine; the outcome is
// reported through the returned Launch.
func (l *Launcher) Launch(ctx context.Context, spec Spec) *Launch {
	launch := &Launch{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	ctx = log.WithLifecycleLogContext(ctx, log.LifecycleLogContext{LaunchID: launch.id})
	logger := log.LoggerFor(ctx, l.logger)

	go func() {
		defer close(launch.done)
		launch.stale, launch.pid, launch.err = l.run(ctx, spec, launch.id, logger)
	}()

	return launch
}

func (l *Launcher) run(ctx context.Context, spec Spec, id string, logger *slog.Logger) (window.Handle, int, error) {
	var stale window.Handle
	if spec.CloseExisting != nil {
		h, err := spec.CloseExisting(ctx)
		if err != nil {
			logger.Warn("failed to close existing instance", "error", err)
		} else if h != 0 {
			logger.Info("closed existing instance before launch", "handle", h.String())
		}
		stale = h
	}

	executable := ResolveExecutable(spec.Executable, spec.WorkingDir)
	args, err := RenderArgs(spec.Args, ArgsData{
		Executable: executable,
		WorkingDir: spec.WorkingDir,
		ConfigPath: spec.ConfigPath,
		Mode:       spec.Mode,
	})
	if err != nil {
		launchErr := &LaunchError{Executable: executable, Err: err}
		logger.Error("launch aborted", "error", launchErr)
		return stale, 0, launchErr
	}

	if err := ctx.Err(); err != nil {
		launchErr := &LaunchError{Executable: executable, Err: err}
		logger.Debug("launch abandoned before spawn", "error", err)
		return stale, 0, launchErr
	}

	pid, err := l.spawner.Spawn(ctx, Command{Path: executable, Dir: spec.WorkingDir, Args: args})
	if err != nil {
		launchErr := &LaunchError{Executable: executable, Err: err}
		logger.Error("launch failed", "error", launchErr)
		return stale, 0, launchErr
	}
	logger.Info("launched embedded application", "pid", pid, "executable", executable)

	if l.recordPath != "" {
		record := Record{
			ID:          id,
			PID:         pid,
			Mode:        spec.Mode,
			WindowTitle: spec.WindowTitle,
			Executable:  executable,
			WorkingDir:  spec.WorkingDir,
			Args:        args,
			CreatedAt:   l.now().UTC(),
		}
		if err := WriteRecord(l.recordPath, record); err != nil {
			logger.Warn("failed to write launch record", "path", l.recordPath, "error", err)
		}
	}

	return stale, pid, nil
}

// ResolveExecutable joins a relative executable path onto workingDir so the
// spawn does not depend on the caller's current directory.
func ResolveExecutable(executable, workingDir string) string {
	executable = strings.TrimSpace(executable)
	if executable == "" || filepath.IsAbs(executable) || workingDir == "" {
		return executable
	}
	return filepath.Join(workingDir, executable)
}
