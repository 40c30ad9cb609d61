package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/iostreams"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/mkwak13/winter-sports/internal/window/windowtest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// HostWindow is the foreground window of a fixture's fake window system.
const HostWindow = window.Handle(0x77)

// Spawner records launches and opens the embedded window on Sys, standing in
// for the real app.
type Spawner struct {
	Sys   *windowtest.System
	Title string
	// Err fails every spawn when set.
	Err error

	mu       sync.Mutex
	commands []processes.Command
}

func (s *Spawner) Spawn(_ context.Context, cmd processes.Command) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	if s.Err != nil {
		return 0, s.Err
	}
	s.Sys.Open(s.Title)
	return 5000 + len(s.commands), nil
}

// Commands returns every spawned command.
func (s *Spawner) Commands() []processes.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]processes.Command(nil), s.commands...)
}

// Fixture is a MockHelper backed by a real profile configuration, an
// installed app with mode definitions and a fake window system.
type Fixture struct {
	Helper  *MockHelper
	Config  *config.ProfiledConfig
	Install string
	Sys     *windowtest.System
	Spawner *Spawner
	Out     *Buffer
	ErrOut  *Buffer

	format common.OutputFormat
}

// NewFixture installs an app defining modes under a temp dir and wires a
// helper around it. The default profile selects the first mode.
func NewFixture(t *testing.T, defined ...string) *Fixture {
	t.Helper()

	install := t.TempDir()
	for _, mode := range defined {
		def := filepath.Join(install, "data", "modes", filepath.FromSlash(mode)+".json")
		require.NoError(t, os.MkdirAll(filepath.Dir(def), 0o755))
		require.NoError(t, os.WriteFile(def, []byte(`{}`), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(install, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(install, "data", "config.json"),
		[]byte(`{"camera_nr": 0, "mode": "none"}`), 0o644))

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := config.GetConfig(path, common.DefaultProfile, path)
	require.NoError(t, err)
	cfg.Set(common.WorkingDirConfigPath, install)
	cfg.Set(common.PollIntervalConfigPath, "5ms")
	if len(defined) > 0 {
		cfg.Set(common.ModeConfigPath, defined[0])
	}

	sys := windowtest.New(HostWindow)
	out, errOut := &Buffer{}, &Buffer{}
	streams := iostreams.IOStreams{In: &bytes.Buffer{}, Out: out, ErrOut: errOut}
	f := &Fixture{
		Config:  cfg,
		Install: install,
		Sys:     sys,
		Spawner: &Spawner{Sys: sys, Title: common.DefaultWindowTitle},
		Out:     out,
		ErrOut:  errOut,
		format:  common.TEXT,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	command := &cobra.Command{}
	command.SetContext(ctx)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.Helper = &MockHelper{
		GetCmdMock:     func() *cobra.Command { return command },
		GetStreamsMock: func() *iostreams.IOStreams { return &streams },
		GetConfigMock:  func() (config.Hook, error) { return cfg, nil },
		GetOutputFormatMock: func() (common.OutputFormat, error) {
			return f.format, nil
		},
		GetLoggerMock:       func() (*slog.Logger, error) { return logger, nil },
		GetBuildInfoMock:    func() (*build.Info, error) { return &build.Info{Version: "dev"}, nil },
		GetContextMock:      func() context.Context { return ctx },
		GetWindowSystemMock: func() (window.System, error) { return sys, nil },
		GetSpawnerMock:      func() processes.Spawner { return f.Spawner },
	}
	return f
}

// SetOutput selects the output format the helper reports.
func (f *Fixture) SetOutput(format common.OutputFormat) {
	f.format = format
}

// Buffer is a bytes.Buffer safe for a command writing on one goroutine while
// a test reads on another.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
