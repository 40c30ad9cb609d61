package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mkwak13/winter-sports/internal/lifecycle"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/mkwak13/winter-sports/internal/window/windowtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	title      = "MotionInput"
	hostHandle = window.Handle(0x42)
	interval   = 5 * time.Millisecond
)

var hostRect = window.Rect{X: 100, Y: 50, Width: 640, Height: 480}

type fakeHost struct {
	mu      sync.Mutex
	visible []bool
}

func (h *fakeHost) TargetRect() (window.Rect, error) {
	return hostRect, nil
}

func (h *fakeHost) SetVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = append(h.visible, visible)
}

func (h *fakeHost) history() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.visible...)
}

type fakePauser struct {
	paused  atomic.Int32
	resumed atomic.Int32
}

func (p *fakePauser) Pause()  { p.paused.Add(1) }
func (p *fakePauser) Resume() { p.resumed.Add(1) }

type fakePresenter struct {
	shown atomic.Int32
}

func (p *fakePresenter) SetUIVisible(visible bool) {
	if visible {
		p.shown.Add(1)
	}
}

// spawner opens the embedded window on the fake system when spawned,
// optionally after a number of extra title queries.
type spawner struct {
	sys *windowtest.System

	mu       sync.Mutex
	commands []processes.Command
	delay    []int
	err      error
}

func (s *spawner) Spawn(_ context.Context, cmd processes.Command) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, cmd)
	if s.err != nil {
		return 0, s.err
	}

	n := len(s.commands) - 1
	switch {
	case n < len(s.delay) && s.delay[n] < 0:
		// never shows a window
	case n < len(s.delay):
		s.sys.OpenAfter(title, s.delay[n])
	default:
		s.sys.Open(title)
	}
	return 1000 + n, nil
}

func (s *spawner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commands)
}

type harness struct {
	sys       *windowtest.System
	spawner   *spawner
	store     *modes.Store
	host      *fakeHost
	pauser    *fakePauser
	presenter *fakePresenter
	ready     *atomic.Int32
	opts      lifecycle.Options
}

func newHarness(t *testing.T, defined ...string) *harness {
	t.Helper()

	root := t.TempDir()
	modesDir := filepath.Join(root, "modes")
	template := filepath.Join(root, "template.json")
	require.NoError(t, os.WriteFile(template, []byte(`{"mode":"x/y","camera_nr":1}`), 0o644))
	for _, mode := range defined {
		def := filepath.Join(modesDir, filepath.FromSlash(mode)+".json")
		require.NoError(t, os.MkdirAll(filepath.Dir(def), 0o755))
		require.NoError(t, os.WriteFile(def, []byte(`{}`), 0o644))
	}

	sys := windowtest.New(hostHandle)
	h := &harness{
		sys:       sys,
		spawner:   &spawner{sys: sys},
		store:     modes.NewStore(modes.Options{TemplatePath: template, ConfigPath: filepath.Join(root, "data", "config.json"), ModesDir: modesDir}),
		host:      &fakeHost{},
		pauser:    &fakePauser{},
		presenter: &fakePresenter{},
		ready:     &atomic.Int32{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.opts = lifecycle.Options{
		WindowTitle:   title,
		Mode:          "x/y",
		Executable:    "MotionInput.exe",
		WorkingDir:    root,
		FreezeOnStart: true,
		PollInterval:  interval,
		System:        sys,
		Store:         h.store,
		Launcher:      processes.NewLauncher(processes.Options{Spawner: h.spawner, Logger: logger}),
		Host:          h.host,
		Pauser:        h.pauser,
		Presenter:     h.presenter,
		OnInitialized: []func(){func() { h.ready.Add(1) }},
		Logger:        logger,
	}
	return h
}

func (h *harness) controller(t *testing.T) *lifecycle.Controller {
	t.Helper()
	c, err := lifecycle.New(h.opts)
	require.NoError(t, err)
	return c
}

func waitReady(t *testing.T, c *lifecycle.Controller) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.WaitReady(ctx)
}

func TestNewValidatesOptions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")

	opts := h.opts
	opts.WindowTitle = " "
	_, err := lifecycle.New(opts)
	require.Error(t, err)

	opts = h.opts
	opts.Launcher = nil
	_, err = lifecycle.New(opts)
	require.Error(t, err)

	opts = h.opts
	opts.Store = modes.NewStore(modes.Options{
		TemplatePath: filepath.Join(t.TempDir(), "missing.json"),
		ConfigPath:   filepath.Join(t.TempDir(), "config.json"),
	})
	_, err = lifecycle.New(opts)
	var initErr *modes.ConfigInitError
	require.ErrorAs(t, err, &initErr)
}

func TestStartEmbedsLaunchedWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	require.True(t, c.IsInitialized())
	require.Equal(t, lifecycle.StateInitialized, c.State())
	require.Equal(t, 1, h.spawner.count())

	embedded := h.sys.Handle(title)
	require.NotZero(t, embedded)
	require.Zero(t, h.sys.StyleOf(embedded)&window.ChromeMask)

	placed, ok := h.sys.Placement(embedded)
	require.True(t, ok)
	require.Equal(t, hostRect, placed)
	require.Equal(t, []window.Handle{hostHandle}, h.sys.Focused())

	require.EqualValues(t, 1, h.ready.Load())
	require.EqualValues(t, 1, h.presenter.shown.Load())
	require.EqualValues(t, 1, h.pauser.paused.Load())
	require.EqualValues(t, 1, h.pauser.resumed.Load())
	require.Equal(t, []bool{false, true}, h.host.history())

	snap := c.Snapshot()
	require.Equal(t, embedded, snap.Window)
	require.Equal(t, "x/y", snap.Mode)
	require.Empty(t, snap.LastError)
}

func TestStartWaitsForSlowWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.spawner.delay = []int{3}
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	require.GreaterOrEqual(t, h.sys.Queries(title), 4)
	require.EqualValues(t, 1, h.ready.Load())
}

func TestStartWritesRequestedMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y", "group6/superexplorers_racing")
	h.opts.Mode = "group6/superexplorers_racing.json"
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	mode, err := h.store.GetMode()
	require.NoError(t, err)
	require.Equal(t, "group6/superexplorers_racing", mode)

	raw, err := os.ReadFile(h.store.ConfigPath())
	require.NoError(t, err)
	require.Contains(t, string(raw), `"camera_nr":1`)
}

func TestStartReusesMatchingInstance(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.opts.ReusePrevious = true
	previous := h.sys.Open(title)
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))

	require.Equal(t, lifecycle.StateInitialized, c.State())
	require.True(t, c.IsInitialized())
	require.NoError(t, waitReady(t, c))
	require.Zero(t, h.spawner.count())
	require.Empty(t, h.sys.Closed())
	require.Zero(t, h.sys.StyleWrites())
	require.Zero(t, h.pauser.paused.Load())
	require.EqualValues(t, 1, h.ready.Load())
	require.Equal(t, previous, c.Snapshot().Window)
}

func TestStartRelaunchesOnModeMismatch(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y", "a/b")
	h.opts.ReusePrevious = true
	h.opts.Mode = "a/b"
	previous := h.sys.Open(title)
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	require.Equal(t, []window.Handle{previous}, h.sys.Closed())
	require.Equal(t, 1, h.spawner.count())

	embedded := c.Snapshot().Window
	require.NotZero(t, embedded)
	require.NotEqual(t, previous, embedded)

	mode, err := h.store.GetMode()
	require.NoError(t, err)
	require.Equal(t, "a/b", mode)
}

func TestStartWithoutReuseClosesPreviousInstance(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	previous := h.sys.Open(title)
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	require.Equal(t, []window.Handle{previous}, h.sys.Closed())
	require.NotEqual(t, previous, c.Snapshot().Window)
}

func TestStartRejectsInvalidMode(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.opts.Mode = "no/such_mode"
	c := h.controller(t)

	before, err := os.ReadFile(h.store.ConfigPath())
	require.NoError(t, err)

	err = c.Start(context.Background())
	var invalid *modes.InvalidModeError
	require.ErrorAs(t, err, &invalid)

	require.Equal(t, lifecycle.StateIdle, c.State())
	require.False(t, c.IsInitialized())
	require.Zero(t, h.spawner.count())
	require.Empty(t, h.host.history())
	require.Zero(t, h.pauser.paused.Load())
	require.ErrorIs(t, c.WaitReady(context.Background()), lifecycle.ErrNotStarted)

	after, err := os.ReadFile(h.store.ConfigPath())
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestStartReportsLaunchFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.spawner.err = errors.New("file not found")
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))

	err := waitReady(t, c)
	var launchErr *processes.LaunchError
	require.ErrorAs(t, err, &launchErr)

	require.Equal(t, lifecycle.StateIdle, c.State())
	require.False(t, c.IsInitialized())
	require.Zero(t, h.ready.Load())
	require.EqualValues(t, 1, h.pauser.resumed.Load())
	require.Equal(t, []bool{false, true}, h.host.history())
	require.Contains(t, c.Snapshot().LastError, "file not found")
}

func TestTerminateIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	c := h.controller(t)

	require.NoError(t, c.Terminate(context.Background()))
	require.Equal(t, lifecycle.StateIdle, c.State())
	require.Empty(t, h.sys.Closed())

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))
	embedded := c.Snapshot().Window

	require.NoError(t, c.Terminate(context.Background()))
	require.Equal(t, lifecycle.StateTerminated, c.State())
	require.Equal(t, []window.Handle{embedded}, h.sys.Closed())

	require.NoError(t, c.Terminate(context.Background()))
	require.Equal(t, lifecycle.StateTerminated, c.State())
	require.Len(t, h.sys.Closed(), 1)
}

func TestTerminateStopsPendingDetection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.spawner.delay = []int{-1}
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return h.spawner.count() == 1 }, time.Second, interval)

	require.NoError(t, c.Terminate(context.Background()))
	require.Equal(t, lifecycle.StateTerminated, c.State())
	require.ErrorIs(t, c.WaitReady(context.Background()), lifecycle.ErrSuperseded)
	require.EqualValues(t, 1, h.pauser.resumed.Load())

	// A window that shows up after termination is never adopted.
	h.sys.Open(title)
	time.Sleep(10 * interval)

	require.Equal(t, lifecycle.StateTerminated, c.State())
	require.False(t, c.IsInitialized())
	require.Zero(t, h.sys.StyleWrites())
	require.Zero(t, h.ready.Load())
}

func TestOverlappingStartsInitializeOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.spawner.delay = []int{-1}
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.Eventually(t, func() bool { return h.spawner.count() == 1 }, time.Second, interval)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	time.Sleep(10 * interval)

	snap := c.Snapshot()
	require.Equal(t, lifecycle.StateInitialized, snap.State)
	require.EqualValues(t, 2, snap.Generation)
	require.EqualValues(t, 1, h.ready.Load())
	require.Equal(t, 1, h.sys.StyleWrites())
	require.EqualValues(t, h.pauser.paused.Load(), h.pauser.resumed.Load())
}

func TestReuseDuringDetectionEmbedsWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.opts.ReusePrevious = true
	h.opts.PollInterval = time.Hour
	h.spawner.delay = []int{-1}
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	// reuse lookup, pre-launch close, first detection poll
	require.Eventually(t, func() bool { return h.sys.Queries(title) >= 3 }, time.Second, interval)

	late := h.sys.Open(title)
	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))

	require.Equal(t, lifecycle.StateInitialized, c.State())
	require.Equal(t, 1, h.spawner.count())
	require.EqualValues(t, 1, h.ready.Load())
	require.Zero(t, h.sys.StyleOf(late)&window.ChromeMask)

	placed, ok := h.sys.Placement(late)
	require.True(t, ok)
	require.Equal(t, hostRect, placed)
	require.EqualValues(t, h.pauser.paused.Load(), h.pauser.resumed.Load())
}

func TestStartContextBoundsDetection(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.spawner.delay = []int{-1}
	c := h.controller(t)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	require.Eventually(t, func() bool { return h.spawner.count() == 1 }, time.Second, interval)
	cancel()

	err := waitReady(t, c)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, lifecycle.StateIdle, c.State())
	require.EqualValues(t, 1, h.pauser.resumed.Load())
}

func TestCloseTerminatesWhenConfigured(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	h.opts.TerminateOnTeardown = true
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))
	require.NoError(t, c.Close(context.Background()))

	require.Equal(t, lifecycle.StateTerminated, c.State())
	require.Len(t, h.sys.Closed(), 1)
}

func TestCloseLeavesAppRunningByDefault(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "x/y")
	c := h.controller(t)

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, waitReady(t, c))
	require.NoError(t, c.Close(context.Background()))

	assert.Equal(t, lifecycle.StateInitialized, c.State())
	assert.Empty(t, h.sys.Closed())
	assert.NotZero(t, h.sys.Handle(title))
}
