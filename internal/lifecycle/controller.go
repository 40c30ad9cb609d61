// Package lifecycle coordinates launching the embedded application, waiting
// for its window and overlaying that window on the host surface.
//
// A Controller moves through idle, launching, window-detected and
// initialized; terminated is reachable from any state. Every Start and
// Terminate opens a new generation. Work belonging to an older generation,
// such as a detection loop that was still polling, is cancelled and can no
// longer change the controller's state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mkwak13/winter-sports/internal/log"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle           State = "idle"
	StateLaunching      State = "launching"
	StateWindowDetected State = "window-detected"
	StateInitialized    State = "initialized"
	StateTerminated     State = "terminated"
)

func (s State) String() string {
	return string(s)
}

var (
	// ErrSuperseded is returned by WaitReady when a later Start or Terminate
	// replaced the attempt being waited on.
	ErrSuperseded = errors.New("embedding attempt superseded")
	// ErrNotStarted is returned by WaitReady before the first Start.
	ErrNotStarted = errors.New("embedding has not been started")
)

// Host is the application whose surface the embedded window overlays.
type Host interface {
	// TargetRect returns the screen rectangle, top-left origin, the embedded
	// window must cover.
	TargetRect() (window.Rect, error)
	// SetVisible shows or hides the host's embedding surface.
	SetVisible(visible bool)
}

// Pauser freezes and resumes the host's clock while the app starts.
type Pauser interface {
	Pause()
	Resume()
}

// Presenter is told to show its UI once embedding completes.
type Presenter interface {
	SetUIVisible(visible bool)
}

// ModeStore persists the embedded app's mode. *modes.Store implements it.
type ModeStore interface {
	EnsureWritableConfig() error
	SetMode(mode string) error
	GetMode() (string, error)
	ConfigPath() string
}

// Launcher starts the embedded app. *processes.Launcher implements it.
type Launcher interface {
	Launch(ctx context.Context, spec processes.Spec) *processes.Launch
}

// Options configures a Controller.
type Options struct {
	// WindowTitle identifies the embedded app's top-level window.
	WindowTitle string
	// Mode is the mode requested on Start.
	Mode string

	Executable string
	WorkingDir string
	Args       []string

	// ReusePrevious lets Start adopt a running instance already in Mode.
	ReusePrevious bool
	// TerminateOnTeardown makes Close terminate the embedded app.
	TerminateOnTeardown bool
	// FreezeOnStart pauses the host through Pauser until initialization.
	FreezeOnStart bool
	PollInterval  time.Duration

	System   window.System
	Store    ModeStore
	Launcher Launcher

	Host      Host
	Pauser    Pauser
	Presenter Presenter
	// OnInitialized callbacks run once per successful Start.
	OnInitialized []func()

	Logger *slog.Logger
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State       State         `json:"state" yaml:"state"`
	Generation  uint64        `json:"generation" yaml:"generation"`
	Initialized bool          `json:"initialized" yaml:"initialized"`
	Window      window.Handle `json:"window,omitempty" yaml:"window,omitempty"`
	Mode        string        `json:"mode" yaml:"mode"`
	LastError   string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// attempt tracks one generation until it settles.
type attempt struct {
	generation uint64
	done       chan struct{}
	settled    bool
	err        error
}

// Controller drives the embedding lifecycle. It is safe for concurrent use.
type Controller struct {
	opts    Options
	locator *window.Locator
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	generation  uint64
	cancel      context.CancelFunc
	current     *attempt
	initialized bool
	handle      window.Handle
	hostWindow  window.Handle
	frozen      bool
	lastErr     error
}

// New validates opts and prepares the writable mode configuration. A
// *modes.ConfigInitError is returned when the configuration template cannot
// be copied.
func New(opts Options) (*Controller, error) {
	switch {
	case strings.TrimSpace(opts.WindowTitle) == "":
		return nil, fmt.Errorf("window title is required")
	case strings.TrimSpace(opts.Executable) == "":
		return nil, fmt.Errorf("executable is required")
	case opts.System == nil:
		return nil, fmt.Errorf("window system is required")
	case opts.Store == nil:
		return nil, fmt.Errorf("mode store is required")
	case opts.Launcher == nil:
		return nil, fmt.Errorf("launcher is required")
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Host == nil {
		opts.Host = nopHost{}
	}
	if opts.Args == nil {
		opts.Args = processes.DefaultArgs
	}
	opts.Mode = modes.Normalize(opts.Mode)

	if err := opts.Store.EnsureWritableConfig(); err != nil {
		return nil, err
	}

	return &Controller{
		opts:    opts,
		locator: window.NewLocator(opts.System, opts.PollInterval, opts.Logger),
		logger:  opts.Logger,
		state:   StateIdle,
	}, nil
}

// Start begins an embedding attempt and returns without waiting for the
// window. ctx bounds the whole attempt, including window detection.
//
// When reuse is enabled and a window titled WindowTitle already runs in the
// requested mode, the controller adopts it and becomes initialized without
// launching anything. Otherwise the mode is written, the host is hidden and
// optionally frozen, the app is launched and its window awaited in the
// background. An invalid mode returns *modes.InvalidModeError and leaves the
// controller exactly as it was.
func (c *Controller) Start(ctx context.Context) error {
	mode := c.opts.Mode
	ctx = log.WithLifecycleLogContext(ctx, log.LifecycleLogContext{
		WindowTitle: c.opts.WindowTitle,
		Mode:        mode,
	})

	if c.opts.ReusePrevious {
		if h, ok := c.reusable(ctx, mode); ok {
			c.adopt(ctx, h)
			return nil
		}
	}

	if err := c.opts.Store.SetMode(mode); err != nil {
		log.LoggerFor(ctx, c.logger).Error("mode change rejected, start aborted", "error", err)
		return err
	}

	hostWindow, err := c.opts.System.Foreground()
	if err != nil {
		log.LoggerFor(ctx, c.logger).Warn("could not record host foreground window", "error", err)
	}

	freeze := c.opts.FreezeOnStart && c.opts.Pauser != nil

	c.mu.Lock()
	gen, wasFrozen := c.advanceLocked()
	c.beginLocked(gen)
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateLaunching
	c.initialized = false
	c.handle = 0
	c.lastErr = nil
	c.hostWindow = hostWindow
	c.frozen = freeze
	c.mu.Unlock()

	loopCtx = log.WithLifecycleLogContext(loopCtx, log.LifecycleLogContext{Generation: gen})
	logger := log.LoggerFor(loopCtx, c.logger)
	logger.Info("starting embedded application")

	c.opts.Host.SetVisible(false)
	switch {
	case freeze && !wasFrozen:
		c.opts.Pauser.Pause()
	case !freeze && wasFrozen:
		c.opts.Pauser.Resume()
	}

	launch := c.opts.Launcher.Launch(loopCtx, processes.Spec{
		Executable:    c.opts.Executable,
		WorkingDir:    c.opts.WorkingDir,
		Args:          c.opts.Args,
		ConfigPath:    c.opts.Store.ConfigPath(),
		Mode:          mode,
		WindowTitle:   c.opts.WindowTitle,
		CloseExisting: c.closeExisting,
	})

	go c.detect(loopCtx, gen, launch, logger)
	return nil
}

// Terminate asks the embedded app's window, looked up by title, to close.
// It does not wait for the window to go away. Any pending detection is
// cancelled. With no window and nothing pending it changes nothing and
// returns nil.
func (c *Controller) Terminate(ctx context.Context) error {
	ctx = log.WithLifecycleLogContext(ctx, log.LifecycleLogContext{WindowTitle: c.opts.WindowTitle})
	logger := log.LoggerFor(ctx, c.logger)

	c.mu.Lock()
	pending := c.state == StateLaunching || c.state == StateWindowDetected
	var wasFrozen bool
	if pending {
		_, wasFrozen = c.advanceLocked()
		c.state = StateTerminated
		c.handle = 0
	}
	c.mu.Unlock()

	if wasFrozen {
		c.opts.Pauser.Resume()
	}
	if pending {
		c.opts.Host.SetVisible(true)
	}

	h, err := window.CloseByTitle(c.opts.System, c.opts.WindowTitle)
	if err != nil {
		logger.Error("failed to close embedded window", "error", err)
		return err
	}
	if h == 0 {
		logger.Info("no embedded window to close")
		return nil
	}

	c.mu.Lock()
	if !pending {
		c.advanceLocked()
		c.state = StateTerminated
		c.handle = 0
	}
	c.mu.Unlock()

	logger.Info("close requested for embedded window", "handle", h.String())
	return nil
}

// Close tears the controller down: pending detection is cancelled and, when
// TerminateOnTeardown is set, the embedded app is terminated.
func (c *Controller) Close(ctx context.Context) error {
	if c.opts.TerminateOnTeardown {
		return c.Terminate(ctx)
	}

	c.mu.Lock()
	pending := c.state == StateLaunching || c.state == StateWindowDetected
	var wasFrozen bool
	if pending {
		_, wasFrozen = c.advanceLocked()
		c.state = StateIdle
	}
	c.mu.Unlock()

	if wasFrozen {
		c.opts.Pauser.Resume()
	}
	if pending {
		c.opts.Host.SetVisible(true)
	}
	return nil
}

// IsInitialized reports whether the latest Start reached initialized.
func (c *Controller) IsInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the controller's current view of the embedding.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:       c.state,
		Generation:  c.generation,
		Initialized: c.initialized,
		Window:      c.handle,
		Mode:        c.opts.Mode,
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}

// WaitReady blocks until the latest Start is initialized, fails, is
// superseded, or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if current == nil {
		return ErrNotStarted
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-current.done:
		return current.err
	}
}

// reusable reports whether a window titled WindowTitle is already running in
// mode.
func (c *Controller) reusable(ctx context.Context, mode string) (window.Handle, bool) {
	logger := log.LoggerFor(ctx, c.logger)

	h, err := c.locator.FindByTitle(c.opts.WindowTitle)
	if err != nil {
		logger.Warn("could not look for a previous instance", "error", err)
		return 0, false
	}
	if h == 0 {
		return 0, false
	}

	current, err := c.opts.Store.GetMode()
	if err != nil {
		logger.Warn("could not read persisted mode", "error", err)
		return 0, false
	}
	if current != mode {
		logger.Info("previous instance runs a different mode, relaunching", "persisted_mode", current)
		return 0, false
	}
	return h, true
}

// adopt makes a running instance the current embedding without relaunching
// or reconfiguring it. A window found while an earlier attempt was still
// detecting has not been embedded yet, so adopt embeds it itself.
func (c *Controller) adopt(ctx context.Context, h window.Handle) {
	c.mu.Lock()
	pending := c.state == StateLaunching || c.state == StateWindowDetected
	hostWindow := c.hostWindow
	gen, wasFrozen := c.advanceLocked()
	current := c.beginLocked(gen)
	c.state = StateInitialized
	c.initialized = true
	c.handle = h
	c.lastErr = nil
	c.mu.Unlock()

	ctx = log.WithLifecycleLogContext(ctx, log.LifecycleLogContext{Generation: gen})
	logger := log.LoggerFor(ctx, c.logger)
	logger.Info("previous instance found, reusing it", "handle", h.String())

	if pending {
		c.embed(h, hostWindow, logger)
	}
	if wasFrozen {
		c.opts.Pauser.Resume()
	}
	c.notifyReady()
	c.settle(current, nil)
}

// detect waits for the launch, then for the window, then embeds it.
func (c *Controller) detect(ctx context.Context, gen uint64, launch *processes.Launch, logger *slog.Logger) {
	select {
	case <-ctx.Done():
		c.fail(gen, ctx.Err(), logger)
		return
	case <-launch.Done():
	}

	if err := launch.Err(); err != nil {
		c.fail(gen, err, logger)
		return
	}

	h, err := c.locator.WaitForWindow(ctx, c.opts.WindowTitle, launch.StaleWindow())
	if err != nil {
		c.fail(gen, err, logger)
		return
	}

	c.mu.Lock()
	if c.generation != gen || c.state != StateLaunching {
		c.mu.Unlock()
		logger.Debug("discarding window found by a superseded attempt", "handle", h.String())
		return
	}
	c.state = StateWindowDetected
	c.handle = h
	hostWindow := c.hostWindow
	c.mu.Unlock()

	logger.Info("embedded window detected", "handle", h.String())
	c.embed(h, hostWindow, logger)
	c.finish(gen, logger)
}

// embed strips the window's chrome, places it over the host rectangle and
// hands focus back to the host.
func (c *Controller) embed(h, hostWindow window.Handle, logger *slog.Logger) {
	if err := window.StripChrome(c.opts.System, h); err != nil {
		logger.Warn("failed to strip window chrome", "error", err)
	}

	rect, err := c.opts.Host.TargetRect()
	if err != nil {
		logger.Warn("host did not provide a target rectangle", "error", err)
	} else if err := window.PlaceOver(c.opts.System, h, rect); err != nil {
		logger.Warn("failed to position embedded window", "error", err)
	}

	if hostWindow != 0 {
		if err := c.opts.System.SetForeground(hostWindow); err != nil {
			logger.Warn("failed to restore host focus", "error", err)
		}
	}
}

func (c *Controller) finish(gen uint64, logger *slog.Logger) {
	c.mu.Lock()
	if c.generation != gen || c.state != StateWindowDetected {
		c.mu.Unlock()
		return
	}
	c.state = StateInitialized
	c.initialized = true
	frozen := c.frozen
	c.frozen = false
	current := c.current
	c.mu.Unlock()

	if frozen {
		c.opts.Pauser.Resume()
	}
	logger.Info("embedded application initialized")
	c.notifyReady()
	c.settle(current, nil)
}

func (c *Controller) fail(gen uint64, err error, logger *slog.Logger) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		logger.Debug("superseded attempt stopped", "reason", err)
		return
	}
	c.state = StateIdle
	c.lastErr = err
	frozen := c.frozen
	c.frozen = false
	current := c.current
	c.mu.Unlock()

	if frozen {
		c.opts.Pauser.Resume()
	}
	c.opts.Host.SetVisible(true)
	logger.Error("embedding attempt failed", "error", err)
	c.settle(current, err)
}

func (c *Controller) notifyReady() {
	if c.opts.Presenter != nil {
		c.opts.Presenter.SetUIVisible(true)
	}
	c.opts.Host.SetVisible(true)
	for _, fn := range c.opts.OnInitialized {
		if fn != nil {
			fn()
		}
	}
}

// closeExisting closes any window with the embedded title without touching
// controller state. It runs on the launcher's goroutine before the spawn.
func (c *Controller) closeExisting(_ context.Context) (window.Handle, error) {
	return window.CloseByTitle(c.opts.System, c.opts.WindowTitle)
}

// advanceLocked opens a new generation: the previous detection loop is
// cancelled and its attempt settled as superseded. It returns the new
// generation and whether the host was left frozen by the previous attempt;
// the caller takes over responsibility for resuming it. The superseded
// attempt stays current until beginLocked replaces it.
func (c *Controller) advanceLocked() (uint64, bool) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.current != nil && !c.current.settled {
		c.current.settled = true
		c.current.err = ErrSuperseded
		close(c.current.done)
	}

	c.generation++

	wasFrozen := c.frozen
	c.frozen = false
	return c.generation, wasFrozen
}

// beginLocked makes a fresh attempt for gen the one WaitReady observes.
func (c *Controller) beginLocked(gen uint64) *attempt {
	c.current = &attempt{
		generation: gen,
		done:       make(chan struct{}),
	}
	return c.current
}

func (c *Controller) settle(a *attempt, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a == nil || a.settled {
		return
	}
	a.settled = true
	a.err = err
	close(a.done)
}

type nopHost struct{}

func (nopHost) TargetRect() (window.Rect, error) {
	return window.Rect{}, fmt.Errorf("no host configured")
}

func (nopHost) SetVisible(bool) {}
