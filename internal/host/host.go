// Package host turns CLI configuration into a running lifecycle.Controller.
// The CLI has no UI surface of its own, so the target rectangle comes from
// configuration and host-side callbacks are reported through the logger.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/lifecycle"
	"github.com/mkwak13/winter-sports/internal/log"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
)

// Settings is the resolved embedding configuration.
type Settings struct {
	Executable  string   `json:"executable" yaml:"executable"`
	WorkingDir  string   `json:"working_dir" yaml:"working_dir"`
	Args        []string `json:"args" yaml:"args"`
	WindowTitle string   `json:"window_title" yaml:"window_title"`

	Mode       string `json:"mode" yaml:"mode"`
	Template   string `json:"template" yaml:"template"`
	ConfigPath string `json:"config" yaml:"config"`
	ModesDir   string `json:"modes_dir" yaml:"modes_dir"`
	ModeKey    string `json:"mode_key" yaml:"mode_key"`

	ReusePrevious       bool          `json:"reuse_previous" yaml:"reuse_previous"`
	TerminateOnTeardown bool          `json:"terminate_on_teardown" yaml:"terminate_on_teardown"`
	FreezeOnStart       bool          `json:"freeze_on_start" yaml:"freeze_on_start"`
	PollInterval        time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// Origin is common.OriginTopLeft or common.OriginBottomLeft.
	Origin       string  `json:"origin" yaml:"origin"`
	ScreenHeight float64 `json:"screen_height,omitempty" yaml:"screen_height,omitempty"`
	RectX        float64 `json:"rect_x" yaml:"rect_x"`
	RectY        float64 `json:"rect_y" yaml:"rect_y"`
	RectWidth    float64 `json:"rect_width" yaml:"rect_width"`
	RectHeight   float64 `json:"rect_height" yaml:"rect_height"`

	// RecordPath is where the last launch is recorded; empty disables it.
	RecordPath string `json:"record_path,omitempty" yaml:"record_path,omitempty"`
}

// SettingsFromConfig reads and validates the embedding settings. Relative
// template and modes paths are resolved against the working directory, which
// is where the embedded app ships them.
func SettingsFromConfig(cfg config.Hook) (Settings, error) {
	s := Settings{
		Executable:  strings.TrimSpace(cfg.GetString(common.ExecutableConfigPath)),
		WorkingDir:  strings.TrimSpace(cfg.GetString(common.WorkingDirConfigPath)),
		Args:        cfg.GetStringSlice(common.ArgsConfigPath),
		WindowTitle: strings.TrimSpace(cfg.GetString(common.WindowTitleConfigPath)),

		Mode:       modes.Normalize(cfg.GetString(common.ModeConfigPath)),
		Template:   cfg.GetString(common.ModeTemplateConfigPath),
		ConfigPath: cfg.GetString(common.ModeFileConfigPath),
		ModesDir:   cfg.GetString(common.ModesDirConfigPath),
		ModeKey:    cfg.GetString(common.ModeKeyConfigPath),

		ReusePrevious:       cfg.GetBool(common.ReusePreviousConfigPath),
		TerminateOnTeardown: cfg.GetBool(common.TerminateOnTeardownConfigPath),
		FreezeOnStart:       cfg.GetBool(common.FreezeOnStartConfigPath),
		PollInterval:        cfg.GetDuration(common.PollIntervalConfigPath),

		Origin:       strings.TrimSpace(cfg.GetString(common.OriginConfigPath)),
		ScreenHeight: cfg.GetFloat64(common.ScreenHeightConfigPath),
		RectX:        cfg.GetFloat64(common.RectXConfigPath),
		RectY:        cfg.GetFloat64(common.RectYConfigPath),
		RectWidth:    cfg.GetFloat64(common.RectWidthConfigPath),
		RectHeight:   cfg.GetFloat64(common.RectHeightConfigPath),
	}

	if len(s.Args) == 0 {
		s.Args = nil
	}
	if s.WindowTitle == "" {
		s.WindowTitle = common.DefaultWindowTitle
	}
	if s.Executable == "" {
		return s, fmt.Errorf("%s is required", common.ExecutableConfigPath)
	}
	if s.Origin == "" {
		s.Origin = common.OriginTopLeft
	}
	if s.Origin != common.OriginTopLeft && s.Origin != common.OriginBottomLeft {
		return s, fmt.Errorf("%s must be %q or %q, got %q",
			common.OriginConfigPath, common.OriginTopLeft, common.OriginBottomLeft, s.Origin)
	}
	if s.Origin == common.OriginBottomLeft && s.ScreenHeight <= 0 {
		return s, fmt.Errorf("%s is required with a %s origin", common.ScreenHeightConfigPath, common.OriginBottomLeft)
	}
	if s.PollInterval < 0 {
		return s, fmt.Errorf("%s must not be negative", common.PollIntervalConfigPath)
	}

	if s.Template == "" {
		s.Template = common.DefaultModeTemplate
	}
	if s.ModesDir == "" {
		s.ModesDir = common.DefaultModesDir
	}
	s.Template = s.resolve(s.Template)
	s.ModesDir = s.resolve(s.ModesDir)
	if s.ConfigPath == "" {
		return s, fmt.Errorf("%s is required", common.ModeFileConfigPath)
	}

	if path := cfg.GetPath(); path != "" {
		s.RecordPath = filepath.Join(filepath.Dir(path), processes.RecordFileName)
	}
	return s, nil
}

func (s Settings) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || s.WorkingDir == "" {
		return p
	}
	return filepath.Join(s.WorkingDir, p)
}

// TargetRect returns the configured rectangle in top-left screen space.
func (s Settings) TargetRect() (window.Rect, error) {
	var rect window.Rect
	if s.Origin == common.OriginBottomLeft {
		rect = window.RectFromCorners(window.CornersOf(s.RectX, s.RectY, s.RectWidth, s.RectHeight), s.ScreenHeight)
	} else {
		rect = window.Rect{
			X:      int(math.Round(s.RectX)),
			Y:      int(math.Round(s.RectY)),
			Width:  int(math.Round(s.RectWidth)),
			Height: int(math.Round(s.RectHeight)),
		}
	}
	if rect.Empty() {
		return rect, fmt.Errorf("embed.rect %dx%d has no area", rect.Width, rect.Height)
	}
	return rect, nil
}

// Store returns the mode store described by s.
func (s Settings) Store() *modes.Store {
	return modes.NewStore(modes.Options{
		TemplatePath: s.Template,
		ConfigPath:   s.ConfigPath,
		ModesDir:     s.ModesDir,
		Key:          s.ModeKey,
	})
}

// Console is the host used by the CLI: the target rectangle comes from
// Settings and visibility and pause requests are logged.
type Console struct {
	settings Settings
	logger   *slog.Logger

	mu      sync.Mutex
	visible bool
	paused  bool
}

var (
	_ lifecycle.Host      = (*Console)(nil)
	_ lifecycle.Pauser    = (*Console)(nil)
	_ lifecycle.Presenter = (*Console)(nil)
)

func NewConsole(settings Settings, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		settings: settings,
		logger:   logger,
		visible:  true,
	}
}

func (c *Console) TargetRect() (window.Rect, error) {
	return c.settings.TargetRect()
}

func (c *Console) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
	c.logger.Log(context.Background(), log.LevelTrace, "host surface visibility changed", "visible", visible)
}

func (c *Console) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
	c.logger.Debug("host paused while the embedded app starts")
}

func (c *Console) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.logger.Debug("host resumed")
}

func (c *Console) SetUIVisible(visible bool) {
	c.logger.Debug("host UI visibility changed", "visible", visible)
}

// Visible reports the last visibility the controller requested.
func (c *Console) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Paused reports whether the host is currently frozen.
func (c *Console) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Dependencies are the platform pieces a Controller is built on.
type Dependencies struct {
	System  window.System
	Spawner processes.Spawner
	Logger  *slog.Logger
	// OnInitialized callbacks are passed through to the controller.
	OnInitialized []func()
}

// NewController builds a Controller for s backed by a Console host.
func NewController(s Settings, deps Dependencies) (*lifecycle.Controller, *Console, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	console := NewConsole(s, logger)

	ctrl, err := lifecycle.New(lifecycle.Options{
		WindowTitle:         s.WindowTitle,
		Mode:                s.Mode,
		Executable:          s.Executable,
		WorkingDir:          s.WorkingDir,
		Args:                s.Args,
		ReusePrevious:       s.ReusePrevious,
		TerminateOnTeardown: s.TerminateOnTeardown,
		FreezeOnStart:       s.FreezeOnStart,
		PollInterval:        s.PollInterval,
		System:              deps.System,
		Store:               s.Store(),
		Launcher: processes.NewLauncher(processes.Options{
			Spawner:    deps.Spawner,
			RecordPath: s.RecordPath,
			Logger:     logger,
		}),
		Host:          console,
		Pauser:        console,
		Presenter:     console,
		OnInitialized: deps.OnInitialized,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return ctrl, console, nil
}
