package common

import "fmt"

// Represents an enum of valid values for the format of the output for this CLI execution
type OutputFormat int

const (
	JSON OutputFormat = iota
	YAML
	TEXT
)

const (
	// related to the --output flag
	DefaultOutputFormat = "text"
	OutputFlagName      = "output"
	OutputFlagShort     = "o"
	OutputConfigPath    = OutputFlagName

	// related to the --profile flag
	ProfileFlagName  = "profile"
	ProfileFlagShort = "p"
	DefaultProfile   = "default"

	// related to the --config-file flag
	ConfigFilePathFlagName = "config-file"

	// related to the --log-level flag
	LogLevelFlagName   = "log-level"
	DefaultLogLevel    = "info"
	LogLevelConfigPath = LogLevelFlagName

	// related to the --log-file flag
	LogFileFlagName   = "log-file"
	LogFileConfigPath = LogFileFlagName
)

// Configuration paths for the embedded application.
const (
	ExecutableConfigPath  = "app.executable"
	WorkingDirConfigPath  = "app.working-dir"
	ArgsConfigPath        = "app.args"
	WindowTitleConfigPath = "app.window-title"

	ModeConfigPath         = "mode.name"
	ModeTemplateConfigPath = "mode.template"
	ModeFileConfigPath     = "mode.config"
	ModesDirConfigPath     = "mode.modes-dir"
	ModeKeyConfigPath      = "mode.key"

	ReusePreviousConfigPath       = "embed.reuse-previous"
	TerminateOnTeardownConfigPath = "embed.terminate-on-teardown"
	FreezeOnStartConfigPath       = "embed.freeze-on-start"
	PollIntervalConfigPath        = "embed.poll-interval"
	OriginConfigPath              = "embed.origin"
	ScreenHeightConfigPath        = "embed.screen-height"
	RectXConfigPath               = "embed.rect.x"
	RectYConfigPath               = "embed.rect.y"
	RectWidthConfigPath           = "embed.rect.width"
	RectHeightConfigPath          = "embed.rect.height"
)

// Defaults for the embedded application.
const (
	DefaultWindowTitle  = "MotionInput"
	DefaultExecutable   = "MotionInput.exe"
	DefaultMode         = "group6/superexplorers_racing"
	DefaultModeTemplate = "data/config.json"
	DefaultModesDir     = "data/modes"
	DefaultPollInterval = "500ms"

	OriginTopLeft    = "top-left"
	OriginBottomLeft = "bottom-left"
)

func (of OutputFormat) String() string {
	return [...]string{"json", "yaml", "text"}[of]
}

func OutputFormatStringToIota(format string) (OutputFormat, error) {
	switch format {
	case "json":
		return JSON, nil
	case "yaml":
		return YAML, nil
	case "text":
		return TEXT, nil
	default:
		return TEXT, fmt.Errorf("invalid output format %q, must be one of %v", format, []string{"json", "yaml", "text"})
	}
}
