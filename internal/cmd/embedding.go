package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/host"
	"github.com/mkwak13/winter-sports/internal/lifecycle"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
)

// BindFlags binds each named flag of c to its configuration path so flag
// values override the profile's settings.
func BindFlags(helper Helper, bindings map[string]string) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	c := helper.GetCmd()
	for flagName, configPath := range bindings {
		f := c.Flags().Lookup(flagName)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flagName)
		}
		if err := cfg.BindFlag(configPath, f); err != nil {
			return err
		}
	}
	return nil
}

// GetSettings reads the embedding settings from the profile configuration.
func GetSettings(helper Helper) (host.Settings, error) {
	cfg, err := helper.GetConfig()
	if err != nil {
		return host.Settings{}, err
	}
	s, err := host.SettingsFromConfig(cfg)
	if err != nil {
		return s, &ConfigurationError{Err: err}
	}
	return s, nil
}

// BuildController assembles a Controller from the command's configuration,
// window backend and spawner.
func BuildController(helper Helper, onInitialized ...func()) (*lifecycle.Controller, host.Settings, *slog.Logger, error) {
	logger, err := helper.GetLogger()
	if err != nil {
		return nil, host.Settings{}, nil, err
	}
	if verb, err := helper.GetVerb(); err == nil {
		logger = logger.With("verb", verb.String())
	}
	s, err := GetSettings(helper)
	if err != nil {
		return nil, s, logger, err
	}
	sys, err := helper.GetWindowSystem()
	if err != nil {
		return nil, s, logger, err
	}

	ctrl, _, err := host.NewController(s, host.Dependencies{
		System:        sys,
		Spawner:       helper.GetSpawner(),
		Logger:        logger,
		OnInitialized: onInitialized,
	})
	if err != nil {
		var initErr *modes.ConfigInitError
		if errors.As(err, &initErr) {
			return nil, s, logger, PrepareExecutionError("failed to prepare the app configuration", err, helper.GetCmd(),
				"template", initErr.Template, "path", initErr.Path)
		}
		return nil, s, logger, &ConfigurationError{Err: err}
	}
	return ctrl, s, logger, nil
}

// LifecycleError maps a controller error to the CLI error taxonomy.
func LifecycleError(helper Helper, msg string, err error) error {
	var invalid *modes.InvalidModeError
	if errors.As(err, &invalid) {
		return &ConfigurationError{Err: err}
	}
	return PrepareExecutionError(msg, err, helper.GetCmd())
}

// Print renders v in the configured output format, using text for the text
// format.
func Print(helper Helper, v any, text func() error) error {
	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	if outType == common.TEXT {
		return text()
	}

	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(v)
	return nil
}

// PrintExecutionError writes e to w. The text format gets an "Error:" line
// followed by indented key/value lines; json and yaml get e.Fields().
func PrintExecutionError(w io.Writer, format string, e *ExecutionError) error {
	fields := e.Fields()
	if format != common.TEXT.String() {
		printer, err := cli.Format(format, w)
		if err != nil {
			return err
		}
		defer printer.Flush()
		printer.Print(fields)
		return nil
	}

	if _, err := fmt.Fprintf(w, "Error: %s\n", fields["error"]); err != nil {
		return err
	}
	delete(fields, "error")
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "  %s: %v\n", k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// NoPositionalArgs rejects positional arguments.
func NoPositionalArgs(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &ConfigurationError{Err: fmt.Errorf("%s does not accept positional arguments, got %q", c.CommandPath(), args[0])}
	}
	return nil
}
