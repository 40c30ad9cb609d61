package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/iostreams"
	"github.com/mkwak13/winter-sports/internal/log"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

type Helper interface {
	GetCmd() *cobra.Command
	GetArgs() []string
	GetVerb() (verbs.VerbValue, error)
	GetStreams() *iostreams.IOStreams
	GetConfig() (config.Hook, error)
	GetOutputFormat() (common.OutputFormat, error)
	GetLogger() (*slog.Logger, error)
	GetBuildInfo() (*build.Info, error)
	GetContext() context.Context
	GetWindowSystem() (window.System, error)
	GetSpawner() processes.Spawner
}

type CommandHelper struct {
	// Cmd is a pointer to the command that is being executed
	Cmd *cobra.Command
	// Args are the arguments (not flags) passed to the command
	Args []string
}

func (r *CommandHelper) GetCmd() *cobra.Command {
	return r.Cmd
}

func (r *CommandHelper) GetArgs() []string {
	return r.Args
}

func (r *CommandHelper) GetBuildInfo() (*build.Info, error) {
	info, ok := r.Cmd.Context().Value(build.InfoKey).(*build.Info)
	if !ok || info == nil {
		return nil, &ConfigurationError{
			Err: fmt.Errorf("no build info configured"),
		}
	}
	return info, nil
}

func (r *CommandHelper) GetLogger() (*slog.Logger, error) {
	rv, ok := r.Cmd.Context().Value(log.LoggerKey).(*slog.Logger)
	if !ok || rv == nil {
		return nil, &ConfigurationError{
			Err: fmt.Errorf("no logger configured"),
		}
	}
	return rv, nil
}

func (r *CommandHelper) GetVerb() (verbs.VerbValue, error) {
	verbVal, ok := r.Cmd.Context().Value(verbs.Verb).(verbs.VerbValue)
	if !ok {
		return "", &ConfigurationError{Err: fmt.Errorf("no verb found in context")}
	}
	return verbVal, nil
}

func (r *CommandHelper) GetStreams() *iostreams.IOStreams {
	return r.Cmd.Context().Value(iostreams.StreamsKey).(*iostreams.IOStreams)
}

func (r *CommandHelper) GetConfig() (config.Hook, error) {
	cfgVal := r.Cmd.Context().Value(config.ConfigKey)
	if cfgVal == nil {
		return nil, PrepareExecutionError("no config found in context", errors.New("no config found in context"), r.Cmd)
	}
	return cfgVal.(config.Hook), nil
}

func (r *CommandHelper) GetOutputFormat() (common.OutputFormat, error) {
	c, e := r.GetConfig()
	if e != nil {
		return common.TEXT, e
	}
	rv, e := common.OutputFormatStringToIota(c.GetString(common.OutputConfigPath))
	if e != nil {
		return common.TEXT, &ConfigurationError{Err: e}
	}
	return rv, nil
}

func (r *CommandHelper) GetContext() context.Context {
	return r.Cmd.Context()
}

// GetWindowSystem builds the native window backend from the factory in the
// command context.
func (r *CommandHelper) GetWindowSystem() (window.System, error) {
	factory, ok := r.Cmd.Context().Value(window.SystemFactoryKey).(window.Factory)
	if !ok || factory == nil {
		factory = window.NewSystem
	}
	sys, err := factory()
	if err != nil {
		return nil, PrepareExecutionError("window management is unavailable", err, r.Cmd)
	}
	return sys, nil
}

// GetSpawner returns the process spawner from the command context, or the
// os/exec one.
func (r *CommandHelper) GetSpawner() processes.Spawner {
	if s, ok := r.Cmd.Context().Value(processes.SpawnerContextKey).(processes.Spawner); ok && s != nil {
		return s
	}
	return processes.ExecSpawner{}
}

func BuildHelper(cmd *cobra.Command, args []string) Helper {
	return &CommandHelper{
		Cmd:  cmd,
		Args: args,
	}
}

// ConfigurationError represents errors that are a result of bad flags, combinations of
// flags, configuration settings, environment values, or other command usage issues.
type ConfigurationError struct {
	Err error
}

// ExecutionError represents errors that occur after a command has been validated and an
// unsuccessful result occurs. Launch failures, window manager errors or unreadable app
// configuration are examples of ExecutionError types.
type ExecutionError struct {
	// friendly error message to display to the user
	Msg string
	// Err is the error that occurred during execution
	Err error
	// Optional attributes that can be used to provide additional context to the error
	Attrs []any
}

func (e *ConfigurationError) Error() string {
	return e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func (e *ExecutionError) Error() string {
	return e.Err.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Fields flattens e for structured output: the friendly message, the
// underlying error and the optional key/value attributes. A trailing key
// without a value is dropped.
func (e *ExecutionError) Fields() map[string]any {
	fields := map[string]any{"error": e.Msg}
	if e.Err != nil && e.Err.Error() != e.Msg {
		fields["detail"] = e.Err.Error()
	}
	for i := 0; i+1 < len(e.Attrs); i += 2 {
		key, ok := e.Attrs[i].(string)
		if !ok {
			key = fmt.Sprint(e.Attrs[i])
		}
		fields[key] = e.Attrs[i+1]
	}
	return fields
}

// This will construct an execution error AND turn off error and usage output for the command
func PrepareExecutionError(msg string, err error, cmd *cobra.Command, attrs ...any) *ExecutionError {
	if cmd != nil {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
	}

	return &ExecutionError{
		Msg:   msg,
		Err:   err,
		Attrs: attrs,
	}
}
