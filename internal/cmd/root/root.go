package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/mode"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/run"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/start"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/status"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/stop"
	"github.com/mkwak13/winter-sports/internal/cmd/root/version"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/iostreams"
	"github.com/mkwak13/winter-sports/internal/log"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/util"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

var (
	rootLong = normalizers.LongDesc(i18n.T("root.rootLong", fmt.Sprintf(`
  %s launches a motion input application, finds its top-level window and
  embeds it over a region of the screen, borderless and pinned on top.

  The application mode is written into the application's configuration file
  before every launch, and a window left over from a previous run can be
  reused when it already runs the requested mode.`, meta.CLIName)))

	rootShort = i18n.T("root/rootShort", fmt.Sprintf("%s embeds a motion input window", meta.CLIName))

	rootCmd *cobra.Command

	// Stores the global runtime value for the Configuration file path,
	configFilePath string
	currProfile    = common.DefaultProfile

	currConfig   *config.ProfiledConfig
	streams      *iostreams.IOStreams
	outputFormat = cmd.NewEnum([]string{"json", "yaml", "text"}, common.DefaultOutputFormat)
	logLevel     = cmd.NewEnum(log.Levels, common.DefaultLogLevel)

	logCloser io.Closer

	buildInfo *build.Info
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   meta.CLIName,
		Short: rootShort,
		Long:  rootLong,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			logger, err := newLogger(c)
			if err != nil {
				return err
			}

			ctx := context.WithValue(c.Context(), config.ConfigKey, config.Hook(currConfig))
			ctx = context.WithValue(ctx, iostreams.StreamsKey, streams)
			ctx = context.WithValue(ctx, log.LoggerKey, logger)
			ctx = context.WithValue(ctx, build.InfoKey, buildInfo)
			if ctx.Value(window.SystemFactoryKey) == nil {
				ctx = context.WithValue(ctx, window.SystemFactoryKey, window.Factory(window.NewSystem))
			}
			if ctx.Value(processes.SpawnerContextKey) == nil {
				ctx = context.WithValue(ctx, processes.SpawnerContextKey, processes.Spawner(processes.ExecSpawner{}))
			}
			c.SetContext(ctx)
			return nil
		},
	}

	// parses all flags not just the target command
	rootCmd.TraverseChildren = true
	rootCmd.SilenceUsage = true

	defaultPath, err := config.GetDefaultConfigFilePath()
	util.CheckError(err)
	configFilePath = defaultPath

	rootCmd.PersistentFlags().StringVar(&configFilePath, common.ConfigFilePathFlagName,
		defaultPath,
		i18n.T("root."+common.ConfigFilePathFlagName, "Path to the configuration file to load."))

	rootCmd.PersistentFlags().StringVarP(&currProfile, common.ProfileFlagName, common.ProfileFlagShort,
		common.DefaultProfile,
		"Specify the profile to use for this command.")

	// -------------------------------------------------------------------------
	// Add the output flag, which defines the text output format.
	// This requires some extra gymnastics to ensure that the output flag is
	// from a valid set of values. There may be a way to do this more elegantly
	// in the pFlag library
	rootCmd.PersistentFlags().VarP(outputFormat, common.OutputFlagName, common.OutputFlagShort,
		fmt.Sprintf(`Configures the output format.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.OutputConfigPath, strings.Join(outputFormat.Allowed, "|")))
	// -------------------------------------------------------------------------

	rootCmd.PersistentFlags().Var(logLevel, common.LogLevelFlagName,
		fmt.Sprintf(`Configures the logging level. Execution logs are written to the log file.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.LogLevelConfigPath, strings.Join(logLevel.Allowed, "|")))

	rootCmd.PersistentFlags().String(common.LogFileFlagName, "",
		fmt.Sprintf(`Writes execution logs to the path provided. Only errors are mirrored to stderr.
- Config path: [ %s ]`, common.LogFileConfigPath))

	return rootCmd
}

// addCommands adds the root subcommands to the command.
func addCommands() error {
	rootCmd.AddCommand(version.NewVersionCmd())

	for _, newCmd := range []func() (*cobra.Command, error){
		start.NewStartCmd,
		run.NewRunCmd,
		stop.NewStopCmd,
		status.NewStatusCmd,
		mode.NewModeCmd,
	} {
		c, e := newCmd()
		if e != nil {
			return e
		}
		rootCmd.AddCommand(c)
	}

	return nil
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd = newRootCmd()
	err := addCommands()
	util.CheckError(err)

	// Because the profile is not part of the configuration, we can't use viper
	// to read it following it's built in priorities.  So here we look for a well known
	// profile variable and set our package level variable if it's set before
	// continuing to process the command run.  This creates a ENV_VAR < CLI_FLAG priority
	profileEnvVar, found := os.LookupEnv(fmt.Sprintf("%s_PROFILE", strings.ToUpper(meta.CLIName)))
	if found {
		currProfile = profileEnvVar
	}
}

func initConfig() {
	defaultPath, err := config.GetDefaultConfigFilePath()
	util.CheckError(err)

	cfg, err := config.GetConfig(configFilePath, currProfile, defaultPath)
	util.CheckError(err)
	currConfig = cfg

	for flagName, configPath := range map[string]string{
		common.OutputFlagName:   common.OutputConfigPath,
		common.LogLevelFlagName: common.LogLevelConfigPath,
		common.LogFileFlagName:  common.LogFileConfigPath,
	} {
		f := rootCmd.PersistentFlags().Lookup(flagName)
		util.CheckError(cfg.BindFlag(configPath, f))
	}
}

// newLogger builds the execution logger from the bound log flags. The log
// file is closed when Execute returns.
func newLogger(c *cobra.Command) (*slog.Logger, error) {
	logger, closer, err := log.New(log.Options{
		Level:  currConfig.GetString(common.LogLevelConfigPath),
		File:   currConfig.GetString(common.LogFileConfigPath),
		Stderr: streams.ErrOut,
	})
	if err != nil {
		return nil, &cmd.ConfigurationError{Err: err}
	}
	logCloser = closer

	return logger.With(
		"cli", meta.CLIName,
		"profile", currConfig.GetProfile(),
		"version", buildInfo.Version,
		"command", c.CommandPath(),
	), nil
}

func Execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info) {
	buildInfo = bi
	cobra.EnableTraverseRunHooks = true
	streams = s
	rootCmd.SetOut(s.Out)
	rootCmd.SetErr(s.ErrOut)

	err := rootCmd.ExecuteContext(ctx)
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err == nil {
		return
	}

	var executionError *cmd.ExecutionError
	if errors.As(err, &executionError) {
		if perr := cmd.PrintExecutionError(s.ErrOut, outputFormat.String(), executionError); perr != nil {
			fmt.Fprintln(s.ErrOut, "Error:", executionError.Msg)
		}
	}
	os.Exit(1)
}
