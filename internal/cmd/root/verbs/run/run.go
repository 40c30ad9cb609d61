package run

import (
	"context"
	"fmt"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs/start"
	"github.com/mkwak13/winter-sports/internal/config"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Run

	TerminateOnExitFlagName   = "terminate-on-exit"
	TerminateOnExitConfigPath = "run." + TerminateOnExitFlagName
)

var (
	use   = Verb.String()
	short = i18n.T("root.verbs.run.short", "Embed the app and host it until interrupted")
	long  = normalizers.LongDesc(i18n.T("root.verbs.run.long",
		`Embed the app like start, then stay in the foreground as its host. The
command returns when it is interrupted or when the app window closes, and
closes the app on the way out unless --terminate-on-exit=false is given.`))
	example = normalizers.Examples(i18n.T("root.verbs.run.examples",
		fmt.Sprintf(`
		# Host the app and close it on Ctrl+C
		%[1]s run
		# Host the app and leave it running afterwards
		%[1]s run --terminate-on-exit=false
		`, meta.CLIName)))
)

type runCmd struct {
	timeout time.Duration
}

// NewRunCmd builds the run verb.
func NewRunCmd() (*cobra.Command, error) {
	c := &runCmd{timeout: start.DefaultTimeout}

	rv := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cmd.NoPositionalArgs,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
		},
		PreRunE: func(c *cobra.Command, args []string) error {
			helper := cmd.BuildHelper(c, args)
			if err := cmd.BindFlags(helper, start.FlagBindings); err != nil {
				return err
			}
			return cmd.BindFlags(helper, map[string]string{
				TerminateOnExitFlagName: TerminateOnExitConfigPath,
			})
		},
		RunE: func(cmdObj *cobra.Command, args []string) error {
			return c.run(cmd.BuildHelper(cmdObj, args))
		},
	}

	start.AddEmbedFlags(rv)
	rv.Flags().Bool(TerminateOnExitFlagName, true,
		fmt.Sprintf("Close the app when the command exits.\n- Config path: [ %s ]",
			TerminateOnExitConfigPath))
	rv.Flags().DurationVar(&c.timeout, start.TimeoutFlagName, c.timeout,
		"How long to wait for the app window. Zero waits until interrupted.")

	return rv, nil
}

func (c *runCmd) run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	// The host quitting is the app's teardown; the profile's
	// embed.terminate-on-teardown does not apply here.
	cfg.Set(common.TerminateOnTeardownConfigPath, terminateOnExit(cfg))

	ctrl, settings, logger, err := cmd.BuildController(helper)
	if err != nil {
		return err
	}
	sys, err := helper.GetWindowSystem()
	if err != nil {
		return err
	}

	ctx := helper.GetContext()
	snap, err := start.StartAndWait(ctx, ctrl, c.timeout)
	if err != nil {
		_ = ctrl.Close(context.WithoutCancel(ctx))
		return cmd.LifecycleError(helper, "failed to embed the app", err)
	}

	streams := helper.GetStreams()
	if err := cmd.Print(helper, snap, func() error {
		return start.PrintSnapshot(streams.Out, snap)
	}); err != nil {
		return err
	}

	locator := window.NewLocator(sys, settings.PollInterval, logger)
	reason := waitForExit(ctx, locator, settings.WindowTitle)
	logger.Info("host stopping", "reason", reason)

	if err := ctrl.Close(context.WithoutCancel(ctx)); err != nil {
		return cmd.PrepareExecutionError("failed to close the app", err, helper.GetCmd())
	}
	return nil
}

// terminateOnExit defaults to true when neither the flag nor the profile
// sets it.
func terminateOnExit(cfg config.Hook) bool {
	return !cfg.IsSet(TerminateOnExitConfigPath) || cfg.GetBool(TerminateOnExitConfigPath)
}

// waitForExit blocks until ctx is done or the window titled title is gone.
func waitForExit(ctx context.Context, locator *window.Locator, title string) string {
	ticker := time.NewTicker(locator.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "interrupted"
		case <-ticker.C:
		}

		h, err := locator.FindByTitle(title)
		if err == nil && h == 0 {
			return "app window closed"
		}
	}
}
