package start

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/lifecycle"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Start

	ModeFlagName          = "mode"
	ReusePreviousFlagName = "reuse-previous"
	FreezeOnStartFlagName = "freeze-on-start"
	PollIntervalFlagName  = "poll-interval"
	TimeoutFlagName       = "timeout"

	DefaultTimeout = 2 * time.Minute
)

var (
	use   = Verb.String()
	short = i18n.T("root.verbs.start.short", "Launch the embedded app and overlay its window")
	long  = normalizers.LongDesc(i18n.T("root.verbs.start.long",
		`Switch the embedded app to the configured mode, launch it and wait for its
window to appear. The window is stripped of its frame and placed over the
configured rectangle. When a matching instance is already running in the
requested mode it is reused without relaunching.`))
	example = normalizers.Examples(i18n.T("root.verbs.start.examples",
		fmt.Sprintf(`
		# Start in the configured mode
		%[1]s start
		# Start in a specific mode and always relaunch
		%[1]s start --mode group6/superexplorers_racing --reuse-previous=false
		`, meta.CLIName)))
)

// FlagBindings maps the embedding flags to their configuration paths.
var FlagBindings = map[string]string{
	ModeFlagName:          common.ModeConfigPath,
	ReusePreviousFlagName: common.ReusePreviousConfigPath,
	FreezeOnStartFlagName: common.FreezeOnStartConfigPath,
	PollIntervalFlagName:  common.PollIntervalConfigPath,
}

// AddEmbedFlags registers the flags shared by the verbs that start an
// embedding.
func AddEmbedFlags(c *cobra.Command) {
	c.Flags().String(ModeFlagName, "",
		fmt.Sprintf("Mode to switch the embedded app to.\n- Config path: [ %s ]", common.ModeConfigPath))
	c.Flags().Bool(ReusePreviousFlagName, true,
		fmt.Sprintf("Reuse a running instance already in the requested mode.\n- Config path: [ %s ]",
			common.ReusePreviousConfigPath))
	c.Flags().Bool(FreezeOnStartFlagName, true,
		fmt.Sprintf("Pause the host until the app is embedded.\n- Config path: [ %s ]",
			common.FreezeOnStartConfigPath))
	c.Flags().Duration(PollIntervalFlagName, 500*time.Millisecond,
		fmt.Sprintf("How often to look for the app window.\n- Config path: [ %s ]",
			common.PollIntervalConfigPath))
}

type startCmd struct {
	timeout time.Duration
}

// NewStartCmd builds the start verb.
func NewStartCmd() (*cobra.Command, error) {
	c := &startCmd{timeout: DefaultTimeout}

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
			return cmd.BindFlags(cmd.BuildHelper(c, args), FlagBindings)
		},
		RunE: func(cmdObj *cobra.Command, args []string) error {
			return c.run(cmd.BuildHelper(cmdObj, args))
		},
	}

	AddEmbedFlags(rv)
	rv.Flags().DurationVar(&c.timeout, TimeoutFlagName, c.timeout,
		"How long to wait for the app window. Zero waits until interrupted.")

	return rv, nil
}

func (c *startCmd) run(helper cmd.Helper) error {
	ctrl, _, _, err := cmd.BuildController(helper)
	if err != nil {
		return err
	}

	snap, err := StartAndWait(helper.GetContext(), ctrl, c.timeout)
	if err != nil {
		return cmd.LifecycleError(helper, "failed to embed the app", err)
	}

	out := helper.GetStreams().Out
	return cmd.Print(helper, snap, func() error {
		return PrintSnapshot(out, snap)
	})
}

// StartAndWait starts ctrl and blocks until it is initialized. A positive
// timeout bounds the wait and the detection behind it.
func StartAndWait(ctx context.Context, ctrl *lifecycle.Controller, timeout time.Duration) (lifecycle.Snapshot, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := ctrl.Start(ctx); err != nil {
		return ctrl.Snapshot(), err
	}
	if err := ctrl.WaitReady(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("app window did not appear within %s: %w", timeout, err)
		}
		return ctrl.Snapshot(), err
	}
	return ctrl.Snapshot(), nil
}

// PrintSnapshot writes the one-line text rendering of snap.
func PrintSnapshot(out io.Writer, snap lifecycle.Snapshot) error {
	_, err := fmt.Fprintf(out, "%s: window %s, mode %s\n", snap.State, snap.Window, snap.Mode)
	return err
}
