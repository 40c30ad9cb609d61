package stop

import (
	"context"
	"fmt"

	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Stop
)

var (
	use   = Verb.String()
	short = i18n.T("root.verbs.stop.short", "Close the embedded app")
	long  = normalizers.LongDesc(i18n.T("root.verbs.stop.long",
		`Ask the embedded app's window to close. The window is looked up by title,
so this works for instances started by another process. Stopping when no
window is open succeeds without doing anything.`))
	example = normalizers.Examples(i18n.T("root.verbs.stop.examples",
		fmt.Sprintf(`
		# Close the embedded app
		%[1]s stop
		`, meta.CLIName)))
)

type stopResult struct {
	WindowTitle string `json:"window_title" yaml:"window_title"`
	Closed      bool   `json:"closed" yaml:"closed"`
}

// NewStopCmd builds the stop verb.
func NewStopCmd() (*cobra.Command, error) {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cmd.NoPositionalArgs,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}, nil
}

// run closes the window by title only. Nothing here needs the app
// configuration, so a missing template does not stop the app from closing.
func run(helper cmd.Helper) error {
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	settings, err := cmd.GetSettings(helper)
	if err != nil {
		return err
	}
	sys, err := helper.GetWindowSystem()
	if err != nil {
		return err
	}
	logger = logger.With("verb", Verb.String(), "title", settings.WindowTitle)

	h, err := window.CloseByTitle(sys, settings.WindowTitle)
	if err != nil {
		return cmd.PrepareExecutionError("failed to close the app", err, helper.GetCmd(),
			"window_title", settings.WindowTitle)
	}

	result := stopResult{
		WindowTitle: settings.WindowTitle,
		Closed:      h != 0,
	}
	if !result.Closed {
		logger.Info("no embedded window to close")
	} else {
		logger.Info("asked embedded window to close", "handle", h.String())
		if settings.RecordPath != "" {
			if err := processes.RemoveRecord(settings.RecordPath); err != nil {
				logger.Warn("failed to remove launch record", "path", settings.RecordPath, "error", err)
			}
		}
	}

	out := helper.GetStreams().Out
	return cmd.Print(helper, result, func() error {
		if !result.Closed {
			_, err := fmt.Fprintf(out, "no window titled %q is open\n", result.WindowTitle)
			return err
		}
		_, err := fmt.Fprintf(out, "asked %q to close\n", result.WindowTitle)
		return err
	})
}
