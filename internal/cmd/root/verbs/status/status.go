package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"text/tabwriter"
	"time"

	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/mkwak13/winter-sports/internal/processes"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/mkwak13/winter-sports/internal/window"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Status
)

var (
	use   = Verb.String()
	short = i18n.T("root.verbs.status.short", "Show whether the embedded app is running")
	long  = normalizers.LongDesc(i18n.T("root.verbs.status.long",
		`Report whether the embedded app's window is open, which mode its
configuration selects and whether start would reuse it.`))
	example = normalizers.Examples(i18n.T("root.verbs.status.examples",
		fmt.Sprintf(`
		# Show the embedding status
		%[1]s status
		# As JSON
		%[1]s status -o json
		`, meta.CLIName)))
)

type statusResult struct {
	WindowTitle    string            `json:"window_title" yaml:"window_title"`
	Running        bool              `json:"running" yaml:"running"`
	Window         window.Handle     `json:"window,omitempty" yaml:"window,omitempty"`
	Mode           string            `json:"mode,omitempty" yaml:"mode,omitempty"`
	ConfiguredMode string            `json:"configured_mode" yaml:"configured_mode"`
	Reusable       bool              `json:"reusable" yaml:"reusable"`
	LastLaunch     *processes.Record `json:"last_launch,omitempty" yaml:"last_launch,omitempty"`
}

// NewStatusCmd builds the status verb.
func NewStatusCmd() (*cobra.Command, error) {
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

	result := statusResult{
		WindowTitle:    settings.WindowTitle,
		ConfiguredMode: settings.Mode,
	}

	h, err := window.NewLocator(sys, settings.PollInterval, logger).FindByTitle(settings.WindowTitle)
	if err != nil {
		return cmd.PrepareExecutionError("failed to look up the app window", err, helper.GetCmd())
	}
	result.Running = h != 0
	result.Window = h

	mode, err := settings.Store().GetMode()
	switch {
	case err == nil:
		result.Mode = mode
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, modes.ErrModeNotSet):
	default:
		logger.Warn("could not read the app mode", "error", err)
	}
	result.Reusable = settings.ReusePrevious && result.Running &&
		result.Mode != "" && result.Mode == result.ConfiguredMode

	if settings.RecordPath != "" {
		record, err := processes.LoadRecord(settings.RecordPath)
		switch {
		case err == nil:
			result.LastLaunch = &record
		case !errors.Is(err, fs.ErrNotExist):
			logger.Warn("could not read the launch record", "path", settings.RecordPath, "error", err)
		}
	}

	out := helper.GetStreams().Out
	return cmd.Print(helper, result, func() error {
		return renderText(out, result)
	})
}

func renderText(out io.Writer, result statusResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"WINDOW TITLE", result.WindowTitle},
		{"RUNNING", fmt.Sprint(result.Running)},
		{"WINDOW", displayHandle(result.Window)},
		{"MODE", displayOrDash(result.Mode)},
		{"CONFIGURED MODE", displayOrDash(result.ConfiguredMode)},
		{"REUSABLE", fmt.Sprint(result.Reusable)},
	}
	if result.LastLaunch != nil {
		rows = append(rows,
			[2]string{"LAST LAUNCH", result.LastLaunch.CreatedAt.Format(time.RFC3339)},
			[2]string{"LAST PID", fmt.Sprint(result.LastLaunch.PID)},
		)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func displayHandle(h window.Handle) string {
	if h == 0 {
		return "-"
	}
	return h.String()
}

func displayOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
