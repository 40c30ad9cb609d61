package version

import (
	"context"
	"fmt"
	"io"

	"github.com/mkwak13/winter-sports/internal/build"
	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Version

	ShowCommitFlagName   = "show-commit"
	ShowCommitConfigPath = "version." + ShowCommitFlagName
)

var (
	versionUse   = Verb.String()
	versionShort = i18n.T("root.version.versionShort",
		fmt.Sprintf("Print the %s version", meta.CLIName))
	versionLong = normalizers.LongDesc(i18n.T("root.version.versionLong",
		`The version command prints the version and other optional information`))
	versionExample = normalizers.Examples(i18n.T("root.version.versionExamples",
		fmt.Sprintf(`
		# Print the simple version
		%[1]s version
		# Print the version and the git commit hash
		%[1]s version --show-commit
		`, meta.CLIName)))
)

// Build a new instance of the version command
func NewVersionCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     versionUse,
		Short:   versionShort,
		Long:    versionLong,
		Example: versionExample,
		Args:    cmd.NoPositionalArgs,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
		},
		PreRunE: func(c *cobra.Command, args []string) error {
			return cmd.BindFlags(cmd.BuildHelper(c, args), map[string]string{
				ShowCommitFlagName: ShowCommitConfigPath,
			})
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}

	rv.Flags().Bool(ShowCommitFlagName, false,
		i18n.T(fmt.Sprintf("root.%s", ShowCommitConfigPath),
			fmt.Sprintf("True to show the git commit hash when built.\n (config path = '%s')", ShowCommitConfigPath)))

	return rv
}

type versionResult struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Date    string `json:"date,omitempty" yaml:"date,omitempty"`
}

func newVersionResult(info *build.Info, showCommit bool) versionResult {
	result := versionResult{Version: info.Version}
	if showCommit {
		result.Commit = info.Commit
		result.Date = info.Date
	}
	return result
}

// Run performs the actual version command logic
func run(helper cmd.Helper) error {
	info, err := helper.GetBuildInfo()
	if err != nil {
		return err
	}
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}

	result := newVersionResult(info, cfg.GetBool(ShowCommitConfigPath))

	out := helper.GetStreams().Out
	return cmd.Print(helper, result, func() error {
		return printText(result, out)
	})
}

// printText renders the version, and the commit when requested, on one line.
func printText(result versionResult, out io.Writer) error {
	if result.Commit == "" {
		_, err := fmt.Fprintln(out, result.Version)
		return err
	}
	_, err := fmt.Fprintf(out, "%s (%s)\n", result.Version, result.Commit)
	return err
}
