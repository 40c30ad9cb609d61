package mode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mkwak13/winter-sports/internal/cmd"
	"github.com/mkwak13/winter-sports/internal/cmd/common"
	"github.com/mkwak13/winter-sports/internal/cmd/root/verbs"
	"github.com/mkwak13/winter-sports/internal/meta"
	"github.com/mkwak13/winter-sports/internal/modes"
	"github.com/mkwak13/winter-sports/internal/util/i18n"
	"github.com/mkwak13/winter-sports/internal/util/normalizers"
	"github.com/spf13/cobra"
)

const (
	Verb = verbs.Mode

	DefaultFlagName = "default"
)

var (
	use   = Verb.String()
	short = i18n.T("root.verbs.mode.short", "Inspect and switch the embedded app's mode")
	long  = normalizers.LongDesc(i18n.T("root.verbs.mode.long",
		`Read, change or list the modes of the embedded app. Changing the mode
rewrites the app's configuration in place; it takes effect the next time the
app is launched.`))
	example = normalizers.Examples(i18n.T("root.verbs.mode.examples",
		fmt.Sprintf(`
		# Show the mode the app configuration selects
		%[1]s mode get
		# Switch modes and make it the default for start
		%[1]s mode set group6/superexplorers_racing --default
		# List every installed mode
		%[1]s mode list
		`, meta.CLIName)))
)

type modeResult struct {
	Mode       string `json:"mode" yaml:"mode"`
	Definition string `json:"definition,omitempty" yaml:"definition,omitempty"`
	Config     string `json:"config" yaml:"config"`
}

type modeCmd struct {
	saveDefault bool
}

// NewModeCmd builds the mode verb and its get, set and list subcommands.
func NewModeCmd() (*cobra.Command, error) {
	c := &modeCmd{}

	rv := &cobra.Command{
		Use:     use,
		Short:   short,
		Long:    long,
		Example: example,
		PersistentPreRun: func(c *cobra.Command, _ []string) {
			c.SetContext(context.WithValue(c.Context(), verbs.Verb, Verb))
		},
	}

	rv.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the mode selected by the app configuration",
		Args:  cmd.NoPositionalArgs,
		RunE: func(cmdObj *cobra.Command, args []string) error {
			return c.runGet(cmd.BuildHelper(cmdObj, args))
		},
	})

	setCmd := &cobra.Command{
		Use:   "set <mode>",
		Short: "Switch the app configuration to a mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmdObj *cobra.Command, args []string) error {
			return c.runSet(cmd.BuildHelper(cmdObj, args))
		},
	}
	setCmd.Flags().BoolVar(&c.saveDefault, DefaultFlagName, false,
		fmt.Sprintf("Also save the mode to the profile.\n- Config path: [ %s ]", common.ModeConfigPath))
	rv.AddCommand(setCmd)

	rv.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the installed modes",
		Args:    cmd.NoPositionalArgs,
		RunE: func(cmdObj *cobra.Command, args []string) error {
			return c.runList(cmd.BuildHelper(cmdObj, args))
		},
	})

	return rv, nil
}

// store returns the mode store with its writable configuration in place.
func store(helper cmd.Helper) (*modes.Store, error) {
	settings, err := cmd.GetSettings(helper)
	if err != nil {
		return nil, err
	}
	s := settings.Store()
	if err := s.EnsureWritableConfig(); err != nil {
		return nil, cmd.PrepareExecutionError("failed to prepare the app configuration", err, helper.GetCmd())
	}
	return s, nil
}

func (c *modeCmd) runGet(helper cmd.Helper) error {
	s, err := store(helper)
	if err != nil {
		return err
	}

	mode, err := s.GetMode()
	if err != nil {
		return cmd.PrepareExecutionError("failed to read the app mode", err, helper.GetCmd())
	}

	result := modeResult{Mode: mode, Config: s.ConfigPath()}
	if def, err := s.DefinitionPath(mode); err == nil && s.Exists(mode) {
		result.Definition = def
	}

	out := helper.GetStreams().Out
	return cmd.Print(helper, result, func() error {
		_, err := fmt.Fprintln(out, result.Mode)
		return err
	})
}

func (c *modeCmd) runSet(helper cmd.Helper) error {
	s, err := store(helper)
	if err != nil {
		return err
	}

	mode := modes.Normalize(helper.GetArgs()[0])
	if err := s.SetMode(mode); err != nil {
		var invalid *modes.InvalidModeError
		if errors.As(err, &invalid) {
			return &cmd.ConfigurationError{Err: err}
		}
		return cmd.PrepareExecutionError("failed to write the app mode", err, helper.GetCmd())
	}

	if c.saveDefault {
		cfg, err := helper.GetConfig()
		if err != nil {
			return err
		}
		cfg.SetString(common.ModeConfigPath, mode)
		if err := cfg.Save(); err != nil {
			return cmd.PrepareExecutionError("failed to save the profile", err, helper.GetCmd())
		}
	}

	def, _ := s.DefinitionPath(mode)
	result := modeResult{Mode: mode, Definition: def, Config: s.ConfigPath()}

	out := helper.GetStreams().Out
	return cmd.Print(helper, result, func() error {
		_, err := fmt.Fprintf(out, "mode set to %s\n", result.Mode)
		return err
	})
}

func (c *modeCmd) runList(helper cmd.Helper) error {
	settings, err := cmd.GetSettings(helper)
	if err != nil {
		return err
	}

	found, err := settings.Store().ListModes()
	if err != nil {
		return cmd.PrepareExecutionError("failed to list modes", err, helper.GetCmd())
	}
	if found == nil {
		found = []string{}
	}

	out := helper.GetStreams().Out
	return cmd.Print(helper, found, func() error {
		return renderList(out, found, settings.Mode)
	})
}

// renderList prints one mode per line, marking the profile's mode.
func renderList(out io.Writer, found []string, current string) error {
	for _, m := range found {
		marker := " "
		if m == current {
			marker = "*"
		}
		if _, err := fmt.Fprintf(out, "%s %s\n", marker, m); err != nil {
			return err
		}
	}
	return nil
}
