package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/ralphzero/internal/app"
	infraconfig "github.com/YoshitsuguKoike/ralphzero/internal/infra/config"
	"github.com/YoshitsuguKoike/ralphzero/internal/state"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the story catalog and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := openStore(opts)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			valid, issues := store.Validate()
			if valid {
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("✅ catalog is valid"))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), failStyle.Render(fmt.Sprintf("❌ catalog has %d issue(s):", len(issues))))
			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", issue)
			}
			return &ExitError{Code: ExitIncomplete}
		},
	}
}

// openStore loads configuration and builds a state store rooted at the
// current directory.
func openStore(opts *rootOptions) (*state.Store, *app.Paths, error) {
	cfg, err := infraconfig.LoadSettings(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	root, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	paths := app.ResolvePaths(root, cfg.Files())
	store := state.NewStore(afero.NewOsFs(), root, paths.PRD, paths.Progress)
	return store, &paths, nil
}
