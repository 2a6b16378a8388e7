package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog progress and the next work item",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := openStore(opts)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			p, err := store.LoadPRD()
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			out := cmd.OutOrStdout()
			total, passed := p.Counts()

			fmt.Fprintln(out, headerStyle.Render(p.Project))
			fmt.Fprintf(out, "Branch:   %s\n", p.BranchName)
			percent := 0
			if total > 0 {
				percent = passed * 100 / total
			}
			fmt.Fprintf(out, "Progress: %d/%d stories passing (%d%%)\n", passed, total, percent)

			if next := p.FindNext(); next != nil {
				fmt.Fprintf(out, "Next:     %s - %s (priority %d)\n", next.ID, next.Title, next.Priority)
			} else {
				fmt.Fprintln(out, okStyle.Render("All stories pass 🎉"))
			}

			if verbose || opts.verbose {
				fmt.Fprintln(out)
				for _, s := range p.UserStories {
					mark := "⬜"
					if s.Passes {
						mark = "✅"
					}
					fmt.Fprintf(out, "  %s %s [p%d] %s\n", mark, s.ID, s.Priority, s.Title)
					if s.Notes != "" {
						fmt.Fprintf(out, "       %s\n", s.Notes)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "list every story with its state")
	return cmd
}
