// Package cli wires the commands: run, validate, status, archive,
// version. Commands signal their process exit code through ExitError so
// main owns the single os.Exit call.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/ralphzero/internal/buildinfo"
	infraconfig "github.com/YoshitsuguKoike/ralphzero/internal/infra/config"
)

// Exit codes for the CLI surface.
const (
	ExitOK          = 0
	ExitIncomplete  = 1
	ExitFatal       = 2
	ExitInterrupted = 130
)

// ExitError carries a process exit code up to main. Err may be nil when
// the code alone tells the story (e.g. iteration cap reached).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ralphzero",
		Short: "Autonomous development loop over a user-story catalog",
		Long: `Ralph Zero drives an external coding agent through a prioritized
user-story catalog, one story per iteration. Each attempt is gated by
quality checks; only passing work is committed, and every failure is
reverted and journaled.`,
		Version:       buildinfo.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to ralph.json (default \""+infraconfig.DefaultPath+"\")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newStatusCmd(opts),
		newArchiveCmd(opts),
		newVersionCmd(),
	)

	return cmd
}
