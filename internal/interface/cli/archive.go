package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <branchName>",
		Short: "Archive current state if the recorded branch differs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore(opts)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}

			dir, err := store.ArchiveIfBranchChanged(args[0])
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}
			if dir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to archive")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "archived to %s\n", dir)
			return nil
		},
	}
}
