package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRemotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remotes",
		Short: "List configured rclone remotes",
		Long: `List the remotes configured in rclone, in the order rclone
reports them. Configure remotes with "rclone config".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			remotes, err := newClient(settings).ListRemotes(GetContext())
			if err != nil {
				return err
			}
			if len(remotes) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No remotes configured. Run `rclone config` first.")
				return nil
			}
			for _, r := range remotes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", r)
			}
			return nil
		},
	}
}
