package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudtree/cloudtree/internal/update"
	"github.com/cloudtree/cloudtree/internal/version"
)

func newVersionCmd() *cobra.Command {
	var check bool
	var feedURL string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "cloudtree %s (built %s)\n", version.Version, version.BuildTime)
			if !check {
				return nil
			}

			rel, newer, err := update.NewChecker(feedURL, GetLogger()).Check(GetContext())
			if err != nil {
				return fmt.Errorf("update check failed: %w", err)
			}
			if newer {
				fmt.Fprintf(cmd.OutOrStdout(), "update available: %s", rel.TagName)
				if rel.HTMLURL != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s", rel.HTMLURL)
				}
				fmt.Fprintln(cmd.OutOrStdout())
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check the release feed for a newer version")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "Release feed URL (for testing)")
	_ = cmd.Flags().MarkHidden("feed-url")
	return cmd
}
