package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudtree/cloudtree/internal/rclone"
)

func newLsCmd() *cobra.Command {
	var longFormat bool

	cmd := &cobra.Command{
		Use:   "ls <remote:path>",
		Short: "List one folder of a remote",
		Long: `List the direct entries of a remote folder, folders first,
names compared case-insensitively.

Examples:
  cloudtree ls gdrive:
  cloudtree ls gdrive:photos/2024 -l`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if !strings.Contains(args[0], ":") {
				return fmt.Errorf("path %q must include a remote, e.g. gdrive:photos", args[0])
			}

			entries, err := newClient(settings).ListDir(GetContext(), args[0])
			if err != nil {
				return err
			}
			sortEntries(entries)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			for _, e := range entries {
				if e.IsDir {
					if longFormat {
						fmt.Fprintf(w, "d\t-\t%s\t%s/\n", e.ModTime.Format("2006-01-02 15:04"), e.Name)
					} else {
						fmt.Fprintf(w, "%s/\n", e.Name)
					}
					continue
				}
				if longFormat {
					fmt.Fprintf(w, "-\t%d\t%s\t%s\n", e.Size, e.ModTime.Format("2006-01-02 15:04"), e.Name)
				} else {
					fmt.Fprintf(w, "%s\n", e.Name)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&longFormat, "long", "l", false, "Show size and modification time")
	return cmd
}

// sortEntries orders folders before files, then case-insensitive name.
func sortEntries(entries []rclone.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}
