package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudtree/cloudtree/internal/config"
	"github.com/cloudtree/cloudtree/internal/constants"
	"github.com/cloudtree/cloudtree/internal/events"
	"github.com/cloudtree/cloudtree/internal/logging"
	"github.com/cloudtree/cloudtree/internal/singleinstance"
	"github.com/cloudtree/cloudtree/internal/tui"
)

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive browser (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd)
		},
	}
}

// runBrowse starts the interactive browser. Only one browser runs per
// user; a second launch asks the first to come forward and exits.
func runBrowse(cmd *cobra.Command) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	defer bus.Close()

	guard, err := singleinstance.Acquire(config.Dir(), bus, GetLogger())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		fmt.Fprintln(cmd.OutOrStdout(), "cloudtree is already running; activating it.")
		return nil
	}
	if err != nil {
		return err
	}
	defer guard.Release()

	// The alternate screen owns the terminal, so logs go to a file.
	if err := config.EnsureLogDirectory(); err != nil {
		return err
	}
	tuiLogger := logging.NewLogger("tui", config.LogDirectory())
	defer tuiLogger.Close()

	model := tui.New(GetContext(), newClient(settings), bus, settings, cfgFile, tuiLogger)

	defer func() {
		if r := recover(); r != nil {
			tuiLogger.Error().Interface("panic", r).Msg("interface crashed")
			fmt.Fprintf(os.Stderr, "cloudtree crashed: %v\nsee %s for details\n", r, config.LogDirectory())
		}
	}()
	return tui.Run(model)
}
