// Package cli provides the command-line interface for cloudtree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cloudtree/cloudtree/internal/config"
	"github.com/cloudtree/cloudtree/internal/logging"
	"github.com/cloudtree/cloudtree/internal/rclone"
	"github.com/cloudtree/cloudtree/internal/version"
)

var (
	// Global flags
	cfgFile      string
	rcloneBinary string
	verbose      bool
	debug        bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command. Running it without a subcommand
// opens the interactive browser.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cloudtree",
		Short: "cloudtree - browse and download rclone remotes",
		Long: `cloudtree ` + version.Version + ` - Built: ` + version.BuildTime + `
Tree browser and downloader for cloud storage configured in rclone.

Without a subcommand, cloudtree opens the interactive browser:
pick a remote, expand folders lazily, and download any folder to
your local disk. Plain subcommands cover the same operations for
scripting.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Settings file path")
	rootCmd.PersistentFlags().StringVar(&rcloneBinary, "rclone", "", "rclone executable (overrides settings)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newRemotesCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global context cancelled by Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadSettings reads the settings file and applies flag overrides.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if rcloneBinary != "" {
		settings.Rclone.Binary = rcloneBinary
	}
	return settings, nil
}

// newClient builds the rclone client from settings.
func newClient(settings *config.Settings) *rclone.Client {
	runner := rclone.NewRunner(settings.Rclone.Binary, GetLogger())
	if args := settings.ExtraArgList(); len(args) > 0 {
		runner.SetExtraArgs(args)
	}
	return rclone.NewClient(runner)
}
