package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/obentoo/nattka/internal/common/logger"
	"github.com/obentoo/nattka/internal/common/output"
	"github.com/obentoo/nattka/internal/common/version"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	quiet       bool
	noColor     bool
	logFile     bool
	configPath  string
	repoPath    string
	bugzillaURL string
	apiKey      string
)

var rootCmd = &cobra.Command{
	Use:   "nattka",
	Short: "Bug-driven keyword synchronization for Gentoo repositories",
	Long: `nattka reads stabilization and keywording requests from Bugzilla, applies
the requested keywords to the ebuilds of a repository, sanity-checks the
result and records the verdict back on the bug.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetVerbose(true)
		}
		if quiet {
			logger.SetQuiet(true)
		}
		if noColor {
			output.NoColor()
		}
		if logFile {
			if err := logger.Default().EnableFileLogging(); err != nil {
				logger.Warn("%v", err)
			}
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Also append log messages to the state directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/nattka/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", "", "Repository path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&bugzillaURL, "bugzilla-url", "", "Bugzilla base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Bugzilla API key (overrides config)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Default().Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
