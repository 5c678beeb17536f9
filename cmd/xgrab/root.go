package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xgrab",
	Short: "Download images from X/Twitter profiles as annotated zip archives",
	Long: `xgrab scrolls an X/Twitter profile or media tab in a headless browser,
collects the highest-quality image variants, downloads them with rate-limit
aware retries, and packages the batch as a zip archive with a metadata
manifest.

Features:
  - Timeline and media-grid collection surfaces
  - Per-author dedup cache so reruns only fetch new images
  - Automatic retry with a visible cooldown on rate limits
  - Optional provenance metadata embedded into PNG downloads
  - Graceful cancellation that still packages what was downloaded`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.xgrab.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`xgrab {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
