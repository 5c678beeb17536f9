package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"xgrab/pkg/browser"
	"xgrab/pkg/cache"
	"xgrab/pkg/config"
	"xgrab/pkg/logger"
	"xgrab/pkg/pipeline"
	"xgrab/pkg/storage"
	"xgrab/pkg/twitter"
	"xgrab/pkg/ui"
)

var (
	// Grab command flags
	targetCount     int
	includeMetadata bool
	useMediaGrid    bool
	outputDir       string
	headful         bool
	resumePending   bool
)

// grabCmd represents the grab command
var grabCmd = &cobra.Command{
	Use:   "grab <profile-url-or-handle>",
	Short: "Download images from an X/Twitter profile",
	Long: `Download images from an X/Twitter profile's timeline or media tab.

The target can be a full profile URL (https://x.com/somebody) or a bare
handle (somebody). The collector scrolls the page until it has found the
requested number of images or the feed stops loading new content, then
downloads each image and packages the batch as a zip archive.

Images already downloaded for the same author in earlier runs are skipped
via a per-author cache. Use 'xgrab cache clear' to reset it.`,
	Example: `  # Download 10 images from a profile timeline
  xgrab grab somebody

  # Download 50 images from the media tab with embedded metadata
  xgrab grab https://x.com/somebody --count 50 --media-grid --metadata

  # Download to a specific directory with a visible browser window
  xgrab grab somebody --output ./pics --headful`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runGrab(args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(grabCmd)

	grabCmd.Flags().IntVarP(&targetCount, "count", "n", 10, "number of images to download")
	grabCmd.Flags().BoolVarP(&includeMetadata, "metadata", "m", false, "embed provenance metadata into PNG downloads")
	grabCmd.Flags().BoolVar(&useMediaGrid, "media-grid", false, "collect from the profile's media tab instead of the timeline")
	grabCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for archives (default: ./downloads)")
	grabCmd.Flags().BoolVar(&headful, "headful", false, "run the browser with a visible window")
	grabCmd.Flags().BoolVar(&resumePending, "resume-pending", false, "resume a run interrupted before collection started")
}

func runGrab(target string) {
	url := targetURL(target)
	if url == "" {
		ui.PrintError("Invalid target", target)
		os.Exit(1)
	}

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if headful {
		flags["headless"] = false
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("xgrab starting")

	dataDir, err := cfg.DataDir()
	if err != nil {
		ui.PrintError("Failed to resolve data directory", err.Error())
		os.Exit(1)
	}
	store, err := cache.NewStore(dataDir, log)
	if err != nil {
		ui.PrintError("Failed to open dedup cache", err.Error())
		os.Exit(1)
	}
	saver, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		ui.PrintError("Failed to prepare output directory", err.Error())
		os.Exit(1)
	}

	// A pending record survives a process that died between saving its
	// run parameters and starting collection
	if resumePending {
		if p, err := store.TakePendingRun(); err == nil && p != nil {
			targetCount = p.Count
			includeMetadata = p.IncludeMetadata
			ui.PrintInfo("Resuming pending run", fmt.Sprintf("%d images", p.Count))
		} else {
			ui.PrintWarning("No pending run to resume")
		}
	}

	driver := browser.NewDriver(browser.Config{
		UserAgent:         cfg.Fetch.UserAgent,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Headless:          cfg.Browser.Headless,
	}, log)
	defer driver.Close()

	ctx := context.Background()

	if useMediaGrid {
		url = mediaGridURL(url)
		if err := store.SavePendingRun(cache.PendingRun{
			Count:           targetCount,
			IncludeMetadata: includeMetadata,
			CreatedAt:       time.Now(),
		}); err != nil {
			log.WithError(err).Warn("failed to record pending run")
		}
	}

	ui.PrintInfo("Target", url)
	if err := driver.Navigate(ctx, url); err != nil {
		ui.PrintError("Failed to open page", err.Error())
		os.Exit(1)
	}

	if useMediaGrid {
		// Navigation landed; the handoff record has served its purpose
		if _, err := store.TakePendingRun(); err != nil {
			log.WithError(err).Warn("failed to clear pending run")
		}
	}

	reporter := ui.NewTerminalReporter()
	runner := pipeline.NewRunner(driver, store, saver, cfg, reporter, log)

	if err := runner.EnsureEntryPoint(ctx); err != nil {
		ui.PrintError("Page is not a profile", err.Error())
		os.Exit(1)
	}

	// First interrupt cancels gracefully and still packages what was
	// downloaded; a second one exits immediately
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		ui.PrintWarning("Interrupted, packaging what was downloaded...")
		runner.Cancel()
		<-sigCh
		os.Exit(1)
	}()
	defer signal.Stop(sigCh)

	result, err := runner.Run(ctx, pipeline.Options{
		TargetCount:     targetCount,
		IncludeMetadata: includeMetadata,
		UseMediaGrid:    useMediaGrid,
	})
	if err != nil {
		ui.PrintError("Run failed", err.Error())
		os.Exit(1)
	}

	if result.ArchivePath != "" {
		ui.PrintSuccess(fmt.Sprintf("Saved %d images to %s", result.Downloaded, result.ArchivePath))
	}
	if result.Skipped > 0 {
		ui.PrintInfo("Skipped (already downloaded)", fmt.Sprintf("%d", result.Skipped))
	}
	if result.Cancelled {
		ui.PrintWarning("Run was cancelled before completion")
	}
}

// targetURL accepts a full profile URL or a bare handle
func targetURL(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if !strings.HasPrefix(target, twitter.BaseURL+"/") &&
			!strings.HasPrefix(target, "https://twitter.com/") {
			return ""
		}
		if twitter.AuthorFromHref(target) == "" {
			return ""
		}
		return target
	}
	handle := strings.TrimPrefix(target, "@")
	if handle == "" || strings.ContainsAny(handle, "/ ") {
		return ""
	}
	return twitter.BaseURL + "/" + handle
}

// mediaGridURL rewrites a profile URL to its media tab
func mediaGridURL(url string) string {
	author := twitter.AuthorFromHref(url)
	if author == "" {
		return url
	}
	return twitter.BaseURL + "/" + author + "/media"
}
