package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"xgrab/pkg/cache"
	"xgrab/pkg/config"
	"xgrab/pkg/logger"
	"xgrab/pkg/ui"
)

// cacheCmd groups dedup cache maintenance commands
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the per-author dedup cache",
	Long: `The dedup cache records which items have already been downloaded for
each author, so repeated runs only fetch new images. These commands
inspect and reset it.`,
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <handle>",
	Short: "List cached item ids for an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runCacheShow(args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear <handle>",
	Short: "Forget all downloaded items for an author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runCacheClear(args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func openStore() *cache.Store {
	cfg, err := config.Load(configFile, map[string]interface{}{"log-level": logLevel})
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	dataDir, err := cfg.DataDir()
	if err != nil {
		ui.PrintError("Failed to resolve data directory", err.Error())
		os.Exit(1)
	}
	store, err := cache.NewStore(dataDir, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to open dedup cache", err.Error())
		os.Exit(1)
	}
	return store
}

func runCacheShow(author string) {
	store := openStore()
	ids, err := store.Load(author)
	if err != nil {
		ui.PrintError("Failed to read cache", err.Error())
		os.Exit(1)
	}
	if len(ids) == 0 {
		ui.PrintInfo("Cached items", "none")
		return
	}
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	ui.PrintInfo("Cached items", fmt.Sprintf("%d", len(sorted)))
	for _, id := range sorted {
		fmt.Println(id)
	}
}

func runCacheClear(author string) {
	store := openStore()
	removed, err := store.Clear(author)
	if err != nil {
		ui.PrintError("Failed to clear cache", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess(fmt.Sprintf("Removed %d cached items for %s", removed, author))
}
