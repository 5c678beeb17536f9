// Package pipeline orchestrates the collect, fetch, embed and archive
// stages of one download run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"xgrab/pkg/archive"
	"xgrab/pkg/browser"
	"xgrab/pkg/cache"
	"xgrab/pkg/collector"
	"xgrab/pkg/config"
	errs "xgrab/pkg/errors"
	"xgrab/pkg/fetcher"
	"xgrab/pkg/logger"
	"xgrab/pkg/pngtext"
	"xgrab/pkg/ratelimit"
	"xgrab/pkg/retry"
	"xgrab/pkg/storage"
	"xgrab/pkg/twitter"
)

// Options are the run parameters supplied by the UI collaborator
type Options struct {
	// TargetCount is the number of images to collect, positive
	TargetCount int
	// IncludeMetadata enables PNG provenance embedding
	IncludeMetadata bool
	// UseMediaGrid scrapes the dedicated media tab instead of the feed
	UseMediaGrid bool
}

// Result summarizes a finished run
type Result struct {
	Collected   int
	Skipped     int
	Downloaded  int
	ArchivePath string
	Cancelled   bool
}

// Runner drives the full pipeline. Runs within one process are
// serialized; each run gets a fresh cancellation handle, so a cancel
// from a previous run never leaks into the next one. Concurrent runs
// for the same author in separate processes can still race on the
// dedup cache (accepted limitation).
type Runner struct {
	page     browser.Page
	fetch    *fetcher.Fetcher
	store    *cache.Store
	saver    *storage.Manager
	cfg      *config.Config
	reporter Reporter
	log      logger.Logger

	runMu    sync.Mutex // serializes Run
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewRunner wires a pipeline runner from its collaborators
func NewRunner(page browser.Page, store *cache.Store, saver *storage.Manager, cfg *config.Config, reporter Reporter, log logger.Logger) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if log == nil {
		log = logger.GetLogger()
	}

	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute)
	fc := fetcher.New(fetcher.Config{
		Timeout:     cfg.Fetch.Timeout,
		MaxAttempts: cfg.Fetch.MaxAttempts,
		Cooldown:    cfg.Fetch.RateLimitCooldown,
		UserAgent:   cfg.Fetch.UserAgent,
		OnCooldown:  reporter.OnCooldown,
	}, limiter, log)

	return &Runner{
		page:     page,
		fetch:    fc,
		store:    store,
		saver:    saver,
		cfg:      cfg,
		reporter: reporter,
		log:      log,
	}
}

// EnsureEntryPoint is the idempotent readiness probe: the page must be
// reachable and resolve to an author. Safe to call any number of times.
func (r *Runner) EnsureEntryPoint(ctx context.Context) error {
	loc, err := r.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("page not reachable: %w", err)
	}
	if twitter.AuthorFromHref(loc) == "" {
		return fmt.Errorf("no author resolvable from page location %q", loc)
	}
	return nil
}

// Cancel aborts the in-flight run, if any. Collection stops at its next
// checkpoint, the in-flight fetch is aborted, and whatever was already
// downloaded is still packaged.
func (r *Runner) Cancel() {
	r.cancelMu.Lock()
	defer r.cancelMu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *Runner) armCancel(cancel context.CancelFunc) {
	r.cancelMu.Lock()
	r.cancel = cancel
	r.cancelMu.Unlock()
}

func (r *Runner) disarmCancel() {
	r.cancelMu.Lock()
	r.cancel = nil
	r.cancelMu.Unlock()
}

// Run executes one full collect, fetch, embed, assemble batch. Only
// no-content and archive failures surface as errors; network failures
// skip their item and cancellation yields a graceful partial result.
func (r *Runner) Run(parent context.Context, opts Options) (*Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if opts.TargetCount <= 0 {
		return nil, fmt.Errorf("target count must be positive, got %d", opts.TargetCount)
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)
	r.armCancel(cancel)
	defer func() {
		r.disarmCancel()
		cancel()
	}()

	res, err := r.run(ctx, opts)
	r.reporter.OnFinish()
	return res, err
}

func (r *Runner) run(ctx context.Context, opts Options) (*Result, error) {
	surface := collector.SurfaceFor(opts.UseMediaGrid)

	sourceURL, _ := r.page.Location(ctx)
	author := twitter.AuthorFromHref(sourceURL)

	r.log.InfoWithFields("starting run", map[string]interface{}{
		"target":  opts.TargetCount,
		"surface": surface.Name(),
		"author":  author,
	})
	r.reporter.OnStatus("Collecting images...")

	coll := collector.New(r.page, surface, collector.Options{
		MaxScrollAttempts: r.cfg.Collect.MaxScrollAttempts,
		SettleDelay:       r.cfg.Collect.SettleDelay,
		PageAuthor:        author,
		OnProgress: func(current, target int) {
			r.reporter.OnProgress(current, target, PhaseCollecting)
		},
	}, r.log)

	collected, err := coll.Collect(ctx, opts.TargetCount)
	if err != nil {
		r.reporter.OnStatus(fmt.Sprintf("Collection failed: %v", err))
		return nil, fmt.Errorf("collect: %w", err)
	}

	cancelled := ctx.Err() != nil

	if len(collected) == 0 {
		if cancelled {
			r.reporter.OnStatus("Cancelled before any images were found")
			return &Result{Cancelled: true}, nil
		}
		r.reporter.OnStatus("No images found")
		return nil, errs.New(errs.ErrorTypeNoContent, "no images found")
	}

	if author == "" {
		author = collected[0].Author
	}

	filtered, skipped := r.filterCached(author, collected)
	if skipped > 0 {
		r.reporter.OnStatus(fmt.Sprintf("Skipping %d already-downloaded images", skipped))
	}

	downloaded, fetchCancelled := r.fetchAll(ctx, filtered)
	cancelled = cancelled || fetchCancelled

	if opts.IncludeMetadata {
		r.embedAll(downloaded)
	}

	info := archive.RunInfo{
		SourceURL:  sourceURL,
		Author:     author,
		SurfaceTag: surface.Name(),
		Partial:    cancelled,
		Timestamp:  time.Now(),
	}

	r.reporter.OnProgress(len(downloaded), len(downloaded), PhaseArchiving)
	blob, err := archive.Assemble(downloaded, info)
	if err != nil {
		r.reporter.OnStatus(fmt.Sprintf("Failed to create archive: %v", err))
		return nil, err
	}

	path, err := r.saver.SaveArchive(archive.Filename(info, len(downloaded)), blob)
	if err != nil {
		r.reporter.OnStatus(fmt.Sprintf("Failed to save archive: %v", err))
		return nil, errs.Newf(errs.ErrorTypeArchive, "save archive: %v", err)
	}

	r.mergeCache(author, downloaded)

	res := &Result{
		Collected:   len(collected),
		Skipped:     skipped,
		Downloaded:  len(downloaded),
		ArchivePath: path,
		Cancelled:   cancelled,
	}
	if cancelled {
		r.reporter.OnStatus(fmt.Sprintf("Cancelled: packaged %d of %d images into %s", res.Downloaded, res.Collected, path))
	} else {
		r.reporter.OnStatus(fmt.Sprintf("Done: %d images saved to %s", res.Downloaded, path))
	}

	r.log.InfoWithFields("run finished", map[string]interface{}{
		"collected":  res.Collected,
		"skipped":    res.Skipped,
		"downloaded": res.Downloaded,
		"cancelled":  res.Cancelled,
		"archive":    res.ArchivePath,
	})
	return res, nil
}

// filterCached drops entries whose item id was already downloaded for
// this author. Empty ids never count as cached. The skipped count is
// computed directly from the two stages.
func (r *Runner) filterCached(author string, collected []twitter.CollectedEntry) ([]twitter.CollectedEntry, int) {
	cached, err := r.store.Load(author)
	if err != nil {
		r.log.WithError(err).Warn("failed to load dedup cache, downloading everything")
		return collected, 0
	}

	filtered := make([]twitter.CollectedEntry, 0, len(collected))
	for _, e := range collected {
		if e.ItemID != "" {
			if _, ok := cached[e.ItemID]; ok {
				continue
			}
		}
		filtered = append(filtered, e)
	}
	return filtered, len(collected) - len(filtered)
}

// fetchAll downloads entries sequentially. A rate-limited item gets one
// extra visible-cooldown retry after the fetcher's own budget; network
// failures skip the item; cancellation stops the loop but keeps what
// was fetched.
func (r *Runner) fetchAll(ctx context.Context, entries []twitter.CollectedEntry) ([]twitter.DownloadedEntry, bool) {
	downloaded := make([]twitter.DownloadedEntry, 0, len(entries))

	for _, e := range entries {
		if ctx.Err() != nil {
			return downloaded, true
		}

		data, err := r.fetch.Fetch(ctx, e.MediaReference)
		if errs.IsRateLimit(err) {
			r.reporter.OnStatus("Rate limited, waiting to retry...")
			r.reporter.OnCooldown(r.cfg.Fetch.RateLimitCooldown)
			if waitErr := retry.Wait(ctx, r.cfg.Fetch.RateLimitCooldown); waitErr != nil {
				return downloaded, true
			}
			data, err = r.fetch.Fetch(ctx, e.MediaReference)
		}
		if err != nil {
			if errs.IsCancelled(err) {
				return downloaded, true
			}
			r.log.WithError(err).WithFields(map[string]interface{}{
				"url":     e.URL,
				"item_id": e.ItemID,
			}).Error("failed to fetch image, skipping")
			r.reporter.OnStatus(fmt.Sprintf("Skipping image %s: %v", e.ItemID, err))
			continue
		}

		downloaded = append(downloaded, twitter.DownloadedEntry{CollectedEntry: e, Data: data})
		r.reporter.OnProgress(len(downloaded), len(entries), PhaseDownloading)
	}
	return downloaded, false
}

// embedAll annotates PNG payloads in place; failures degrade to the
// original payload inside pngtext.Embed.
func (r *Runner) embedAll(entries []twitter.DownloadedEntry) {
	for i := range entries {
		r.reporter.OnProgress(i+1, len(entries), PhaseEmbedding)
		if entries[i].Ext != "png" {
			continue
		}
		entries[i].Data = pngtext.Embed(entries[i].Data, pngtext.Fields{
			ItemID:    entries[i].ItemID,
			Permalink: entries[i].Permalink,
			Author:    entries[i].Author,
			Timestamp: entries[i].Timestamp,
			Text:      entries[i].Text,
		}, r.log)
	}
}

// mergeCache records the freshly downloaded non-empty item ids
func (r *Runner) mergeCache(author string, downloaded []twitter.DownloadedEntry) {
	ids := make([]string, 0, len(downloaded))
	for _, e := range downloaded {
		if e.ItemID != "" {
			ids = append(ids, e.ItemID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := r.store.Merge(author, ids); err != nil {
		r.log.WithError(err).Warn("failed to update dedup cache")
	}
}
