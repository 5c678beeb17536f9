// Package collector implements the incremental scroll-scrape loop that
// discovers media items on a rendered feed page.
package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"xgrab/pkg/browser"
	"xgrab/pkg/logger"
	"xgrab/pkg/retry"
	"xgrab/pkg/twitter"
)

// Options tunes the scroll loop
type Options struct {
	// MaxScrollAttempts bounds successive stalled scrolls before the
	// page is considered exhausted
	MaxScrollAttempts int
	// SettleDelay is the wait after each scroll for content to render
	SettleDelay time.Duration
	// PageAuthor overrides the author inferred from the page location
	PageAuthor string
	// OnProgress is fired once per newly collected entry
	OnProgress func(current, target int)
}

// Collector discovers media items by scanning document snapshots and
// scrolling for more until a target count, a stall cap, or cancellation.
type Collector struct {
	page    browser.Page
	surface Surface
	opts    Options
	log     logger.Logger
}

// New creates a collector over a page with a surface strategy
func New(page browser.Page, surface Surface, opts Options, log logger.Logger) *Collector {
	if opts.MaxScrollAttempts <= 0 {
		opts.MaxScrollAttempts = 50
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{page: page, surface: surface, opts: opts, log: log}
}

// Collect gathers up to target entries in discovery order, one entry per
// unique normalized URL. Cancellation returns whatever was collected so
// far as a partial result, not an error; the caller distinguishes a
// cancelled run through its own context.
func (c *Collector) Collect(ctx context.Context, target int) ([]twitter.CollectedEntry, error) {
	var entries []twitter.CollectedEntry
	seen := make(map[string]struct{})
	seqByItem := make(map[string]int)

	pageAuthor := c.opts.PageAuthor
	if pageAuthor == "" {
		if loc, err := c.page.Location(ctx); err == nil {
			pageAuthor = twitter.AuthorFromHref(loc)
		}
	}

	var lastHeight int64
	stalls := 0

	for len(entries) < target && stalls < c.opts.MaxScrollAttempts {
		if ctx.Err() != nil {
			c.log.InfoWithFields("collection cancelled", map[string]interface{}{
				"collected": len(entries),
			})
			return entries, nil
		}

		html, err := c.page.HTML(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return entries, nil
			}
			return entries, fmt.Errorf("snapshot page: %w", err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return entries, fmt.Errorf("parse page snapshot: %w", err)
		}

		entries = c.scan(ctx, doc, entries, seen, seqByItem, pageAuthor, target)
		if len(entries) >= target || ctx.Err() != nil {
			break
		}

		if err := c.page.ScrollToBottom(ctx); err != nil {
			if ctx.Err() != nil {
				return entries, nil
			}
			return entries, fmt.Errorf("scroll page: %w", err)
		}
		if err := retry.Wait(ctx, c.opts.SettleDelay); err != nil {
			return entries, nil
		}

		height, err := c.page.ContentHeight(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return entries, nil
			}
			return entries, fmt.Errorf("read page height: %w", err)
		}

		if height == lastHeight {
			stalls++
			if bottom, err := c.page.AtBottom(ctx); err == nil && bottom {
				c.log.DebugWithFields("reached document bottom", map[string]interface{}{
					"collected": len(entries),
					"height":    height,
				})
				break
			}
		} else {
			stalls = 0
		}
		lastHeight = height
	}

	c.log.InfoWithFields("collection finished", map[string]interface{}{
		"collected": len(entries),
		"target":    target,
		"surface":   c.surface.Name(),
	})
	return entries, nil
}

// scan walks the currently rendered items and appends every new media
// reference until the target is reached.
func (c *Collector) scan(
	ctx context.Context,
	doc *goquery.Document,
	entries []twitter.CollectedEntry,
	seen map[string]struct{},
	seqByItem map[string]int,
	pageAuthor string,
	target int,
) []twitter.CollectedEntry {
	c.surface.Items(doc).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if ctx.Err() != nil || len(entries) >= target {
			return false
		}

		srcs := c.surface.Images(item)
		if len(srcs) == 0 {
			return true
		}

		meta := c.surface.Extract(item)
		if meta.Author == "" {
			meta.Author = pageAuthor
			if meta.Permalink == "" {
				meta.Permalink = twitter.Permalink(meta.Author, meta.ItemID)
			}
		}

		for _, src := range srcs {
			if ctx.Err() != nil || len(entries) >= target {
				return false
			}
			ref := twitter.NormalizeMediaURL(src)
			if _, dup := seen[ref.URL]; dup {
				continue
			}
			seen[ref.URL] = struct{}{}

			entryMeta := meta
			seqByItem[meta.ItemID]++
			entryMeta.Sequence = seqByItem[meta.ItemID]

			entries = append(entries, twitter.CollectedEntry{
				MediaReference: ref,
				ItemMetadata:   entryMeta,
			})
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(len(entries), target)
			}
		}
		return true
	})
	return entries
}

// Surface returns the active surface strategy
func (c *Collector) Surface() Surface {
	return c.surface
}
