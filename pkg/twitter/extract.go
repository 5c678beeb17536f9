package twitter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOM anchors inside one timeline item. X renders these as stable
// data-testid attributes regardless of the obfuscated class names.
const (
	textSelector   = `div[data-testid="tweetText"]`
	authorSelector = `div[data-testid="User-Name"] a[href^="/"]`
	timeSelector   = `time[datetime]`
	statusSelector = `a[href*="/status/"]`
)

// ExtractItemMetadata reads a feed item's subtree and derives its
// provenance record. Every field degrades to the empty string when its
// anchor is missing; the page mutating underneath never produces an
// error. Sequence is left zero, the collector assigns it.
func ExtractItemMetadata(item *goquery.Selection) ItemMetadata {
	var meta ItemMetadata
	if item == nil || item.Length() == 0 {
		return meta
	}

	meta.Text = strings.TrimSpace(item.Find(textSelector).First().Text())

	if ts, ok := item.Find(timeSelector).First().Attr("datetime"); ok {
		meta.Timestamp = strings.TrimSpace(ts)
	}

	if href, ok := item.Find(authorSelector).First().Attr("href"); ok {
		meta.Author = AuthorFromHref(href)
	}

	// The first status link in the item is its own permalink; parse the
	// numeric id and rebuild the canonical URL rather than trusting the
	// raw href, which may carry /photo/ or /analytics suffixes.
	item.Find(statusSelector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		id := StatusIDFromHref(href)
		if id == "" {
			return true
		}
		meta.ItemID = id
		if meta.Author == "" {
			meta.Author = AuthorFromHref(href)
		}
		return false
	})

	meta.Permalink = Permalink(meta.Author, meta.ItemID)
	return meta
}
