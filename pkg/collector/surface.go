package collector

import (
	"github.com/PuerkitoBio/goquery"

	"xgrab/pkg/twitter"
)

const mediaImgSelector = `img[src*="pbs.twimg.com/media"]`

// Surface is the page view type being scraped. The chronological feed
// and the dedicated media grid expose different DOM shapes and need
// different extraction paths.
type Surface interface {
	// Name is the surface tag used in logs and the archive filename
	Name() string
	// Items selects the parent feed items in a document snapshot
	Items(doc *goquery.Document) *goquery.Selection
	// Images returns the media image srcs rendered inside one item
	Images(item *goquery.Selection) []string
	// Extract derives the provenance record for one item
	Extract(item *goquery.Selection) twitter.ItemMetadata
}

// SurfaceFor selects the surface strategy for a run
func SurfaceFor(useMediaGrid bool) Surface {
	if useMediaGrid {
		return MediaGridSurface{}
	}
	return TimelineSurface{}
}

// TimelineSurface scrapes the chronological feed, where each item is a
// full article with text, author and timestamp nodes.
type TimelineSurface struct{}

func (TimelineSurface) Name() string { return "timeline" }

func (TimelineSurface) Items(doc *goquery.Document) *goquery.Selection {
	return doc.Find("article")
}

func (TimelineSurface) Images(item *goquery.Selection) []string {
	return imageSources(item)
}

func (TimelineSurface) Extract(item *goquery.Selection) twitter.ItemMetadata {
	return twitter.ExtractItemMetadata(item)
}

// MediaGridSurface scrapes the dedicated media tab, a grid of bare
// thumbnail cells. Only the status id is recoverable from a cell; the
// collector fills in the author from the page location.
type MediaGridSurface struct{}

func (MediaGridSurface) Name() string { return "media" }

func (MediaGridSurface) Items(doc *goquery.Document) *goquery.Selection {
	return doc.Find(`li[role="listitem"]`)
}

func (MediaGridSurface) Images(item *goquery.Selection) []string {
	return imageSources(item)
}

func (MediaGridSurface) Extract(item *goquery.Selection) twitter.ItemMetadata {
	var meta twitter.ItemMetadata
	if item == nil || item.Length() == 0 {
		return meta
	}
	if href, ok := item.Find(`a[href*="/status/"]`).First().Attr("href"); ok {
		meta.ItemID = twitter.StatusIDFromHref(href)
		meta.Author = twitter.AuthorFromHref(href)
	}
	meta.Permalink = twitter.Permalink(meta.Author, meta.ItemID)
	return meta
}

func imageSources(item *goquery.Selection) []string {
	var srcs []string
	item.Find(mediaImgSelector).Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && src != "" {
			srcs = append(srcs, src)
		}
	})
	return srcs
}
