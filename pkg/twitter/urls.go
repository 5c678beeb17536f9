package twitter

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the canonical host for permalinks
	BaseURL = "https://x.com"

	// MediaHostMarker identifies image CDN URLs in the DOM
	MediaHostMarker = "pbs.twimg.com/media"

	// jpgVariant requests the largest jpg rendition the CDN serves
	jpgVariant = "format=jpg&name=8192x8192"
	// pngVariant requests the original png rendition
	pngVariant = "format=png&name=orig"
)

// NormalizeMediaURL rewrites a raw DOM-observed media URL to its
// highest-quality variant. Total and idempotent: unrecognized inputs
// take the png branch, and normalizing an already normalized URL is a
// fixed point.
func NormalizeMediaURL(raw string) MediaReference {
	base := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		base = raw[:i]
	}
	if strings.Contains(raw, "format=jpg") || strings.HasSuffix(raw, ".jpg") {
		return MediaReference{URL: base + "?" + jpgVariant, Ext: "jpg"}
	}
	return MediaReference{URL: base + "?" + pngVariant, Ext: "png"}
}

// IsMediaURL reports whether a DOM src points at the image CDN
func IsMediaURL(src string) bool {
	return strings.Contains(src, MediaHostMarker)
}

// StatusIDFromHref parses the numeric status id out of a permalink-like
// href such as "/user/status/1234567890/photo/1". Returns "" when the
// href carries no status segment.
func StatusIDFromHref(href string) string {
	const marker = "/status/"
	i := strings.Index(href, marker)
	if i < 0 {
		return ""
	}
	rest := href[i+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	return rest[:end]
}

// AuthorFromHref extracts the account handle from a permalink-like href,
// e.g. "/user/status/123" -> "user". Returns "" for hrefs that do not
// start with a handle segment.
func AuthorFromHref(href string) string {
	path := strings.TrimPrefix(href, BaseURL)
	path = strings.TrimPrefix(path, "https://twitter.com")
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ""
	}
	seg := path
	if i := strings.IndexAny(seg, "/?#"); i >= 0 {
		seg = seg[:i]
	}
	switch seg {
	case "home", "explore", "search", "i", "settings", "notifications", "messages":
		return ""
	}
	return seg
}

// Permalink reconstructs the canonical status URL from host, handle
// and numeric id. Empty parts yield an empty permalink.
func Permalink(author, itemID string) string {
	if author == "" || itemID == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/status/%s", BaseURL, author, itemID)
}
