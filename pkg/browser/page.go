// Package browser abstracts the live feed page the collector scrapes.
package browser

import "context"

// Page is the collector's view of a rendered feed page. Implementations
// must tolerate concurrent page mutation; every call observes the page
// as currently rendered.
type Page interface {
	// Location returns the page's current URL
	Location(ctx context.Context) (string, error)
	// HTML returns a snapshot of the rendered document
	HTML(ctx context.Context) (string, error)
	// ScrollToBottom scrolls the viewport to the bottom of the document
	ScrollToBottom(ctx context.Context) error
	// ContentHeight returns the document's current scroll height
	ContentHeight(ctx context.Context) (int64, error)
	// AtBottom reports whether the viewport reached the true document bottom
	AtBottom(ctx context.Context) (bool, error)
}
