package twitter

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const timelineItemHTML = `
<article>
  <div data-testid="User-Name">
    <a href="/somebody"><span>Somebody</span></a>
  </div>
  <a href="/somebody/status/1800000000000000001">
    <time datetime="2024-06-01T12:34:56.000Z">Jun 1</time>
  </a>
  <div data-testid="tweetText">Look at this picture</div>
  <img src="https://pbs.twimg.com/media/Fabc123?format=jpg&amp;name=small">
</article>`

func itemSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc.Find("article").First()
}

func TestExtractItemMetadata(t *testing.T) {
	meta := ExtractItemMetadata(itemSelection(t, timelineItemHTML))

	if meta.ItemID != "1800000000000000001" {
		t.Errorf("ItemID = %q", meta.ItemID)
	}
	if meta.Author != "somebody" {
		t.Errorf("Author = %q", meta.Author)
	}
	if meta.Timestamp != "2024-06-01T12:34:56.000Z" {
		t.Errorf("Timestamp = %q", meta.Timestamp)
	}
	if meta.Text != "Look at this picture" {
		t.Errorf("Text = %q", meta.Text)
	}
	if meta.Permalink != "https://x.com/somebody/status/1800000000000000001" {
		t.Errorf("Permalink = %q", meta.Permalink)
	}
	if meta.Sequence != 0 {
		t.Errorf("Sequence = %d, want 0 before assignment", meta.Sequence)
	}
}

func TestExtractItemMetadataMissingAnchors(t *testing.T) {
	meta := ExtractItemMetadata(itemSelection(t, `<article><img src="x"></article>`))

	if meta.ItemID != "" || meta.Author != "" || meta.Text != "" || meta.Timestamp != "" {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
	if meta.Permalink != "" {
		t.Errorf("Permalink = %q, want empty", meta.Permalink)
	}
}

func TestExtractItemMetadataFirstStatusLinkWins(t *testing.T) {
	html := `
<article>
  <a href="/somebody/status/111/photo/1">first</a>
  <a href="/somebody/status/222">quoted</a>
</article>`
	meta := ExtractItemMetadata(itemSelection(t, html))
	if meta.ItemID != "111" {
		t.Errorf("ItemID = %q, want first status link's id", meta.ItemID)
	}
}

func TestExtractItemMetadataAuthorFallsBackToStatusLink(t *testing.T) {
	html := `
<article>
  <a href="/somebody/status/333">link</a>
</article>`
	meta := ExtractItemMetadata(itemSelection(t, html))
	if meta.Author != "somebody" {
		t.Errorf("Author = %q, want handle parsed from status link", meta.Author)
	}
}

func TestExtractItemMetadataNilSelection(t *testing.T) {
	meta := ExtractItemMetadata(nil)
	if meta != (ItemMetadata{}) {
		t.Errorf("expected zero metadata for nil selection, got %+v", meta)
	}
}
