package collector

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage serves a scripted sequence of document snapshots. Each scroll
// advances to the next snapshot; the height grows with every new one so
// the collector sees progress until the script runs out.
type fakePage struct {
	location  string
	snapshots []string
	pos       int
	scrolls   int
	bottom    bool
	onHTML    func(pos int)
}

func (p *fakePage) Location(ctx context.Context) (string, error) {
	return p.location, nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	if p.onHTML != nil {
		p.onHTML(p.pos)
	}
	return p.snapshots[p.pos], nil
}

func (p *fakePage) ScrollToBottom(ctx context.Context) error {
	p.scrolls++
	if p.pos < len(p.snapshots)-1 {
		p.pos++
	} else {
		p.bottom = true
	}
	return nil
}

func (p *fakePage) ContentHeight(ctx context.Context) (int64, error) {
	return int64(1000 * (p.pos + 1)), nil
}

func (p *fakePage) AtBottom(ctx context.Context) (bool, error) {
	return p.bottom, nil
}

func timelineItem(id string, srcs ...string) string {
	var b strings.Builder
	b.WriteString("<article>")
	fmt.Fprintf(&b, `<div data-testid="User-Name"><a href="/somebody">Somebody</a></div>`)
	fmt.Fprintf(&b, `<a href="/somebody/status/%s"><time datetime="2024-06-01T00:00:00.000Z">x</time></a>`, id)
	fmt.Fprintf(&b, `<div data-testid="tweetText">item %s</div>`, id)
	for _, src := range srcs {
		fmt.Fprintf(&b, `<img src=%q>`, src)
	}
	b.WriteString("</article>")
	return b.String()
}

func mediaSrc(n int) string {
	return fmt.Sprintf("https://pbs.twimg.com/media/F%03d?format=jpg&name=small", n)
}

func testOptions() Options {
	return Options{MaxScrollAttempts: 5, SettleDelay: time.Millisecond}
}

func TestCollectStopsAtTarget(t *testing.T) {
	// Five images rendered at once, target three
	page := &fakePage{
		location: "https://x.com/somebody",
		snapshots: []string{
			timelineItem("100", mediaSrc(1), mediaSrc(2)) +
				timelineItem("200", mediaSrc(3), mediaSrc(4), mediaSrc(5)),
		},
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Discovery order is preserved
	assert.Contains(t, entries[0].URL, "F001")
	assert.Contains(t, entries[1].URL, "F002")
	assert.Contains(t, entries[2].URL, "F003")
	assert.Equal(t, 0, page.scrolls, "target met on the first snapshot, no scrolling expected")
}

func TestCollectDeduplicatesAcrossSnapshots(t *testing.T) {
	// The second snapshot re-renders the first item alongside a new one
	first := timelineItem("100", mediaSrc(1))
	page := &fakePage{
		location: "https://x.com/somebody",
		snapshots: []string{
			first,
			first + timelineItem("200", mediaSrc(2)),
		},
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "100", entries[0].ItemID)
	assert.Equal(t, "200", entries[1].ItemID)
}

func TestCollectAssignsSequencePerItem(t *testing.T) {
	page := &fakePage{
		location: "https://x.com/somebody",
		snapshots: []string{
			timelineItem("100", mediaSrc(1), mediaSrc(2)) + timelineItem("200", mediaSrc(3)),
		},
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 1, entries[0].Sequence)
	assert.Equal(t, 2, entries[1].Sequence)
	assert.Equal(t, 1, entries[2].Sequence, "sequence restarts per item")
}

func TestCollectStopsWhenFeedExhausted(t *testing.T) {
	// One snapshot with one image; the feed never grows past it
	page := &fakePage{
		location:  "https://x.com/somebody",
		snapshots: []string{timelineItem("100", mediaSrc(1))},
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "partial result when the page runs out of content")
}

func TestCollectStallCapBoundsScrolling(t *testing.T) {
	page := &fakePage{
		location:  "https://x.com/somebody",
		snapshots: []string{"<div></div>"},
	}
	opts := testOptions()
	opts.MaxScrollAttempts = 3
	c := New(page, TimelineSurface{}, opts, nil)

	entries, err := c.Collect(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.LessOrEqual(t, page.scrolls, 3, "stall cap bounds the scroll loop")
}

func TestCollectCancellationReturnsPartialResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &fakePage{
		location: "https://x.com/somebody",
		snapshots: []string{
			timelineItem("100", mediaSrc(1)),
			timelineItem("100", mediaSrc(1)) + timelineItem("200", mediaSrc(2)),
		},
	}
	// Cancel once the second snapshot is about to be scanned
	page.onHTML = func(pos int) {
		if pos == 1 {
			cancel()
		}
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(ctx, 10)
	require.NoError(t, err, "cancellation is a partial result, not an error")
	assert.Len(t, entries, 1)
	assert.Equal(t, "100", entries[0].ItemID)
}

func TestCollectProgressCallback(t *testing.T) {
	var calls [][2]int
	opts := testOptions()
	opts.OnProgress = func(current, target int) {
		calls = append(calls, [2]int{current, target})
	}
	page := &fakePage{
		location:  "https://x.com/somebody",
		snapshots: []string{timelineItem("100", mediaSrc(1), mediaSrc(2))},
	}
	c := New(page, TimelineSurface{}, opts, nil)

	_, err := c.Collect(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestCollectMediaGridSurface(t *testing.T) {
	grid := fmt.Sprintf(`
<ul>
  <li role="listitem"><a href="/somebody/status/111/photo/1"><img src=%q></a></li>
  <li role="listitem"><a href="/somebody/status/222/photo/1"><img src=%q></a></li>
</ul>`, mediaSrc(1), mediaSrc(2))
	page := &fakePage{
		location:  "https://x.com/somebody/media",
		snapshots: []string{grid},
	}
	c := New(page, MediaGridSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "111", entries[0].ItemID)
	assert.Equal(t, "somebody", entries[0].Author)
	assert.Equal(t, "https://x.com/somebody/status/111", entries[0].Permalink)
	assert.Empty(t, entries[0].Text, "grid cells carry no text")
}

func TestCollectAuthorFallsBackToPageLocation(t *testing.T) {
	// An item with media but no parsable author link
	item := fmt.Sprintf(`<article><img src=%q></article>`, mediaSrc(1))
	page := &fakePage{
		location:  "https://x.com/somebody",
		snapshots: []string{item},
	}
	c := New(page, TimelineSurface{}, testOptions(), nil)

	entries, err := c.Collect(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "somebody", entries[0].Author)
}
