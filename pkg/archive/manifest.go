package archive

import (
	"fmt"
	"strings"
	"time"

	"xgrab/pkg/twitter"
)

// RunManifest summarizes one run for the structured manifest file
type RunManifest struct {
	SourceURL    string          `json:"source_url"`
	Author       string          `json:"author"`
	RunTimestamp time.Time       `json:"run_timestamp"`
	Entries      []ManifestEntry `json:"entries"`
}

// ManifestEntry records one archived image's identifying fields
type ManifestEntry struct {
	Filename  string `json:"filename"`
	ItemID    string `json:"item_id"`
	Permalink string `json:"permalink"`
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// buildManifest derives the manifest from the downloaded entries, in
// entry order
func buildManifest(entries []twitter.DownloadedEntry, info RunInfo) RunManifest {
	m := RunManifest{
		SourceURL:    info.SourceURL,
		Author:       info.Author,
		RunTimestamp: info.Timestamp,
		Entries:      make([]ManifestEntry, 0, len(entries)),
	}
	for i, e := range entries {
		m.Entries = append(m.Entries, ManifestEntry{
			Filename:  entryFilename(e, i),
			ItemID:    e.ItemID,
			Permalink: e.Permalink,
			Author:    e.Author,
			Timestamp: e.Timestamp,
			Text:      e.Text,
		})
	}
	return m
}

// renderText renders the human-readable manifest
func (m RunManifest) renderText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", m.SourceURL)
	fmt.Fprintf(&b, "Author: %s\n", m.Author)
	fmt.Fprintf(&b, "Downloaded: %s\n", m.RunTimestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Images: %d\n", len(m.Entries))

	for _, e := range m.Entries {
		b.WriteString("\n----------------------------------------\n")
		fmt.Fprintf(&b, "File: %s\n", e.Filename)
		if e.ItemID != "" {
			fmt.Fprintf(&b, "Post ID: %s\n", e.ItemID)
		}
		if e.Permalink != "" {
			fmt.Fprintf(&b, "Link: %s\n", e.Permalink)
		}
		if e.Author != "" {
			fmt.Fprintf(&b, "Author: %s\n", e.Author)
		}
		if e.Timestamp != "" {
			fmt.Fprintf(&b, "Posted: %s\n", e.Timestamp)
		}
		if e.Text != "" {
			fmt.Fprintf(&b, "Text: %s\n", e.Text)
		}
	}
	return b.String()
}
