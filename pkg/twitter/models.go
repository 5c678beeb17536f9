package twitter

// MediaReference identifies a single media asset by its normalized URL.
// Immutable once produced by NormalizeMediaURL.
type MediaReference struct {
	// URL is the highest-quality variant URL; identity of the reference
	URL string `json:"url"`
	// Ext is the classified file extension, "jpg" or "png"
	Ext string `json:"ext"`
}

// ItemMetadata is the provenance record derived from a feed item's DOM
// subtree. Fields whose DOM anchor is absent stay empty.
type ItemMetadata struct {
	// ItemID is the numeric status id; may be empty
	ItemID string `json:"item_id"`
	// Permalink is the canonical status URL
	Permalink string `json:"permalink"`
	// Author is the account handle without the @ prefix
	Author string `json:"author"`
	// Timestamp is the item's ISO 8601 timestamp
	Timestamp string `json:"timestamp"`
	// Text is the item's body text
	Text string `json:"text"`
	// Sequence disambiguates multiple media in one item, 1-based,
	// assigned in DOM-encounter order per ItemID
	Sequence int `json:"sequence"`
}

// CollectedEntry is one deduplicated media discovery
type CollectedEntry struct {
	MediaReference
	ItemMetadata
}

// DownloadedEntry is a collected entry with its fetched payload
type DownloadedEntry struct {
	CollectedEntry
	// Data is the binary payload, consumed by the archive assembler
	Data []byte
}
