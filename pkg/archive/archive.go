// Package archive bundles downloaded media and manifests into a zip.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kennygrant/sanitize"

	errs "xgrab/pkg/errors"
	"xgrab/pkg/twitter"
)

const (
	// FilenamePrefix starts every output archive name
	FilenamePrefix = "x-images"

	imagesDir        = "images"
	textManifestName = "metadata.txt"
	jsonManifestName = "metadata.json"
)

// RunInfo carries the run parameters the archive is derived from
type RunInfo struct {
	SourceURL string
	Author    string
	// SurfaceTag names the scraped surface, e.g. "timeline" or "media"
	SurfaceTag string
	// Partial marks a cancelled run packaged with what it had
	Partial   bool
	Timestamp time.Time
}

// Assemble packages the downloaded entries plus a plain-text and a JSON
// manifest into a single zip. Entries are stored without compression;
// image data is already compressed and packing speed wins over size.
func Assemble(entries []twitter.DownloadedEntry, info RunInfo) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for i, e := range entries {
		name := imagesDir + "/" + entryFilename(e, i)
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Store,
			Modified: info.Timestamp,
		})
		if err != nil {
			return nil, errs.Newf(errs.ErrorTypeArchive, "create archive entry %s: %v", name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return nil, errs.Newf(errs.ErrorTypeArchive, "write archive entry %s: %v", name, err)
		}
	}

	manifest := buildManifest(entries, info)

	if err := writeStored(w, textManifestName, []byte(manifest.renderText()), info.Timestamp); err != nil {
		return nil, err
	}
	jsonData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeArchive, "encode manifest: %v", err)
	}
	if err := writeStored(w, jsonManifestName, jsonData, info.Timestamp); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, errs.Newf(errs.ErrorTypeArchive, "finalize archive: %v", err)
	}
	return buf.Bytes(), nil
}

func writeStored(w *zip.Writer, name string, data []byte, modified time.Time) error {
	f, err := w.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Store,
		Modified: modified,
	})
	if err != nil {
		return errs.Newf(errs.ErrorTypeArchive, "create %s: %v", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return errs.Newf(errs.ErrorTypeArchive, "write %s: %v", name, err)
	}
	return nil
}

// entryFilename names one image deterministically: itemId plus the
// per-item sequence, or a run-ordinal fallback when the id is unknown.
func entryFilename(e twitter.DownloadedEntry, index int) string {
	if e.ItemID != "" {
		return fmt.Sprintf("%s_%d.%s", sanitize.BaseName(e.ItemID), e.Sequence, e.Ext)
	}
	return fmt.Sprintf("image_%d.%s", index+1, e.Ext)
}

// Filename builds the deterministic archive name for a run:
// x-images_<author>_<count>_<surfaceTag>_<timestamp>[-partial].zip
func Filename(info RunInfo, count int) string {
	author := sanitize.BaseName(info.Author)
	if author == "" {
		author = "unknown"
	}
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(info.Timestamp.UTC().Format(time.RFC3339))
	name := fmt.Sprintf("%s_%s_%d_%s_%s", FilenamePrefix, author, count, info.SurfaceTag, ts)
	if info.Partial {
		name += "-partial"
	}
	return name + ".zip"
}
