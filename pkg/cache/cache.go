// Package cache persists per-author sets of already-downloaded item ids.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kennygrant/sanitize"

	"xgrab/pkg/logger"
)

// Store is a durable per-author dedup cache. One JSON file per author,
// cache-<author>.json, holding an array of string item ids. Ids only
// accumulate; a run never removes them. Writes are atomic within one
// process; concurrent runs for the same author in separate processes
// can race (accepted: single-user, single-run-at-a-time usage).
type Store struct {
	dir string
	log logger.Logger
}

// NewStore creates a cache store rooted at dir
func NewStore(dir string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) pathFor(author string) string {
	name := sanitize.BaseName(author)
	if name == "" {
		name = "unknown"
	}
	return filepath.Join(s.dir, fmt.Sprintf("cache-%s.json", name))
}

// Load returns the set of previously downloaded item ids for an author.
// A missing record yields an empty set.
func (s *Store) Load(author string) (map[string]struct{}, error) {
	data, err := os.ReadFile(s.pathFor(author))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode cache record: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// Merge unions newIds into the author's record and writes it back.
// Read-modify-write; idempotent and commutative in effect. Empty ids
// are dropped.
func (s *Store) Merge(author string, newIds []string) error {
	existing, err := s.Load(author)
	if err != nil {
		return err
	}

	for _, id := range newIds {
		if id != "" {
			existing[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if err := s.write(author, ids); err != nil {
		return err
	}

	s.log.DebugWithFields("cache merged", map[string]interface{}{
		"author": author,
		"total":  len(ids),
	})
	return nil
}

// Clear removes the author's record and reports how many ids it held
func (s *Store) Clear(author string) (int, error) {
	existing, err := s.Load(author)
	if err != nil {
		return 0, err
	}
	if err := os.Remove(s.pathFor(author)); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to clear cache record: %w", err)
	}
	return len(existing), nil
}

// write persists the record atomically: temp file, sync, rename
func (s *Store) write(author string, ids []string) error {
	path := s.pathFor(author)
	tempPath := path + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ids); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode cache record: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
