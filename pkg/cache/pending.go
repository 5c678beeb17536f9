package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PendingRun is the cross-navigation handoff record. When a run needs
// the media-grid surface and the page has to transition to the media
// tab first, the run parameters are parked here and picked up again
// after the navigation.
type PendingRun struct {
	Count           int       `json:"count"`
	IncludeMetadata bool      `json:"include_metadata"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Store) pendingPath() string {
	return filepath.Join(s.dir, "pending-run.json")
}

// SavePendingRun parks run parameters for pickup after a navigation
func (s *Store) SavePendingRun(p PendingRun) error {
	p.CreatedAt = time.Now()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pending run: %w", err)
	}
	if err := os.WriteFile(s.pendingPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write pending run: %w", err)
	}
	return nil
}

// TakePendingRun returns the parked run parameters, if any, and clears
// the record immediately so it is consumed at most once.
func (s *Store) TakePendingRun() (*PendingRun, error) {
	data, err := os.ReadFile(s.pendingPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending run: %w", err)
	}

	// Cleared before decode: a corrupt record must not wedge every
	// subsequent startup.
	if err := os.Remove(s.pendingPath()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to clear pending run: %w", err)
	}

	var p PendingRun
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending run: %w", err)
	}
	return &p, nil
}
