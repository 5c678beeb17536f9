// Package storage handles writing finished archives to disk.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Manager writes run artifacts into the output directory
type Manager struct {
	outputDir string
}

// NewManager creates a storage manager, creating the output directory
// if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{outputDir: outputDir}, nil
}

// SaveArchive writes an archive atomically (temp file then rename) and
// returns its final path
func (m *Manager) SaveArchive(name string, data []byte) (string, error) {
	path := filepath.Join(m.outputDir, name)
	tempPath := path + ".tmp"

	out, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = out.Write(data)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to close archive file: %w", closeErr)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename archive file: %w", err)
	}
	return path, nil
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}
