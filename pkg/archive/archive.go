// Package archive writes finished daily snapshots to durable object
// storage. Archival is best-effort: the database row is the source of
// truth, the archive copy serves exports and disaster recovery.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Archiver persists immutable snapshot documents under stable keys.
// Writing the same key twice overwrites: a re-run for the same day
// replaces the day's archived copy, matching the store's upsert.
type Archiver interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// FSArchiver keeps archived snapshots under a base directory.
type FSArchiver struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSArchiver creates a filesystem archiver rooted at baseDir.
func NewFSArchiver(baseDir string) (*FSArchiver, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure archive dir: %w", err)
	}
	return &FSArchiver{baseDir: baseDir}, nil
}

func (a *FSArchiver) Put(ctx context.Context, key string, data []byte) error {
	path, err := a.path(key)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to ensure archive subdir: %w", err)
	}

	// Write to temp, then rename, so readers never see a torn file.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to commit snapshot blob: %w", err)
	}
	return nil
}

func (a *FSArchiver) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := a.path(key)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archived snapshot not found: %s", key)
		}
		return nil, fmt.Errorf("failed to read snapshot blob: %w", err)
	}
	return data, nil
}

// path validates the key and maps it under baseDir. Keys are slash
// separated paths like "index/2026-05-10.json"; traversal is rejected.
func (a *FSArchiver) path(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid archive key: %q", key)
	}
	return filepath.Join(a.baseDir, filepath.FromSlash(key)), nil
}

// IndexKey is the archive key for one day's progress index snapshot.
func IndexKey(day string) string { return "index/" + day + ".json" }

// CredibilityKey is the archive key for one publisher-day credibility
// snapshot.
func CredibilityKey(publisher, day string) string {
	return "credibility/" + day + "/" + publisher + ".json"
}
