package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile persists the snapshot atomically: it writes a temporary
// sibling, fsyncs it, and renames it over path. A crash mid-write
// leaves the previous snapshot intact.
func WriteFile(path string, snap *Snapshot) error {
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}

	if err := snap.Encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("state: write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("state: sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: close snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("state: rename snapshot: %w", err)
	}

	// Best effort: make the rename itself durable.
	if dir, err := os.Open(filepath.Dir(path)); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// ReadFile loads a snapshot from path. A missing file returns
// (nil, nil): the server starts empty.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
