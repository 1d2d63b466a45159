package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grayfold/serverbook/model"
)

// readEntries reads the persisted JSON array at path. Callers treat any
// error (missing file, unreadable file, malformed content) as "no persisted
// state"; the error is returned so they can log and classify it.
func readEntries(path string) ([]model.Entry, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- path is derived from the configured data dir
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var entries []model.Entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return entries, nil
}

// writeEntries overwrites path with the JSON array form of entries. The
// write is a whole-file overwrite; a crash mid-write can truncate the file,
// which readEntries tolerates by treating malformed content as empty.
func writeEntries(path string, entries []model.Entry) error {
	if entries == nil {
		entries = []model.Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}
