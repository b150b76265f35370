package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Domenick1991/tourbooking/internal/domain"
)

// NewFileStore returns a MemoryStore backed by the JSON file at path. The file is
// re-read before every operation and rewritten after every mutation, so the app
// and the worker can share it. A missing file starts an empty catalog.
func NewFileStore(path string) (*MemoryStore, error) {
	store := NewMemoryStore()
	loaded, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	store.state = loaded

	store.reload = func() (snapshot, error) {
		return readSnapshot(path)
	}
	store.persist = func(next snapshot) error {
		return writeSnapshot(path, next)
	}
	return store, nil
}

func readSnapshot(path string) (snapshot, error) {
	empty := snapshot{Departures: []domain.Departure{}, Bookings: []domain.Booking{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return empty, nil
	case err != nil:
		return snapshot{}, fmt.Errorf("read data file: %w", err)
	case len(data) == 0:
		return empty, nil
	}

	var loaded snapshot
	if err := json.Unmarshal(data, &loaded); err != nil {
		return snapshot{}, fmt.Errorf("parse data file: %w", err)
	}
	if loaded.Departures == nil {
		loaded.Departures = []domain.Departure{}
	}
	if loaded.Bookings == nil {
		loaded.Bookings = []domain.Booking{}
	}
	return loaded, nil
}

// writeSnapshot replaces path atomically via a temp file in the same directory.
func writeSnapshot(path string, s snapshot) error {
	payload, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tourbooking-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
