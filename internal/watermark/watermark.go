// Package watermark persists the timestamp of the most recently exported task.
package watermark

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// None is the watermark before anything has been exported.
const None int64 = -1

const (
	keyDate           = "date"
	keyLastExportedAt = "last_exported_at"
	keyLastTitle      = "last_title"
)

// Store keeps the watermark in a JSON file. Keys other than "date" are
// carried over unchanged on every save.
type Store struct {
	path string
	now  func() time.Time
}

// NewStore returns a Store backed by the file at path. The file does not need to exist.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored watermark, or None if nothing was saved yet.
func (s *Store) Load() (int64, error) {
	state, err := s.read()
	if err != nil {
		return None, err
	}
	return dateOf(state)
}

// Save writes the watermark, replacing the state file atomically.
func (s *Store) Save(date int64) error {
	state, err := s.read()
	if err != nil {
		return err
	}
	if err := setKey(state, keyDate, date); err != nil {
		return err
	}
	return s.write(state)
}

// Advance moves the watermark forward to date and records title for debugging.
// It panics if date is not after the stored watermark: tasks must be
// advanced in ascending order.
func (s *Store) Advance(date int64, title string) error {
	state, err := s.read()
	if err != nil {
		return err
	}
	last, err := dateOf(state)
	if err != nil {
		return err
	}
	if date <= last {
		panic(fmt.Sprintf("watermark: advance to %d does not move past %d", date, last))
	}

	if err := setKey(state, keyDate, date); err != nil {
		return err
	}
	if err := setKey(state, keyLastExportedAt, s.now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if title != "" {
		if err := setKey(state, keyLastTitle, title); err != nil {
			return err
		}
	}
	return s.write(state)
}

func (s *Store) read() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	state := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", s.path, err)
	}
	return state, nil
}

func (s *Store) write(state map[string]json.RawMessage) (err error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write temp state: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func dateOf(state map[string]json.RawMessage) (int64, error) {
	raw, ok := state[keyDate]
	if !ok {
		return None, nil
	}
	var date int64
	if err := json.Unmarshal(raw, &date); err != nil {
		return None, fmt.Errorf("decode %q: %w", keyDate, err)
	}
	return date, nil
}

func setKey(state map[string]json.RawMessage, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	state[key] = raw
	return nil
}
