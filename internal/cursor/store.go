package cursor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cursor marks the highest catalog sequence number already consumed.
type Cursor struct {
	LastUsedSequence int
}

// Store persists the cursor between runs.
type Store interface {
	Load() Cursor
	Save(Cursor) error
}

// PersistenceError reports that a cursor could not be durably written. The
// previously persisted value is left in place.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist cursor %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// record is the on-disk form. The key matches the tracker files written by
// earlier versions of the bot so existing state keeps working.
type record struct {
	LastUsedMessage *int      `json:"last_used_message"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// FileStore keeps the cursor in a small JSON file.
type FileStore struct {
	Path string

	now func() time.Time
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path, now: time.Now}
}

// Load reads the cursor. A missing, unreadable or malformed file yields the
// zero cursor.
func (s *FileStore) Load() Cursor {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Cursor{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Cursor{}
	}
	if rec.LastUsedMessage == nil || *rec.LastUsedMessage < 0 {
		return Cursor{}
	}
	return Cursor{LastUsedSequence: *rec.LastUsedMessage}
}

// Save writes the cursor atomically: the record goes to a temporary file in
// the same directory, is synced, then renamed over the target.
func (s *FileStore) Save(c Cursor) error {
	if c.LastUsedSequence < 0 {
		return &PersistenceError{Path: s.Path, Err: fmt.Errorf("negative sequence %d", c.LastUsedSequence)}
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Path: s.Path, Err: err}
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	seq := c.LastUsedSequence
	data, err := json.MarshalIndent(record{LastUsedMessage: &seq, UpdatedAt: now().UTC()}, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.Path, Err: err}
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Path: s.Path, Err: err}
	}
	tmpPath := tmp.Name()
	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.Path, Err: cause}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.Path, Err: err}
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.Path, Err: err}
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: s.Path, Err: err}
	}
	return nil
}

var _ Store = (*FileStore)(nil)
