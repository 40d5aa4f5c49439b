package cursor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsZero(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nonexistent.json"))
	if got := store.Load(); got != (Cursor{}) {
		t.Fatalf("expected zero cursor, got %+v", got)
	}
}

func TestLoadCorruptFileReturnsZero(t *testing.T) {
	cases := map[string]string{
		"invalid json":   "{invalid json",
		"wrong type":     `{"last_used_message": "three"}`,
		"negative":       `{"last_used_message": -4}`,
		"missing key":    `{"something_else": 7}`,
		"empty file":     "",
		"binary garbage": "\x00\xff\xfe",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tracker.json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if got := NewFileStore(path).Load(); got != (Cursor{}) {
				t.Fatalf("expected zero cursor, got %+v", got)
			}
		})
	}
}

func TestLoadLegacyTrackerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message_tracker.json")
	if err := os.WriteFile(path, []byte(`{"last_used_message": 12}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := NewFileStore(path).Load(); got.LastUsedSequence != 12 {
		t.Fatalf("expected 12, got %d", got.LastUsedSequence)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracker.json")
	store := NewFileStore(path)
	store.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) }

	for _, seq := range []int{0, 1, 42} {
		want := Cursor{LastUsedSequence: seq}
		if err := store.Save(want); err != nil {
			t.Fatalf("save %d: %v", seq, err)
		}
		if got := store.Load(); got != want {
			t.Fatalf("round trip: got %+v, want %+v", got, want)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"last_used_message": 42`) {
		t.Fatalf("expected human-readable record, got %s", data)
	}
	if !strings.Contains(string(data), "2026-05-01T09:30:00Z") {
		t.Fatalf("expected updated_at timestamp, got %s", data)
	}
}

func TestSaveAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	store := NewFileStore(path)

	if err := store.Save(Cursor{LastUsedSequence: 3}); err != nil {
		t.Fatalf("save error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "tracker.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only tracker.json, found %v", names)
	}
}

func TestSaveFailureKeepsPreviousValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tracker.json")
	store := NewFileStore(path)
	if err := store.Save(Cursor{LastUsedSequence: 5}); err != nil {
		t.Fatal(err)
	}

	// A directory squatting on the target makes the rename fail.
	blocked := NewFileStore(filepath.Join(dir, "blocked"))
	if err := os.MkdirAll(filepath.Join(dir, "blocked", "child"), 0o755); err != nil {
		t.Fatal(err)
	}
	err := blocked.Save(Cursor{LastUsedSequence: 6})
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Path != blocked.Path {
		t.Fatalf("error path: got %q", perr.Path)
	}

	if got := store.Load(); got.LastUsedSequence != 5 {
		t.Fatalf("previous cursor changed: %+v", got)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".blocked.*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestSaveRejectsNegative(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "tracker.json"))
	var perr *PersistenceError
	if err := store.Save(Cursor{LastUsedSequence: -1}); !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
}
