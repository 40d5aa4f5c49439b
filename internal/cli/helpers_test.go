package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
)

const testCatalog = "1. What a delivery!\n2. Straight down the ground for four\n3. Howzat! Plumb in front.\n"

// newTestProject writes a minimal project and returns its root.
func newTestProject(t *testing.T, exhaustion string, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "comments.txt"), []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, sub := range []string{"backgrounds", "reels"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.Catalog.Exhaustion = exhaustion
	cfg.Publish.PublicBaseURL = "https://cdn.example.com/reels/"
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "reelbot.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func setTestCursor(t *testing.T, dir string, n int) {
	t.Helper()
	if err := cursor.NewFileStore(filepath.Join(dir, "message_tracker.json")).Save(cursor.Cursor{LastUsedSequence: n}); err != nil {
		t.Fatal(err)
	}
}

func readTestCursor(dir string) int {
	return cursor.NewFileStore(filepath.Join(dir, "message_tracker.json")).Load().LastUsedSequence
}

// execute runs the root command with args. A fresh root resets every
// package-level flag to its default.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
