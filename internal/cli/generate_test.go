package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestGenerateDryRunDoesNotAdvanceCursor(t *testing.T) {
	dir := newTestProject(t, "halt", nil)
	setTestCursor(t, dir, 1)

	stdout, _, err := execute(t, "generate", "--dry-run", "--project", dir, "--json")
	if err != nil {
		t.Fatalf("generate --dry-run: %v", err)
	}

	var payload generateJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if payload.Status != "planned" || payload.Sequence != 2 || !payload.Estimated {
		t.Fatalf("unexpected payload %+v", payload)
	}
	// "Straight down the ground for four" is 6 words: two phrases of three.
	if len(payload.Captions) != 2 {
		t.Fatalf("expected 2 caption phrases, got %+v", payload.Captions)
	}
	if last := payload.Captions[len(payload.Captions)-1]; last.End != 2400*time.Millisecond {
		t.Fatalf("captions end at %s, want 2.4s", last.End)
	}
	if !strings.HasSuffix(payload.Output, "reel_2.mp4") {
		t.Fatalf("unexpected output path %q", payload.Output)
	}
	if got := readTestCursor(dir); got != 1 {
		t.Fatalf("dry run moved cursor to %d", got)
	}
}

func TestGenerateDryRunTextOutput(t *testing.T) {
	dir := newTestProject(t, "halt", nil)

	stdout, _, err := execute(t, "generate", "--dry-run", "--project", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"entry #1", "What a delivery!", "captions:", "cursor stays at 0"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestGenerateReportsExhaustion(t *testing.T) {
	dir := newTestProject(t, "halt", nil)
	setTestCursor(t, dir, 3)

	stdout, stderr, err := execute(t, "generate", "--dry-run", "--project", dir)
	if err != nil {
		t.Fatalf("exhaustion should not be an error: %v", err)
	}
	if stdout != "" || !strings.Contains(stderr, "catalog exhausted") {
		t.Fatalf("stdout=%q stderr=%q", stdout, stderr)
	}
	if got := readTestCursor(dir); got != 3 {
		t.Fatalf("cursor changed to %d", got)
	}
}

func TestGenerateRequiresExhaustionPolicy(t *testing.T) {
	dir := newTestProject(t, "", nil)

	_, _, err := execute(t, "generate", "--dry-run", "--project", dir)
	if err == nil || !strings.Contains(err.Error(), "exhaustion") {
		t.Fatalf("expected exhaustion policy error, got %v", err)
	}
}
