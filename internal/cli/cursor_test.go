package cli

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCursorSetShowReset(t *testing.T) {
	dir := newTestProject(t, "halt", nil)

	if _, _, err := execute(t, "cursor", "set", "2", "--project", dir); err != nil {
		t.Fatalf("cursor set: %v", err)
	}
	if got := readTestCursor(dir); got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}

	stdout, _, err := execute(t, "cursor", "show", "--project", dir, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var payload cursorJSON
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout)
	}
	if payload.Cursor != 2 || payload.Next != 3 || payload.Remaining != 1 || payload.Total != 3 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	stdout, _, err = execute(t, "cursor", "reset", "--project", dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := readTestCursor(dir); got != 0 {
		t.Fatalf("cursor after reset = %d", got)
	}
	if !strings.Contains(stdout, "next entry: #1") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestCursorSetRejectsInvalid(t *testing.T) {
	dir := newTestProject(t, "halt", nil)
	setTestCursor(t, dir, 1)

	for _, arg := range []string{"-1", "abc"} {
		if _, _, err := execute(t, "cursor", "set", arg, "--project", dir); err == nil {
			t.Fatalf("expected error for %q", arg)
		}
	}
	if got := readTestCursor(dir); got != 1 {
		t.Fatalf("cursor changed to %d", got)
	}
}

func TestCursorShowAllUsed(t *testing.T) {
	dir := newTestProject(t, "halt", nil)
	setTestCursor(t, dir, 3)

	stdout, _, err := execute(t, "cursor", "show", "--project", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "all 3 entries used") {
		t.Fatalf("unexpected output %q", stdout)
	}
}
