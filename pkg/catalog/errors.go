package catalog

import (
	"errors"
	"strconv"
	"strings"
)

// ErrMalformedCatalog is returned when the catalog source is empty or contains
// no line following the numbering convention.
var ErrMalformedCatalog = errors.New("malformed catalog")

// Issue captures a non-fatal problem found while parsing a catalog.
type Issue struct {
	Line     int
	Sequence int
	Message  string
}

func (i Issue) String() string {
	parts := []string{formatLine(i.Line)}
	if i.Sequence > 0 {
		parts = append(parts, "entry "+strconv.Itoa(i.Sequence))
	}
	parts = append(parts, i.Message)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Issues aggregates parse findings.
type Issues []Issue

func (issues Issues) String() string {
	if len(issues) == 0 {
		return ""
	}
	messages := make([]string, len(issues))
	for i, issue := range issues {
		messages[i] = issue.String()
	}
	return strings.Join(messages, "; ")
}

func formatLine(line int) string {
	if line <= 0 {
		return "line"
	}
	return "line " + strconv.Itoa(line)
}
