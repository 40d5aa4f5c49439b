package catalog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// entryPattern matches the first line of a catalog entry: "12. text". Any
// digits followed by a dot count, so "1.5 overs left" opens entry 1.
var entryPattern = regexp.MustCompile(`^(\d+)\.\s*(.*)$`)

// Entry is a single numbered comment from the catalog.
type Entry struct {
	Sequence int    `json:"sequence"`
	Text     string `json:"text"`
	Line     int    `json:"line"`
}

// Catalog is a parsed snapshot of the comment catalog. Entries are sorted by
// sequence number regardless of their order in the source.
type Catalog struct {
	Entries []Entry `json:"entries"`
	Issues  Issues  `json:"issues,omitempty"`
}

// Load reads and parses the catalog file at path.
func Load(path string) (Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	cat, err := Parse(file)
	if err != nil {
		return Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseString parses catalog text held in memory.
func ParseString(raw string) (Catalog, error) {
	return Parse(strings.NewReader(raw))
}

// Parse reads catalog text from r. Blank lines are skipped; a line starting
// with "<digits>." opens a new entry and any other line continues the entry
// being built. When a sequence number repeats, the first occurrence is kept.
func Parse(r io.Reader) (Catalog, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		entries []Entry
		issues  Issues
		current *Entry
		lines   []string
		lineNo  int
		seen    = map[int]int{}
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.Join(lines, "\n")
		if firstLine, dup := seen[current.Sequence]; dup {
			issues = append(issues, Issue{
				Line:     current.Line,
				Sequence: current.Sequence,
				Message:  fmt.Sprintf("duplicates entry on line %d; ignored", firstLine),
			})
		} else {
			seen[current.Sequence] = current.Line
			entries = append(entries, *current)
		}
		current = nil
		lines = nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if match := entryPattern.FindStringSubmatch(line); match != nil {
			seq, err := strconv.Atoi(match[1])
			if err != nil || seq <= 0 {
				// Out-of-range numbers read as prose rather than entry markers.
				if current != nil {
					lines = append(lines, line)
				}
				continue
			}
			flush()
			current = &Entry{Sequence: seq, Line: lineNo}
			if first := strings.TrimSpace(match[2]); first != "" {
				lines = append(lines, first)
			}
			continue
		}

		if current == nil {
			issues = append(issues, Issue{Line: lineNo, Message: "text before first numbered entry; ignored"})
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	flush()

	if lineNo == 0 {
		return Catalog{}, fmt.Errorf("%w: source is empty", ErrMalformedCatalog)
	}
	if len(entries) == 0 {
		return Catalog{}, fmt.Errorf("%w: no numbered entries found", ErrMalformedCatalog)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Sequence < entries[j].Sequence
	})

	return Catalog{Entries: entries, Issues: issues}, nil
}

// Lookup returns the entry with the given sequence number.
func (c Catalog) Lookup(sequence int) (Entry, bool) {
	idx := sort.Search(len(c.Entries), func(i int) bool {
		return c.Entries[i].Sequence >= sequence
	})
	if idx < len(c.Entries) && c.Entries[idx].Sequence == sequence {
		return c.Entries[idx], true
	}
	return Entry{}, false
}

// Sequences returns the sorted sequence numbers present in the catalog.
func (c Catalog) Sequences() []int {
	out := make([]int, len(c.Entries))
	for i, entry := range c.Entries {
		out[i] = entry.Sequence
	}
	return out
}

// Len reports the number of entries.
func (c Catalog) Len() int {
	return len(c.Entries)
}
