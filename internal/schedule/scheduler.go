package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

// Policy decides what happens once every catalog entry has been used.
type Policy string

const (
	// PolicyHalt reports exhaustion and leaves the cursor alone.
	PolicyHalt Policy = "halt"
	// PolicyWrap restarts from the lowest sequence number.
	PolicyWrap Policy = "wrap"
)

var (
	// ErrPolicyUnset is returned when no exhaustion policy was configured.
	ErrPolicyUnset = errors.New("exhaustion policy not set (expected halt or wrap)")
	// ErrEmptyCatalog is returned when there is nothing to select from.
	ErrEmptyCatalog = errors.New("catalog has no entries")
	// ErrNotSelected is returned when committing a selection that holds no entry.
	ErrNotSelected = errors.New("selection holds no entry to commit")
	// ErrCursorMoved is returned when the persisted cursor changed between
	// selection and commit.
	ErrCursorMoved = errors.New("cursor changed since selection")
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyHalt:
		return PolicyHalt, nil
	case PolicyWrap:
		return PolicyWrap, nil
	case "":
		return "", ErrPolicyUnset
	default:
		return "", fmt.Errorf("unknown exhaustion policy %q (expected halt or wrap)", value)
	}
}

// Outcome tags a Selection.
type Outcome int

const (
	// Exhausted means no entry is left under the halt policy.
	Exhausted Outcome = iota
	// Selected means Entry is the next comment to use.
	Selected
)

func (o Outcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Selection is a pending scheduling decision. Nothing is persisted until the
// caller passes it to Commit.
type Selection struct {
	Outcome  Outcome
	Entry    catalog.Entry
	Previous cursor.Cursor
	Next     cursor.Cursor
	// Wrapped is set when the wrap policy restarted the cycle.
	Wrapped bool
}

// IsSelected reports whether the selection carries an entry.
func (s Selection) IsSelected() bool {
	return s.Outcome == Selected
}

// SelectNext picks the first entry whose sequence number is strictly greater
// than the cursor. It has no side effects, so repeated calls with the same
// inputs return the same selection.
func SelectNext(cat catalog.Catalog, cur cursor.Cursor, policy Policy) (Selection, error) {
	if policy != PolicyHalt && policy != PolicyWrap {
		if _, err := ParsePolicy(string(policy)); err != nil {
			return Selection{}, err
		}
	}
	if len(cat.Entries) == 0 {
		return Selection{}, ErrEmptyCatalog
	}

	for _, entry := range cat.Entries {
		if entry.Sequence > cur.LastUsedSequence {
			return Selection{
				Outcome:  Selected,
				Entry:    entry,
				Previous: cur,
				Next:     cursor.Cursor{LastUsedSequence: entry.Sequence},
			}, nil
		}
	}

	if policy == PolicyWrap {
		first := cat.Entries[0]
		return Selection{
			Outcome:  Selected,
			Entry:    first,
			Previous: cur,
			Next:     cursor.Cursor{LastUsedSequence: first.Sequence},
			Wrapped:  true,
		}, nil
	}

	return Selection{Outcome: Exhausted, Previous: cur, Next: cur}, nil
}

// Commit persists the selection's cursor. It refuses when the stored cursor no
// longer matches the one the selection was made from.
func Commit(store cursor.Store, sel Selection) error {
	if !sel.IsSelected() {
		return ErrNotSelected
	}
	if current := store.Load(); current != sel.Previous {
		return fmt.Errorf("%w: selected from %d, store now at %d",
			ErrCursorMoved, sel.Previous.LastUsedSequence, current.LastUsedSequence)
	}
	return store.Save(sel.Next)
}

// Remaining counts entries not yet consumed in the current pass.
func Remaining(cat catalog.Catalog, cur cursor.Cursor) int {
	count := 0
	for _, entry := range cat.Entries {
		if entry.Sequence > cur.LastUsedSequence {
			count++
		}
	}
	return count
}
