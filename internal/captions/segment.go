package captions

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyNarration is returned when the narration text contains no words.
var ErrEmptyNarration = errors.New("narration text has no words")

// Interval is the window during which one phrase is on screen.
type Interval struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Duration returns the length of the interval.
func (iv Interval) Duration() time.Duration {
	return iv.End - iv.Start
}

// Phrases splits text on whitespace and groups the words wordsPerPhrase at a
// time. The last phrase may be shorter.
func Phrases(text string, wordsPerPhrase int) []string {
	if wordsPerPhrase < 1 {
		return nil
	}
	words := strings.Fields(text)
	phrases := make([]string, 0, (len(words)+wordsPerPhrase-1)/wordsPerPhrase)
	for i := 0; i < len(words); i += wordsPerPhrase {
		end := i + wordsPerPhrase
		if end > len(words) {
			end = len(words)
		}
		phrases = append(phrases, strings.Join(words[i:end], " "))
	}
	return phrases
}

// Segment divides total evenly across the phrases of text. Phrase i of n
// starts at total*i/n; the final interval ends exactly at total, so the
// intervals cover [0, total] with no gaps or overlaps.
func Segment(text string, wordsPerPhrase int, total time.Duration) ([]Interval, error) {
	if wordsPerPhrase < 1 {
		return nil, fmt.Errorf("words per phrase must be positive, got %d", wordsPerPhrase)
	}
	if total <= 0 {
		return nil, fmt.Errorf("narration duration must be positive, got %s", total)
	}

	phrases := Phrases(text, wordsPerPhrase)
	n := int64(len(phrases))
	if n == 0 {
		return nil, ErrEmptyNarration
	}

	intervals := make([]Interval, len(phrases))
	for i, phrase := range phrases {
		start := boundary(total, int64(i), n)
		end := boundary(total, int64(i)+1, n)
		intervals[i] = Interval{Start: start, End: end, Text: phrase}
	}
	intervals[len(intervals)-1].End = total
	return intervals, nil
}

// boundary computes total*i/n without overflowing for long narrations.
func boundary(total time.Duration, i, n int64) time.Duration {
	t := int64(total)
	return time.Duration((t/n)*i + (t%n)*i/n)
}
