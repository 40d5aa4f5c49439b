package captions

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestSegmentScenario(t *testing.T) {
	got, err := Segment("a b c d e", 3, 10*time.Second)
	if err != nil {
		t.Fatalf("Segment returned error: %v", err)
	}
	want := []Interval{
		{Start: 0, End: 5 * time.Second, Text: "a b c"},
		{Start: 5 * time.Second, End: 10 * time.Second, Text: "d e"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment = %+v, want %+v", got, want)
	}
}

func TestPhrasesKeepsPunctuationAndShortTail(t *testing.T) {
	got := Phrases("What a shot!  Straight\tdown the\nground, sir.", 3)
	want := []string{"What a shot!", "Straight down the", "ground, sir."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Phrases = %q, want %q", got, want)
	}
}

func TestSegmentProperties(t *testing.T) {
	texts := []string{
		"one",
		"one two",
		"the quick brown fox jumps over the lazy dog",
		strings.Repeat("word ", 97),
		"multi\nline\n\ncatalog entry with   odd   spacing",
	}
	totals := []time.Duration{
		time.Millisecond,
		1 * time.Second,
		7 * time.Second,
		12345678901 * time.Nanosecond,
		3 * time.Minute,
	}

	for _, text := range texts {
		for wpp := 1; wpp <= 5; wpp++ {
			for _, total := range totals {
				intervals, err := Segment(text, wpp, total)
				if err != nil {
					t.Fatalf("Segment(%q, %d, %s): %v", text, wpp, total, err)
				}

				if intervals[0].Start != 0 {
					t.Fatalf("first interval starts at %s", intervals[0].Start)
				}
				if last := intervals[len(intervals)-1]; last.End != total {
					t.Fatalf("last interval ends at %s, want %s", last.End, total)
				}
				for i := 1; i < len(intervals); i++ {
					if intervals[i].Start != intervals[i-1].End {
						t.Fatalf("gap or overlap between %d and %d: %+v", i-1, i, intervals)
					}
				}
				for i, iv := range intervals {
					if iv.End < iv.Start {
						t.Fatalf("interval %d is inverted: %+v", i, iv)
					}
				}

				var words []string
				for _, iv := range intervals {
					phraseWords := strings.Fields(iv.Text)
					if len(phraseWords) == 0 || len(phraseWords) > wpp {
						t.Fatalf("phrase %q has %d words (limit %d)", iv.Text, len(phraseWords), wpp)
					}
					words = append(words, phraseWords...)
				}
				if !reflect.DeepEqual(words, strings.Fields(text)) {
					t.Fatalf("words do not round trip for %q", text)
				}
			}
		}
	}
}

func TestSegmentEqualWidths(t *testing.T) {
	intervals, err := Segment("a b c d", 1, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	for _, iv := range intervals {
		if iv.Duration() != 2500*time.Millisecond {
			t.Fatalf("expected 2.5s slices, got %+v", intervals)
		}
	}
}

func TestSegmentErrors(t *testing.T) {
	if _, err := Segment("   \n\t ", 3, time.Second); !errors.Is(err, ErrEmptyNarration) {
		t.Fatalf("expected ErrEmptyNarration, got %v", err)
	}
	if _, err := Segment("", 3, time.Second); !errors.Is(err, ErrEmptyNarration) {
		t.Fatalf("expected ErrEmptyNarration for empty text, got %v", err)
	}
	if _, err := Segment("a b", 0, time.Second); err == nil {
		t.Fatal("expected error for zero words per phrase")
	}
	if _, err := Segment("a b", 2, 0); err == nil {
		t.Fatal("expected error for zero duration")
	}
}
