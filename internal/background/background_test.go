package background

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestListFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.MP4", "a.mov", "notes.txt", "c.avi", "d.mkv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.mp4"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := List(dir, nil)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.mov"),
		filepath.Join(dir, "b.MP4"),
		filepath.Join(dir, "c.avi"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("List = %v, want %v", got, want)
	}

	got, err = List(dir, []string{"mkv"})
	if err != nil {
		t.Fatalf("List with custom extension: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "d.mkv" {
		t.Fatalf("unexpected custom list %v", got)
	}
}

func TestListEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := List(dir, nil); !errors.Is(err, ErrNoBackgroundAvailable) {
		t.Fatalf("expected ErrNoBackgroundAvailable, got %v", err)
	}
	if _, err := List(filepath.Join(dir, "missing"), nil); !errors.Is(err, ErrNoBackgroundAvailable) {
		t.Fatalf("expected ErrNoBackgroundAvailable for missing dir, got %v", err)
	}
	if _, err := Pick(nil, NewRand(1)); !errors.Is(err, ErrNoBackgroundAvailable) {
		t.Fatalf("expected ErrNoBackgroundAvailable from Pick, got %v", err)
	}
}

func TestPickDeterministic(t *testing.T) {
	paths := []string{"a.mp4", "b.mp4", "c.mp4", "d.mp4"}
	first, _ := Pick(paths, NewRand(42))
	second, _ := Pick(paths, NewRand(42))
	if first != second {
		t.Fatalf("same seed picked %q and %q", first, second)
	}
}

func TestFitLongerSourceUsesWindow(t *testing.T) {
	src := Source{Path: "bg.mp4", Duration: 40 * time.Second}
	rng := NewRand(7)
	for i := 0; i < 200; i++ {
		track, err := Fit(src, 10*time.Second, rng)
		if err != nil {
			t.Fatalf("Fit returned error: %v", err)
		}
		if track.Duration != 10*time.Second {
			t.Fatalf("duration %s, want 10s", track.Duration)
		}
		if track.Loops != 1 {
			t.Fatalf("loops %d, want 1", track.Loops)
		}
		if track.Offset < 0 || track.Offset > 30*time.Second {
			t.Fatalf("offset %s outside [0, 30s]", track.Offset)
		}
	}
}

func TestFitShorterSourceLoops(t *testing.T) {
	track, err := Fit(Source{Path: "bg.mp4", Duration: 4 * time.Second}, 10*time.Second, NewRand(1))
	if err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}
	if track.Loops != 3 || track.Offset != 0 || track.Duration != 10*time.Second {
		t.Fatalf("unexpected track %+v", track)
	}

	track, err = Fit(Source{Path: "bg.mp4", Duration: 5 * time.Second}, 10*time.Second, NewRand(1))
	if err != nil {
		t.Fatal(err)
	}
	if track.Loops != 2 {
		t.Fatalf("exact multiple loops %d, want 2", track.Loops)
	}
}

func TestFitEqualAndInvalid(t *testing.T) {
	src := Source{Path: "bg.mp4", Duration: 10 * time.Second}
	track, err := Fit(src, 10*time.Second, NewRand(1))
	if err != nil {
		t.Fatal(err)
	}
	if track.Offset != 0 || track.Loops != 1 || track.Duration != src.Duration {
		t.Fatalf("equal duration should be unmodified, got %+v", track)
	}
	if _, err := Fit(src, 0, NewRand(1)); err == nil {
		t.Fatal("expected error for zero target")
	}
	if _, err := Fit(Source{Path: "bg.mp4"}, time.Second, NewRand(1)); err == nil {
		t.Fatal("expected error for zero-length source")
	}
}

func TestFitDeterministicWithSeed(t *testing.T) {
	src := Source{Path: "bg.mp4", Duration: 90 * time.Second}
	a, _ := Fit(src, 12*time.Second, NewRand(99))
	b, _ := Fit(src, 12*time.Second, NewRand(99))
	if a != b {
		t.Fatalf("same seed produced %+v and %+v", a, b)
	}
}

func TestFitOffsetIsUniform(t *testing.T) {
	src := Source{Path: "bg.mp4", Duration: 40 * time.Second}
	rng := NewRand(11)
	const draws = 20000
	var buckets [10]int
	for i := 0; i < draws; i++ {
		track, err := Fit(src, 10*time.Second, rng)
		if err != nil {
			t.Fatal(err)
		}
		b := int(track.Offset / (3 * time.Second))
		if b == len(buckets) {
			b--
		}
		buckets[b]++
	}
	// Each 3s slice of [0, 30s] expects a tenth of the draws.
	for i, n := range buckets {
		if n < draws/10*85/100 || n > draws/10*115/100 {
			t.Fatalf("bucket %d holds %d of %d draws: %v", i, n, draws, buckets)
		}
	}
}

func TestTrackInputArgs(t *testing.T) {
	cases := []struct {
		name  string
		track Track
		want  []string
	}{
		{
			name:  "window",
			track: Track{Source: Source{Path: "bg.mp4"}, Offset: 1500 * time.Millisecond, Loops: 1, Duration: 10 * time.Second},
			want:  []string{"-ss", "1.500000", "-t", "10.000000", "-i", "bg.mp4"},
		},
		{
			name:  "loop",
			track: Track{Source: Source{Path: "bg.mp4"}, Loops: 3, Duration: 10 * time.Second},
			want:  []string{"-stream_loop", "2", "-t", "10.000000", "-i", "bg.mp4"},
		},
		{
			name:  "exact",
			track: Track{Source: Source{Path: "bg.mp4"}, Loops: 1, Duration: 10 * time.Second},
			want:  []string{"-t", "10.000000", "-i", "bg.mp4"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.track.InputArgs(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("InputArgs = %v, want %v", got, tc.want)
			}
		})
	}
}
