package background

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// Source is a candidate background and its probed duration.
type Source struct {
	Path     string
	Duration time.Duration
}

// Track is a background clip fitted to a target duration. Offset is where
// playback starts in the source; Loops is how many times the source plays.
type Track struct {
	Source   Source
	Offset   time.Duration
	Loops    int
	Duration time.Duration
}

// Fit adapts src to exactly target. A longer source gets a random window
// inside [0, src-target]; a shorter one is looped ceil(target/src) times and
// cut to target. Equal durations are used as-is.
func Fit(src Source, target time.Duration, rng *rand.Rand) (Track, error) {
	if target <= 0 {
		return Track{}, fmt.Errorf("target duration must be positive, got %s", target)
	}
	if src.Duration <= 0 {
		return Track{}, fmt.Errorf("background %s has no duration", src.Path)
	}

	track := Track{Source: src, Loops: 1, Duration: target}
	switch {
	case src.Duration > target:
		slack := int64(src.Duration - target)
		track.Offset = time.Duration(rng.Int64N(slack + 1))
	case src.Duration < target:
		loops := int64(target) / int64(src.Duration)
		if int64(target)%int64(src.Duration) != 0 {
			loops++
		}
		track.Loops = int(loops)
	}
	return track, nil
}

// InputArgs renders the track as ffmpeg input options ending in -i.
func (t Track) InputArgs() []string {
	var args []string
	if t.Loops > 1 {
		args = append(args, "-stream_loop", strconv.Itoa(t.Loops-1))
	}
	if t.Offset > 0 {
		args = append(args, "-ss", seconds(t.Offset))
	}
	args = append(args, "-t", seconds(t.Duration), "-i", t.Source.Path)
	return args
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 6, 64)
}
