package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoDuration is returned when ffprobe reports no usable duration.
var ErrNoDuration = errors.New("media has no duration")

// Prober reads container metadata with ffprobe.
type Prober struct {
	Runner  Runner
	FFprobe string
	Log     io.Writer
}

// NewProber returns a Prober using the given binary, defaulting to "ffprobe".
func NewProber(runner Runner, ffprobePath string) *Prober {
	if runner == nil {
		runner = CmdRunner{}
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{Runner: runner, FFprobe: ffprobePath}
}

// Duration returns the container duration of the file at path.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_format",
		"-print_format", "json",
		path,
	}

	result, err := p.Runner.Run(ctx, p.FFprobe, args, RunOptions{Stderr: p.Log})
	if err != nil {
		msg := strings.TrimSpace(string(result.Stderr))
		if msg != "" {
			return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return ParseDuration(result.Stdout)
}

// ParseDuration extracts format.duration from ffprobe JSON output.
func ParseDuration(raw []byte) (time.Duration, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("ffprobe produced no output")
	}
	if !gjson.ValidBytes(raw) {
		return 0, fmt.Errorf("decode ffprobe output: invalid json")
	}
	value := gjson.GetBytes(raw, "format.duration")
	if !value.Exists() {
		return 0, ErrNoDuration
	}
	seconds := value.Float()
	if seconds <= 0 {
		return 0, ErrNoDuration
	}
	return SecondsToDuration(seconds), nil
}

// SecondsToDuration converts fractional seconds, rounding to the microsecond.
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds*1e6+0.5) * time.Microsecond
}
