// Package pipeline generates one reel per run: it selects the next catalog
// entry, narrates it, lays captions over a fitted background and only then
// advances the cursor.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aaravmody/insta-cricket-bot/internal/background"
	"github.com/aaravmody/insta-cricket-bot/internal/captions"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/logx"
	"github.com/aaravmody/insta-cricket-bot/internal/narration"
	"github.com/aaravmody/insta-cricket-bot/internal/render"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

// DurationProber reports the length of a media file.
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// CaptionRenderer draws one phrase into an image file.
type CaptionRenderer interface {
	RenderPNG(text, path string) (captions.Rendered, error)
}

// Composer renders a job into its output file.
type Composer interface {
	Compose(ctx context.Context, job render.Job) (render.Result, error)
}

// Reporter receives stage transitions. Implementations must be safe to call
// from the goroutine running the generator.
type Reporter interface {
	StageStarted(stage Stage, detail string)
	StageFinished(stage Stage, detail string, err error)
}

// Options holds the run settings taken from configuration.
type Options struct {
	Policy         schedule.Policy
	WordsPerPhrase int
	BackgroundsDir string
	BackgroundExts []string
	// WorkDir is the parent of the per-run scratch directories.
	WorkDir string
	// OutputPath maps a sequence number to the render destination.
	OutputPath func(sequence int) string
	KeepWork   bool
}

// Generator wires the collaborators of a run.
type Generator struct {
	Store    cursor.Store
	Narrator narration.Synthesizer
	Prober   DurationProber
	Captions CaptionRenderer
	Composer Composer
	Rand     *rand.Rand
	Logger   logx.Logger
	Reporter Reporter
	Options  Options
}

// RenderJob is the state accumulated for one reel. It lives for one run.
type RenderJob struct {
	ID            string
	Selection     schedule.Selection
	WorkDir       string
	NarrationPath string
	Duration      time.Duration
	Intervals     []captions.Interval
	Captions      []render.Caption
	Background    background.Track
	OutputPath    string
}

// Result describes a finished run.
type Result struct {
	Exhausted bool
	DryRun    bool
	Estimated bool
	Selection schedule.Selection
	Job       RenderJob
	Render    render.Result
	Remaining int
}

// Run generates the next reel. Exhaustion under the halt policy is reported
// through Result.Exhausted, not as an error. The cursor only advances after
// the render is in place.
func (g *Generator) Run(ctx context.Context, cat catalog.Catalog) (result Result, err error) {
	if err := g.check(); err != nil {
		return Result{}, err
	}

	sel, err := g.selectEntry(cat)
	if err != nil {
		return Result{}, err
	}
	result.Selection = sel
	if !sel.IsSelected() {
		result.Exhausted = true
		g.logf("catalog exhausted at cursor %d", sel.Previous.LastUsedSequence)
		return result, nil
	}
	seq := sel.Entry.Sequence

	job := RenderJob{
		ID:         uuid.NewString(),
		Selection:  sel,
		OutputPath: g.Options.OutputPath(seq),
	}
	job.WorkDir = filepath.Join(g.Options.WorkDir, job.ID)
	if err := os.MkdirAll(job.WorkDir, 0o755); err != nil {
		return result, &StageError{Stage: StageNarrate, Sequence: seq, Err: fmt.Errorf("create work dir: %w", err)}
	}
	if !g.Options.KeepWork {
		defer func() {
			if rmErr := os.RemoveAll(job.WorkDir); rmErr != nil {
				g.logf("reel #%d: remove work dir %s: %v", seq, job.WorkDir, rmErr)
			}
		}()
	}
	g.logf("reel #%d selected (previous cursor %d, wrapped=%t, work=%s)", seq, sel.Previous.LastUsedSequence, sel.Wrapped, job.WorkDir)

	steps := []struct {
		stage Stage
		run   func(context.Context, *RenderJob) (string, error)
	}{
		{StageNarrate, g.narrate},
		{StageSegment, g.segment},
		{StageCaptions, g.renderCaptions},
		{StageBackground, g.fitBackground},
		{StageCompose, func(ctx context.Context, job *RenderJob) (string, error) {
			res, err := g.Composer.Compose(ctx, render.Job{
				Sequence:   seq,
				Background: job.Background,
				AudioPath:  job.NarrationPath,
				Captions:   job.Captions,
				Duration:   job.Duration,
				OutputPath: job.OutputPath,
			})
			result.Render = res
			if err != nil {
				return "", err
			}
			return filepath.Base(res.OutputPath), nil
		}},
		{StageCommit, func(ctx context.Context, job *RenderJob) (string, error) {
			if err := schedule.Commit(g.Store, job.Selection); err != nil {
				return "", err
			}
			return fmt.Sprintf("cursor %d", job.Selection.Next.LastUsedSequence), nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, &StageError{Stage: step.stage, Sequence: seq, Err: err}
		}
		g.started(step.stage, "")
		detail, stepErr := step.run(ctx, &job)
		g.finished(step.stage, detail, stepErr)
		if stepErr != nil {
			g.logf("reel #%d %s failed: %v", seq, step.stage, stepErr)
			result.Job = job
			return result, &StageError{Stage: step.stage, Sequence: seq, Err: stepErr}
		}
		g.logf("reel #%d %s: %s", seq, step.stage, detail)
	}

	result.Job = job
	result.Remaining = schedule.Remaining(cat, job.Selection.Next)
	return result, nil
}

// Plan performs selection and an estimated caption timeline without
// synthesizing audio, rendering or touching the cursor.
func (g *Generator) Plan(cat catalog.Catalog) (Result, error) {
	if g.Store == nil {
		return Result{}, errors.New("pipeline: cursor store is required")
	}
	sel, err := g.selectEntry(cat)
	if err != nil {
		return Result{}, err
	}
	result := Result{DryRun: true, Estimated: true, Selection: sel}
	if !sel.IsSelected() {
		result.Exhausted = true
		return result, nil
	}

	seq := sel.Entry.Sequence
	duration := EstimateDuration(sel.Entry.Text)
	intervals, err := captions.Segment(sel.Entry.Text, g.wordsPerPhrase(), duration)
	if err != nil {
		return result, &StageError{Stage: StageSegment, Sequence: seq, Err: err}
	}
	result.Job = RenderJob{
		Selection: sel,
		Duration:  duration,
		Intervals: intervals,
	}
	if g.Options.OutputPath != nil {
		result.Job.OutputPath = g.Options.OutputPath(seq)
	}
	result.Remaining = schedule.Remaining(cat, sel.Next)
	return result, nil
}

// EstimateDuration guesses narration length at 150 words per minute.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(words) * 400 * time.Millisecond
	if d < time.Second {
		d = time.Second
	}
	return d
}

func (g *Generator) selectEntry(cat catalog.Catalog) (schedule.Selection, error) {
	g.started(StageSelect, "")
	cur := g.Store.Load()
	sel, err := schedule.SelectNext(cat, cur, g.Options.Policy)
	if err != nil {
		g.finished(StageSelect, "", err)
		return schedule.Selection{}, &StageError{Stage: StageSelect, Err: err}
	}
	if !sel.IsSelected() {
		g.finished(StageSelect, "exhausted", nil)
		return sel, nil
	}
	// Fail before any synthesis when there is nothing to say.
	if len(strings.Fields(sel.Entry.Text)) == 0 {
		err := captions.ErrEmptyNarration
		g.finished(StageSelect, "", err)
		return sel, &StageError{Stage: StageSelect, Sequence: sel.Entry.Sequence, Err: err}
	}
	g.finished(StageSelect, fmt.Sprintf("#%d", sel.Entry.Sequence), nil)
	return sel, nil
}

func (g *Generator) narrate(ctx context.Context, job *RenderJob) (string, error) {
	job.NarrationPath = filepath.Join(job.WorkDir, "narration.mp3")
	if err := g.Narrator.Synthesize(ctx, job.Selection.Entry.Text, job.NarrationPath); err != nil {
		return "", err
	}
	duration, err := g.Prober.Duration(ctx, job.NarrationPath)
	if err != nil {
		return "", fmt.Errorf("probe narration: %w", err)
	}
	job.Duration = duration
	return duration.Round(time.Millisecond).String(), nil
}

func (g *Generator) segment(_ context.Context, job *RenderJob) (string, error) {
	intervals, err := captions.Segment(job.Selection.Entry.Text, g.wordsPerPhrase(), job.Duration)
	if err != nil {
		return "", err
	}
	job.Intervals = intervals
	return fmt.Sprintf("%d phrases", len(intervals)), nil
}

func (g *Generator) renderCaptions(ctx context.Context, job *RenderJob) (string, error) {
	job.Captions = make([]render.Caption, 0, len(job.Intervals))
	fallback := false
	for i, iv := range job.Intervals {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path := filepath.Join(job.WorkDir, fmt.Sprintf("caption_%03d.png", i))
		rendered, err := g.Captions.RenderPNG(iv.Text, path)
		if err != nil {
			return "", fmt.Errorf("caption %d %q: %w", i, iv.Text, err)
		}
		fallback = fallback || rendered.Fallback
		job.Captions = append(job.Captions, render.Caption{Interval: iv, ImagePath: rendered.Path})
	}
	detail := fmt.Sprintf("%d images", len(job.Captions))
	if fallback {
		detail += " (default font)"
	}
	return detail, nil
}

func (g *Generator) fitBackground(ctx context.Context, job *RenderJob) (string, error) {
	pool, err := background.List(g.Options.BackgroundsDir, g.Options.BackgroundExts)
	if err != nil {
		return "", err
	}
	path, err := background.Pick(pool, g.Rand)
	if err != nil {
		return "", err
	}
	srcDuration, err := g.Prober.Duration(ctx, path)
	if err != nil {
		return "", fmt.Errorf("probe background: %w", err)
	}
	track, err := background.Fit(background.Source{Path: path, Duration: srcDuration}, job.Duration, g.Rand)
	if err != nil {
		return "", err
	}
	job.Background = track
	if track.Loops > 1 {
		return fmt.Sprintf("%s looped x%d", filepath.Base(path), track.Loops), nil
	}
	return fmt.Sprintf("%s from %s", filepath.Base(path), track.Offset.Round(time.Millisecond)), nil
}

func (g *Generator) check() error {
	switch {
	case g.Store == nil:
		return errors.New("pipeline: cursor store is required")
	case g.Narrator == nil:
		return errors.New("pipeline: narrator is required")
	case g.Prober == nil:
		return errors.New("pipeline: duration prober is required")
	case g.Captions == nil:
		return errors.New("pipeline: caption renderer is required")
	case g.Composer == nil:
		return errors.New("pipeline: composer is required")
	case g.Options.OutputPath == nil:
		return errors.New("pipeline: output path mapping is required")
	case strings.TrimSpace(g.Options.WorkDir) == "":
		return errors.New("pipeline: work directory is required")
	}
	if g.Rand == nil {
		g.Rand = background.NewRand(0)
	}
	return nil
}

func (g *Generator) wordsPerPhrase() int {
	if g.Options.WordsPerPhrase < 1 {
		return 3
	}
	return g.Options.WordsPerPhrase
}

func (g *Generator) logf(format string, args ...any) {
	if g.Logger != nil {
		g.Logger.Printf(format, args...)
	}
}

func (g *Generator) started(stage Stage, detail string) {
	if g.Reporter != nil {
		g.Reporter.StageStarted(stage, detail)
	}
}

func (g *Generator) finished(stage Stage, detail string, err error) {
	if g.Reporter != nil {
		g.Reporter.StageFinished(stage, detail, err)
	}
}
