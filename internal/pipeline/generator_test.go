package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/background"
	"github.com/aaravmody/insta-cricket-bot/internal/captions"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/render"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

type memoryStore struct {
	mu      sync.Mutex
	cur     cursor.Cursor
	saveErr error
	saves   int
}

func (s *memoryStore) Load() cursor.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *memoryStore) Save(c cursor.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return &cursor.PersistenceError{Path: "memory", Err: s.saveErr}
	}
	s.saves++
	s.cur = c
	return nil
}

type fakeNarrator struct {
	texts []string
	err   error
}

func (f *fakeNarrator) Synthesize(ctx context.Context, text, outPath string) error {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("mp3"), 0o644)
}

type fakeProber struct {
	durations map[string]time.Duration
}

func (f fakeProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	if d, ok := f.durations[filepath.Base(path)]; ok {
		return d, nil
	}
	return 0, errors.New("unknown media " + path)
}

type fakeCaptions struct{}

func (fakeCaptions) RenderPNG(text, path string) (captions.Rendered, error) {
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return captions.Rendered{}, err
	}
	return captions.Rendered{Path: path, FontSize: 80}, nil
}

type fakeComposer struct {
	jobs []render.Job
	err  error
	seen []string
}

func (f *fakeComposer) Compose(ctx context.Context, job render.Job) (render.Result, error) {
	f.jobs = append(f.jobs, job)
	for _, c := range job.Captions {
		if _, err := os.Stat(c.ImagePath); err == nil {
			f.seen = append(f.seen, c.ImagePath)
		}
	}
	if f.err != nil {
		return render.Result{}, f.err
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		return render.Result{}, err
	}
	return render.Result{Sequence: job.Sequence, OutputPath: job.OutputPath}, os.WriteFile(job.OutputPath, []byte("mp4"), 0o644)
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) StageStarted(stage Stage, detail string) {
	r.events = append(r.events, "start:"+string(stage))
}

func (r *recordingReporter) StageFinished(stage Stage, detail string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.events = append(r.events, string(stage)+":"+status)
}

type fixture struct {
	gen      *Generator
	store    *memoryStore
	narrator *fakeNarrator
	composer *fakeComposer
	reporter *recordingReporter
	root     string
}

func newFixture(t *testing.T, policy schedule.Policy) *fixture {
	t.Helper()
	root := t.TempDir()
	bgDir := filepath.Join(root, "backgrounds")
	if err := os.MkdirAll(bgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bgDir, "nets.mp4"), []byte("bg"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:    &memoryStore{},
		narrator: &fakeNarrator{},
		composer: &fakeComposer{},
		reporter: &recordingReporter{},
		root:     root,
	}
	f.gen = &Generator{
		Store:    f.store,
		Narrator: f.narrator,
		Prober: fakeProber{durations: map[string]time.Duration{
			"narration.mp3": 10 * time.Second,
			"nets.mp4":      40 * time.Second,
		}},
		Captions: fakeCaptions{},
		Composer: f.composer,
		Rand:     background.NewRand(1),
		Reporter: f.reporter,
		Options: Options{
			Policy:         policy,
			WordsPerPhrase: 3,
			BackgroundsDir: bgDir,
			WorkDir:        filepath.Join(root, ".reelbot", "work"),
			OutputPath: func(seq int) string {
				return filepath.Join(root, "reels", "reel_"+strconv.Itoa(seq)+".mp4")
			},
		},
	}
	return f
}

func mustCatalog(t *testing.T, raw string) catalog.Catalog {
	t.Helper()
	cat, err := catalog.ParseString(raw)
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func TestRunGeneratesAndCommits(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	f.store.cur = cursor.Cursor{LastUsedSequence: 1}
	cat := mustCatalog(t, "1. Howzat!\n2. a b c d e\n3. Six!\n")

	res, err := f.gen.Run(context.Background(), cat)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Exhausted {
		t.Fatal("unexpected exhaustion")
	}
	if res.Selection.Entry.Sequence != 2 {
		t.Fatalf("selected #%d, want #2", res.Selection.Entry.Sequence)
	}
	if got := f.store.Load().LastUsedSequence; got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}
	if res.Remaining != 1 {
		t.Fatalf("remaining = %d, want 1", res.Remaining)
	}

	if len(f.composer.jobs) != 1 {
		t.Fatalf("expected one compose call, got %d", len(f.composer.jobs))
	}
	job := f.composer.jobs[0]
	if job.Duration != 10*time.Second || job.Background.Duration != 10*time.Second {
		t.Fatalf("durations not aligned: job=%s bg=%s", job.Duration, job.Background.Duration)
	}
	if len(job.Captions) != 2 || job.Captions[0].Text != "a b c" || job.Captions[1].Start != 5*time.Second {
		t.Fatalf("unexpected captions %+v", job.Captions)
	}
	if len(f.composer.seen) != 2 {
		t.Fatalf("caption images should exist during compose, saw %v", f.composer.seen)
	}
	if filepath.Base(job.OutputPath) != "reel_2.mp4" {
		t.Fatalf("unexpected output path %s", job.OutputPath)
	}

	entries, _ := os.ReadDir(f.gen.Options.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned up: %v", entries)
	}

	want := []string{
		"start:select", "select:ok",
		"start:narrate", "narrate:ok",
		"start:segment", "segment:ok",
		"start:captions", "captions:ok",
		"start:background", "background:ok",
		"start:compose", "compose:ok",
		"start:commit", "commit:ok",
	}
	if strings.Join(f.reporter.events, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v", f.reporter.events)
	}
}

func TestRunComposeFailureKeepsCursor(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	f.composer.err = errors.New("ffmpeg failed: exit status 1")
	cat := mustCatalog(t, "1. one two three\n2. four\n")

	_, err := f.gen.Run(context.Background(), cat)
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %v", err)
	}
	if stageErr.Stage != StageCompose || stageErr.Sequence != 1 {
		t.Fatalf("unexpected stage error %+v", stageErr)
	}
	if !strings.HasPrefix(err.Error(), "reel #1 compose:") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if f.store.saves != 0 || f.store.Load().LastUsedSequence != 0 {
		t.Fatal("cursor must not advance when compose fails")
	}
	entries, _ := os.ReadDir(f.gen.Options.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned up after failure: %v", entries)
	}

	// The next run selects the same entry.
	f.composer.err = nil
	res, err := f.gen.Run(context.Background(), cat)
	if err != nil {
		t.Fatal(err)
	}
	if res.Selection.Entry.Sequence != 1 {
		t.Fatalf("retry selected #%d, want #1", res.Selection.Entry.Sequence)
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	f.store.saveErr = errors.New("disk full")
	cat := mustCatalog(t, "1. one\n")

	_, err := f.gen.Run(context.Background(), cat)
	var perr *cursor.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageCommit {
		t.Fatalf("expected commit stage error, got %v", err)
	}
}

func TestRunExhausted(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	f.store.cur = cursor.Cursor{LastUsedSequence: 2}
	cat := mustCatalog(t, "1. one\n2. two\n")

	res, err := f.gen.Run(context.Background(), cat)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.Exhausted {
		t.Fatal("expected exhaustion")
	}
	if len(f.narrator.texts) != 0 || len(f.composer.jobs) != 0 {
		t.Fatal("no work should happen when exhausted")
	}
	if f.store.Load().LastUsedSequence != 2 {
		t.Fatal("cursor changed on exhaustion")
	}
}

func TestRunWrap(t *testing.T) {
	f := newFixture(t, schedule.PolicyWrap)
	f.store.cur = cursor.Cursor{LastUsedSequence: 5}
	cat := mustCatalog(t, "3. three\n5. five\n")

	res, err := f.gen.Run(context.Background(), cat)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Selection.Wrapped || res.Selection.Entry.Sequence != 3 {
		t.Fatalf("expected wrap to #3, got %+v", res.Selection)
	}
	if f.store.Load().LastUsedSequence != 3 {
		t.Fatalf("cursor = %d, want 3", f.store.Load().LastUsedSequence)
	}
}

func TestRunEmptyTextFailsBeforeNarration(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	cat := mustCatalog(t, "1.\n2. two\n")

	_, err := f.gen.Run(context.Background(), cat)
	if !errors.Is(err, captions.ErrEmptyNarration) {
		t.Fatalf("expected ErrEmptyNarration, got %v", err)
	}
	if len(f.narrator.texts) != 0 {
		t.Fatal("narrator must not run for empty text")
	}
}

func TestRunNoBackgrounds(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	f.gen.Options.BackgroundsDir = filepath.Join(f.root, "empty")
	cat := mustCatalog(t, "1. one\n")

	_, err := f.gen.Run(context.Background(), cat)
	if !errors.Is(err, background.ErrNoBackgroundAvailable) {
		t.Fatalf("expected ErrNoBackgroundAvailable, got %v", err)
	}
	if f.store.Load().LastUsedSequence != 0 {
		t.Fatal("cursor advanced without a render")
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.gen.Run(ctx, mustCatalog(t, "1. one\n"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlanDoesNotTouchState(t *testing.T) {
	f := newFixture(t, schedule.PolicyHalt)
	cat := mustCatalog(t, "1. a b c d e f g\n")

	res, err := f.gen.Plan(cat)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if !res.DryRun || !res.Estimated || res.Selection.Entry.Sequence != 1 {
		t.Fatalf("unexpected plan %+v", res)
	}
	if len(res.Job.Intervals) != 3 {
		t.Fatalf("expected 3 phrases, got %d", len(res.Job.Intervals))
	}
	if res.Job.Intervals[2].End != res.Job.Duration {
		t.Fatal("timeline must end at the estimated duration")
	}
	if f.store.saves != 0 || len(f.narrator.texts) != 0 {
		t.Fatal("plan must not synthesize or commit")
	}
}

func TestEstimateDuration(t *testing.T) {
	if EstimateDuration("one") != time.Second {
		t.Fatalf("short text should clamp to 1s, got %s", EstimateDuration("one"))
	}
	if EstimateDuration(strings.Repeat("w ", 10)) != 4*time.Second {
		t.Fatalf("10 words = %s, want 4s", EstimateDuration(strings.Repeat("w ", 10)))
	}
}
