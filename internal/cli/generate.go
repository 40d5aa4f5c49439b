package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/background"
	"github.com/aaravmody/insta-cricket-bot/internal/captions"
	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/cursor"
	"github.com/aaravmody/insta-cricket-bot/internal/logx"
	"github.com/aaravmody/insta-cricket-bot/internal/media"
	"github.com/aaravmody/insta-cricket-bot/internal/narration"
	"github.com/aaravmody/insta-cricket-bot/internal/pipeline"
	"github.com/aaravmody/insta-cricket-bot/internal/render"
	"github.com/aaravmody/insta-cricket-bot/internal/schedule"
	"github.com/aaravmody/insta-cricket-bot/internal/tui"
	"github.com/aaravmody/insta-cricket-bot/pkg/catalog"
)

var (
	generateDryRun   bool
	generateKeepWork bool
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a reel for the next unused catalog entry",
		RunE:  runGenerate,
	}

	cmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print the selection and caption timeline without rendering or advancing the cursor")
	cmd.Flags().BoolVar(&generateKeepWork, "keep-work", false, "Keep the per-run work directory for inspection")

	return cmd
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := loadProject()
	if err != nil {
		return err
	}
	if err := validateProject(p, cmd.ErrOrStderr()); err != nil {
		return err
	}

	logger, closer, err := openLog(p.Paths, "generate")
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Printf("reelbot generate: project=%s dry_run=%v", p.Paths.Root, generateDryRun)

	cat, err := loadCatalog(p, cmd.ErrOrStderr(), logger)
	if err != nil {
		return err
	}

	if generateDryRun {
		gen, err := newPlanner(p)
		if err != nil {
			return err
		}
		res, err := gen.Plan(cat)
		if err != nil {
			return err
		}
		return writeGenerateResult(cmd, p, res)
	}

	gen, err := buildGenerator(p, logger, generateKeepWork)
	if err != nil {
		return err
	}

	outWriter := cmd.OutOrStdout()
	var res pipeline.Result
	run := func(ctx context.Context, reporter pipeline.Reporter) error {
		gen.Reporter = reporter
		var err error
		res, err = gen.Run(ctx, cat)
		return err
	}

	var runErr error
	switch tui.DetectMode(outWriter, noProgress, outputJSON) {
	case tui.ModeTUI:
		runErr = tui.RunStages(ctx, outWriter, "generate "+filepath.Base(p.Paths.Root), run)
	case tui.ModePlain:
		runErr = run(ctx, &lineReporter{w: cmd.ErrOrStderr()})
	default:
		runErr = run(ctx, logReporter{logger: logger})
	}

	if runErr != nil {
		logger.Printf("generate failed: %v", runErr)
		return runErr
	}
	return writeGenerateResult(cmd, p, res)
}

func loadCatalog(p project, warn io.Writer, logger logx.Logger) (catalog.Catalog, error) {
	cat, err := catalog.Load(p.Paths.CatalogFile)
	if err != nil {
		return catalog.Catalog{}, err
	}
	logger.Printf("catalog %s: %d entries, %d issues", p.Paths.CatalogFile, cat.Len(), len(cat.Issues))
	for _, issue := range cat.Issues {
		logger.Printf("catalog issue: %s", issue.String())
		if warn != nil {
			fmt.Fprintf(warn, "warning: catalog %s\n", issue.String())
		}
	}
	return cat, nil
}

// newPlanner returns a generator able to run Plan only.
func newPlanner(p project) (*pipeline.Generator, error) {
	policy, err := schedule.ParsePolicy(p.Config.Catalog.Exhaustion)
	if err != nil {
		return nil, err
	}
	return &pipeline.Generator{
		Store:   cursor.NewFileStore(p.Paths.TrackerFile),
		Options: generatorOptions(p, policy, false),
	}, nil
}

// buildGenerator wires the real narration, probing, caption and ffmpeg
// collaborators for a project.
func buildGenerator(p project, logger logx.Logger, keepWork bool) (*pipeline.Generator, error) {
	cfg := p.Config
	policy, err := schedule.ParsePolicy(cfg.Catalog.Exhaustion)
	if err != nil {
		return nil, err
	}

	runner := media.CmdRunner{}

	var apiKey string
	if cfg.Narration.Engine == config.EngineOpenAI {
		apiKey, err = config.Secret(cfg.Narration.APIKeyEnv)
		if err != nil {
			return nil, err
		}
	}
	narrator, err := narration.New(cfg.Narration, cfg.Tools, runner, apiKey)
	if err != nil {
		return nil, err
	}

	renderer := captions.NewRenderer(captions.Style{
		Width:        cfg.Captions.BoxWidth,
		Height:       cfg.Captions.BoxHeight,
		Padding:      cfg.Captions.Padding,
		FontFile:     p.Paths.FontFile,
		Color:        cfg.Captions.Color,
		OutlineColor: cfg.Captions.OutlineColor,
		OutlineWidth: cfg.Captions.OutlineWidth,
		Fit: captions.FitOptions{
			MaxSize: cfg.Captions.MaxFontSize,
			MinSize: cfg.Captions.MinFontSize,
			Step:    cfg.Captions.FontStep,
		},
	})
	if reason := renderer.FallbackReason(); reason != nil {
		logger.Printf("captions: using built-in face: %v", reason)
	}

	return &pipeline.Generator{
		Store:    cursor.NewFileStore(p.Paths.TrackerFile),
		Narrator: narrator,
		Prober:   media.NewProber(runner, cfg.Tools.FFprobe),
		Captions: renderer,
		Composer: render.NewService(cfg, runner, cfg.Tools.FFmpeg, p.Paths.LogsDir),
		Rand:     background.NewRand(cfg.Backgrounds.Seed),
		Logger:   logger,
		Options:  generatorOptions(p, policy, keepWork),
	}, nil
}

func generatorOptions(p project, policy schedule.Policy, keepWork bool) pipeline.Options {
	return pipeline.Options{
		Policy:         policy,
		WordsPerPhrase: p.Config.Captions.WordsPerPhrase,
		BackgroundsDir: p.Paths.BackgroundsDir,
		BackgroundExts: p.Config.Backgrounds.Extensions,
		WorkDir:        p.Paths.WorkDir,
		OutputPath: func(sequence int) string {
			return p.Paths.OutputPath(p.Config, sequence)
		},
		KeepWork: keepWork,
	}
}

type generateJSON struct {
	Project    string              `json:"project"`
	Status     string              `json:"status"`
	Sequence   int                 `json:"sequence,omitempty"`
	Text       string              `json:"text,omitempty"`
	Wrapped    bool                `json:"wrapped,omitempty"`
	Output     string              `json:"output,omitempty"`
	Log        string              `json:"log,omitempty"`
	Duration   float64             `json:"duration_s,omitempty"`
	Estimated  bool                `json:"estimated,omitempty"`
	Background string              `json:"background,omitempty"`
	Captions   []captions.Interval `json:"captions,omitempty"`
	Cursor     int                 `json:"cursor"`
	Remaining  int                 `json:"remaining"`
}

func generateStatus(res pipeline.Result) string {
	switch {
	case res.Exhausted:
		return "exhausted"
	case res.DryRun:
		return "planned"
	default:
		return "rendered"
	}
}

func writeGenerateResult(cmd *cobra.Command, p project, res pipeline.Result) error {
	sel := res.Selection
	cur := sel.Next
	if res.DryRun || res.Exhausted {
		cur = sel.Previous
	}

	if outputJSON {
		payload := generateJSON{
			Project:   p.Paths.Root,
			Status:    generateStatus(res),
			Cursor:    cur.LastUsedSequence,
			Remaining: res.Remaining,
		}
		if sel.IsSelected() {
			payload.Sequence = sel.Entry.Sequence
			payload.Text = sel.Entry.Text
			payload.Wrapped = sel.Wrapped
			payload.Output = res.Job.OutputPath
			payload.Log = res.Render.LogPath
			payload.Duration = res.Job.Duration.Seconds()
			payload.Estimated = res.Estimated
			payload.Background = res.Job.Background.Source.Path
			payload.Captions = res.Job.Intervals
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	if res.Exhausted {
		fmt.Fprintf(cmd.ErrOrStderr(), "catalog exhausted: every entry up to #%d has been used (exhaustion policy %s)\n",
			sel.Previous.LastUsedSequence, p.Config.Catalog.Exhaustion)
		fmt.Fprintln(cmd.ErrOrStderr(), "add entries to the catalog or reset the cursor with `reelbot cursor reset`")
		return nil
	}

	if sel.Wrapped {
		fmt.Fprintln(out, "catalog exhausted; wrapping to the first entry")
	}
	fmt.Fprintf(out, "entry #%d: %s\n", sel.Entry.Sequence, excerpt(sel.Entry.Text, 72))

	if res.DryRun {
		fmt.Fprintf(out, "estimated narration: %s\n", formatSeconds(res.Job.Duration))
		fmt.Fprintf(out, "output: %s\n", res.Job.OutputPath)
		fmt.Fprintln(out, "captions:")
		for _, iv := range res.Job.Intervals {
			fmt.Fprintf(out, "  %8s - %8s  %s\n", formatSeconds(iv.Start), formatSeconds(iv.End), iv.Text)
		}
		fmt.Fprintf(out, "cursor stays at %d (dry run)\n", cur.LastUsedSequence)
		return nil
	}

	fmt.Fprintf(out, "rendered %s (%s narration, %d captions) in %s\n",
		res.Render.OutputPath,
		formatSeconds(res.Job.Duration),
		len(res.Job.Intervals),
		res.Render.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "cursor advanced to %d, %d entries remaining\n", cur.LastUsedSequence, res.Remaining)
	return nil
}

// lineReporter prints one line per finished stage when no TUI is attached.
type lineReporter struct {
	w     io.Writer
	start time.Time
}

func (r *lineReporter) StageStarted(pipeline.Stage, string) {
	r.start = time.Now()
}

func (r *lineReporter) StageFinished(stage pipeline.Stage, detail string, err error) {
	elapsed := time.Since(r.start).Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(r.w, "%-10s error   %s: %v\n", stage, elapsed, err)
		return
	}
	fmt.Fprintf(r.w, "%-10s ok      %s %s\n", stage, elapsed, detail)
}

// logReporter records stage transitions in the run log.
type logReporter struct {
	logger logx.Logger
}

func (r logReporter) StageStarted(stage pipeline.Stage, detail string) {
	r.logger.Printf("stage %s started %s", stage, detail)
}

func (r logReporter) StageFinished(stage pipeline.Stage, detail string, err error) {
	if err != nil {
		r.logger.Printf("stage %s failed: %v", stage, err)
		return
	}
	r.logger.Printf("stage %s finished %s", stage, detail)
}
