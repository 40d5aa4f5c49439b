package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/aaravmody/insta-cricket-bot/internal/publish"
	"github.com/aaravmody/insta-cricket-bot/internal/serve"
)

var scheduleServe bool

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run generate and publish on the cron specs from reelbot.yaml",
		Long: "Schedule keeps running until interrupted. schedule.generate and\n" +
			"schedule.publish take standard five-field cron specs or descriptors\n" +
			"such as @daily; an empty spec disables that job.\n\n" +
			"The publish job skips a reel it already published, but it only\n" +
			"remembers this while the scheduler is running. After a restart the\n" +
			"reel at the cursor is published again unless generate has moved on.",
		RunE: runSchedule,
	}

	cmd.Flags().BoolVar(&scheduleServe, "serve", false, "Also serve rendered reels on serve.addr")

	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := loadProject()
	if err != nil {
		return err
	}
	if err := validateProject(p, cmd.ErrOrStderr()); err != nil {
		return err
	}
	specs := p.Config.Schedule
	if strings.TrimSpace(specs.Generate) == "" && strings.TrimSpace(specs.Publish) == "" {
		return errors.New("no schedule configured: set schedule.generate and/or schedule.publish")
	}

	logger, closer, err := openLog(p.Paths, "schedule")
	if err != nil {
		return err
	}
	defer closer.Close()

	jobs := &scheduledJobs{project: p, logger: logger, out: cmd.ErrOrStderr()}
	c, err := newCron(ctx, jobs, logger)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	if scheduleServe {
		router := serve.NewRouter(p.Paths.OutputDir, logger.Writer())
		go func() {
			serveErr <- serve.Run(ctx, p.Config.Serve.Addr, router)
		}()
		fmt.Fprintf(cmd.ErrOrStderr(), "serving %s on %s\n", p.Paths.OutputDir, p.Config.Serve.Addr)
	}

	c.Start()
	logger.Printf("scheduler started: generate=%q publish=%q", specs.Generate, specs.Publish)
	fmt.Fprintf(cmd.ErrOrStderr(), "scheduler running (generate %q, publish %q); Ctrl+C to stop\n",
		specs.Generate, specs.Publish)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		stop()
	}

	// Wait for a running job to finish before returning.
	<-c.Stop().Done()
	logger.Printf("scheduler stopped")
	return runErr
}

// newCron registers the configured jobs. Jobs share a lock so generate and
// publish never overlap, and a job still running when its next tick fires
// is skipped.
func newCron(ctx context.Context, jobs *scheduledJobs, logger *log.Logger) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(logger)
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	specs := jobs.project.Config.Schedule
	if spec := strings.TrimSpace(specs.Generate); spec != "" {
		if _, err := c.AddFunc(spec, func() { jobs.generate(ctx) }); err != nil {
			return nil, fmt.Errorf("schedule.generate %q: %w", spec, err)
		}
	}
	if spec := strings.TrimSpace(specs.Publish); spec != "" {
		if _, err := c.AddFunc(spec, func() { jobs.publish(ctx) }); err != nil {
			return nil, fmt.Errorf("schedule.publish %q: %w", spec, err)
		}
	}
	return c, nil
}

type scheduledJobs struct {
	project project
	logger  *log.Logger
	out     io.Writer

	mu sync.Mutex
	// lastPublished is in memory only; a restarted scheduler starts at zero.
	lastPublished int
}

func (j *scheduledJobs) generate(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	cat, err := loadCatalog(j.project, nil, j.logger)
	if err != nil {
		j.report("generate: %v", err)
		return
	}
	gen, err := buildGenerator(j.project, j.logger, false)
	if err != nil {
		j.report("generate: %v", err)
		return
	}
	gen.Reporter = logReporter{logger: j.logger}

	res, err := gen.Run(ctx, cat)
	switch {
	case err != nil:
		j.report("generate: %v", err)
	case res.Exhausted:
		j.report("generate: catalog exhausted at #%d, nothing rendered", res.Selection.Previous.LastUsedSequence)
	default:
		j.report("generate: rendered reel #%d to %s", res.Selection.Entry.Sequence, res.Render.OutputPath)
	}
}

func (j *scheduledJobs) publish(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	cat, err := loadCatalog(j.project, nil, j.logger)
	if err != nil {
		j.report("publish: %v", err)
		return
	}
	plan, err := resolvePublishPlan(j.project, cat, 0)
	if err != nil {
		j.report("publish: %v", err)
		return
	}
	if plan.Sequence == j.lastPublished {
		j.report("publish: reel #%d already published by this scheduler, waiting for a new render", plan.Sequence)
		return
	}

	pub, err := newPublisher(j.project, j.logger, false)
	if err != nil {
		j.report("publish: %v", err)
		return
	}
	outcome, err := pub.Publish(ctx, publish.Request{
		Sequence: plan.Sequence,
		VideoURL: plan.VideoURL,
		Caption:  plan.Caption,
	})
	if err != nil {
		j.report("publish: reel #%d: %v", plan.Sequence, err)
		return
	}
	j.lastPublished = plan.Sequence
	j.report("publish: reel #%d published as media %s", plan.Sequence, outcome.MediaID)
}

func (j *scheduledJobs) report(format string, args ...any) {
	j.logger.Printf(format, args...)
	if j.out != nil {
		fmt.Fprintf(j.out, format+"\n", args...)
	}
}
