package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/background"
	"github.com/aaravmody/insta-cricket-bot/internal/captions"
	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/media"
)

// Service composes reels with ffmpeg.
type Service struct {
	Config  config.Config
	Runner  media.Runner
	LogsDir string
	stderr  io.Writer

	ffmpegPath string
}

// Caption pairs a timeline interval with its rendered image.
type Caption struct {
	captions.Interval
	ImagePath string
}

// Job holds everything needed to render one reel.
type Job struct {
	Sequence   int
	Background background.Track
	AudioPath  string
	Captions   []Caption
	Duration   time.Duration
	OutputPath string
}

// Result captures the outcome of a render.
type Result struct {
	Sequence   int
	OutputPath string
	LogPath    string
	Elapsed    time.Duration
}

// NewService prepares a compositor. ffmpegPath defaults to "ffmpeg".
func NewService(cfg config.Config, runner media.Runner, ffmpegPath, logsDir string) *Service {
	if runner == nil {
		runner = media.CmdRunner{}
	}
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Service{
		Config:     cfg,
		Runner:     runner,
		LogsDir:    logsDir,
		ffmpegPath: ffmpegPath,
	}
}

// SetStderr mirrors ffmpeg output to w in addition to the render log.
func (s *Service) SetStderr(w io.Writer) {
	if s == nil {
		return
	}
	s.stderr = w
}

// Compose renders job to a temporary file next to job.OutputPath and renames
// it into place once ffmpeg succeeds, so a visible output is always complete.
func (s *Service) Compose(ctx context.Context, job Job) (Result, error) {
	if s == nil {
		return Result{}, errors.New("render service is nil")
	}
	result := Result{Sequence: job.Sequence, OutputPath: job.OutputPath}
	if strings.TrimSpace(job.OutputPath) == "" {
		return result, errors.New("output path is empty")
	}
	if job.Background.Duration != job.Duration {
		return result, fmt.Errorf("background duration %s does not match narration %s", job.Background.Duration, job.Duration)
	}
	for i, c := range job.Captions {
		if strings.TrimSpace(c.ImagePath) == "" {
			return result, fmt.Errorf("caption %d has no image", i)
		}
	}

	dir := filepath.Dir(job.OutputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("ensure output directory: %w", err)
	}
	tmpPath := partialPath(job.OutputPath)

	graph, err := BuildFilterGraph(job, s.Config)
	if err != nil {
		return result, fmt.Errorf("build filter graph: %w", err)
	}
	args, err := BuildFFmpegCmd(job, tmpPath, graph, s.Config)
	if err != nil {
		return result, err
	}

	logDir := s.LogsDir
	if logDir == "" {
		logDir = dir
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return result, fmt.Errorf("ensure logs directory: %w", err)
	}
	result.LogPath = filepath.Join(logDir, fmt.Sprintf("render_%03d.log", job.Sequence))
	logFile, err := os.Create(result.LogPath)
	if err != nil {
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	fmt.Fprintf(logFile, "%s %s\n\n", s.ffmpegPath, strings.Join(args, " "))

	runOpts := media.RunOptions{Stderr: logFile}
	if s.stderr != nil {
		runOpts.Stderr = io.MultiWriter(logFile, s.stderr)
	}

	started := time.Now()
	if _, err := s.Runner.Run(ctx, s.ffmpegPath, args, runOpts); err != nil {
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("ffmpeg failed: %w (see %s)", err, result.LogPath)
	}
	result.Elapsed = time.Since(started)

	if ok, err := nonEmptyFile(tmpPath); err != nil || !ok {
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("ffmpeg produced no output (see %s)", result.LogPath)
	}
	if err := os.Rename(tmpPath, job.OutputPath); err != nil {
		_ = os.Remove(tmpPath)
		return result, fmt.Errorf("move render into place: %w", err)
	}
	return result, nil
}

func partialPath(output string) string {
	dir, name := filepath.Split(output)
	ext := filepath.Ext(name)
	return filepath.Join(dir, "."+strings.TrimSuffix(name, ext)+".partial"+ext)
}

func nonEmptyFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}
