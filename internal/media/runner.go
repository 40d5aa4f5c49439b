// Package media runs and probes the external media tools: ffmpeg, ffprobe
// and edge-tts.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// stderrTailLines bounds how much tool output is carried in a ToolError.
const stderrTailLines = 6

// RunOptions controls how an external tool is executed.
type RunOptions struct {
	// Stderr receives a copy of the tool's diagnostics, typically a log file.
	Stderr io.Writer
}

// RunResult holds the captured output of a finished command.
type RunResult struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error)
}

// ToolError reports a tool that could not start or exited non-zero. Tail
// holds the last lines the tool wrote to stderr.
type ToolError struct {
	Tool     string
	ExitCode int
	Tail     string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, e.Err)
	if e.Tail != "" {
		msg += ": " + e.Tail
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// CmdRunner runs commands with os/exec.
type CmdRunner struct{}

var _ Runner = CmdRunner{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (RunResult, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	}

	err := cmd.Run()
	result := RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	toolErr := &ToolError{
		Tool:     filepath.Base(command),
		ExitCode: -1,
		Tail:     tail(stderr.String(), stderrTailLines),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return result, toolErr
}

// tail returns the last n non-blank lines of s joined with " | ".
func tail(s string, n int) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
