package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/media"
)

// detectTimeout bounds each version probe.
const detectTimeout = 5 * time.Second

// Status is the outcome of checking one Requirement.
type Status struct {
	Name       string   `json:"name"`
	Path       string   `json:"path,omitempty"`
	Configured bool     `json:"configured"`
	Version    *Version `json:"version,omitempty"`
	Minimum    Version  `json:"minimum"`
	Required   bool     `json:"required"`
	OK         bool     `json:"ok"`
	Problem    string   `json:"problem,omitempty"`
	Notes      []string `json:"notes,omitempty"`
	Hint       string   `json:"hint,omitempty"`
}

// Detector checks requirements against configured paths or PATH.
type Detector struct {
	Runner media.Runner
	// Paths maps a requirement name to a configured binary.
	Paths map[string]string
	// Minimums may raise, never lower, a requirement's minimum version.
	Minimums map[string]string
	// Engine is the configured narration engine.
	Engine   string
	LookPath func(string) (string, error)
}

// NewDetector returns a Detector backed by os/exec.
func NewDetector(runner media.Runner, paths, minimums map[string]string, engine string) *Detector {
	if runner == nil {
		runner = media.CmdRunner{}
	}
	return &Detector{Runner: runner, Paths: paths, Minimums: minimums, Engine: engine, LookPath: exec.LookPath}
}

// Detect checks every requirement in order.
func (d *Detector) Detect(ctx context.Context) []Status {
	if ctx == nil {
		ctx = context.Background()
	}
	reqs := Requirements()
	out := make([]Status, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, d.check(ctx, req))
	}
	return out
}

// Failing returns the required statuses that are not OK.
func Failing(statuses []Status) []Status {
	var out []Status
	for _, st := range statuses {
		if st.Required && !st.OK {
			out = append(out, st)
		}
	}
	return out
}

func (d *Detector) check(ctx context.Context, req Requirement) Status {
	st := Status{Name: req.Name, Minimum: req.Minimum, Required: req.Required(d.Engine)}
	st.Minimum, st.Notes = d.minimum(req)

	path, configured, err := d.locate(req)
	st.Path, st.Configured = path, configured
	if err != nil {
		st.Problem = err.Error()
		st.Hint = req.Hint
		return st
	}

	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()
	res, err := d.Runner.Run(ctx, path, req.VersionArgs, media.RunOptions{})
	if err != nil {
		st.Problem = fmt.Sprintf("version check failed: %v", err)
		return st
	}
	banner := firstLine(res.Stdout)
	if banner == "" {
		banner = firstLine(res.Stderr)
	}
	v, ok := ParseVersion(banner)
	if !ok {
		st.Problem = fmt.Sprintf("unrecognised version output %q", banner)
		return st
	}
	st.Version = &v
	if v.Less(st.Minimum) {
		st.Problem = fmt.Sprintf("version %s is older than %s", v, st.Minimum)
		st.Hint = req.Hint
		return st
	}
	st.OK = true
	return st
}

func (d *Detector) minimum(req Requirement) (Version, []string) {
	raw := strings.TrimSpace(d.Minimums[req.Name])
	if raw == "" {
		return req.Minimum, nil
	}
	v, ok := ParseVersion(raw)
	switch {
	case !ok:
		return req.Minimum, []string{fmt.Sprintf("ignoring tools.minimums.%s %q: not a version", req.Name, raw)}
	case v.Less(req.Minimum):
		return req.Minimum, []string{fmt.Sprintf("ignoring tools.minimums.%s %s: below built-in %s", req.Name, v, req.Minimum)}
	case v == req.Minimum:
		return v, nil
	default:
		return v, []string{fmt.Sprintf("minimum raised to %s by tools.minimums", v)}
	}
}

func (d *Detector) locate(req Requirement) (string, bool, error) {
	if configured := strings.TrimSpace(d.Paths[req.Name]); configured != "" {
		// A bare name is resolved through PATH like the default.
		if !strings.ContainsAny(configured, `/\`) {
			return d.lookPath(configured, true)
		}
		info, err := os.Stat(configured)
		if err != nil {
			return configured, true, fmt.Errorf("configured binary: %w", err)
		}
		if info.IsDir() {
			return configured, true, fmt.Errorf("configured binary %s is a directory", configured)
		}
		return configured, true, nil
	}
	return d.lookPath(req.executable(), false)
}

func (d *Detector) lookPath(name string, configured bool) (string, bool, error) {
	lookPath := d.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(name)
	if err != nil {
		return "", configured, fmt.Errorf("%s not found in PATH", name)
	}
	return path, configured, nil
}

func firstLine(b []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line
		}
	}
	return ""
}
