package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robfig/cron/v3"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration against the project on disk and returns
// structured results. Errors block generation; warnings are informational.
func (c Config) Validate(projectRoot string) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateCatalog(projectRoot)...)
	results = append(results, c.validateCaptions(projectRoot)...)
	results = append(results, c.validateBackgrounds(projectRoot)...)
	results = append(results, c.validateNarration()...)
	results = append(results, c.validateVideo()...)
	results = append(results, c.validateOutputs()...)
	results = append(results, c.validatePublish()...)
	results = append(results, c.validateSchedule()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

// FirstError returns the first error-level result as an error, or nil.
func FirstError(results []ValidationResult) error {
	for _, r := range results {
		if r.Level == "error" {
			return fmt.Errorf("invalid config: %s", r.Message)
		}
	}
	return nil
}

func (c Config) validateCatalog(projectRoot string) []ValidationResult {
	var results []ValidationResult
	switch c.Catalog.Exhaustion {
	case "halt", "wrap":
	case "":
		results = append(results, errorf("catalog.exhaustion is required (halt or wrap)"))
	default:
		results = append(results, errorf("catalog.exhaustion %q is invalid (halt or wrap)", c.Catalog.Exhaustion))
	}
	if _, err := os.Stat(Resolve(projectRoot, c.Catalog.File)); err != nil {
		results = append(results, errorf("catalog file %q not found", c.Catalog.File))
	}
	if strings.TrimSpace(c.Catalog.TrackerFile) == "" {
		results = append(results, errorf("catalog.tracker_file must not be empty"))
	}
	return results
}

func (c Config) validateCaptions(projectRoot string) []ValidationResult {
	var results []ValidationResult
	cc := c.Captions
	if cc.WordsPerPhrase < 1 {
		results = append(results, errorf("captions.words_per_phrase must be >= 1"))
	}
	if cc.FontStep <= 0 {
		results = append(results, errorf("captions.font_step must be > 0"))
	}
	if cc.MinFontSize <= 0 || cc.MaxFontSize < cc.MinFontSize {
		results = append(results, errorf("captions font sizes must satisfy 0 < min_font_size <= max_font_size"))
	}
	if cc.Padding < 0 || cc.Padding >= cc.BoxWidth || cc.Padding >= cc.BoxHeight {
		results = append(results, errorf("captions.padding must be smaller than the caption box"))
	}
	if cc.BoxWidth > c.Video.Width || cc.BoxHeight > c.Video.Height {
		results = append(results, warnf("caption box %dx%d is larger than the video frame", cc.BoxWidth, cc.BoxHeight))
	}
	if font := strings.TrimSpace(cc.FontFile); font != "" {
		if _, err := os.Stat(Resolve(projectRoot, font)); err != nil {
			results = append(results, warnf("font file %q not found; the built-in face will be used", font))
		}
	} else {
		results = append(results, warnf("captions.font_file not set; the built-in face will be used"))
	}
	return results
}

func (c Config) validateBackgrounds(projectRoot string) []ValidationResult {
	info, err := os.Stat(Resolve(projectRoot, c.Backgrounds.Dir))
	if err != nil || !info.IsDir() {
		return []ValidationResult{warnf("backgrounds directory %q not found", c.Backgrounds.Dir)}
	}
	return nil
}

func (c Config) validateNarration() []ValidationResult {
	switch c.Narration.Engine {
	case EngineEdgeTTS:
		if strings.TrimSpace(c.Narration.Voice) == "" {
			return []ValidationResult{errorf("narration.voice is required for edge-tts")}
		}
	case EngineOpenAI:
		if os.Getenv(c.Narration.APIKeyEnv) == "" {
			return []ValidationResult{warnf("narration engine openai: %s is not set", c.Narration.APIKeyEnv)}
		}
	default:
		return []ValidationResult{errorf("narration.engine %q is unknown (edge-tts or openai)", c.Narration.Engine)}
	}
	return nil
}

func (c Config) validateVideo() []ValidationResult {
	var results []ValidationResult
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		results = append(results, errorf("video width and height must be positive"))
	}
	if c.Video.FPS <= 0 {
		results = append(results, errorf("video.fps must be positive"))
	}
	return results
}

func (c Config) validateOutputs() []ValidationResult {
	tmpl := c.Outputs.FilenameTemplate
	if !strings.Contains(tmpl, "{sequence}") {
		return []ValidationResult{errorf("outputs.filename_template %q must contain {sequence}", tmpl)}
	}
	if strings.ContainsAny(tmpl, `/\`) {
		return []ValidationResult{errorf("outputs.filename_template %q must be a file name", tmpl)}
	}
	return nil
}

func (c Config) validatePublish() []ValidationResult {
	var results []ValidationResult
	if strings.TrimSpace(c.Publish.PublicBaseURL) == "" {
		results = append(results, warnf("publish.public_base_url not set; publishing is unavailable"))
	}
	if c.Publish.PollAttempts < 1 || c.Publish.AssetAttempts < 1 {
		results = append(results, errorf("publish poll_attempts and asset_attempts must be >= 1"))
	}
	return results
}

func (c Config) validateSchedule() []ValidationResult {
	var results []ValidationResult
	for name, spec := range map[string]string{"generate": c.Schedule.Generate, "publish": c.Schedule.Publish} {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			results = append(results, errorf("schedule.%s %q: %v", name, spec, err))
		}
	}
	return results
}

// Resolve joins a config path onto the project root unless it is absolute.
func Resolve(root, value string) string {
	value = strings.TrimSpace(value)
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

func errorf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "error", Message: fmt.Sprintf(format, args...)}
}

func warnf(format string, args ...any) ValidationResult {
	return ValidationResult{Level: "warning", Message: fmt.Sprintf(format, args...)}
}
