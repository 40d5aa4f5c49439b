// Package tools finds the external programs reelbot shells out to and
// checks their versions.
package tools

import (
	"runtime"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
)

// Requirement is one executable the pipeline runs.
type Requirement struct {
	Name        string
	VersionArgs []string
	Minimum     Version
	// Engine, when set, makes the requirement apply only to projects using
	// that narration engine.
	Engine string
	Hint   string
}

// Requirements lists every executable reelbot may run, in check order.
func Requirements() []Requirement {
	return []Requirement{
		{Name: "ffmpeg", VersionArgs: []string{"-version"}, Minimum: Version{5, 0, 0}, Hint: ffmpegHint()},
		{Name: "ffprobe", VersionArgs: []string{"-version"}, Minimum: Version{5, 0, 0}, Hint: ffmpegHint()},
		{
			Name:        "edge-tts",
			VersionArgs: []string{"--version"},
			Minimum:     Version{6, 1, 0},
			Engine:      config.EngineEdgeTTS,
			Hint:        "pip install edge-tts, or set narration.engine: openai",
		},
	}
}

// Required reports whether r applies to a project using engine.
func (r Requirement) Required(engine string) bool {
	return r.Engine == "" || r.Engine == engine
}

func (r Requirement) executable() string {
	if runtime.GOOS == "windows" {
		return r.Name + ".exe"
	}
	return r.Name
}

func ffmpegHint() string {
	switch runtime.GOOS {
	case "darwin":
		return "brew install ffmpeg"
	case "windows":
		return "winget install Gyan.FFmpeg"
	default:
		return "install ffmpeg with your package manager, e.g. sudo apt install ffmpeg"
	}
}

// Overrides maps requirement names to the binaries configured in tools.*.
func Overrides(cfg config.ToolsConfig) map[string]string {
	return map[string]string{
		"ffmpeg":   cfg.FFmpeg,
		"ffprobe":  cfg.FFprobe,
		"edge-tts": cfg.EdgeTTS,
	}
}
