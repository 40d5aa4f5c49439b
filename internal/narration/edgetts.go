package narration

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aaravmody/insta-cricket-bot/internal/media"
)

// DefaultVoice is the neural voice used when none is configured.
const DefaultVoice = "en-GB-RyanNeural"

// EdgeTTS shells out to the edge-tts command line tool.
type EdgeTTS struct {
	Runner media.Runner
	Binary string
	Voice  string
	Rate   string
	Log    io.Writer
}

// NewEdgeTTS returns an engine using binary (default "edge-tts") and voice.
func NewEdgeTTS(runner media.Runner, binary, voice, rate string) *EdgeTTS {
	if runner == nil {
		runner = media.CmdRunner{}
	}
	if strings.TrimSpace(binary) == "" {
		binary = "edge-tts"
	}
	if strings.TrimSpace(voice) == "" {
		voice = DefaultVoice
	}
	return &EdgeTTS{Runner: runner, Binary: binary, Voice: voice, Rate: strings.TrimSpace(rate)}
}

// Args returns the edge-tts arguments for text.
func (e *EdgeTTS) Args(text, outPath string) []string {
	args := []string{"--voice", e.Voice}
	if e.Rate != "" {
		args = append(args, "--rate="+e.Rate)
	}
	return append(args, "--text", text, "--write-media", outPath)
}

func (e *EdgeTTS) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	result, err := e.Runner.Run(ctx, e.Binary, e.Args(text, outPath), media.RunOptions{Stderr: e.Log})
	if err != nil {
		if msg := strings.TrimSpace(string(result.Stderr)); msg != "" {
			return fmt.Errorf("edge-tts: %w: %s", err, lastLine(msg))
		}
		return fmt.Errorf("edge-tts: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return fmt.Errorf("edge-tts produced no audio: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("edge-tts wrote an empty file %s", outPath)
	}
	return nil
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

var _ Synthesizer = (*EdgeTTS)(nil)
