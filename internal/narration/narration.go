// Package narration turns catalog text into spoken audio files.
package narration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
	"github.com/aaravmody/insta-cricket-bot/internal/media"
)

// ErrEmptyText is returned when there is nothing to speak.
var ErrEmptyText = errors.New("narration text is empty")

// Synthesizer writes spoken audio for text to outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// New builds the engine selected in cfg. apiKey is only used by the openai
// engine.
func New(cfg config.NarrationConfig, tools config.ToolsConfig, runner media.Runner, apiKey string) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", config.EngineEdgeTTS:
		return NewEdgeTTS(runner, tools.EdgeTTS, cfg.Voice, cfg.Rate), nil
	case config.EngineOpenAI:
		if strings.TrimSpace(apiKey) == "" {
			return nil, fmt.Errorf("openai narration: %s is not set", cfg.APIKeyEnv)
		}
		return NewOpenAI(apiKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIVoice), nil
	default:
		return nil, fmt.Errorf("unknown narration engine %q", cfg.Engine)
	}
}
