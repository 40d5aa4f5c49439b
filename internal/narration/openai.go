package narration

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI synthesizes speech with the Audio Speech API.
type OpenAI struct {
	client openai.Client
	Model  string
	Voice  string
}

// NewOpenAI returns an engine for the given key. baseURL may point at a
// compatible gateway; extra options are appended to the client.
func NewOpenAI(apiKey, baseURL, model, voice string, opts ...option.RequestOption) *OpenAI {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if strings.TrimSpace(baseURL) != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	if strings.TrimSpace(model) == "" {
		model = string(openai.SpeechModelTTS1)
	}
	if strings.TrimSpace(voice) == "" {
		voice = "onyx"
	}
	return &OpenAI{client: openai.NewClient(clientOpts...), Model: model, Voice: voice}
}

func (o *OpenAI) Synthesize(ctx context.Context, text, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.Model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create narration file: %w", err)
	}
	n, err := io.Copy(file, resp.Body)
	if err != nil {
		file.Close()
		return fmt.Errorf("write narration: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close narration file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("openai speech returned no audio")
	}
	return nil
}

var _ Synthesizer = (*OpenAI)(nil)
