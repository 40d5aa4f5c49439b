package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the generation and publishing configuration for a project.
type Config struct {
	Version     int               `yaml:"version"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Captions    CaptionsConfig    `yaml:"captions"`
	Backgrounds BackgroundsConfig `yaml:"backgrounds"`
	Narration   NarrationConfig   `yaml:"narration"`
	Video       VideoConfig       `yaml:"video"`
	Audio       AudioConfig       `yaml:"audio"`
	Outputs     OutputsConfig     `yaml:"outputs"`
	Publish     PublishConfig     `yaml:"publish"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Serve       ServeConfig       `yaml:"serve"`
	Tools       ToolsConfig       `yaml:"tools"`
}

// CatalogConfig locates the comment catalog and the consumption cursor.
// Exhaustion has no default: it must be "halt" or "wrap".
type CatalogConfig struct {
	File        string `yaml:"file"`
	TrackerFile string `yaml:"tracker_file"`
	Exhaustion  string `yaml:"exhaustion"`
}

// CaptionsConfig controls phrase grouping and caption image rendering.
type CaptionsConfig struct {
	WordsPerPhrase int     `yaml:"words_per_phrase"`
	FontFile       string  `yaml:"font_file"`
	MaxFontSize    float64 `yaml:"max_font_size"`
	MinFontSize    float64 `yaml:"min_font_size"`
	FontStep       float64 `yaml:"font_step"`
	BoxWidth       int     `yaml:"box_width"`
	BoxHeight      int     `yaml:"box_height"`
	Padding        int     `yaml:"padding"`
	Color          string  `yaml:"color"`
	OutlineColor   string  `yaml:"outline_color"`
	OutlineWidth   int     `yaml:"outline_width"`
}

// BackgroundsConfig describes the background video pool.
type BackgroundsConfig struct {
	Dir        string   `yaml:"dir"`
	Extensions []string `yaml:"extensions"`
	Seed       uint64   `yaml:"seed"`
}

// NarrationConfig selects the speech engine.
type NarrationConfig struct {
	Engine        string `yaml:"engine"`
	Voice         string `yaml:"voice"`
	Rate          string `yaml:"rate,omitempty"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIVoice   string `yaml:"openai_voice"`
	OpenAIBaseURL string `yaml:"openai_base_url,omitempty"`
	APIKeyEnv     string `yaml:"api_key_env"`
}

// VideoConfig contains output sizing, framerate and encoder settings.
type VideoConfig struct {
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	FPS     int    `yaml:"fps"`
	Codec   string `yaml:"codec"`
	Preset  string `yaml:"preset"`
	Bitrate string `yaml:"bitrate"`
}

// AudioConfig describes audio encoding parameters.
type AudioConfig struct {
	ACodec      string `yaml:"acodec"`
	BitrateKbps int    `yaml:"bitrate_kbps"`
}

// OutputsConfig controls where renders land and how they are named.
type OutputsConfig struct {
	Directory        string `yaml:"directory"`
	FilenameTemplate string `yaml:"filename_template"`
}

// PublishConfig configures the Graph API publisher.
type PublishConfig struct {
	GraphBaseURL   string  `yaml:"graph_base_url"`
	APIVersion     string  `yaml:"api_version"`
	PublicBaseURL  string  `yaml:"public_base_url"`
	CaptionSuffix  string  `yaml:"caption_suffix"`
	AccessTokenEnv string  `yaml:"access_token_env"`
	UserIDEnv      string  `yaml:"user_id_env"`
	PollIntervalS  float64 `yaml:"poll_interval_s"`
	PollAttempts   int     `yaml:"poll_attempts"`
	AssetIntervalS float64 `yaml:"asset_interval_s"`
	AssetAttempts  int     `yaml:"asset_attempts"`
}

// ScheduleConfig holds cron expressions for unattended runs. Empty disables
// the job.
type ScheduleConfig struct {
	Generate string `yaml:"generate"`
	Publish  string `yaml:"publish"`
}

// ServeConfig configures the static asset server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// ToolsConfig overrides tool binaries found on PATH.
type ToolsConfig struct {
	FFmpeg  string `yaml:"ffmpeg,omitempty"`
	FFprobe string `yaml:"ffprobe,omitempty"`
	EdgeTTS string `yaml:"edge_tts,omitempty"`
	// Minimums raises the minimum version required per tool.
	Minimums map[string]string `yaml:"minimums,omitempty"`
}

const (
	EngineEdgeTTS = "edge-tts"
	EngineOpenAI  = "openai"
)

// Default returns the baseline configuration. The exhaustion policy is left
// empty on purpose; it must be chosen explicitly.
func Default() Config {
	return Config{
		Version: 1,
		Catalog: CatalogConfig{
			File:        "comments.txt",
			TrackerFile: "message_tracker.json",
		},
		Captions: CaptionsConfig{
			WordsPerPhrase: 3,
			MaxFontSize:    100,
			MinFontSize:    20,
			FontStep:       5,
			BoxWidth:       1000,
			BoxHeight:      400,
			Padding:        40,
			Color:          "white",
			OutlineColor:   "black",
			OutlineWidth:   3,
		},
		Backgrounds: BackgroundsConfig{
			Dir:        "backgrounds",
			Extensions: []string{".mp4", ".avi", ".mov"},
		},
		Narration: NarrationConfig{
			Engine:      EngineEdgeTTS,
			Voice:       "en-GB-RyanNeural",
			OpenAIModel: "tts-1",
			OpenAIVoice: "onyx",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Video: VideoConfig{
			Width:   1080,
			Height:  1920,
			FPS:     30,
			Codec:   "libx264",
			Preset:  "ultrafast",
			Bitrate: "2500k",
		},
		Audio: AudioConfig{
			ACodec:      "aac",
			BitrateKbps: 192,
		},
		Outputs: OutputsConfig{
			Directory:        "reels",
			FilenameTemplate: "reel_{sequence}.mp4",
		},
		Publish: PublishConfig{
			GraphBaseURL:   "https://graph.facebook.com",
			APIVersion:     "v19.0",
			CaptionSuffix:  "#cricket",
			AccessTokenEnv: "IG_ACCESS_TOKEN",
			UserIDEnv:      "IG_USER_ID",
			PollIntervalS:  10,
			PollAttempts:   30,
			AssetIntervalS: 10,
			AssetAttempts:  30,
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures nested fields fall back to sensible defaults when the
// YAML omits them. Catalog.Exhaustion is never defaulted.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Version == 0 {
		c.Version = d.Version
	}
	setString(&c.Catalog.File, d.Catalog.File)
	setString(&c.Catalog.TrackerFile, d.Catalog.TrackerFile)
	c.Catalog.Exhaustion = strings.ToLower(strings.TrimSpace(c.Catalog.Exhaustion))

	setInt(&c.Captions.WordsPerPhrase, d.Captions.WordsPerPhrase)
	setFloat(&c.Captions.MaxFontSize, d.Captions.MaxFontSize)
	setFloat(&c.Captions.MinFontSize, d.Captions.MinFontSize)
	setFloat(&c.Captions.FontStep, d.Captions.FontStep)
	setInt(&c.Captions.BoxWidth, d.Captions.BoxWidth)
	setInt(&c.Captions.BoxHeight, d.Captions.BoxHeight)
	setString(&c.Captions.Color, d.Captions.Color)
	setString(&c.Captions.OutlineColor, d.Captions.OutlineColor)

	setString(&c.Backgrounds.Dir, d.Backgrounds.Dir)
	if len(c.Backgrounds.Extensions) == 0 {
		c.Backgrounds.Extensions = d.Backgrounds.Extensions
	}

	setString(&c.Narration.Engine, d.Narration.Engine)
	c.Narration.Engine = strings.ToLower(strings.TrimSpace(c.Narration.Engine))
	setString(&c.Narration.Voice, d.Narration.Voice)
	setString(&c.Narration.OpenAIModel, d.Narration.OpenAIModel)
	setString(&c.Narration.OpenAIVoice, d.Narration.OpenAIVoice)
	setString(&c.Narration.APIKeyEnv, d.Narration.APIKeyEnv)

	setInt(&c.Video.Width, d.Video.Width)
	setInt(&c.Video.Height, d.Video.Height)
	setInt(&c.Video.FPS, d.Video.FPS)
	setString(&c.Video.Codec, d.Video.Codec)
	setString(&c.Video.Preset, d.Video.Preset)
	setString(&c.Video.Bitrate, d.Video.Bitrate)

	setString(&c.Audio.ACodec, d.Audio.ACodec)
	setInt(&c.Audio.BitrateKbps, d.Audio.BitrateKbps)

	setString(&c.Outputs.Directory, d.Outputs.Directory)
	setString(&c.Outputs.FilenameTemplate, d.Outputs.FilenameTemplate)

	setString(&c.Publish.GraphBaseURL, d.Publish.GraphBaseURL)
	setString(&c.Publish.APIVersion, d.Publish.APIVersion)
	setString(&c.Publish.AccessTokenEnv, d.Publish.AccessTokenEnv)
	setString(&c.Publish.UserIDEnv, d.Publish.UserIDEnv)
	setFloat(&c.Publish.PollIntervalS, d.Publish.PollIntervalS)
	setInt(&c.Publish.PollAttempts, d.Publish.PollAttempts)
	setFloat(&c.Publish.AssetIntervalS, d.Publish.AssetIntervalS)
	setInt(&c.Publish.AssetAttempts, d.Publish.AssetAttempts)

	setString(&c.Serve.Addr, d.Serve.Addr)
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

// OutputFilename expands the filename template for a catalog entry.
func (c Config) OutputFilename(sequence int) string {
	tmpl := strings.TrimSpace(c.Outputs.FilenameTemplate)
	if tmpl == "" {
		tmpl = Default().Outputs.FilenameTemplate
	}
	return strings.ReplaceAll(tmpl, "{sequence}", strconv.Itoa(sequence))
}

// PollInterval returns the container status polling delay.
func (p PublishConfig) PollInterval() time.Duration {
	return seconds(p.PollIntervalS)
}

// AssetInterval returns the delay between asset availability checks.
func (p PublishConfig) AssetInterval() time.Duration {
	return seconds(p.AssetIntervalS)
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func setString(dst *string, def string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}
