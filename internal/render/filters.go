package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aaravmody/insta-cricket-bot/internal/config"
)

// captionInputOffset is the ffmpeg input index of the first caption image:
// input 0 is the background and input 1 the narration.
const captionInputOffset = 2

// BuildFilterGraph constructs the -filter_complex graph that scales the
// background to the output frame and overlays each caption image during its
// interval. The final video stream is labelled [vout].
func BuildFilterGraph(job Job, cfg config.Config) (string, error) {
	width := cfg.Video.Width
	height := cfg.Video.Height
	if width <= 0 || height <= 0 {
		return "", errors.New("invalid video dimensions")
	}
	if cfg.Video.FPS <= 0 {
		return "", errors.New("invalid video fps")
	}

	base := []string{
		fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=increase:flags=lanczos", width, height),
		fmt.Sprintf("crop=w=%d:h=%d", width, height),
		"setsar=1",
		fmt.Sprintf("fps=%d", cfg.Video.FPS),
	}

	chains := []string{"[0:v]" + strings.Join(base, ",") + "[bg]"}
	prev := "bg"
	for i, caption := range job.Captions {
		label := fmt.Sprintf("c%d", i)
		if i == len(job.Captions)-1 {
			label = "vout"
		}
		last := i == len(job.Captions)-1
		chains = append(chains, fmt.Sprintf("[%s][%d:v]overlay=x=(main_w-overlay_w)/2:y=(main_h-overlay_h)/2:enable='%s'[%s]",
			prev, i+captionInputOffset, escapeFilterValueNoQuotes(enableExpr(caption.Start, caption.End, last)), label))
		prev = label
	}
	if len(job.Captions) == 0 {
		chains[0] = "[0:v]" + strings.Join(base, ",") + "[vout]"
	}

	return strings.Join(chains, ";"), nil
}

// enableExpr shows a caption on [start, end). The last caption is closed so
// the final frame is never bare.
func enableExpr(start, end time.Duration, last bool) string {
	if last {
		return fmt.Sprintf("between(t,%s,%s)", formatSeconds(start), formatSeconds(end))
	}
	return fmt.Sprintf("gte(t,%s)*lt(t,%s)", formatSeconds(start), formatSeconds(end))
}

// BuildFFmpegCmd assembles the ffmpeg CLI arguments for a reel.
func BuildFFmpegCmd(job Job, outputPath, filterGraph string, cfg config.Config) ([]string, error) {
	if strings.TrimSpace(job.Background.Source.Path) == "" {
		return nil, errors.New("background path is empty")
	}
	if strings.TrimSpace(job.AudioPath) == "" {
		return nil, errors.New("narration path is empty")
	}
	if strings.TrimSpace(outputPath) == "" {
		return nil, errors.New("output path is empty")
	}
	if strings.TrimSpace(filterGraph) == "" {
		return nil, errors.New("filter graph is empty")
	}
	if job.Duration <= 0 {
		return nil, fmt.Errorf("reel #%d has no duration", job.Sequence)
	}

	args := []string{
		"-hide_banner",
		"-y",
	}
	args = append(args, job.Background.InputArgs()...)
	args = append(args, "-i", job.AudioPath)
	for _, caption := range job.Captions {
		args = append(args, "-i", caption.ImagePath)
	}

	args = append(args,
		"-filter_complex", filterGraph,
		"-map", "[vout]",
		"-map", "1:a",
	)

	videoCodec := strings.TrimSpace(cfg.Video.Codec)
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	args = append(args, "-c:v", videoCodec)

	if preset := strings.TrimSpace(cfg.Video.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	if bitrate := strings.TrimSpace(cfg.Video.Bitrate); bitrate != "" {
		args = append(args, "-b:v", bitrate)
	}

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(cfg.Video.FPS),
	)

	if acodec := strings.TrimSpace(cfg.Audio.ACodec); acodec != "" {
		args = append(args, "-c:a", acodec)
	}
	if cfg.Audio.BitrateKbps > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", cfg.Audio.BitrateKbps))
	}

	args = append(args,
		"-t", formatSeconds(job.Duration),
		"-movflags", "+faststart",
	)
	if strings.EqualFold(filepath.Ext(outputPath), ".mp4") {
		args = append(args, "-f", "mp4")
	}
	args = append(args, outputPath)

	return args, nil
}

func formatSeconds(d time.Duration) string {
	return formatFloat(d.Seconds())
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func escapeFilterValueNoQuotes(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, ",", `\,`)
	return value
}
