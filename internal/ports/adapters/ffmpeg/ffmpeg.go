// Package ffmpeg implements the transcode/caption collaborator with a
// single cut+crop+burn encode pass per clip.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// portraitFilter scales to cover 1080x1920 without stretching, center
// crops, and forces square pixels.
const portraitFilter = "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,setsar=1"

// RenderClip cuts [start,end) seconds from the source, converts to
// portrait 9:16 and burns the ASS caption track, all in one pass.
func (a *Adapter) RenderClip(ctx context.Context, sourcePath string, start, end float64, captionPath, outPath string) error {
	filter := portraitFilter
	if captionPath != "" {
		filter += ",subtitles=" + escapeFilterPath(captionPath)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", sourcePath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, string(b))
	}
	return nil
}

// Trim copies the first maxDuration seconds of the source without
// re-encoding.
func (a *Adapter) Trim(ctx context.Context, sourcePath string, maxDuration float64, outPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", sourcePath,
		"-t", fmtSeconds(maxDuration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg trim: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, mediaPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		mediaPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
