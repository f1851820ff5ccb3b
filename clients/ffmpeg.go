package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type FFmpegConfig struct {
	FFmpegBinary  string
	FFprobeBinary string
	SampleRate    int
	Channels      int
	Quality       int // libmp3lame VBR quality, 0 (best) .. 9
}

// FFmpeg implements trim, lossless concat and duration probing.
type FFmpeg struct {
	cfg FFmpegConfig
	run Runner
}

func NewFFmpeg(cfg FFmpegConfig, run Runner) *FFmpeg {
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.FFprobeBinary == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Quality < 0 || cfg.Quality > 9 {
		cfg.Quality = 2
	}
	if run == nil {
		run = Execute
	}
	return &FFmpeg{cfg: cfg, run: run}
}

func secs(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// Trim re-encodes [start, end] of src into dst.
func (f *FFmpeg) Trim(ctx context.Context, src string, start, end float64, dst string) error {
	if end <= start {
		return fmt.Errorf("ffmpeg trim: empty interval [%s, %s]", secs(start), secs(end))
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", secs(start),
		"-to", secs(end),
		"-i", src,
		"-vn",
		"-ac", strconv.Itoa(f.cfg.Channels),
		"-ar", strconv.Itoa(f.cfg.SampleRate),
		"-c:a", "libmp3lame",
		"-q:a", strconv.Itoa(f.cfg.Quality),
		dst,
	}
	if _, err := f.run(ctx, f.cfg.FFmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg trim: %w", err)
	}
	return nil
}

// Concat joins same-format parts into dst without re-encoding.
func (f *FFmpeg) Concat(ctx context.Context, parts []string, dst string) error {
	if len(parts) == 0 {
		return errors.New("ffmpeg concat: no parts")
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("ffmpeg concat: ensure output dir: %w", err)
	}
	listPath := filepath.Join(filepath.Dir(parts[0]), "concat.txt")
	var b strings.Builder
	for _, p := range parts {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("ffmpeg concat: %w", err)
		}
		// concat demuxer quoting: close, escape, reopen
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("ffmpeg concat: write list: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		dst,
	}
	if _, err := f.run(ctx, f.cfg.FFmpegBinary, args...); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the container duration of path in seconds.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	out, err := f.run(ctx, f.cfg.FFprobeBinary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	var parsed probeFormat
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", parsed.Format.Duration, err)
	}
	return d, nil
}
