package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultWhisperXModel = "small"
	whisperXBatchSize    = "16"
)

type WhisperXConfig struct {
	// Command launches whisperx; "uvx" runs it from an ephemeral environment.
	Command     string
	Model       string
	Language    string // empty lets whisperx detect it
	CUDAEnabled bool
	// OutputDir holds the per-file scratch directories whisperx writes
	// <name>.json into. Defaults to the audio file's directory.
	OutputDir string
}

// WhisperX transcribes with forced word alignment through the whisperx CLI.
type WhisperX struct {
	cfg WhisperXConfig
	run Runner
}

func NewWhisperX(cfg WhisperXConfig, run Runner) *WhisperX {
	if cfg.Command == "" {
		cfg.Command = "uvx"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultWhisperXModel
	}
	if run == nil {
		run = Execute
	}
	return &WhisperX{cfg: cfg, run: run}
}

// Transcribe runs whisperx into a fresh directory per call, so files sharing
// a stem (x.mp3, x.wav) never read each other's transcript.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	root := w.cfg.OutputDir
	if root == "" {
		root = filepath.Dir(audioPath)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Transcript{}, fmt.Errorf("whisperx: ensure output dir: %w", err)
	}
	outDir, err := os.MkdirTemp(root, "whisperx-*")
	if err != nil {
		return Transcript{}, fmt.Errorf("whisperx: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	name, args := w.command(audioPath, outDir)
	if _, err := w.run(ctx, name, args...); err != nil {
		return Transcript{}, fmt.Errorf("whisperx: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return LoadWhisperXJSON(filepath.Join(outDir, base+".json"))
}

func (w *WhisperX) command(audioPath, outDir string) (string, []string) {
	args := make([]string, 0, 24)
	name := w.cfg.Command
	if filepath.Base(name) == "uvx" {
		args = append(args, "whisperx")
	}
	args = append(args,
		audioPath,
		"--model", w.cfg.Model,
		"--batch_size", whisperXBatchSize,
		"--output_dir", outDir,
		"--output_format", "json",
	)
	if w.cfg.Language != "" {
		args = append(args, "--language", w.cfg.Language)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda", "--compute_type", "float16")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", "float32")
	}
	return name, args
}

// LoadWhisperXJSON reads an aligned whisperx transcript. word_segments is
// preferred; per-segment words are the fallback.
func LoadWhisperXJSON(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("whisperx output: %w", err)
	}
	var payload alignedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload.transcript(), nil
}
