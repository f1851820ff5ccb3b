package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/bestof/clients"
	cfg "github.com/maastricht-university/bestof/config"
)

// NewPipeline builds the production collaborators described by c.
func NewPipeline(ctx context.Context, c *cfg.Root, log logrus.FieldLogger) (*Pipeline, error) {
	h := clients.NewHTTP(0)

	scorer, err := newScorer(ctx, c.Scoring)
	if err != nil {
		return nil, err
	}

	var tr clients.Transcriber
	switch c.Transcription.Backend {
	case "http":
		tr = clients.NewASR(clients.NewHTTP(c.Transcription.Timeout()), c.Services.ASR.URL)
	default:
		tr = clients.NewWhisperX(clients.WhisperXConfig{
			Command:     c.Transcription.Command,
			Model:       c.Transcription.Model,
			Language:    c.Transcription.Language,
			CUDAEnabled: c.Transcription.CUDA,
		}, nil)
	}

	deps := Deps{
		Transcriber: tr,
		Scorer:      scorer,
		Media: clients.NewFFmpeg(clients.FFmpegConfig{
			FFmpegBinary:  c.Audio.FFmpeg,
			FFprobeBinary: c.Audio.FFprobe,
			SampleRate:    c.Audio.SampleRate,
			Channels:      c.Audio.Channels,
			Quality:       c.Audio.Quality,
		}, nil),
	}
	if c.Services.Prompt.URL != "" {
		deps.Prompts = clients.NewPromptStore(h, c.Services.Prompt.URL)
	}
	if c.Services.Upload.URL != "" {
		deps.Upload = clients.NewUploader(h, c.Services.Upload.URL)
	}

	opts := Options{
		OutDir:            c.Paths.Outputs,
		TempDir:           c.Paths.Temp,
		KeepPct:           c.Selection.KeepPct,
		PromptDocID:       c.Services.Prompt.DocID,
		MaxConcurrent:     c.Performance.MaxConcurrent,
		TranscribeTimeout: c.Transcription.Timeout(),
		Segment:           SegmentOptions{MaxGap: c.Segment.MaxGap, MaxChars: c.Segment.MaxChars},
		Scoring:           ScoringOptions{BatchSize: c.Scoring.BatchSize, MaxTextChars: c.Scoring.MaxTextChars},
	}
	return New(opts, deps, log), nil
}

func newScorer(ctx context.Context, s cfg.Scoring) (clients.Scorer, error) {
	switch s.Provider {
	case "gemini":
		return clients.NewGeminiScorer(ctx, clients.GeminiConfig{
			APIKeys:        strings.Split(s.APIKey, ","),
			Model:          s.Model,
			TimeoutSeconds: s.TimeoutSeconds,
		})
	case "openai", "":
		return clients.NewOpenAIScorer(clients.OpenAIConfig{
			APIKey:         s.APIKey,
			BaseURL:        s.BaseURL,
			Model:          s.Model,
			TimeoutSeconds: s.TimeoutSeconds,
			MaxRetries:     s.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown scoring provider %q", s.Provider)
	}
}
