package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const (
	DefaultOpenAIModel   = "gpt-4o-mini"
	defaultScoreTimeout  = 120 * time.Second
	defaultScoreAttempts = 3
)

// Scorer asks the relevance oracle to score one batch of segments.
type Scorer interface {
	Score(ctx context.Context, systemPrompt string, batch []ScoreItem) ([]ScoreEntry, error)
	Model() string
}

type OpenAIConfig struct {
	APIKey string
	// BaseURL targets any OpenAI compatible endpoint (OpenRouter, a local server).
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxRetries     int
}

// OpenAIScorer scores batches through a JSON-mode chat completion.
type OpenAIScorer struct {
	client openai.Client
	model  string
}

func NewOpenAIScorer(cfg OpenAIConfig) (*OpenAIScorer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai scorer: api key required (set scoring.api_key or OPENAI_API_KEY)")
	}
	timeout := defaultScoreTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	retries := defaultScoreAttempts - 1
	if cfg.MaxRetries > 0 {
		retries = cfg.MaxRetries
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(retries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIScorer{client: openai.NewClient(opts...), model: model}, nil
}

func (s *OpenAIScorer) Model() string { return s.model }

func (s *OpenAIScorer) Score(ctx context.Context, systemPrompt string, batch []ScoreItem) ([]ScoreEntry, error) {
	userPrompt, err := BuildUserPrompt(batch)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model:       s.model,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai score: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai score: empty choices")
	}
	return DecodeScores(resp.Choices[0].Message.Content)
}
