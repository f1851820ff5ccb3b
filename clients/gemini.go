package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	// APIKeys are rotated when one is rate limited.
	APIKeys        []string
	Model          string
	TimeoutSeconds int
}

// contentGenerator is the part of *genai.Models the scorer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiScorer scores batches with a JSON-typed Gemini generation. It is safe
// for concurrent use; the active key is shared by all callers.
type GeminiScorer struct {
	gens    []contentGenerator
	model   string
	timeout time.Duration

	mu      sync.Mutex
	current int
}

func NewGeminiScorer(ctx context.Context, cfg GeminiConfig) (*GeminiScorer, error) {
	s := &GeminiScorer{model: strings.TrimSpace(cfg.Model), timeout: defaultScoreTimeout}
	if s.model == "" {
		s.model = DefaultGeminiModel
	}
	if cfg.TimeoutSeconds > 0 {
		s.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, key := range cfg.APIKeys {
		if key = strings.TrimSpace(key); key == "" {
			continue
		}
		c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return nil, fmt.Errorf("gemini scorer: create client: %w", err)
		}
		s.gens = append(s.gens, c.Models)
	}
	if len(s.gens) == 0 {
		return nil, errors.New("gemini scorer: api key required (set scoring.api_key or GEMINI_API_KEY)")
	}
	return s, nil
}

func (s *GeminiScorer) Model() string { return s.model }

func (s *GeminiScorer) Score(ctx context.Context, systemPrompt string, batch []ScoreItem) ([]ScoreEntry, error) {
	userPrompt, err := BuildUserPrompt(batch)
	if err != nil {
		return nil, err
	}
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
	}

	var lastErr error
	for range s.gens {
		idx := s.active()
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		result, err := s.gens[idx].GenerateContent(callCtx, s.model, genai.Text(userPrompt), genCfg)
		cancel()
		if err != nil {
			if rateLimited(err) {
				s.rotate(idx)
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("gemini score: %w", err)
		}
		if result == nil {
			return nil, errors.New("gemini score: empty response")
		}
		return DecodeScores(result.Text())
	}
	return nil, fmt.Errorf("gemini score: all api keys rate limited: %w", lastErr)
}

func (s *GeminiScorer) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// rotate moves past the key at idx unless another caller already did.
func (s *GeminiScorer) rotate(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == idx {
		s.current = (idx + 1) % len(s.gens)
	}
}

func rateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
