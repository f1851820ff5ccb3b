package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const promptTimeout = 30 * time.Second

// PromptStore fetches the scoring system prompt from a document web app
// answering GET <url>?docId=<id> with plain text.
type PromptStore struct {
	http *HTTP
	url  string
}

func NewPromptStore(h *HTTP, endpoint string) *PromptStore {
	return &PromptStore{http: h, url: strings.TrimSpace(endpoint)}
}

func (p *PromptStore) Fetch(ctx context.Context, docID string) (string, error) {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return "", errors.New("prompt: document id required")
	}
	if p.url == "" {
		return "", errors.New("prompt: services.prompt.url not configured")
	}
	u, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("prompt url: %w", err)
	}
	q := u.Query()
	q.Set("docId", docID)
	u.RawQuery = q.Encode()

	ctx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.c.Do(req)
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("prompt read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("prompt %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("prompt: document %s is empty", docID)
	}
	return text, nil
}
