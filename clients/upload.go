package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// --- Upload (web app accepting base64 files) ---
type UploadReq struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type UploadResp struct {
	URL string `json:"url"`
}

type Uploader struct {
	http *HTTP
	url  string
}

func NewUploader(h *HTTP, endpoint string) *Uploader {
	return &Uploader{http: h, url: strings.TrimSpace(endpoint)}
}

// Upload posts the file and returns the URL the store assigned to it.
func (u *Uploader) Upload(ctx context.Context, path string) (string, error) {
	if u.url == "" {
		return "", errors.New("upload: services.upload.url not configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("upload read: %w", err)
	}
	b, err := json.Marshal(UploadReq{
		Filename: filepath.Base(path),
		MimeType: "audio/mpeg",
		Data:     base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", fmt.Errorf("upload encode: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := u.http.c.Do(r)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out UploadResp
	if err := json.Unmarshal(body, &out); err != nil || out.URL == "" {
		return "", fmt.Errorf("upload: unexpected response: %s", snippet(string(body)))
	}
	return out.URL, nil
}
