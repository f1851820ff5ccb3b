package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ASR calls a remote word-level transcription service at url+"/transcribe".
type ASR struct {
	http *HTTP
	url  string
}

func NewASR(h *HTTP, url string) *ASR {
	return &ASR{http: h, url: strings.TrimRight(url, "/")}
}

func (a *ASR) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	var out alignedPayload
	err := a.http.retry(ctx, "asr", func() error {
		var err error
		out, err = a.transcribeOnce(ctx, audioPath)
		return err
	})
	if err != nil {
		return Transcript{}, err
	}
	return out.transcript(), nil
}

func (a *ASR) transcribeOnce(ctx context.Context, audioPath string) (alignedPayload, error) {
	var out alignedPayload
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return out, err
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return out, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return out, err
	}
	if err = w.WriteField("word_timestamps", "true"); err != nil {
		return out, err
	}
	if err = w.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/transcribe", &b)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.http.c.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return out, &statusError{Op: "asr", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("asr decode: %w", err)
	}
	return out, nil
}
