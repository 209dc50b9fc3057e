// Package translator calls the external Sardaukar translator.
package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no translator URL is set.
var ErrNotConfigured = errors.New("sardaukar translator URL not configured")

type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Sardaukar translates English text through POST {url}/api/translate.
type Sardaukar struct {
	url    string
	client *http.Client
}

func NewSardaukar(url string) *Sardaukar {
	return &Sardaukar{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Sardaukar) Enabled() bool { return s.url != "" }

type translateRequest struct {
	Text             string `json:"text"`
	IncludePhonetics bool   `json:"include_phonetics"`
}

// Translate returns the translated text. A response without a sardaukar
// field yields the input unchanged.
func (s *Sardaukar) Translate(ctx context.Context, text string) (string, error) {
	if s.url == "" {
		return "", ErrNotConfigured
	}
	payload, err := json.Marshal(translateRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/api/translate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translator call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translator returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		Sardaukar *string `json:"sardaukar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode translator response: %w", err)
	}
	if out.Sardaukar == nil {
		return text, nil
	}
	return *out.Sardaukar, nil
}

// Result is the outcome of TranslateOrFallback.
type Result struct {
	Text       string
	Translated bool
	Err        error
}

// TranslateOrFallback never fails: on any error the original text is kept
// and Translated is false.
func TranslateOrFallback(ctx context.Context, t Translator, text string) Result {
	out, err := t.Translate(ctx, text)
	if err != nil {
		return Result{Text: text, Err: err}
	}
	return Result{Text: out, Translated: true}
}
