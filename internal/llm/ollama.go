package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultPullTimeout bounds a model download, which can take far longer than a generation.
const defaultPullTimeout = 30 * time.Minute

// OllamaProvider talks to an Ollama server's native API.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
	// pullClient has no client timeout; pulls are bounded by pullTimeout on the context.
	pullClient  *http.Client
	pullTimeout time.Duration
}

func NewOllama(host, model string) *OllamaProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaProvider{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client:      &http.Client{Timeout: 120 * time.Second},
		pullClient:  &http.Client{},
		pullTimeout: defaultPullTimeout,
	}
}

func (p *OllamaProvider) Name() string  { return ProviderOllama }
func (p *OllamaProvider) Model() string { return p.model }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration"`
	LoadDuration    int64  `json:"load_duration"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (p *OllamaProvider) Generate(ctx context.Context, req Request) (Generation, error) {
	prompt := req.Text
	if req.SystemPrompt != "" {
		prompt = fmt.Sprintf("System: %s\n\nUser: %s\n\nAssistant:", req.SystemPrompt, req.Text)
	}

	var out ollamaGenerateResponse
	err := p.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"num_predict": req.MaxTokens,
			"temperature": req.Temperature,
			"top_p":       req.TopP,
			"stop":        []string{"User:", "Human:", "\n\n"},
		},
	}, &out)
	if err != nil {
		return Generation{}, err
	}

	text := strings.TrimSpace(out.Response)
	return Generation{
		Text:       text,
		TokensUsed: estimateTokens(text),
		Model:      p.model,
		Metadata: map[string]any{
			"provider":          ProviderOllama,
			"model":             p.model,
			"done":              out.Done,
			"total_duration":    out.TotalDuration,
			"load_duration":     out.LoadDuration,
			"prompt_eval_count": out.PromptEvalCount,
			"eval_count":        out.EvalCount,
		},
	}, nil
}

func (p *OllamaProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama api returned status: %d", resp.StatusCode)
	}

	var out struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ollama models: %w", err)
	}
	return out.Models, nil
}

// EnsureModel pulls the configured model when the server does not have it.
// Failures are logged; the service still starts.
func (p *OllamaProvider) EnsureModel(ctx context.Context, log *slog.Logger) {
	models, err := p.Models(ctx)
	if err != nil {
		log.Warn("could not check ollama models", "err", err)
		return
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		if m.Name == p.model || strings.TrimSuffix(m.Name, ":latest") == p.model {
			return
		}
		names = append(names, m.Name)
	}

	log.Warn("model not found, pulling", "model", p.model, "available", names)
	pullCtx, cancel := context.WithTimeout(ctx, p.pullTimeout)
	defer cancel()
	if err := p.postWith(pullCtx, p.pullClient, "/api/pull", map[string]any{"name": p.model, "stream": false}, nil); err != nil {
		log.Warn("could not pull model", "model", p.model, "err", err)
		return
	}
	log.Info("pulled model", "model", p.model)
}

func (p *OllamaProvider) post(ctx context.Context, path string, body, out any) error {
	return p.postWith(ctx, p.client, path, body, out)
}

func (p *OllamaProvider) postWith(ctx context.Context, client *http.Client, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal ollama request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama api call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return nil
}
