package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Base URLs of the OpenAI-compatible providers.
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	AnthropicBaseURL = "https://api.anthropic.com/v1/"
)

// OpenAIProvider calls any Chat Completions compatible API.
type OpenAIProvider struct {
	name   string
	model  string
	client *openai.Client
}

const defaultChatTimeout = 60 * time.Second

// NewOpenAICompatible builds a provider for name (openai, groq, anthropic or
// generic_openai). baseURL overrides the provider default; httpClient may be nil.
func NewOpenAICompatible(name, apiKey, model, baseURL string, httpClient *http.Client) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required for provider %s", name)
	}
	url, model := providerDefaults(name, model, baseURL)

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(url)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	cli := openai.NewClient(opts...)
	return &OpenAIProvider{name: name, model: model, client: &cli}, nil
}

// providerDefaults resolves the endpoint and replaces the local default model
// with one the remote provider actually serves.
func providerDefaults(name, model, baseURL string) (string, string) {
	switch name {
	case ProviderOpenAI:
		if model == "" || model == "llama3" {
			model = "gpt-3.5-turbo"
		}
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
	case ProviderGroq:
		if model == "" || model == "llama3" || model == "phi3:mini" {
			model = "llama3-8b-8192"
		}
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
	case ProviderAnthropic:
		if baseURL == "" {
			baseURL = AnthropicBaseURL
		}
	default:
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
	}
	return baseURL, model
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Generation, error) {
	reqCtx, cancel := context.WithTimeout(ctx, defaultChatTimeout)
	defer cancel()

	system := req.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	resp, err := p.client.Chat.Completions.New(reqCtx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.model),
		Messages:    buildMessages(system, req.Text),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
	})
	if err != nil {
		return Generation{}, fmt.Errorf("%s chat completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("%s: no choices returned", p.name)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	tokens := int(resp.Usage.TotalTokens)
	if tokens == 0 {
		tokens = estimateTokens(text)
	}
	return Generation{
		Text:       text,
		TokensUsed: tokens,
		Model:      p.model,
		Metadata: map[string]any{
			"provider":          p.name,
			"model":             p.model,
			"finish_reason":     string(resp.Choices[0].FinishReason),
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		},
	}, nil
}

// Models reports the configured model; remote catalogues are not listed.
func (p *OpenAIProvider) Models(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: p.model}}, nil
}

func buildMessages(system, user string) []openai.ChatCompletionMessageParamUnion {
	return []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(system),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: openai.String(user),
				},
			},
		},
	}
}
