package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// OpenAIProvider calls an OpenAI-compatible /chat/completions endpoint
// (OpenAI, Groq, a local vLLM...).
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewOpenAIProvider creates a provider. The SDK's own retries are disabled:
// a failed call surfaces to the caller immediately.
func NewOpenAIProvider(baseURL, apiKey, model string, temperature float64, httpClient *http.Client) *OpenAIProvider {
	return &OpenAIProvider{
		client:      newClient(baseURL, apiKey, httpClient),
		model:       model,
		temperature: temperature,
	}
}

func newClient(baseURL, apiKey string, httpClient *http.Client) *openai.Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
}

// Complete sends prompt as a single user message and returns the first choice.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model:       openai.F(openai.ChatModel(p.model)),
		Temperature: openai.F(p.temperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
