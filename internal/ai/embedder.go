package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
)

// DefaultEmbeddingModel is used when the config names none.
const DefaultEmbeddingModel = "text-embedding-3-small"

// OpenAIEmbedder produces vectors from an OpenAI-compatible /embeddings endpoint.
// It satisfies vectorstore.Embedder.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder for the given endpoint and model.
func NewOpenAIEmbedder(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIEmbedder{
		client: newClient(baseURL, apiKey, httpClient),
		model:  model,
	}
}

// Name reports the embedding model, e.g. "openai:text-embedding-3-small".
func (e *OpenAIEmbedder) Name() string { return "openai:" + e.model }

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](openai.EmbeddingNewParamsInputArrayOfStrings(texts)),
		Model: openai.F(openai.EmbeddingModel(e.model)),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		out[d.Index] = v
	}
	return out, nil
}
