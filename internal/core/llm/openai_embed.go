package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

// OpenAIEmbedder is the remote embedding provider. One EmbedTexts call
// maps to one API request.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(apiKey, model string, dimension int) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		dimension: dimension,
	}
}

func (e *OpenAIEmbedder) Selector() models.Provider { return models.ProviderOpenAI }

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}
	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		vector := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vector[j] = float32(v)
		}
		embeddings[i] = vector
	}
	return embeddings, nil
}

// classifyOpenAIError maps API failures into the shared taxonomy:
// rate limits and server errors are transient, auth failures point at
// the credential, everything else passes through wrapped.
func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return apperr.Wrap(apperr.Transient, "openai embeddings", err)
		case apiErr.StatusCode == http.StatusUnauthorized:
			return apperr.Wrap(apperr.ProviderAuthMissing, "openai rejected the API key; fix it or switch to the local provider", err)
		}
	}
	return fmt.Errorf("openai embeddings: %w", err)
}
