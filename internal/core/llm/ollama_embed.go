package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

// OllamaEmbedder is the local embedding provider, backed by an Ollama
// server. The dispatcher calls it one chunk at a time and tolerates
// per-chunk failures.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

var _ core.EmbeddingProvider = (*OllamaEmbedder)(nil)

func NewOllamaEmbedder(host, model string) (*OllamaEmbedder, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return &OllamaEmbedder{client: client, model: model}, nil
	}

	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	return &OllamaEmbedder{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

func (e *OllamaEmbedder) Selector() models.Provider { return models.ProviderLocal }

func (e *OllamaEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
