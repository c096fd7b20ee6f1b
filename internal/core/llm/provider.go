// Package llm hosts the embedding provider implementations and the
// registry that resolves a caller-supplied selector to one of them.
package llm

import (
	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

// Registry resolves provider selectors. Providers are constructed
// lazily per request; both are cheap to build.
type Registry struct {
	cfg *config.Config
}

func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{cfg: cfg}
}

// Get returns the provider for a selector. A missing credential for the
// remote provider is reported before any work starts, with a hint that
// the local provider needs none.
func (r *Registry) Get(selector models.Provider) (core.EmbeddingProvider, error) {
	switch selector {
	case models.ProviderOpenAI:
		if r.cfg.OpenAIAPIKey == "" {
			return nil, apperr.New(apperr.ProviderAuthMissing,
				"OPENAI_API_KEY not set; set it or switch to the local provider")
		}
		return NewOpenAIEmbedder(r.cfg.OpenAIAPIKey, r.cfg.OpenAIModel, r.cfg.EmbedDim), nil
	case models.ProviderLocal:
		return NewOllamaEmbedder(r.cfg.OllamaHost, r.cfg.OllamaModel)
	}
	return nil, apperr.Newf(apperr.BadRequest, "unknown embeddings provider %q", selector)
}
