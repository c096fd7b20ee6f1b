package core

import (
	"context"

	"github.com/docuvec/docuvec/internal/models"
)

// EmbeddingProvider produces vectors for text. Selector reports which
// provider column its vectors belong in.
type EmbeddingProvider interface {
	Selector() models.Provider
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
