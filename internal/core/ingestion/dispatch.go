package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

// Sink receives the vectors for one planned batch, positionally aligned
// with batch.Indices. A nil vector means the chunk was not embedded.
// The sink must persist the batch before returning so that batch i is
// durable before batch i+1 is dispatched.
type Sink func(batch Batch, vectors [][]float32) error

// Dispatch sends the planned batches to the provider in order.
//
// The remote provider gets one call per batch; any error is fatal for
// the whole job. The local provider gets one call per chunk; a failed
// chunk is recorded with a nil vector and the job continues, but
// context cancellation still aborts.
func Dispatch(ctx context.Context, provider core.EmbeddingProvider, chunks []Chunk, plan Plan, sink Sink, logger *slog.Logger) error {
	lenient := provider.Selector() == models.ProviderLocal

	for bi, batch := range plan.Batches {
		vectors := make([][]float32, len(batch.Indices))

		if lenient {
			for vi, ci := range batch.Indices {
				vecs, err := provider.EmbedTexts(ctx, []string{chunks[ci].Content})
				if err != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return ctxErr
					}
					logger.Warn("local embedding failed, storing chunk without vector",
						"position", chunks[ci].Position, "error", err)
					continue
				}
				if len(vecs) != 1 {
					logger.Warn("local provider returned unexpected vector count, storing chunk without vector",
						"position", chunks[ci].Position, "got", len(vecs))
					continue
				}
				vectors[vi] = vecs[0]
			}
		} else {
			texts := make([]string, len(batch.Indices))
			for vi, ci := range batch.Indices {
				texts[vi] = chunks[ci].Content
			}
			vecs, err := provider.EmbedTexts(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch %d/%d: %w", bi+1, len(plan.Batches), err)
			}
			if len(vecs) != len(texts) {
				return apperr.Newf(apperr.Unknown, "embed batch %d/%d: got %d vectors for %d texts",
					bi+1, len(plan.Batches), len(vecs), len(texts))
			}
			copy(vectors, vecs)
		}

		if err := sink(batch, vectors); err != nil {
			return fmt.Errorf("persist batch %d/%d: %w", bi+1, len(plan.Batches), err)
		}
	}
	return nil
}
