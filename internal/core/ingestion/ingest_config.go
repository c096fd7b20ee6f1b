package ingestion

import "time"

// IngestConfig tunes the ingestion pipeline.
//
// MaxTokens:     upper bound of tokens per chunk (default 2000).
// OverlapTokens: tokens retained from the end of the previous chunk as
//                seed of the next (default 200).
// ItemCeiling:   per-chunk token ceiling above which a chunk is skipped
//                rather than embedded (default 300000).
// BatchCeiling:  per-request token budget for remote embedding calls
//                (default 250000).
// MaxFileBytes:  admission ceiling on blob size (default 200 MiB).
// Lease:         how long a processing claim is honored before a new
//                job may take it over.
type IngestConfig struct {
	MaxTokens     int
	OverlapTokens int
	ItemCeiling   int
	BatchCeiling  int
	MaxFileBytes  int64
	Lease         time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *IngestConfig {
	return &IngestConfig{
		MaxTokens:     2000,
		OverlapTokens: 200,
		ItemCeiling:   300_000,
		BatchCeiling:  250_000,
		MaxFileBytes:  200 << 20,
		Lease:         30 * time.Minute,
	}
}

// Chunk is the internal representation passed through the pipeline.
//
// Position:   stable, zero-based position of the chunk inside the file.
// Content:    chunk text.
// TokenCount: exact token count (used for batching decisions).
type Chunk struct {
	Position   int
	Content    string
	TokenCount int
}

// Batch is one planned embedding request: the chunk indices it carries
// and their summed token count.
type Batch struct {
	Indices    []int
	TokenCount int
}

// Plan is the output of the batch planner. Skipped holds indices of
// chunks whose token count exceeded the per-item ceiling; they are
// persisted without embeddings and never sent to a provider.
type Plan struct {
	Batches []Batch
	Skipped []int
}

// Result summarizes one completed ingestion job.
type Result struct {
	ChunkCount int   `json:"chunk_count"`
	TokenCount int   `json:"token_count"`
	BatchCount int   `json:"batch_count"`
	ElapsedMS  int64 `json:"elapsed_ms"`
}
