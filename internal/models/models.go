package models

import (
	"fmt"
	"time"
)

// ProcessingStatus tracks a file through the ingestion state machine.
// pending is the initial state; completed, failed and timeout are terminal
// for the attempt that set them. processing marks an in-flight attempt.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusTimeout    ProcessingStatus = "timeout"
)

// Provider selects which embedding backend a processing job uses.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderLocal  Provider = "local"
)

// ParseProvider validates a caller-supplied provider selector.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderLocal:
		return ProviderLocal, nil
	}
	return "", fmt.Errorf("unknown embeddings provider %q", s)
}

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// File represents one uploaded document and its processing state.
// TokenCount reflects the most recent successful job only. ProcessingError
// is non-nil only when the status is failed or timeout.
type File struct {
	ID                    string           `db:"id" json:"id"`
	UserID                string           `db:"user_id" json:"user_id"`
	FileName              string           `db:"file_name" json:"file_name"`
	StoragePath           string           `db:"storage_path" json:"storage_path"`
	SizeBytes             int64            `db:"size_bytes" json:"size_bytes"`
	TokenCount            *int             `db:"token_count" json:"token_count"`
	ProcessingStatus      ProcessingStatus `db:"processing_status" json:"processing_status"`
	ProcessingError       *string          `db:"processing_error" json:"processing_error"`
	ProcessingStartedAt   *time.Time       `db:"processing_started_at" json:"processing_started_at"`
	ProcessingCompletedAt *time.Time       `db:"processing_completed_at" json:"processing_completed_at"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// FileChunk represents one text chunk of a file plus its embedding.
// At most one of the embedding slots is non-nil: the one matching the
// provider of the job that embedded it. Both are nil for a chunk the
// batch planner skipped or the local provider failed on. Rows are
// upserted keyed by (file_id, position).
type FileChunk struct {
	ID              string    `db:"id" json:"id"`
	FileID          string    `db:"file_id" json:"file_id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Position        int       `db:"position" json:"position"`
	Content         string    `db:"content" json:"content"`
	TokenCount      int       `db:"token_count" json:"token_count"`
	EmbeddingOpenAI []float32 `db:"embedding_openai" json:"embedding_openai,omitempty"`
	EmbeddingLocal  []float32 `db:"embedding_local" json:"embedding_local,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
