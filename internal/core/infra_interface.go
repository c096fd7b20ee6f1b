package core

import (
	"context"
	"time"

	"github.com/docuvec/docuvec/internal/models"
)

// DbClient defines all persistence operations the service needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateFile(ctx context.Context, file *models.File) error
	GetFileByID(ctx context.Context, id string) (*models.File, error)
	ListFilesByUser(ctx context.Context, userID string) ([]models.File, error)

	// CountChunksByFile backs the already-processed admission check.
	CountChunksByFile(ctx context.Context, fileID string) (int, error)

	// ClaimFileForProcessing atomically moves a file into the processing
	// state. It succeeds for pending/failed/timeout rows and for
	// processing rows whose lease (processing_started_at + lease) has
	// expired. Returns false when another job holds the claim.
	ClaimFileForProcessing(ctx context.Context, fileID string, lease time.Duration) (bool, error)

	MarkFileCompleted(ctx context.Context, fileID string, tokenCount int) error
	MarkFileFailed(ctx context.Context, fileID string, status models.ProcessingStatus, errMsg string) error

	// UpsertFileChunks persists chunks keyed by (file_id, position),
	// overwriting rows from previous runs.
	UpsertFileChunks(ctx context.Context, chunks []models.FileChunk) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
