package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for files

const fileColumns = `
	id, user_id, file_name, storage_path, size_bytes, token_count,
	processing_status, processing_error, processing_started_at,
	processing_completed_at, created_at, updated_at
`

func (c *DatabaseClient) CreateFile(ctx context.Context, file *models.File) error {
	if file == nil {
		return errors.New("nil file")
	}
	const q = `
		INSERT INTO files
			(id, user_id, file_name, storage_path, size_bytes, processing_status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, now(), now())
	`
	_, err := c.db.ExecContext(ctx, q,
		file.ID, file.UserID, file.FileName, file.StoragePath, file.SizeBytes, models.StatusPending)
	return err
}

func (c *DatabaseClient) GetFileByID(ctx context.Context, id string) (*models.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	var f models.File
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.UserID, &f.FileName, &f.StoragePath, &f.SizeBytes, &f.TokenCount,
		&f.ProcessingStatus, &f.ProcessingError, &f.ProcessingStartedAt,
		&f.ProcessingCompletedAt, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *DatabaseClient) ListFilesByUser(ctx context.Context, userID string) ([]models.File, error) {
	const q = `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.File
	for rows.Next() {
		var f models.File
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.FileName, &f.StoragePath, &f.SizeBytes, &f.TokenCount,
			&f.ProcessingStatus, &f.ProcessingError, &f.ProcessingStartedAt,
			&f.ProcessingCompletedAt, &f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountChunksByFile(ctx context.Context, fileID string) (int, error) {
	const q = `SELECT COUNT(*) FROM file_chunks WHERE file_id = $1`
	var n int
	if err := c.db.QueryRowContext(ctx, q, fileID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClaimFileForProcessing is a compare-and-set: the row moves to
// processing only if it is claimable at the moment of the UPDATE.
// A processing row whose lease has expired is claimable again, so a
// crashed worker cannot wedge a file forever.
func (c *DatabaseClient) ClaimFileForProcessing(ctx context.Context, fileID string, lease time.Duration) (bool, error) {
	const q = `
		UPDATE files
		SET processing_status = 'processing',
		    processing_started_at = now(),
		    processing_completed_at = NULL,
		    processing_error = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND (
		        processing_status IN ('pending', 'failed', 'timeout')
		     OR (processing_status = 'processing'
		         AND processing_started_at < now() - make_interval(secs => $2))
		  )
	`
	res, err := c.db.ExecContext(ctx, q, fileID, lease.Seconds())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *DatabaseClient) MarkFileCompleted(ctx context.Context, fileID string, tokenCount int) error {
	const q = `
		UPDATE files
		SET processing_status = 'completed',
		    token_count = $2,
		    processing_error = NULL,
		    processing_completed_at = now(),
		    updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, fileID, tokenCount)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file not found: %s", fileID)
	}
	return nil
}

func (c *DatabaseClient) MarkFileFailed(ctx context.Context, fileID string, status models.ProcessingStatus, errMsg string) error {
	const q = `
		UPDATE files
		SET processing_status = $2,
		    processing_error = $3,
		    processing_completed_at = now(),
		    updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, fileID, status, errMsg)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("file not found: %s", fileID)
	}
	return nil
}

// UpsertFileChunks writes one batch of chunks in a single transaction,
// keyed by (file_id, position) so reruns overwrite stale rows.
func (c *DatabaseClient) UpsertFileChunks(ctx context.Context, chunks []models.FileChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO file_chunks
			(id, file_id, user_id, position, content, token_count, embedding_openai, embedding_local, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (file_id, position) DO UPDATE
		SET content = EXCLUDED.content,
		    token_count = EXCLUDED.token_count,
		    embedding_openai = EXCLUDED.embedding_openai,
		    embedding_local = EXCLUDED.embedding_local
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		id := ch.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx,
			id, ch.FileID, ch.UserID, ch.Position, ch.Content, ch.TokenCount,
			nullableVector(ch.EmbeddingOpenAI), nullableVector(ch.EmbeddingLocal),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// nullableVector maps a nil slice to SQL NULL instead of a zero vector.
func nullableVector(v []float32) any {
	if v == nil {
		return nil
	}
	return pgvector.NewVector(v)
}
