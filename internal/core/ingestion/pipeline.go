package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

// FileIngestor orchestrates one ingestion job: admission, claim,
// extract, chunk, plan, embed, persist, finalize. Stages run in order;
// nothing is fetched or embedded before the claim succeeds.
type FileIngestor struct {
	db        core.DbClient
	obj       core.ObjectClient
	extractor *Extractor
	chunker   *Chunker
	cfg       *IngestConfig
	bucket    string
	logger    *slog.Logger
}

func NewFileIngestor(db core.DbClient, obj core.ObjectClient, tok Tokenizer, cfg *IngestConfig, bucket string, logger *slog.Logger) *FileIngestor {
	return &FileIngestor{
		db:        db,
		obj:       obj,
		extractor: NewExtractor(),
		chunker:   NewChunker(tok, cfg.MaxTokens, cfg.OverlapTokens),
		cfg:       cfg,
		bucket:    bucket,
		logger:    logger,
	}
}

// ProcessFile runs the whole pipeline for one file on behalf of userID.
//
// Admission rejections (already processed, unsupported format, too
// large, concurrent job) happen before the file enters processing and
// leave its status untouched. Failures after the claim finalize the row
// as failed or timeout with the error message recorded.
func (i *FileIngestor) ProcessFile(ctx context.Context, fileID, userID string, provider core.EmbeddingProvider) (*Result, error) {
	start := time.Now()
	log := i.logger.With("file_id", fileID, "provider", provider.Selector())

	file, err := i.db.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, apperr.New(apperr.NotFound, "file not found")
	}
	if file.UserID != userID {
		return nil, apperr.New(apperr.Unauthorized, "file does not belong to caller")
	}

	// Admission: all checks run before any state mutation.
	if !i.extractor.Supported(file.FileName) {
		return nil, apperr.Newf(apperr.UnsupportedFormat, "unsupported file format for %q", file.FileName)
	}
	existing, err := i.db.CountChunksByFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if existing > 0 || file.ProcessingStatus == models.StatusCompleted {
		return nil, apperr.New(apperr.AlreadyProcessed, "file already processed")
	}
	if file.SizeBytes > i.cfg.MaxFileBytes {
		return nil, apperr.Newf(apperr.FileTooLarge, "file is %d bytes, limit is %d", file.SizeBytes, i.cfg.MaxFileBytes)
	}

	claimed, err := i.db.ClaimFileForProcessing(ctx, fileID, i.cfg.Lease)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apperr.New(apperr.ConcurrentJob, "file is being processed by another job")
	}

	log.Info("processing claimed", "file_name", file.FileName, "size_bytes", file.SizeBytes)

	result, err := i.run(ctx, file, provider, log)
	if err != nil {
		i.finalizeFailure(ctx, fileID, err, log)
		return nil, err
	}

	if err := i.db.MarkFileCompleted(ctx, fileID, result.TokenCount); err != nil {
		i.finalizeFailure(ctx, fileID, err, log)
		return nil, err
	}

	result.ElapsedMS = time.Since(start).Milliseconds()
	log.Info("processing completed",
		"chunks", result.ChunkCount, "tokens", result.TokenCount,
		"batches", result.BatchCount, "elapsed_ms", result.ElapsedMS)
	return result, nil
}

// run covers the post-claim stages. Any error bubbles up to be
// finalized by the caller.
func (i *FileIngestor) run(ctx context.Context, file *models.File, provider core.EmbeddingProvider, log *slog.Logger) (*Result, error) {
	data, err := i.obj.GetFile(ctx, i.bucket, file.StoragePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transient, "fetch file from object storage", err)
	}

	segments, err := i.extractor.Extract(ctx, file.FileName, data)
	if err != nil {
		return nil, err
	}

	chunks := i.chunker.Chunk(segments)
	if len(chunks) == 0 {
		return nil, apperr.New(apperr.EmptyOrUnprocessable, "file produced no text chunks")
	}

	plan := PlanBatches(chunks, i.cfg.ItemCeiling, i.cfg.BatchCeiling)
	log.Info("planned embedding batches",
		"chunks", len(chunks), "batches", len(plan.Batches), "skipped", len(plan.Skipped))

	tokenTotal := 0
	for _, ch := range chunks {
		tokenTotal += ch.TokenCount
	}

	sink := func(batch Batch, vectors [][]float32) error {
		rows := make([]models.FileChunk, len(batch.Indices))
		for vi, ci := range batch.Indices {
			rows[vi] = i.chunkRow(file, chunks[ci], provider.Selector(), vectors[vi])
		}
		return i.db.UpsertFileChunks(ctx, rows)
	}

	if err := Dispatch(ctx, provider, chunks, plan, sink, log); err != nil {
		return nil, err
	}

	// Skipped chunks are persisted last, without vectors, so the
	// durable prefix of embedded batches stays contiguous.
	if len(plan.Skipped) > 0 {
		rows := make([]models.FileChunk, len(plan.Skipped))
		for vi, ci := range plan.Skipped {
			rows[vi] = i.chunkRow(file, chunks[ci], provider.Selector(), nil)
			log.Warn("chunk exceeds per-item token ceiling, stored without vector",
				"position", chunks[ci].Position, "tokens", chunks[ci].TokenCount)
		}
		if err := i.db.UpsertFileChunks(ctx, rows); err != nil {
			return nil, err
		}
	}

	return &Result{
		ChunkCount: len(chunks),
		TokenCount: tokenTotal,
		BatchCount: len(plan.Batches),
	}, nil
}

func (i *FileIngestor) chunkRow(file *models.File, ch Chunk, provider models.Provider, vec []float32) models.FileChunk {
	row := models.FileChunk{
		FileID:     file.ID,
		UserID:     file.UserID,
		Position:   ch.Position,
		Content:    ch.Content,
		TokenCount: ch.TokenCount,
	}
	if vec != nil {
		switch provider {
		case models.ProviderOpenAI:
			row.EmbeddingOpenAI = vec
		case models.ProviderLocal:
			row.EmbeddingLocal = vec
		}
	}
	return row
}

// finalizeFailure records the terminal status for a failed attempt.
// It runs on a detached context so a cancelled request can still leave
// the row in a terminal state, and is best-effort beyond that.
// Cancellation counts as timeout: a caller that stops waiting reaches
// the server as context cancellation, and the row should say the
// attempt ran out of time rather than that the file failed.
func (i *FileIngestor) finalizeFailure(ctx context.Context, fileID string, cause error, log *slog.Logger) {
	status := models.StatusFailed
	if apperr.KindOf(cause) == apperr.DeadlineExceeded ||
		errors.Is(cause, context.DeadlineExceeded) ||
		errors.Is(cause, context.Canceled) {
		status = models.StatusTimeout
	}

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := i.db.MarkFileFailed(fctx, fileID, status, cause.Error()); err != nil {
		log.Error("failed to record terminal status", "status", status, "error", err)
		return
	}
	log.Warn("processing finished with error", "status", status, "error", cause)
}
