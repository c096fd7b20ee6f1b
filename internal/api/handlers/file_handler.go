package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/docuvec/docuvec/internal/api/middlewares"
	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core"
	"github.com/docuvec/docuvec/internal/models"
)

type FileHandler struct {
	dbclient     core.DbClient
	objectclient core.ObjectClient
	cfg          *config.Config
	logger       *slog.Logger
}

func NewFileHandler(dbclient core.DbClient, objectclient core.ObjectClient, cfg *config.Config, logger *slog.Logger) *FileHandler {
	return &FileHandler{dbclient: dbclient, objectclient: objectclient, cfg: cfg, logger: logger}
}

// Upload stores the blob and inserts the file row in the pending state.
// Processing is a separate, explicit request; uploading never blocks on it.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	dev := h.cfg.AppEnv == "development"

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.Unauthorized, "missing caller identity"), dev)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid multipart form", err), dev)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "missing file field", err), dev)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "read upload", err), dev)
		return
	}

	// Strip path components so the key layout stays flat per file.
	cleanName := filepath.Base(header.Filename)
	fileID := uuid.NewString()
	s3Key := fmt.Sprintf("users/%s/files/%s/%s", userID, fileID, cleanName)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := h.objectclient.UploadFile(r.Context(), h.cfg.BucketName, s3Key, data, contentType); err != nil {
		writeError(w, apperr.Wrap(apperr.Transient, "store file", err), dev)
		return
	}

	row := &models.File{
		ID:               fileID,
		UserID:           userID,
		FileName:         cleanName,
		StoragePath:      s3Key,
		SizeBytes:        int64(len(data)),
		ProcessingStatus: models.StatusPending,
	}
	if err := h.dbclient.CreateFile(r.Context(), row); err != nil {
		h.logger.Error("file row insert failed", "file_id", fileID, "error", err)
		writeError(w, fmt.Errorf("store file metadata: %w", err), dev)
		return
	}

	h.logger.Info("file uploaded", "file_id", fileID, "size_bytes", row.SizeBytes)
	writeJSON(w, http.StatusCreated, row)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	dev := h.cfg.AppEnv == "development"

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.Unauthorized, "missing caller identity"), dev)
		return
	}

	files, err := h.dbclient.ListFilesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err, dev)
		return
	}
	if files == nil {
		files = []models.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// Get serves the status-polling endpoint: callers watch
// processing_status and the processing timestamps to follow a job.
func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	dev := h.cfg.AppEnv == "development"

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.Unauthorized, "missing caller identity"), dev)
		return
	}

	fileID := chi.URLParam(r, "id")
	file, err := h.dbclient.GetFileByID(r.Context(), fileID)
	if err != nil {
		writeError(w, err, dev)
		return
	}
	if file == nil || file.UserID != userID {
		writeError(w, apperr.New(apperr.NotFound, "file not found"), dev)
		return
	}
	writeJSON(w, http.StatusOK, file)
}
