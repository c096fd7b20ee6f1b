package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/docuvec/docuvec/internal/api/middlewares"
	"github.com/docuvec/docuvec/internal/apperr"
	"github.com/docuvec/docuvec/internal/config"
	"github.com/docuvec/docuvec/internal/core/ingestion"
	"github.com/docuvec/docuvec/internal/core/llm"
	"github.com/docuvec/docuvec/internal/models"
)

// ProcessHandler is the ingestion job entry point. The request runs the
// whole pipeline synchronously and answers when the job reaches a
// terminal state.
type ProcessHandler struct {
	ingestor  *ingestion.FileIngestor
	providers *llm.Registry
	cfg       *config.Config
	logger    *slog.Logger
}

func NewProcessHandler(ingestor *ingestion.FileIngestor, providers *llm.Registry, cfg *config.Config, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{ingestor: ingestor, providers: providers, cfg: cfg, logger: logger}
}

type processRequest struct {
	Provider string `json:"provider"`
}

func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	dev := h.cfg.AppEnv == "development"

	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, apperr.New(apperr.Unauthorized, "missing caller identity"), dev)
		return
	}
	fileID := chi.URLParam(r, "id")

	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid body", err), dev)
		return
	}

	selector, err := models.ParseProvider(req.Provider)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.BadRequest, "invalid provider", err), dev)
		return
	}

	provider, err := h.providers.Get(selector)
	if err != nil {
		writeError(w, err, dev)
		return
	}

	result, err := h.ingestor.ProcessFile(r.Context(), fileID, userID, provider)
	if err != nil {
		if apperr.KindOf(err) == apperr.AlreadyProcessed {
			// Benign no-op: the file's chunks already exist.
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "already_processed",
			})
			return
		}
		writeError(w, err, dev)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
