package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docuvec/docuvec/internal/apperr"
)

// writeJSON encodes v with the given status. Encoding failures are
// logged, not surfaced; the status line has already been sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps an error through the taxonomy to a status code and a
// stable machine-readable code. In development the underlying error
// text is included as detail.
func writeError(w http.ResponseWriter, err error, devMode bool) {
	kind := apperr.KindOf(err)
	body := map[string]string{
		"error": publicMessage(err, kind),
		"code":  kind.String(),
	}
	if devMode {
		body["detail"] = err.Error()
	}
	writeJSON(w, kind.HTTPStatus(), body)
}

func publicMessage(err error, kind apperr.Kind) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Msg
	}
	if kind == apperr.Unknown {
		return "internal error"
	}
	return kind.String()
}
