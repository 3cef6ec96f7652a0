package api

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/envelope"
	"github.com/UkralStul/agora/internal/json"
	"github.com/UkralStul/agora/internal/ledger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps an error to its HTTP status and public error code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrHalted):
		return http.StatusServiceUnavailable, "halted"
	case errors.Is(err, envelope.ErrReplayed), errors.Is(err, ledger.ErrNonceReused):
		return http.StatusConflict, "replayed"
	}
	switch kind := domain.KindOf(err); kind {
	case "":
		return http.StatusInternalServerError, "internal"
	case domain.KindUnauthorized:
		return http.StatusForbidden, string(kind)
	case domain.KindNotFound:
		return http.StatusNotFound, string(kind)
	case domain.KindInvalidArgument:
		return http.StatusBadRequest, string(kind)
	default:
		return http.StatusConflict, string(kind)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
