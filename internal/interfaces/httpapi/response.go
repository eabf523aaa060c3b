package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"filterpanel/internal/bootstrap/logging"
	domaininventory "filterpanel/internal/domain/inventory"
	"filterpanel/internal/errs"
)

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Environment string `json:"environment"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps usecase errors: invalid input 400, conflict 409,
// anything else 500 carrying the store's own message.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) int {
	switch {
	case domaininventory.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest
	case domaininventory.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
		return http.StatusConflict
	default:
		logging.Error(ctx, "request failed", slog.Any("err", errs.Loggable(err)))
		writeError(w, http.StatusInternalServerError, errs.Root(err).Error())
		return http.StatusInternalServerError
	}
}
