package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidClip), errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrPrecondition), errors.Is(err, models.ErrStale):
		return http.StatusConflict
	case errors.Is(err, models.ErrCaptureUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (app *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		app.logger(r).Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		app.logger(r).Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
