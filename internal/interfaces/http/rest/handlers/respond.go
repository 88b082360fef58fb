// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	appErrors "recall-backend/pkg/errors"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// respondAppError maps an error to its HTTP status, hiding internal detail
// for server-side failures.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	appErr := appErrors.GetAppError(err)
	if appErr == nil {
		logger.Error("Unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if appErr.HTTPStatus == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		respondError(w, appErr.HTTPStatus, "Internal server error")
		return
	}
	respondError(w, appErr.HTTPStatus, appErr.Message)
}
