package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recall-backend/internal/service/entity"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// EntityHandler handles entity reads and maintenance.
type EntityHandler struct {
	entities *entity.Service
	logger   *zap.Logger
}

// NewEntityHandler creates the entity handler.
func NewEntityHandler(service *entity.Service, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{entities: service, logger: logger}
}

// GetEntity handles GET /graph/entities/{entityID}.
func (h *EntityHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	result, err := h.entities.Get(r.Context(), entityID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ListEntities handles GET /graph/entities?limit&skip.
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	skip := queryInt(r, "skip", 0)
	if limit < 1 || limit > maxListLimit {
		respondError(w, http.StatusBadRequest, "limit must be between 1 and 200")
		return
	}
	if skip < 0 {
		respondError(w, http.StatusBadRequest, "skip must be non-negative")
		return
	}

	page, err := h.entities.List(r.Context(), limit, skip)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// DeleteEntity handles DELETE /graph/entities/{entityID}.
func (h *EntityHandler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	if err := h.entities.Delete(r.Context(), entityID); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetEntityRelations handles GET /graph/entities/{entityID}/relations.
func (h *EntityHandler) GetEntityRelations(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	if entityID == "" {
		respondError(w, http.StatusBadRequest, "Entity ID is required")
		return
	}

	relations, err := h.entities.Relations(r.Context(), entityID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": relations,
		"total": len(relations),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}
