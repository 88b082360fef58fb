package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"recall-backend/internal/service/search"
	"recall-backend/pkg/utils"
)

const (
	defaultTextLimit     = 20
	defaultSemanticLimit = 10
)

// SearchHandler handles retrieval queries.
type SearchHandler struct {
	search *search.Service
	logger *zap.Logger
}

// NewSearchHandler creates the search handler.
func NewSearchHandler(service *search.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: service, logger: logger}
}

// SearchRequest is the body of the search endpoints.
type SearchRequest struct {
	Query string `json:"query" validate:"required,min=1"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// TextSearch handles POST /graph/search/text.
func (h *SearchHandler) TextSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, defaultTextLimit)
	if !ok {
		return
	}

	results, err := h.search.TextSearch(r.Context(), req.Query, req.Limit)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// SemanticSearch handles POST /graph/search/semantic.
func (h *SearchHandler) SemanticSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r, defaultSemanticLimit)
	if !ok {
		return
	}

	result, err := h.search.SemanticSearch(r.Context(), req.Query, req.Limit)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *SearchHandler) decode(w http.ResponseWriter, r *http.Request, defaultLimit int) (*SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return nil, false
	}
	if req.Limit == 0 {
		req.Limit = defaultLimit
	}
	return &req, true
}
