package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"recall-backend/internal/service/ingestion"
	"recall-backend/pkg/auth"
	"recall-backend/pkg/utils"
)

// EntryHandler handles memory entry submission.
type EntryHandler struct {
	ingestion *ingestion.Service
	logger    *zap.Logger
}

// NewEntryHandler creates the entry handler.
func NewEntryHandler(service *ingestion.Service, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{ingestion: service, logger: logger}
}

// CreateEntryRequest is the body of POST /graph/entries.
type CreateEntryRequest struct {
	Text                 string                 `json:"text" validate:"required,min=1"`
	Title                string                 `json:"title,omitempty" validate:"omitempty,max=200"`
	Summary              string                 `json:"summary,omitempty"`
	Labels               []string               `json:"labels,omitempty" validate:"omitempty,dive,max=100"`
	Source               string                 `json:"source,omitempty"`
	Format               string                 `json:"format,omitempty" validate:"omitempty,oneof=text markdown html json other"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	ProcessSynchronously bool                   `json:"process_synchronously,omitempty"`
}

// CreateEntry handles POST /graph/entries. The 202 acknowledgement is
// written before any provider call in deferred mode.
func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{}, 1)
	}
	metadata["submitted_by"] = userCtx.Email

	resp, err := h.ingestion.Ingest(r.Context(), ingestion.Request{
		Text:                 req.Text,
		Title:                req.Title,
		Summary:              req.Summary,
		Labels:               req.Labels,
		Source:               req.Source,
		Format:               req.Format,
		Metadata:             metadata,
		ProcessSynchronously: req.ProcessSynchronously,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusAccepted, resp)
}
