package handler

import (
	"errors"
	"net/http"

	"github.com/automail/automail/internal/dispatch"
	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
	"github.com/automail/automail/internal/service"
)

// StartDispatchRequest selects what to send
type StartDispatchRequest struct {
	TemplateID string `json:"templateId"`
	BatchID    string `json:"batchId"`
}

// StartDispatchResponse identifies the started run
type StartDispatchResponse struct {
	RunID string `json:"runId"`
}

// StartDispatch begins a run in the background. Progress is polled with
// GET /dispatch.
func (h *Handler) StartDispatch(w http.ResponseWriter, r *http.Request) {
	var req StartDispatchRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	runID, err := h.sendSvc.Start(r.Context(), req.TemplateID, req.BatchID)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrSelectionIncomplete):
			writeError(w, http.StatusConflict, "selection_incomplete", "Select a template and a non-empty batch")
		case errors.Is(err, dispatch.ErrRunInProgress):
			writeError(w, http.StatusConflict, "run_in_progress", "A dispatch run is already in progress")
		case errors.Is(err, dispatch.ErrAuthExpired):
			writeError(w, http.StatusUnauthorized, "auth_expired", "Sign in with Google again")
		case errors.Is(err, dispatch.ErrDuplicateRecipient):
			writeError(w, http.StatusUnprocessableEntity, "invalid_batch", err.Error())
		case errors.Is(err, service.ErrTemplateNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Template not found")
		case errors.Is(err, service.ErrBatchNotFound):
			writeError(w, http.StatusNotFound, "not_found", "Batch not found")
		case errors.Is(err, repository.ErrStorageUnavailable):
			h.log.Error().Err(err).Msg("storage unavailable")
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is unavailable")
		default:
			h.internalError(w, r, err, "Failed to start dispatch")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, StartDispatchResponse{RunID: runID})
}

// GetDispatch returns the current or most recent run's progress
func (h *Handler) GetDispatch(w http.ResponseWriter, r *http.Request) {
	p := h.sendSvc.Progress()
	if p.Statuses == nil {
		p.Statuses = []model.SendStatus{}
	}
	writeJSON(w, http.StatusOK, p)
}
