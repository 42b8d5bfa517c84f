package handler

import (
	"errors"
	"net/http"

	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
	"github.com/automail/automail/internal/service"
)

// ListBatches returns every batch
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchSvc.List(r.Context())
	if err != nil {
		h.batchError(w, r, err, "Failed to list batches")
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// GetBatch returns one batch
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.batchSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.batchError(w, r, err, "Failed to get batch")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CreateBatch stores a new batch
func (h *Handler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var in service.BatchInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b, err := h.batchSvc.Create(r.Context(), in)
	if err != nil {
		h.batchError(w, r, err, "Failed to create batch")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ReplaceBatch overwrites a batch's name and recipients
func (h *Handler) ReplaceBatch(w http.ResponseWriter, r *http.Request) {
	var in service.BatchInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	b, err := h.batchSvc.Replace(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.batchError(w, r, err, "Failed to update batch")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// DeleteBatch removes a batch
func (h *Handler) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.batchSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.batchError(w, r, err, "Failed to delete batch")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) batchError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Batch not found")
	case errors.Is(err, service.ErrInvalidBatch), errors.Is(err, service.ErrInvalidRecipient):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, repository.ErrStorageUnavailable):
		h.log.Error().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is unavailable")
	default:
		h.internalError(w, r, err, message)
	}
}
