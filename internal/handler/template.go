package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/automail/automail/internal/model"
	"github.com/automail/automail/internal/repository"
	"github.com/automail/automail/internal/service"
)

// maxAttachmentSize caps a single uploaded file
const maxAttachmentSize = 20 << 20

// ListTemplates returns every template
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templateSvc.List(r.Context())
	if err != nil {
		h.templateError(w, r, err, "Failed to list templates")
		return
	}
	if templates == nil {
		templates = []model.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// GetTemplate returns one template
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templateSvc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.templateError(w, r, err, "Failed to get template")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// CreateTemplate stores a new template
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in service.TemplateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	tpl, err := h.templateSvc.Create(r.Context(), in)
	if err != nil {
		h.templateError(w, r, err, "Failed to create template")
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// UpdateTemplate replaces a template's name, subject and content
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var in service.TemplateInput
	if err := readJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	tpl, err := h.templateSvc.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		h.templateError(w, r, err, "Failed to update template")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// DeleteTemplate removes a template
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.templateSvc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.templateError(w, r, err, "Failed to delete template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAttachment accepts a multipart upload in the "file" field
func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "A file is required in the 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Failed to read upload")
		return
	}
	if len(data) > maxAttachmentSize {
		writeError(w, http.StatusRequestEntityTooLarge, "attachment_too_large", "Attachment exceeds the size limit")
		return
	}

	tpl, err := h.templateSvc.AddAttachment(r.Context(), r.PathValue("id"), header.Filename, uploadType(header.Header.Get("Content-Type"), header.Filename), data)
	if err != nil {
		h.templateError(w, r, err, "Failed to add attachment")
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// RemoveAttachment drops the attachment at {index}
func (h *Handler) RemoveAttachment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "Attachment index must be a number")
		return
	}

	tpl, err := h.templateSvc.RemoveAttachment(r.Context(), r.PathValue("id"), index)
	if err != nil {
		h.templateError(w, r, err, "Failed to remove attachment")
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (h *Handler) templateError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Template not found")
	case errors.Is(err, service.ErrAttachmentNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Attachment not found")
	case errors.Is(err, service.ErrInvalidTemplate):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrInvalidAttachment):
		writeError(w, http.StatusBadRequest, "invalid_attachment", "Attachment name must not contain quotes or line breaks")
	case errors.Is(err, service.ErrUnsupportedAttachment):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_attachment", "Only PDF files can be attached")
	case errors.Is(err, repository.ErrStorageUnavailable):
		h.log.Error().Err(err).Msg("storage unavailable")
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "Storage is unavailable")
	default:
		h.internalError(w, r, err, message)
	}
}

// uploadType prefers the part's declared type and falls back to the file
// extension when the client sent none
func uploadType(declared, filename string) string {
	if declared != "" && declared != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			return mt
		}
	}
	if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(filename))); err == nil {
		return mt
	}
	return declared
}
