package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/automail/automail/internal/auth"
)

// SetClientIDRequest is the body of PUT /settings/client-id
type SetClientIDRequest struct {
	ClientID string `json:"clientId"`
}

// GetSettings returns the settings without the token
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := h.settingsSvc.View(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetClientID changes the OAuth client id and signs out
func (h *Handler) SetClientID(w http.ResponseWriter, r *http.Request) {
	var req SetClientIDRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "clientId is required")
		return
	}

	if _, err := h.settingsSvc.SetClientID(r.Context(), strings.TrimSpace(req.ClientID)); err != nil {
		h.internalError(w, r, err, "Failed to save client id")
		return
	}
	h.GetSettings(w, r)
}

// GoogleStart redirects to the Google consent page
func (h *Handler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	authorizer, ok := h.authorizer(w, r)
	if !ok {
		return
	}

	state, err := h.states.Issue(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to start authorization")
		return
	}
	http.Redirect(w, r, authorizer.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback finishes the consent flow and stores the token
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.states.Consume(r.Context(), q.Get("state")); err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			writeError(w, http.StatusBadRequest, "invalid_state", "Authorization state is invalid or expired")
			return
		}
		h.internalError(w, r, err, "Failed to verify authorization state")
		return
	}

	authorizer, ok := h.authorizer(w, r)
	if !ok {
		return
	}

	tok, err := authorizer.Complete(r.Context(), auth.Callback{
		Code:        q.Get("code"),
		Error:       q.Get("error"),
		Description: q.Get("error_description"),
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserCancelled):
			writeError(w, http.StatusBadRequest, "authorization_cancelled", "Authorization was cancelled")
		case errors.Is(err, auth.ErrAuthorizationRejected):
			h.log.Warn().Err(err).Msg("authorization rejected")
			writeError(w, http.StatusUnauthorized, "authorization_rejected", "Google rejected the authorization")
		default:
			h.internalError(w, r, err, "Failed to complete authorization")
		}
		return
	}

	if _, err := h.settingsSvc.Login(r.Context(), tok); err != nil {
		h.internalError(w, r, err, "Failed to save token")
		return
	}
	h.GetSettings(w, r)
}

// Logout discards the stored token
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.settingsSvc.Logout(r.Context()); err != nil {
		h.internalError(w, r, err, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) authorizer(w http.ResponseWriter, r *http.Request) (Authorizer, bool) {
	st, err := h.settingsSvc.Get(r.Context())
	if err != nil {
		h.internalError(w, r, err, "Failed to load settings")
		return nil, false
	}

	a, err := h.authorizers(st.ClientID)
	if err != nil {
		if errors.Is(err, auth.ErrClientIDMissing) {
			writeError(w, http.StatusConflict, "client_id_missing", "Set a Google client id first")
			return nil, false
		}
		h.internalError(w, r, err, "Failed to configure authorization")
		return nil, false
	}
	return a, true
}
