package router

import (
	"net/http"

	"github.com/automail/automail/internal/handler"
	"github.com/automail/automail/internal/middleware"
)

// New creates and configures the HTTP router. metrics may be nil.
func New(h *handler.Handler, mw *middleware.Middleware, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoints (no auth required)
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ready", h.Ready)
	if metrics != nil {
		mux.Handle("GET /metrics", mw.APIKey(metrics))
	}

	api := func(next http.HandlerFunc) http.Handler {
		return mw.APIKey(mw.RateLimit(mw.DefaultRateLimit())(next))
	}

	mux.Handle("GET /api/v1/templates", api(h.ListTemplates))
	mux.Handle("POST /api/v1/templates", api(h.CreateTemplate))
	mux.Handle("GET /api/v1/templates/{id}", api(h.GetTemplate))
	mux.Handle("PUT /api/v1/templates/{id}", api(h.UpdateTemplate))
	mux.Handle("DELETE /api/v1/templates/{id}", api(h.DeleteTemplate))
	mux.Handle("POST /api/v1/templates/{id}/attachments", api(h.AddAttachment))
	mux.Handle("DELETE /api/v1/templates/{id}/attachments/{index}", api(h.RemoveAttachment))

	mux.Handle("GET /api/v1/batches", api(h.ListBatches))
	mux.Handle("POST /api/v1/batches", api(h.CreateBatch))
	mux.Handle("GET /api/v1/batches/{id}", api(h.GetBatch))
	mux.Handle("PUT /api/v1/batches/{id}", api(h.ReplaceBatch))
	mux.Handle("DELETE /api/v1/batches/{id}", api(h.DeleteBatch))

	mux.Handle("GET /api/v1/settings", api(h.GetSettings))
	mux.Handle("PUT /api/v1/settings/client-id", api(h.SetClientID))
	mux.Handle("POST /api/v1/auth/logout", api(h.Logout))

	// The browser follows these directly, so they cannot carry the API key.
	// The callback is protected by the single-use state instead.
	mux.HandleFunc("GET /api/v1/auth/google/start", h.GoogleStart)
	mux.HandleFunc("GET /api/v1/auth/google/callback", h.GoogleCallback)

	mux.Handle("POST /api/v1/dispatch", api(h.StartDispatch))
	mux.Handle("GET /api/v1/dispatch", api(h.GetDispatch))

	// Apply middleware stack
	var handler http.Handler = mux
	handler = mw.CORS(handler)
	handler = mw.Logger(handler)
	handler = mw.RequestID(handler)

	// Panic recovery (outermost)
	handler = mw.Recover(handler)

	return handler
}
