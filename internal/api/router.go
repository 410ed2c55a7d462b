package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/openkit/internal/kernel"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// onDoctor, if non-nil, receives every run recorded through POST /doctor.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler, onDoctor func(*kernel.DoctorRun)) chi.Router {
	h := NewHandler(svc, onDoctor)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/doctor", h.Check)
	r.Post("/doctor", h.Doctor)

	r.Get("/history", h.History)
	r.Get("/history/{id}", h.GetRun)

	r.Get("/docs", h.ListDocs)
	r.Get("/docs/*", h.GetDoc)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
