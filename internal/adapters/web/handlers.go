package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"livestock-purchasing/internal/backend"
	"livestock-purchasing/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler serves the purchasing REST API on top of a backend.Service.
type Handler struct {
	svc       *backend.Service
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes. When jwtSecret
// is empty the API is served without authentication.
func NewHandler(svc *backend.Service, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{svc: svc, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes ──────────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(h.RequireAuth)
		} else {
			log.Println("Warning: JWT_SECRET is not set, API is unauthenticated")
		}
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/master/{kind}", h.listOptions)
		r.Get("/api/schema/{resource}", h.lineSchema)

		r.Post("/api/{resource}", h.createPurchase)
		r.Get("/api/{resource}/{id}", h.getPurchase)
		r.Put("/api/{resource}/{id}", h.updateHeader)

		r.Post("/api/{resource}/details", h.createLine)
		r.Put("/api/{resource}/details/{ref}", h.updateLine)
		r.Delete("/api/{resource}/details/{ref}", h.deleteLine)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, 3)
	for _, p := range h.svc.Profiles() {
		kinds = append(kinds, p.Resource)
	}

	type response struct {
		Status    string   `json:"status"`
		Resources []string `json:"resources"`
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Resources: kinds})
}

// profile resolves the {resource} URL parameter, writing a 404 when it is unknown.
func (h *Handler) profile(w http.ResponseWriter, r *http.Request) (core.Profile, bool) {
	resource := chi.URLParam(r, "resource")
	p, ok := h.svc.ProfileByResource(resource)
	if !ok {
		writeError(w, r, "unknown purchase resource: "+resource, "NOT_FOUND", http.StatusNotFound)
	}
	return p, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
