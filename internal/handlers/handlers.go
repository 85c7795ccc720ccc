package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskdeck/internal/store"
	"taskdeck/internal/sweeper"
	"taskdeck/internal/taskerr"
)

// Authenticator resolves the opaque owner identity for a request. The real
// session provider lives outside this module; tests and simple deployments
// use HeaderAuth.
type Authenticator interface {
	OwnerID(r *http.Request) (string, error)
}

// HeaderAuth reads the owner identity from the X-Owner-ID header, standing
// in for an upstream auth proxy that injects it.
type HeaderAuth struct{}

// OwnerID implements Authenticator.
func (HeaderAuth) OwnerID(r *http.Request) (string, error) {
	owner := r.Header.Get("X-Owner-ID")
	if owner == "" {
		return "", taskerr.New(taskerr.Unauthorized, "no owner identity available")
	}
	return owner, nil
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store      store.Store
	auth       Authenticator
	sweeper    *sweeper.Sweeper
	adminToken string
}

// New creates a new Handlers instance. adminToken guards the cleanup
// endpoint; when empty the endpoint is disabled.
func New(s store.Store, auth Authenticator, sw *sweeper.Sweeper, adminToken string) *Handlers {
	return &Handlers{
		store:      s,
		auth:       auth,
		sweeper:    sw,
		adminToken: adminToken,
	}
}

// Routes mounts all API routes.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/api/tasks", h.ListTasks)
	r.Post("/api/tasks", h.CreateTask)
	r.Patch("/api/tasks/reorder", h.ReorderTasks)
	r.Patch("/api/tasks/{id}", h.UpdateTask)
	r.Delete("/api/tasks/{id}", h.DeleteTask)
	r.Post("/api/tasks/{id}/files", h.AddFile)
	r.Delete("/api/tasks/{id}/files/{fileID}", h.RemoveFile)

	r.Get("/api/tasks/trash", h.ListTrash)
	r.Delete("/api/tasks/trash", h.EmptyTrash)
	r.Patch("/api/tasks/trash/{id}", h.TrashAction)

	r.Post("/api/cleanup", h.Cleanup)
}

// ownerID resolves the request identity, writing a 401 response on failure.
func (h *Handlers) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, err := h.auth.OwnerID(r)
	if err != nil {
		respondErr(w, err)
		return "", false
	}
	return owner, true
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, taskerr.Newf(taskerr.Validation, "invalid id %q", idStr)
	}
	return id, nil
}

func respondJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// respondErr maps structured error kinds to HTTP status codes. Unstructured
// errors are logged and hidden behind a generic 500.
func respondErr(w http.ResponseWriter, err error) {
	var code int
	switch taskerr.KindOf(err) {
	case taskerr.Validation:
		code = http.StatusBadRequest
	case taskerr.NotFound:
		code = http.StatusNotFound
	case taskerr.InvalidState:
		code = http.StatusConflict
	case taskerr.Unauthorized:
		code = http.StatusUnauthorized
	case taskerr.Transient:
		code = http.StatusServiceUnavailable
	default:
		log.Printf("internal server error: %v", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	respondJSON(w, code, map[string]string{"error": err.Error()})
}
