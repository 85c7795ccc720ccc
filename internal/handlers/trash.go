package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskdeck/internal/taskerr"
)

// ListTrash returns the owner's trashed tasks, most recently deleted first.
func (h *Handlers) ListTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	tasks, err := h.store.ListTrashed(ctx, owner)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tasks)
}

// EmptyTrash permanently deletes all of the owner's trashed tasks.
func (h *Handlers) EmptyTrash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	count, err := h.store.EmptyTrash(ctx, owner)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":       "trash emptied",
		"deleted_count": count,
	})
}

// TrashAction restores or permanently deletes a single trashed task,
// selected by the "action" field in the request body.
func (h *Handlers) TrashAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	id, err := parseID(r, "id")
	if err != nil {
		respondErr(w, err)
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondErr(w, taskerr.New(taskerr.Validation, "invalid json"))
		return
	}

	switch payload.Action {
	case "restore":
		if err := h.store.RestoreTask(ctx, owner, id); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "task restored"})
	case "permanent":
		if err := h.store.PermanentDeleteTask(ctx, owner, id); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "task permanently deleted"})
	default:
		respondErr(w, taskerr.Newf(taskerr.Validation, "invalid action %q", payload.Action))
	}
}

// Cleanup triggers a retention sweep across all owners. It is an
// administrative endpoint: it requires the configured admin token and is
// disabled entirely when none is set.
func (h *Handlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.adminToken == "" || r.Header.Get("X-Admin-Token") != h.adminToken {
		respondErr(w, taskerr.New(taskerr.Unauthorized, "cleanup requires an admin token"))
		return
	}

	count, err := h.sweeper.Sweep(ctx, time.Now())
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":       "cleanup completed",
		"deleted_count": count,
	})
}
