package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskdeck/internal/cache"
	"taskdeck/internal/models"
	"taskdeck/internal/taskerr"
)

// ListTasks returns the owner's active tasks with freshly derived statuses.
// Optional from/to query parameters (RFC 3339) narrow the result to tasks
// intersecting the range, which backs the calendar view.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var (
		tasks []models.Task
		err   error
	)

	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr != "" || toStr != "" {
		from, perr := time.Parse(time.RFC3339, fromStr)
		if perr != nil {
			respondErr(w, taskerr.New(taskerr.Validation, "invalid 'from' timestamp"))
			return
		}
		to, perr := time.Parse(time.RFC3339, toStr)
		if perr != nil {
			respondErr(w, taskerr.New(taskerr.Validation, "invalid 'to' timestamp"))
			return
		}
		tasks, err = h.store.ListActiveBetween(ctx, owner, from, to)
	} else {
		tasks, err = h.store.ListActive(ctx, owner)
	}
	if err != nil {
		respondErr(w, err)
		return
	}

	now := time.Now()
	views := make([]cache.TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, cache.TaskView{
			Task:   tasks[i],
			Status: models.DeriveStatus(&tasks[i], now),
		})
	}

	respondJSON(w, http.StatusOK, views)
}

// CreateTask creates a new task for the authenticated owner.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		StartDate   time.Time         `json:"start_date"`
		EndDate     time.Time         `json:"end_date"`
		Priority    string            `json:"priority"`
		Color       string            `json:"color"`
		Files       []models.TaskFile `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondErr(w, taskerr.New(taskerr.Validation, "invalid json"))
		return
	}

	task := &models.Task{
		OwnerID:     owner,
		Title:       payload.Title,
		Description: payload.Description,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		Priority:    payload.Priority,
		Color:       payload.Color,
	}

	if err := h.store.CreateTask(ctx, task); err != nil {
		respondErr(w, err)
		return
	}

	for i := range payload.Files {
		file := payload.Files[i]
		if err := h.store.AddFile(ctx, owner, task.ID, &file); err != nil {
			respondErr(w, err)
			return
		}
		task.Files = append(task.Files, file)
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial patch to a task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
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

	var patch models.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondErr(w, taskerr.New(taskerr.Validation, "invalid json"))
		return
	}

	task, err := h.store.UpdateTask(ctx, owner, id, patch)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask soft-deletes a task, moving it to the trash.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
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

	if err := h.store.SoftDeleteTask(ctx, owner, id); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "task moved to trash"})
}

// ReorderTasks persists a full new ordering of the owner's active tasks.
func (h *Handlers) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondErr(w, taskerr.New(taskerr.Validation, "invalid json"))
		return
	}
	if len(payload.TaskIDs) == 0 {
		respondErr(w, taskerr.New(taskerr.Validation, "no task ids provided"))
		return
	}

	if err := h.store.ReorderTasks(ctx, owner, payload.TaskIDs); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// AddFile attaches a file descriptor to a task.
func (h *Handlers) AddFile(w http.ResponseWriter, r *http.Request) {
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

	var file models.TaskFile
	if err := json.NewDecoder(r.Body).Decode(&file); err != nil {
		respondErr(w, taskerr.New(taskerr.Validation, "invalid json"))
		return
	}

	if err := h.store.AddFile(ctx, owner, id, &file); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, file)
}

// RemoveFile detaches a file from a task.
func (h *Handlers) RemoveFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	taskID, err := parseID(r, "id")
	if err != nil {
		respondErr(w, err)
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		respondErr(w, err)
		return
	}

	if err := h.store.RemoveFile(ctx, owner, taskID, fileID); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "file removed"})
}
