// Package cache implements the client-side task collection. It mediates
// every mutation through the store's external interface and keeps the local
// active and trashed sets consistent with server-confirmed state.
package cache

import (
	"context"
	"time"

	"taskdeck/internal/models"
	"taskdeck/internal/taskerr"
)

// Backend is the slice of the store interface the cache talks to.
type Backend interface {
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, ownerID string, id int64, patch models.TaskPatch) (*models.Task, error)
	SoftDeleteTask(ctx context.Context, ownerID string, id int64) error
	RestoreTask(ctx context.Context, ownerID string, id int64) error
	PermanentDeleteTask(ctx context.Context, ownerID string, id int64) error
	EmptyTrash(ctx context.Context, ownerID string) (int, error)
	ListActive(ctx context.Context, ownerID string) ([]models.Task, error)
	ListTrashed(ctx context.Context, ownerID string) ([]models.Task, error)
	ReorderTasks(ctx context.Context, ownerID string, ids []int64) error
	AddFile(ctx context.Context, ownerID string, taskID int64, file *models.TaskFile) error
	RemoveFile(ctx context.Context, ownerID string, taskID, fileID int64) error
}

// TaskView is a task augmented with its freshly derived status. Status is
// computed on every read and never stored.
type TaskView struct {
	models.Task
	Status models.Status `json:"status"`
}

// Cache owns the in-memory task collection for a single identity and a
// single logical session. Mutations are invoked sequentially from that
// session, so no internal locking is used.
type Cache struct {
	backend Backend
	ownerID string
	active  []models.Task
	trashed []models.Task
	pending bool
	lastErr error
}

// New creates a cache bound to a backend. No data is loaded until an
// identity becomes available via SetIdentity.
func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// SetIdentity binds the cache to an owner and loads their task lists. An
// empty owner id clears all local state, so no stale cross-session data
// survives a sign-out.
func (c *Cache) SetIdentity(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		c.ClearIdentity()
		return nil
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	active, lerr := c.backend.ListActive(ctx, ownerID)
	if lerr != nil {
		err = classify(lerr)
		return err
	}
	trashed, lerr := c.backend.ListTrashed(ctx, ownerID)
	if lerr != nil {
		err = classify(lerr)
		return err
	}

	c.ownerID = ownerID
	c.active = active
	c.trashed = trashed
	return nil
}

// ClearIdentity tears down all local state.
func (c *Cache) ClearIdentity() {
	c.ownerID = ""
	c.active = nil
	c.trashed = nil
	c.pending = false
	c.lastErr = nil
}

// Create persists a new task and appends the server-confirmed record to the
// active set.
func (c *Cache) Create(ctx context.Context, task *models.Task) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	task.OwnerID = c.ownerID
	if cerr := c.backend.CreateTask(ctx, task); cerr != nil {
		err = classify(cerr)
		return err
	}

	c.active = append(c.active, *task)
	return nil
}

// Update applies a partial patch and merges the confirmed fields back into
// local state. On failure the local record is untouched.
func (c *Cache) Update(ctx context.Context, id int64, patch models.TaskPatch) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	updated, uerr := c.backend.UpdateTask(ctx, c.ownerID, id, patch)
	if uerr != nil {
		err = classify(uerr)
		return err
	}

	c.replace(updated)
	return nil
}

// ToggleCompletion flips the completed flag of an active task.
func (c *Cache) ToggleCompletion(ctx context.Context, id int64) error {
	task := c.find(c.active, id)
	if task == nil {
		err := taskerr.Newf(taskerr.NotFound, "task not found: %d", id)
		c.lastErr = err
		return err
	}

	completed := !task.Completed
	return c.Update(ctx, id, models.TaskPatch{Completed: &completed})
}

// Delete soft-deletes a task, moving it from the active set to the front of
// the trashed set.
func (c *Cache) Delete(ctx context.Context, id int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	if derr := c.backend.SoftDeleteTask(ctx, c.ownerID, id); derr != nil {
		err = classify(derr)
		return err
	}

	if task := c.take(&c.active, id); task != nil {
		now := time.Now()
		task.IsDeleted = true
		task.DeletedAt = &now
		task.UpdatedAt = now
		c.trashed = append([]models.Task{*task}, c.trashed...)
	}
	return nil
}

// Restore moves a task from the trashed set back to the active set.
func (c *Cache) Restore(ctx context.Context, id int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	if rerr := c.backend.RestoreTask(ctx, c.ownerID, id); rerr != nil {
		err = classify(rerr)
		return err
	}

	if task := c.take(&c.trashed, id); task != nil {
		task.IsDeleted = false
		task.DeletedAt = nil
		task.UpdatedAt = time.Now()
		c.active = append(c.active, *task)
	}
	return nil
}

// PermanentDelete purges a trashed task and drops it from local state.
func (c *Cache) PermanentDelete(ctx context.Context, id int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	if derr := c.backend.PermanentDeleteTask(ctx, c.ownerID, id); derr != nil {
		err = classify(derr)
		return err
	}

	c.take(&c.trashed, id)
	return nil
}

// EmptyTrash purges every trashed task for the current identity.
func (c *Cache) EmptyTrash(ctx context.Context) (int, error) {
	if err := c.requireIdentity(); err != nil {
		return 0, err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	count, eerr := c.backend.EmptyTrash(ctx, c.ownerID)
	if eerr != nil {
		err = classify(eerr)
		return 0, err
	}

	c.trashed = nil
	return count, nil
}

// Reorder applies the full new ordering locally first, then persists it.
// The local reorder is not rolled back if the write fails: the sequence is
// treated as fire-and-forget and eventually consistent, and the failure is
// still recorded in LastError for the caller to surface.
func (c *Cache) Reorder(ctx context.Context, ids []int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	c.applyLocalOrder(ids)

	if rerr := c.backend.ReorderTasks(ctx, c.ownerID, ids); rerr != nil {
		err = classify(rerr)
		return err
	}
	return nil
}

// MoveOne removes the task with activeID from its position and reinserts it
// at overID's position in the active list, then persists the resulting full
// sequence. This backs drag-and-drop single-item moves.
func (c *Cache) MoveOne(ctx context.Context, activeID, overID int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	ids := make([]int64, 0, len(c.active))
	for _, t := range c.active {
		ids = append(ids, t.ID)
	}

	fromIdx, toIdx := -1, -1
	for i, id := range ids {
		if id == activeID {
			fromIdx = i
		}
		if id == overID {
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		err := taskerr.Newf(taskerr.NotFound, "task not found in active list")
		c.lastErr = err
		return err
	}
	if fromIdx == toIdx {
		return nil
	}

	moved := ids[fromIdx]
	ids = append(ids[:fromIdx], ids[fromIdx+1:]...)
	if toIdx > fromIdx {
		toIdx--
	}
	ids = append(ids[:toIdx], append([]int64{moved}, ids[toIdx:]...)...)

	return c.Reorder(ctx, ids)
}

// AddFile attaches a file to a task and merges the confirmed descriptor.
func (c *Cache) AddFile(ctx context.Context, taskID int64, file *models.TaskFile) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	if aerr := c.backend.AddFile(ctx, c.ownerID, taskID, file); aerr != nil {
		err = classify(aerr)
		return err
	}

	if task := c.findAny(taskID); task != nil {
		task.Files = append(task.Files, *file)
		task.UpdatedAt = time.Now()
	}
	return nil
}

// RemoveFile detaches a file from a task.
func (c *Cache) RemoveFile(ctx context.Context, taskID, fileID int64) error {
	if err := c.requireIdentity(); err != nil {
		return err
	}

	c.begin()
	var err error
	defer func() { c.finish(err) }()

	if rerr := c.backend.RemoveFile(ctx, c.ownerID, taskID, fileID); rerr != nil {
		err = classify(rerr)
		return err
	}

	if task := c.findAny(taskID); task != nil {
		files := task.Files[:0]
		for _, f := range task.Files {
			if f.ID != fileID {
				files = append(files, f)
			}
		}
		task.Files = files
		task.UpdatedAt = time.Now()
	}
	return nil
}

// Snapshot returns the active tasks with statuses derived against now.
func (c *Cache) Snapshot(now time.Time) []TaskView {
	views := make([]TaskView, 0, len(c.active))
	for _, t := range c.active {
		views = append(views, TaskView{Task: t, Status: models.DeriveStatus(&t, now)})
	}
	return views
}

// TrashedTasks returns a copy of the trashed set.
func (c *Cache) TrashedTasks() []models.Task {
	out := make([]models.Task, len(c.trashed))
	copy(out, c.trashed)
	return out
}

// ActiveTasks returns a copy of the active set.
func (c *Cache) ActiveTasks() []models.Task {
	out := make([]models.Task, len(c.active))
	copy(out, c.active)
	return out
}

// Pending reports whether a mutation is in flight.
func (c *Cache) Pending() bool { return c.pending }

// LastError returns the error recorded by the most recent operation, or nil.
func (c *Cache) LastError() error { return c.lastErr }

func (c *Cache) requireIdentity() error {
	if c.ownerID == "" {
		err := taskerr.New(taskerr.Unauthorized, "no owner identity available")
		c.lastErr = err
		return err
	}
	return nil
}

// begin marks a mutation in flight and clears any prior error.
func (c *Cache) begin() {
	c.pending = true
	c.lastErr = nil
}

// finish always clears the pending flag, success or failure.
func (c *Cache) finish(err error) {
	c.pending = false
	c.lastErr = err
}

// classify wraps non-structured backend failures as transient so the caller
// can distinguish them from validation and state errors. Structured errors
// pass through verbatim.
func classify(err error) error {
	if taskerr.KindOf(err) != "" {
		return err
	}
	return taskerr.Newf(taskerr.Transient, "operation failed: %v", err)
}

func (c *Cache) find(list []models.Task, id int64) *models.Task {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func (c *Cache) findAny(id int64) *models.Task {
	if t := c.find(c.active, id); t != nil {
		return t
	}
	return c.find(c.trashed, id)
}

// take removes the task with the given id from the list and returns it.
func (c *Cache) take(list *[]models.Task, id int64) *models.Task {
	for i := range *list {
		if (*list)[i].ID == id {
			task := (*list)[i]
			*list = append((*list)[:i], (*list)[i+1:]...)
			return &task
		}
	}
	return nil
}

// replace swaps the stored copy of the task in whichever set holds it.
func (c *Cache) replace(task *models.Task) {
	if t := c.findAny(task.ID); t != nil {
		*t = *task
	}
}

// applyLocalOrder reorders the in-memory active list to match ids. Tasks not
// named keep their relative order after the named ones.
func (c *Cache) applyLocalOrder(ids []int64) {
	ordered := make([]models.Task, 0, len(c.active))
	seen := make(map[int64]bool, len(ids))

	for i, id := range ids {
		if task := c.find(c.active, id); task != nil && !seen[id] {
			task.SortOrder = i
			ordered = append(ordered, *task)
			seen[id] = true
		}
	}
	for _, t := range c.active {
		if !seen[t.ID] {
			ordered = append(ordered, t)
		}
	}

	c.active = ordered
}
