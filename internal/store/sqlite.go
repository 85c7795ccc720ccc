package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"taskdeck/internal/models"
	"taskdeck/internal/taskerr"
)

const taskColumns = `id, owner_id, title, description, start_date, end_date, priority, color,
	completed, is_deleted, deleted_at, sort_order, created_at, updated_at`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask creates a new active task. The sort order is assigned at the end
// of the owner's active list.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.Color == "" {
		task.Color = models.DefaultColor
	}

	if err := task.Validate(); err != nil {
		return err
	}

	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Completed = false
	task.IsDeleted = false
	task.DeletedAt = nil

	var nextOrder int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sort_order), -1) + 1 FROM tasks WHERE owner_id = ? AND is_deleted = 0
	`, task.OwnerID).Scan(&nextOrder)
	if err != nil {
		return fmt.Errorf("failed to compute sort order: %w", err)
	}
	task.SortOrder = nextOrder

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (owner_id, title, description, start_date, end_date, priority, color,
			completed, is_deleted, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.OwnerID, task.Title, task.Description, task.StartDate, task.EndDate, task.Priority,
		task.Color, task.Completed, task.IsDeleted, task.SortOrder, now, now)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id

	return nil
}

// GetTask retrieves a task by id, scoped to its owner.
func (s *SQLiteStore) GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?
	`, id, ownerID)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskerr.Newf(taskerr.NotFound, "task not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if err := s.attachFiles(ctx, ownerID, []*models.Task{task}); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateTask applies a partial patch to an active or trashed task and bumps
// updated_at. Unsupplied fields are left untouched.
func (s *SQLiteStore) UpdateTask(ctx context.Context, ownerID string, id int64, patch models.TaskPatch) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	task, err := s.GetTask(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	task.Apply(patch)
	task.UpdatedAt = time.Now()

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, start_date = ?, end_date = ?, priority = ?, color = ?,
			completed = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, task.Title, task.Description, task.StartDate, task.EndDate, task.Priority, task.Color,
		task.Completed, task.UpdatedAt, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// SoftDeleteTask moves an active task to the trash. Deleting an
// already-trashed task is a no-op success.
func (s *SQLiteStore) SoftDeleteTask(ctx context.Context, ownerID string, id int64) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET is_deleted = 1, deleted_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND is_deleted = 0
	`, now, now, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, found, err := s.taskState(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !found {
		return taskerr.Newf(taskerr.NotFound, "task not found: %d", id)
	}

	// Already trashed.
	return nil
}

// RestoreTask moves a trashed task back to the active list.
func (s *SQLiteStore) RestoreTask(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET is_deleted = 0, deleted_at = NULL, updated_at = ?
		WHERE id = ? AND owner_id = ? AND is_deleted = 1
	`, time.Now(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to restore task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check restore result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, found, err := s.taskState(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !found {
		return taskerr.Newf(taskerr.NotFound, "task not found in trash: %d", id)
	}

	return taskerr.Newf(taskerr.InvalidState, "task %d is not trashed", id)
}

// PermanentDeleteTask removes a trashed task entirely. Active tasks cannot be
// purged directly; every deletion passes through the trash first.
func (s *SQLiteStore) PermanentDeleteTask(ctx context.Context, ownerID string, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE id = ? AND owner_id = ? AND is_deleted = 1
	`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to permanently delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, found, err := s.taskState(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !found {
		return taskerr.Newf(taskerr.NotFound, "task not found in trash: %d", id)
	}

	return taskerr.Newf(taskerr.InvalidState, "task %d must be trashed before permanent deletion", id)
}

// EmptyTrash permanently deletes all trashed tasks for the owner and returns
// how many were removed.
func (s *SQLiteStore) EmptyTrash(ctx context.Context, ownerID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM tasks WHERE owner_id = ? AND is_deleted = 1
	`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to empty trash: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count emptied tasks: %w", err)
	}

	return int(affected), nil
}

// ListActive retrieves the owner's active tasks ordered by sort_order, ties
// broken by creation time.
func (s *SQLiteStore) ListActive(ctx context.Context, ownerID string) ([]models.Task, error) {
	return s.listTasks(ctx, ownerID, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = ? AND is_deleted = 0
		ORDER BY sort_order ASC, created_at ASC
	`, ownerID)
}

// ListActiveBetween retrieves active tasks whose [start_date, end_date] span
// intersects the given range. Used by the calendar view.
func (s *SQLiteStore) ListActiveBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Task, error) {
	return s.listTasks(ctx, ownerID, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = ? AND is_deleted = 0 AND start_date <= ? AND end_date >= ?
		ORDER BY sort_order ASC, created_at ASC
	`, ownerID, to, from)
}

// ListTrashed retrieves the owner's trashed tasks, most recently deleted
// first.
func (s *SQLiteStore) ListTrashed(ctx context.Context, ownerID string) ([]models.Task, error) {
	return s.listTasks(ctx, ownerID, `
		SELECT `+taskColumns+` FROM tasks
		WHERE owner_id = ? AND is_deleted = 1
		ORDER BY deleted_at DESC
	`, ownerID)
}

// ReorderTasks assigns sort_order = index for each id in the sequence. Ids
// that belong to another owner or are trashed do not match the scoped update
// and are silently skipped.
func (s *SQLiteStore) ReorderTasks(ctx context.Context, ownerID string, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE tasks SET sort_order = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND is_deleted = 0
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, id := range ids {
		if _, err := stmt.ExecContext(ctx, i, now, id, ownerID); err != nil {
			return fmt.Errorf("failed to update sort order: %w", err)
		}
	}

	return tx.Commit()
}

// AddFile attaches a file descriptor to a task. The task may be active or
// trashed but must exist and belong to the owner.
func (s *SQLiteStore) AddFile(ctx context.Context, ownerID string, taskID int64, file *models.TaskFile) error {
	_, found, err := s.taskState(ctx, ownerID, taskID)
	if err != nil {
		return err
	}
	if !found {
		return taskerr.Newf(taskerr.NotFound, "task not found: %d", taskID)
	}

	if file.Name == "" || file.DataRef == "" {
		return taskerr.New(taskerr.Validation, "file name and data reference are required")
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now()
	}

	var nextPos int
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position), -1) + 1 FROM task_files WHERE task_id = ?
	`, taskID).Scan(&nextPos)
	if err != nil {
		return fmt.Errorf("failed to compute file position: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO task_files (task_id, name, size, mime_type, data_ref, uploaded_at, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, taskID, file.Name, file.Size, file.MimeType, file.DataRef, file.UploadedAt, nextPos)
	if err != nil {
		return fmt.Errorf("failed to add file: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	file.ID = id
	file.TaskID = taskID

	if err := s.touchTask(ctx, ownerID, taskID); err != nil {
		return err
	}

	return nil
}

// RemoveFile detaches a file from a task.
func (s *SQLiteStore) RemoveFile(ctx context.Context, ownerID string, taskID, fileID int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM task_files
		WHERE id = ? AND task_id IN (SELECT id FROM tasks WHERE id = ? AND owner_id = ?)
	`, fileID, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check remove result: %w", err)
	}
	if affected == 0 {
		return taskerr.Newf(taskerr.NotFound, "file not found: %d", fileID)
	}

	return s.touchTask(ctx, ownerID, taskID)
}

// SweepExpired permanently deletes trashed tasks across all owners whose
// deleted_at is older than the retention window. Each record is purged
// individually so one failure cannot abort the whole sweep; the deleted-flag
// guard means a restore that lands first wins the race.
func (s *SQLiteStore) SweepExpired(ctx context.Context, retention time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-retention)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM tasks WHERE is_deleted = 1 AND deleted_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to scan expired tasks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to scan expired task id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed iterating expired tasks: %w", err)
	}

	purged := 0
	for _, id := range ids {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM tasks WHERE id = ? AND is_deleted = 1
		`, id)
		if err != nil {
			log.Printf("sweep: failed to purge task %d: %v", id, err)
			continue
		}
		affected, err := result.RowsAffected()
		if err != nil {
			log.Printf("sweep: failed to check purge result for task %d: %v", id, err)
			continue
		}
		purged += int(affected)
	}

	return purged, nil
}

// taskState reports whether the task exists for the owner and whether it is
// trashed.
func (s *SQLiteStore) taskState(ctx context.Context, ownerID string, id int64) (isDeleted, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT is_deleted FROM tasks WHERE id = ? AND owner_id = ?
	`, id, ownerID).Scan(&isDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to check task state: %w", err)
	}
	return isDeleted, true, nil
}

func (s *SQLiteStore) touchTask(ctx context.Context, ownerID string, id int64) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET updated_at = ? WHERE id = ? AND owner_id = ?
	`, time.Now(), id, ownerID); err != nil {
		return fmt.Errorf("failed to touch task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) listTasks(ctx context.Context, ownerID, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*models.Task, len(tasks))
	for i := range tasks {
		refs[i] = &tasks[i]
	}
	if err := s.attachFiles(ctx, ownerID, refs); err != nil {
		return nil, err
	}

	return tasks, nil
}

// attachFiles loads attachment descriptors for the given tasks in one query.
func (s *SQLiteStore) attachFiles(ctx context.Context, ownerID string, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.task_id, f.name, f.size, f.mime_type, f.data_ref, f.uploaded_at
		FROM task_files f
		JOIN tasks t ON t.id = f.task_id
		WHERE t.owner_id = ?
		ORDER BY f.position ASC
	`, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f models.TaskFile
		if err := rows.Scan(&f.ID, &f.TaskID, &f.Name, &f.Size, &f.MimeType, &f.DataRef, &f.UploadedAt); err != nil {
			return fmt.Errorf("failed to scan file: %w", err)
		}
		if task, ok := byID[f.TaskID]; ok {
			task.Files = append(task.Files, f)
		}
	}

	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var deletedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.StartDate,
		&task.EndDate,
		&task.Priority,
		&task.Color,
		&task.Completed,
		&task.IsDeleted,
		&deletedAt,
		&task.SortOrder,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deletedAt.Valid {
		t := deletedAt.Time
		task.DeletedAt = &t
	}

	return task, nil
}
