package store

import (
	"context"
	"time"

	"taskdeck/internal/models"
)

// Store defines the interface for task persistence. Every operation except
// SweepExpired is scoped to an owner id so cross-user access is impossible.
type Store interface {
	// Task lifecycle
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, ownerID string, id int64) (*models.Task, error)
	UpdateTask(ctx context.Context, ownerID string, id int64, patch models.TaskPatch) (*models.Task, error)
	SoftDeleteTask(ctx context.Context, ownerID string, id int64) error
	RestoreTask(ctx context.Context, ownerID string, id int64) error
	PermanentDeleteTask(ctx context.Context, ownerID string, id int64) error
	EmptyTrash(ctx context.Context, ownerID string) (int, error)

	// Listing
	ListActive(ctx context.Context, ownerID string) ([]models.Task, error)
	ListActiveBetween(ctx context.Context, ownerID string, from, to time.Time) ([]models.Task, error)
	ListTrashed(ctx context.Context, ownerID string) ([]models.Task, error)

	// Ordering
	ReorderTasks(ctx context.Context, ownerID string, ids []int64) error

	// Attachments
	AddFile(ctx context.Context, ownerID string, taskID int64, file *models.TaskFile) error
	RemoveFile(ctx context.Context, ownerID string, taskID, fileID int64) error

	// Retention. Crosses owner boundaries; administrative callers only.
	SweepExpired(ctx context.Context, retention time.Duration, now time.Time) (int, error)

	// Lifecycle
	Close() error
}
