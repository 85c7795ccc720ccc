package models

import (
	"math"
	"time"
)

// Status is the derived urgency classification of a task relative to the
// current time. It is computed on every read and never stored.
type Status string

const (
	StatusPending     Status = "pending"
	StatusOnTrack     Status = "on-track"
	StatusApproaching Status = "approaching"
	StatusUrgent      Status = "urgent"
	StatusOverdue     Status = "overdue"
)

// DeriveStatus classifies a task against now. A task that has not started
// yet is always pending, regardless of how close its deadline is. The branch
// order matters: the ranges overlap and ties fall into the tighter bucket,
// so a task due today (zero days) is urgent, not approaching.
func DeriveStatus(t *Task, now time.Time) Status {
	daysUntilDue := int(math.Ceil(t.EndDate.Sub(now).Hours() / 24))

	if now.Before(t.StartDate) {
		return StatusPending
	}

	if daysUntilDue < 0 {
		return StatusOverdue
	}

	if daysUntilDue <= 2 {
		return StatusUrgent
	}

	if daysUntilDue <= 7 {
		return StatusApproaching
	}

	return StatusOnTrack
}
