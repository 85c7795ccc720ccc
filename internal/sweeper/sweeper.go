// Package sweeper purges trashed tasks that have sat past the retention
// window. It is the only component that crosses owner boundaries and must
// only be reachable from administrative entry points.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long a task stays in the trash before it is
// eligible for permanent deletion.
const DefaultRetention = 30 * 24 * time.Hour

// SweepStore is the slice of the store the sweeper needs.
type SweepStore interface {
	SweepExpired(ctx context.Context, retention time.Duration, now time.Time) (int, error)
}

// Sweeper runs retention sweeps against the store.
type Sweeper struct {
	store     SweepStore
	retention time.Duration
}

// New creates a sweeper with the given retention window. A non-positive
// window falls back to the 30-day default.
func New(store SweepStore, retention time.Duration) *Sweeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Sweeper{store: store, retention: retention}
}

// Retention returns the configured window.
func (s *Sweeper) Retention() time.Duration {
	return s.retention
}

// Sweep permanently deletes all trashed tasks older than the retention
// window and returns the number purged. Safe to re-run: a second sweep at
// the same instant purges nothing.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	purged, err := s.store.SweepExpired(ctx, s.retention, now)
	if err != nil {
		return 0, fmt.Errorf("retention sweep failed: %w", err)
	}
	if purged > 0 {
		log.Printf("retention sweep purged %d task(s)", purged)
	}
	return purged, nil
}

// Schedule registers a periodic sweep on the given cron runner. Each run
// gets its own timeout so a wedged sweep cannot pile up behind the next.
func (s *Sweeper) Schedule(c *cron.Cron, interval time.Duration) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("sweep interval must be positive")
	}

	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)

	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Sweep(ctx, time.Now()); err != nil {
			log.Printf("scheduled sweep: %v", err)
		}
	})
}
