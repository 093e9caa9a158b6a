// Package reaper cleans up after sandbox sessions whose owning process has
// gone away.
package reaper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/p-arndt/shellbox/internal/store"
)

// DefaultInterval replaces a non-positive interval passed to New.
const DefaultInterval = time.Minute

type Reaper struct {
	store     ReaperStore
	runtime   ReaperRuntime
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	liveID string
}

func New(st ReaperStore, rt ReaperRuntime, interval, retention time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{
		store:     st,
		runtime:   rt,
		interval:  interval,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// SetLiveSession excludes the session owned by this process from reaping.
func (r *Reaper) SetLiveSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveID = id
}

func (r *Reaper) isLive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return id == r.liveID
}

func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("reaper started", "interval", r.interval, "retention", r.retention)

	r.reconcile()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			r.RunOnce()
		}
	}
}

// RunOnce performs a single reconcile and reap pass and returns how many
// working directories were removed.
func (r *Reaper) RunOnce() int {
	r.reconcile()
	return r.reapStale()
}

func (r *Reaper) reapStale() int {
	cutoff := r.now().Add(-r.retention)
	stale, err := r.store.ListReapable(cutoff)
	if err != nil {
		r.logger.Error("reaper: list reapable", "error", err)
		return 0
	}

	reaped := 0
	for _, sess := range stale {
		if r.isLive(sess.ID) {
			continue
		}
		r.logger.Info("reaping stale session", "session_id", sess.ID, "last_activity", sess.LastActivity)

		if err := r.runtime.RemoveWorkDir(sess.WorkingDir); err != nil {
			r.logger.Error("reaper: remove working dir", "session_id", sess.ID, "dir", sess.WorkingDir, "error", err)
			continue
		}

		if err := r.store.UpdateSessionStatus(sess.ID, store.StatusReaped); err != nil {
			r.logger.Error("reaper: update status", "session_id", sess.ID, "error", err)
			continue
		}
		reaped++
	}

	if reaped > 0 {
		r.logger.Info("reaper: reaped sessions", "count", reaped)
	}
	return reaped
}

// reconcile marks sessions whose owner process died without closing them.
func (r *Reaper) reconcile() {
	r.logger.Debug("reconciliation starting")

	active, err := r.store.ListSessionsByStatus(store.StatusRunning, store.StatusStopped, store.StatusDisabled)
	if err != nil {
		r.logger.Error("reconcile: list active sessions", "error", err)
		return
	}

	for _, sess := range active {
		if r.isLive(sess.ID) || r.runtime.IsAlive(sess.OwnerPID) {
			continue
		}
		r.logger.Warn("reconcile: owner process gone, marking orphaned",
			"session_id", sess.ID, "owner_pid", sess.OwnerPID)
		if err := r.store.UpdateSessionStatus(sess.ID, store.StatusOrphaned); err != nil {
			r.logger.Error("reconcile: update status", "session_id", sess.ID, "error", err)
		}
	}

	r.logger.Debug("reconciliation complete")
}
