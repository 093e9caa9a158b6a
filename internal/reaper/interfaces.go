package reaper

import (
	"time"

	"github.com/p-arndt/shellbox/internal/store"
)

// ReaperStore abstracts store operations needed by the reaper.
type ReaperStore interface {
	ListSessionsByStatus(statuses ...string) ([]*store.Session, error)
	ListReapable(cutoff time.Time) ([]*store.Session, error)
	UpdateSessionStatus(id string, status string) error
}

// ReaperRuntime abstracts host operations needed by the reaper.
type ReaperRuntime interface {
	IsAlive(pid int) bool
	RemoveWorkDir(dir string) error
}
