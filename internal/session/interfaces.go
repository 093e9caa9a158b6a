package session

import (
	"time"

	"github.com/p-arndt/shellbox/internal/store"
)

type SessionStore interface {
	CreateSession(sess *store.Session) error
	GetSession(id string) (*store.Session, error)
	ListSessions() ([]*store.Session, error)
	UpdateSessionStatus(id string, status string) error
	RecordActivity(id string, at time.Time) error
}
