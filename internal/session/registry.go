// Package session mirrors the lifecycle of live sandbox sessions into the
// persistent registry so other processes (the reaper, `shellbox ps`) can see
// them.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/p-arndt/shellbox/internal/sandbox"
	"github.com/p-arndt/shellbox/internal/store"
)

// Registry implements sandbox.Observer. Store failures are logged and never
// reach sandbox callers.
type Registry struct {
	store  SessionStore
	logger *slog.Logger
	pid    int
	now    func() time.Time
}

func NewRegistry(st SessionStore, logger *slog.Logger) *Registry {
	return &Registry{
		store:  st,
		logger: logger,
		pid:    os.Getpid(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register records a freshly constructed session owned by this process.
func (r *Registry) Register(info sandbox.Info) error {
	now := r.now()
	err := r.store.CreateSession(&store.Session{
		ID:           info.SessionID,
		WorkingDir:   info.WorkingDirectory,
		Backend:      info.Backend,
		Status:       statusFor(info.State),
		OwnerPID:     r.pid,
		CreatedAt:    now,
		LastActivity: now,
	})
	if err != nil {
		return fmt.Errorf("registering session %s: %w", info.SessionID, err)
	}
	r.logger.Info("session registered", "session_id", info.SessionID, "working_dir", info.WorkingDirectory)
	return nil
}

// Close marks the session as cleanly shut down. Its working directory stays
// on disk until the reaper's retention window passes.
func (r *Registry) Close(id string) error {
	if err := r.store.UpdateSessionStatus(id, store.StatusClosed); err != nil {
		return fmt.Errorf("closing session %s: %w", id, err)
	}
	return nil
}

func (r *Registry) Get(id string) (*store.Session, error) {
	return r.store.GetSession(id)
}

func (r *Registry) List() ([]*store.Session, error) {
	return r.store.ListSessions()
}

func (r *Registry) StateChanged(info sandbox.Info) {
	if err := r.store.UpdateSessionStatus(info.SessionID, statusFor(info.State)); err != nil {
		r.logger.Error("registry: update status", "session_id", info.SessionID, "error", err)
	}
}

func (r *Registry) CommandFinished(ev sandbox.Execution) {
	if ev.Outcome == sandbox.OutcomeDisabled {
		return
	}
	if err := r.store.RecordActivity(ev.SessionID, r.now()); err != nil {
		r.logger.Error("registry: record activity", "session_id", ev.SessionID, "error", err)
	}
}

func statusFor(state sandbox.State) string {
	switch state {
	case sandbox.StateRunning:
		return store.StatusRunning
	case sandbox.StateDisabled:
		return store.StatusDisabled
	default:
		return store.StatusStopped
	}
}
