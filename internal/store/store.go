package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors
var (
	ErrNotFound = errors.New("not found")
)

// Session statuses. A session is "running" or "stopped" while its owning
// process is alive; "closed" after a clean shutdown; "orphaned" when the
// owner died without closing; "reaped" once its working directory is gone.
const (
	StatusDisabled = "disabled"
	StatusStopped  = "stopped"
	StatusRunning  = "running"
	StatusClosed   = "closed"
	StatusOrphaned = "orphaned"
	StatusReaped   = "reaped"
)

// isBusyLock reports whether err indicates SQLite database lock (SQLITE_BUSY).
// Handles wrapped errors from database/sql.
func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

// retryOnBusy runs fn and retries on SQLITE_BUSY with exponential backoff.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// Session is the registry record of one sandbox session.
type Session struct {
	ID           string    `json:"id"`
	WorkingDir   string    `json:"working_dir"`
	Backend      string    `json:"backend"`
	Status       string    `json:"status"`
	OwnerPID     int       `json:"owner_pid"`
	ExecCount    int       `json:"exec_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Store struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	working_dir   TEXT NOT NULL,
	backend       TEXT NOT NULL DEFAULT 'process',
	status        TEXT NOT NULL DEFAULT 'stopped',
	owner_pid     INTEGER NOT NULL DEFAULT 0,
	exec_count    INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	last_activity DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

const sessionColumns = `id, working_dir, backend, status, owner_pid, exec_count, created_at, last_activity`

// DefaultMaxOpenConns is the default connection pool size for concurrent reads.
// WAL mode allows multiple readers + 1 writer.
const DefaultMaxOpenConns = 4

// dsnWithPragmas returns a connection string with WAL, busy_timeout, and perf
// pragmas applied to every new connection.
func dsnWithPragmas(dbPath string) string {
	// busy_timeout: wait on lock while the reaper and the API overlap
	// journal_mode=WAL: concurrent reads during writes
	// synchronous=NORMAL: safe in WAL
	return dbPath + "?_pragma=busy_timeout(15000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"
}

// New opens the store. maxOpenConns controls the connection pool size (0 = default 4).
// An in-memory database is pinned to a single connection so every query sees
// the same data.
func New(dbPath string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	if dbPath == ":memory:" {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(sess *Session) error {
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.WorkingDir, sess.Backend, sess.Status, sess.OwnerPID, sess.ExecCount,
			sess.CreatedAt.UTC(), sess.LastActivity.UTC(),
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSession returns the session or ErrNotFound.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *Store) ListSessions() ([]*Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListSessionsByStatus returns sessions in any of the given statuses.
func (s *Store) ListSessionsByStatus(statuses ...string) ([]*Session, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions WHERE status IN (`+placeholders+`) ORDER BY created_at`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions by status: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListReapable returns closed or orphaned sessions idle since before cutoff.
func (s *Store) ListReapable(cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE status IN (?, ?) AND last_activity <= ?`,
		StatusClosed, StatusOrphaned, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing reapable sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func (s *Store) UpdateSessionStatus(id string, status string) error {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, status, id)
		return e
	})
	if err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}
	return checkRowAffected(result, id)
}

// RecordActivity counts one command and bumps last_activity to at.
func (s *Store) RecordActivity(id string, at time.Time) error {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(
			`UPDATE sessions SET exec_count = exec_count + 1, last_activity = ? WHERE id = ?`,
			at.UTC(), id,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("recording session activity: %w", err)
	}
	return checkRowAffected(result, id)
}

func (s *Store) DeleteSession(id string) error {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
		return e
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return checkRowAffected(result, id)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*Session, error) {
	var sess Session
	err := row.Scan(
		&sess.ID, &sess.WorkingDir, &sess.Backend, &sess.Status, &sess.OwnerPID,
		&sess.ExecCount, &sess.CreatedAt, &sess.LastActivity,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func checkRowAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}
