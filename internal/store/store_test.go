package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           id,
		WorkingDir:   "/tmp/ai-sandbox-" + id,
		Backend:      "process",
		Status:       StatusRunning,
		OwnerPID:     4242,
		CreatedAt:    now,
		LastActivity: now,
	}
}

func TestCreateAndGetSession(t *testing.T) {
	st := newTestStore(t)
	sess := testSession("test-1")

	require.NoError(t, st.CreateSession(sess))

	got, err := st.GetSession("test-1")
	require.NoError(t, err)

	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.WorkingDir, got.WorkingDir)
	assert.Equal(t, sess.Backend, got.Backend)
	assert.Equal(t, sess.Status, got.Status)
	assert.Equal(t, sess.OwnerPID, got.OwnerPID)
	assert.Zero(t, got.ExecCount)
}

func TestGetSessionNotFound(t *testing.T) {
	st := newTestStore(t)

	got, err := st.GetSession("nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
}

func TestListSessions(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.CreateSession(testSession("s1")))
	require.NoError(t, st.CreateSession(testSession("s2")))
	require.NoError(t, st.CreateSession(testSession("s3")))

	sessions, err := st.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
}

func TestListSessionsEmpty(t *testing.T) {
	st := newTestStore(t)

	sessions, err := st.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestListSessionsByStatus(t *testing.T) {
	st := newTestStore(t)
	running := testSession("s1")
	closed := testSession("s2")
	closed.Status = StatusClosed
	orphaned := testSession("s3")
	orphaned.Status = StatusOrphaned
	for _, s := range []*Session{running, closed, orphaned} {
		require.NoError(t, st.CreateSession(s))
	}

	got, err := st.ListSessionsByStatus(StatusRunning, StatusStopped)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	got, err = st.ListSessionsByStatus(StatusClosed, StatusOrphaned)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = st.ListSessionsByStatus()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateSessionStatus(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CreateSession(testSession("s1")))

	require.NoError(t, st.UpdateSessionStatus("s1", StatusStopped))

	got, err := st.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, got.Status)
}

func TestUpdateSessionStatusNotFound(t *testing.T) {
	st := newTestStore(t)

	err := st.UpdateSessionStatus("nonexistent", StatusClosed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordActivity(t *testing.T) {
	st := newTestStore(t)
	sess := testSession("s1")
	sess.LastActivity = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, st.CreateSession(sess))

	now := time.Now().UTC()
	require.NoError(t, st.RecordActivity("s1", now))
	require.NoError(t, st.RecordActivity("s1", now))

	got, err := st.GetSession("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ExecCount)
	assert.WithinDuration(t, now, got.LastActivity, time.Second)
}

func TestRecordActivityNotFound(t *testing.T) {
	st := newTestStore(t)

	assert.ErrorIs(t, st.RecordActivity("missing", time.Now()), ErrNotFound)
}

func TestListReapable(t *testing.T) {
	st := newTestStore(t)
	old := time.Now().Add(-2 * time.Hour).UTC()

	staleClosed := testSession("stale-closed")
	staleClosed.Status = StatusClosed
	staleClosed.LastActivity = old

	staleOrphan := testSession("stale-orphan")
	staleOrphan.Status = StatusOrphaned
	staleOrphan.LastActivity = old

	freshClosed := testSession("fresh-closed")
	freshClosed.Status = StatusClosed

	staleRunning := testSession("stale-running")
	staleRunning.LastActivity = old

	for _, s := range []*Session{staleClosed, staleOrphan, freshClosed, staleRunning} {
		require.NoError(t, st.CreateSession(s))
	}

	reapable, err := st.ListReapable(time.Now().Add(-time.Hour))
	require.NoError(t, err)

	ids := make([]string, 0, len(reapable))
	for _, s := range reapable {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{"stale-closed", "stale-orphan"}, ids)
}

func TestDeleteSession(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CreateSession(testSession("s1")))

	require.NoError(t, st.DeleteSession("s1"))

	_, err := st.GetSession("s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSessionNotFound(t *testing.T) {
	st := newTestStore(t)

	assert.ErrorIs(t, st.DeleteSession("nonexistent"), ErrNotFound)
}

func TestDuplicateSessionID(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.CreateSession(testSession("dup")))

	err := st.CreateSession(testSession("dup"))
	assert.Error(t, err)
}

func TestFileBackedStoreReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shellbox.db")

	st, err := New(dbPath, 2)
	require.NoError(t, err)
	require.NoError(t, st.CreateSession(testSession("persisted")))
	require.NoError(t, st.Close())

	st, err = New(dbPath, 2)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.GetSession("persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.ID)
}
