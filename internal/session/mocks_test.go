package session

import (
	"time"

	"github.com/p-arndt/shellbox/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) CreateSession(sess *store.Session) error {
	args := m.Called(sess)
	return args.Error(0)
}

func (m *MockSessionStore) GetSession(id string) (*store.Session, error) {
	args := m.Called(id)
	if sess := args.Get(0); sess != nil {
		return sess.(*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) ListSessions() ([]*store.Session, error) {
	args := m.Called()
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) UpdateSessionStatus(id string, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockSessionStore) RecordActivity(id string, at time.Time) error {
	args := m.Called(id, at)
	return args.Error(0)
}
