package reaper

import (
	"time"

	"github.com/p-arndt/shellbox/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockReaperStore mocks the ReaperStore interface.
type MockReaperStore struct {
	mock.Mock
}

func (m *MockReaperStore) ListSessionsByStatus(statuses ...string) ([]*store.Session, error) {
	args := m.Called(statuses)
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReaperStore) ListReapable(cutoff time.Time) ([]*store.Session, error) {
	args := m.Called(cutoff)
	if sessions := args.Get(0); sessions != nil {
		return sessions.([]*store.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReaperStore) UpdateSessionStatus(id string, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

// MockReaperRuntime mocks the ReaperRuntime interface.
type MockReaperRuntime struct {
	mock.Mock
}

func (m *MockReaperRuntime) IsAlive(pid int) bool {
	args := m.Called(pid)
	return args.Bool(0)
}

func (m *MockReaperRuntime) RemoveWorkDir(dir string) error {
	args := m.Called(dir)
	return args.Error(0)
}
