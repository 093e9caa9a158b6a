package sandbox

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockLauncher is a spy Launcher. Name is fixed so tests only stub Launch.
type MockLauncher struct {
	mock.Mock
}

func (m *MockLauncher) Launch(ctx context.Context, spec LaunchSpec) (*LaunchResult, error) {
	args := m.Called(ctx, spec)
	if res := args.Get(0); res != nil {
		return res.(*LaunchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLauncher) Name() string { return "mock" }

type recordingObserver struct {
	mu     sync.Mutex
	states []Info
	execs  []Execution
}

func (r *recordingObserver) StateChanged(info Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, info)
}

func (r *recordingObserver) CommandFinished(ev Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs = append(r.execs, ev)
}

func (r *recordingObserver) executions() []Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Execution(nil), r.execs...)
}
