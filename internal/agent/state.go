package agent

import (
	"sync"
	"time"
)

type Status string

const (
	StatusReady   Status = "ready"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
)

// Snapshot is the externally visible agent state.
type Snapshot struct {
	Status        Status      `json:"status"`
	IsRunning     bool        `json:"is_running"`
	StopRequested bool        `json:"stop_requested"`
	CurrentTask   string      `json:"current_task,omitempty"`
	LastTask      string      `json:"last_task,omitempty"`
	LastResult    *TaskResult `json:"last_result,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// State is the shared agent state. Create one per server and hand it to
// every component that needs it.
type State struct {
	mu            sync.Mutex
	running       int
	stopRequested bool
	failed        bool
	currentTask   string
	lastTask      string
	lastResult    *TaskResult
	updatedAt     time.Time
}

func NewState() *State {
	return &State{updatedAt: time.Now().UTC()}
}

func (s *State) begin(task string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running++
	s.stopRequested = false
	s.failed = false
	s.currentTask = task
	s.updatedAt = time.Now().UTC()
}

func (s *State) finish(task string, res TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running > 0 {
		s.running--
	}
	if s.running == 0 {
		s.currentTask = ""
	}
	s.failed = res.Type == TypeError
	s.lastTask = task
	s.lastResult = &res
	s.updatedAt = time.Now().UTC()
}

// RequestStop records a stop request. It does not interrupt work in flight.
func (s *State) RequestStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
	s.updatedAt = time.Now().UTC()
}

func (s *State) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := StatusReady
	switch {
	case s.running > 0:
		status = StatusRunning
	case s.stopRequested:
		status = StatusStopped
	case s.failed:
		status = StatusError
	}
	return Snapshot{
		Status:        status,
		IsRunning:     s.running > 0,
		StopRequested: s.stopRequested,
		CurrentTask:   s.currentTask,
		LastTask:      s.lastTask,
		LastResult:    s.lastResult,
		UpdatedAt:     s.updatedAt,
	}
}
