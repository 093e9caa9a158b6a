package sandbox

import "time"

// Outcome classifies a finished command for observers.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeDisabled Outcome = "disabled"
	OutcomeError    Outcome = "error"
)

// Execution describes one ExecuteCommand call after it returned.
type Execution struct {
	SessionID string
	Command   string
	Backend   string
	Outcome   Outcome
	ExitCode  int
	Duration  time.Duration
}

// Observer receives lifecycle and execution events. Implementations must not
// block; they run on the caller's goroutine.
type Observer interface {
	StateChanged(info Info)
	CommandFinished(ev Execution)
}
