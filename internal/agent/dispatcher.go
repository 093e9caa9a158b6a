// Package agent routes free-form tasks. Tasks that ask for shell work are
// turned into a single sandbox command; everything else is acknowledged.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/p-arndt/shellbox/internal/sandbox"
)

const (
	TypeSandbox = "sandbox"
	TypeAgent   = "agent"
	TypeError   = "error"

	// FallbackCommand runs when a sandbox task carries no usable command.
	FallbackCommand = "echo 'Hello from sandbox'"
)

var sandboxKeywords = []string{"execute", "run", "shell", "terminal", "command", "install"}

// Executor is the part of the sandbox the dispatcher needs.
type Executor interface {
	ExecuteCommand(ctx context.Context, command string, timeoutSeconds int) sandbox.Result
}

type TaskResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Error   string `json:"error,omitempty"`
	Type    string `json:"type"`
}

type StopResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Dispatcher struct {
	exec   Executor
	state  *State
	logger *slog.Logger
}

func NewDispatcher(exec Executor, state *State, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{exec: exec, state: state, logger: logger}
}

// RunTask handles one task. additionalInfo is accepted for context only.
func (d *Dispatcher) RunTask(ctx context.Context, task, additionalInfo string) (res TaskResult) {
	d.state.begin(task)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("error executing task", "task", task, "panic", r)
			res = TaskResult{Success: false, Error: fmt.Sprint(r), Type: TypeError}
		}
		d.state.finish(task, res)
	}()

	d.logger.Info("running task", "task", task, "has_additional_info", additionalInfo != "")

	if !IsSandboxTask(task) {
		return TaskResult{
			Success: true,
			Output:  fmt.Sprintf("Task '%s' received and processed", task),
			Type:    TypeAgent,
		}
	}

	command := ExtractCommand(task)
	out := d.exec.ExecuteCommand(ctx, command, 0)
	return TaskResult{
		Success: out.Success,
		Output:  out.Stdout,
		Error:   out.Stderr,
		Type:    TypeSandbox,
	}
}

func (d *Dispatcher) Stop() StopResult {
	d.state.RequestStop()
	d.logger.Info("agent stop requested")
	return StopResult{Success: true, Message: "Execution stopped"}
}

func (d *Dispatcher) Status() Snapshot {
	return d.state.Snapshot()
}

// IsSandboxTask reports whether the task mentions any shell-work keyword.
func IsSandboxTask(task string) bool {
	lower := strings.ToLower(task)
	for _, kw := range sandboxKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExtractCommand takes the text after the last "run" or, failing that, after
// the last "execute" (case-insensitive). Without either keyword the whole
// task is used. Results shorter than three characters fall back to
// FallbackCommand.
func ExtractCommand(task string) string {
	lower := strings.ToLower(task)

	command := task
	if i := strings.LastIndex(lower, "run"); i >= 0 {
		command = task[i+len("run"):]
	} else if i := strings.LastIndex(lower, "execute"); i >= 0 {
		command = task[i+len("execute"):]
	}
	command = strings.TrimSpace(command)

	if len(command) < 3 {
		return FallbackCommand
	}
	return command
}
