package api

import (
	"context"

	"github.com/p-arndt/shellbox/internal/agent"
	"github.com/p-arndt/shellbox/internal/sandbox"
)

// SandboxService abstracts the sandbox operations needed by API handlers.
type SandboxService interface {
	ExecuteCommand(ctx context.Context, command string, timeoutSeconds int) sandbox.Result
	Start() bool
	Stop() bool
	Info() sandbox.Info
	CreateFile(path, content string) sandbox.FileResult
	ReadFile(path string) sandbox.ReadResult
	ListFiles(dir string) sandbox.ListResult
}

// TaskRunner abstracts the task dispatcher.
type TaskRunner interface {
	RunTask(ctx context.Context, task, additionalInfo string) agent.TaskResult
	Stop() agent.StopResult
	Status() agent.Snapshot
}
