package api

import (
	"fmt"
	"strings"

	"github.com/p-arndt/shellbox/protocol"
)

// fieldError is a request validation failure on a single field.
type fieldError struct {
	field   string
	message string
}

func (e *fieldError) Error() string { return e.message }

func (e *fieldError) details() map[string]any {
	return map[string]any{"field": e.field}
}

// validateExecuteRequest checks the command and, when maxTimeout is
// positive, bounds the requested timeout in seconds.
func validateExecuteRequest(req protocol.ExecuteRequest, maxTimeout int) *fieldError {
	if strings.TrimSpace(req.Command) == "" {
		return &fieldError{field: "command", message: "Command is required"}
	}
	if maxTimeout > 0 && int(req.Timeout) > maxTimeout {
		return &fieldError{field: "timeout", message: fmt.Sprintf("timeout must not exceed %d seconds", maxTimeout)}
	}
	return nil
}

func validateFileWriteRequest(req protocol.FileWriteRequest) *fieldError {
	if strings.TrimSpace(req.Path) == "" {
		return &fieldError{field: "path", message: "Path is required"}
	}
	return nil
}

func validateTaskRequest(req protocol.TaskRequest) *fieldError {
	if strings.TrimSpace(req.Task) == "" {
		return &fieldError{field: "task", message: "Task is required"}
	}
	return nil
}
