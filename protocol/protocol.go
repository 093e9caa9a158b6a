// Package protocol defines the JSON types exchanged between the shellbox
// HTTP API and its clients.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Timeout is a per-request timeout in seconds. It accepts a JSON number or a
// numeric string; null, "" and 0 all mean "use the server default".
type Timeout int

func (t *Timeout) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*t = 0
			return nil
		}
	} else {
		raw = string(data)
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return fmt.Errorf("timeout must be a whole number of seconds, got %s", data)
		}
		n = int(f)
	}
	if n < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", n)
	}
	*t = Timeout(n)
	return nil
}

// ExecuteRequest is the body of POST /api/sandbox/execute.
type ExecuteRequest struct {
	Command string  `json:"command"`
	Timeout Timeout `json:"timeout,omitempty"`
}

// ExecuteResponse mirrors sandbox.Result on the wire.
type ExecuteResponse struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

type FileWriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type TaskRequest struct {
	Task           string `json:"task"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// SandboxSettings is the user-facing view of the sandbox configuration.
type SandboxSettings struct {
	Enabled bool   `json:"enabled"`
	User    string `json:"user"`
	Timeout int    `json:"timeout"`
}

type SandboxSettingsResponse struct {
	Settings SandboxSettings `json:"settings"`
}

type OKResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeRequestTooBig  = "REQUEST_TOO_LARGE"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternalError  = "INTERNAL_ERROR"
)

// ErrorResponse is the body of every non-2xx response. Detail carries the
// human-readable message.
type ErrorResponse struct {
	Detail  string         `json:"detail"`
	Code    string         `json:"error_code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}
