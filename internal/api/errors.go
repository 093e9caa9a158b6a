package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/p-arndt/shellbox/protocol"
)

// APIError is the structured error body. Detail carries the message shown
// to the user.
type APIError = protocol.ErrorResponse

func writeAPIError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIError{
		Detail:  message,
		Code:    code,
		Details: details,
	})
}

// writeValidationError writes a 400 Bad Request with validation details
func writeValidationError(w http.ResponseWriter, message string, details map[string]any) {
	writeAPIError(w, http.StatusBadRequest, protocol.CodeInvalidRequest, message, details)
}

// writeDecodeError maps a request body decoding failure to 413 or 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeAPIError(w, http.StatusRequestEntityTooLarge, protocol.CodeRequestTooBig,
			fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit), nil)
		return
	}
	writeValidationError(w, "invalid json: "+err.Error(), nil)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeAPIError(w, http.StatusInternalServerError, protocol.CodeInternalError, message, nil)
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	writeAPIError(w, http.StatusTooManyRequests, protocol.CodeRateLimited, "rate limit exceeded", nil)
}
