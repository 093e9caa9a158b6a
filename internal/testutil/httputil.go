package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// JSONRequest builds a request with a JSON body. A string or []byte body is
// sent as-is so tests can post malformed documents.
func JSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body), "encoding request body")
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON checks that the recorded response is JSON and decodes it into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	ct := rec.Header().Get("Content-Type")
	require.True(t, strings.HasPrefix(ct, "application/json"), "unexpected Content-Type %q", ct)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "decoding response: %s", rec.Body.String())
}

// ErrorCode decodes an error envelope and returns its error_code.
func ErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Detail string `json:"detail"`
		Code   string `json:"error_code"`
	}
	DecodeJSON(t, rec, &resp)
	require.NotEmpty(t, resp.Detail, "error responses carry a detail")
	return resp.Code
}
