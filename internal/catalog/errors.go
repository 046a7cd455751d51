package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError represents an error response from the remote catalog.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: %d: %s", e.StatusCode, e.Message)
}

func newAPIError(statusCode int, body []byte) *APIError {
	var decoded APIError
	if json.Unmarshal(body, &decoded) == nil && decoded.Message != "" {
		decoded.StatusCode = statusCode
		return &decoded
	}
	return &APIError{StatusCode: statusCode, Message: string(body)}
}

// IsAlreadyExists reports whether err is a remote-catalog "already exists"
// response naming blockName — the duplicate-insertion race the worker pool
// promotes to a successful outcome.
func IsAlreadyExists(err error, blockName string) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	want := fmt.Sprintf("Block %s already exists", blockName)
	return strings.Contains(apiErr.Message, want)
}

// IsAmbiguous reports whether err looks like a proxy-level failure rather
// than a definite response from the catalog itself — a 502, 503 or 504
// status, or a body mentioning a bad gateway, a gateway timeout or an
// upstream connect error. Any other error status is not ambiguous, whatever
// its body looks like. Ambiguous responses are neither a confirmed success
// nor a confirmed failure, so the block is deferred to an existence probe
// on the next cycle instead of being retried blindly.
func IsAmbiguous(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	switch apiErr.StatusCode {
	case 502, 503, 504:
		return true
	}
	lower := strings.ToLower(apiErr.Message)
	return strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "gateway timeout") ||
		strings.Contains(lower, "upstream connect error")
}
