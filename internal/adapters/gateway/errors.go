package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// NetworkError is a request that was sent but never answered. Retryable
// marks timeouts and transport-level failures where trying again is
// reasonable.
type NetworkError struct {
	Err       error
	Timeout   bool
	Retryable bool
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// SetupError is a request that failed before it was ever sent.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("request setup: %v", e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// RefreshFailedError is the final rejection after a token refresh attempt.
// Terminal means the session was cleared (refresh token missing or rejected
// with 401/403); otherwise the failure was transient and the credentials
// survive. Original is the 401 that triggered the refresh.
type RefreshFailedError struct {
	Terminal bool
	Cause    error
	Original *APIError
}

func (e *RefreshFailedError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("authentication expired: %v", e.Cause)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Cause)
}

func (e *RefreshFailedError) Unwrap() error {
	return e.Cause
}

func classifyTransport(err error) error {
	var nerr net.Error
	timeout := errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &nerr) && nerr.Timeout())

	retryable := timeout
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		retryable = true
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		retryable = true
	}

	return &NetworkError{Err: err, Timeout: timeout, Retryable: retryable}
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func isUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// terminalRefreshFailure decides whether a failed refresh kills the session.
// A 401/403 from the refresh endpoint or a missing refresh token is
// terminal; anything without a response (network, timeout) is deliberately
// not, so a backend outage never logs the user out.
func terminalRefreshFailure(err error) bool {
	if errors.Is(err, errNoRefreshToken) {
		return true
	}
	status := statusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

var errNoRefreshToken = errors.New("no refresh token available")
