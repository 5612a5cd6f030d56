package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wanderstay/wander/auth"
)

// Error codes used in the Wanderstay error envelope {"error": "...", "message": "..."}.
const (
	CodeTokenExpired        = "token_expired"
	CodeInvalidGrant        = "invalid_grant"
	CodeRefreshTokenExpired = "refresh_token_expired"
	CodeInvalidCredentials  = "invalid_credentials"
	CodeStayUnavailable     = "stay_unavailable"
)

var (
	// ErrStayUnavailable is returned when a booking is rejected because the
	// stay is no longer available for the requested dates.
	ErrStayUnavailable = errors.New("stay is not available for the requested dates")

	// ErrQueuedOffline wraps a network error after the request has been
	// handed to the offline queue for replay on reconnect.
	ErrQueuedOffline = errors.New("request queued for retry on reconnect")
)

// APIError is a decoded Wanderstay error envelope plus the HTTP status it
// arrived with.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("wanderstay api: %s: %s (HTTP %d)", e.Code, e.Message, e.Status)
	case e.Code != "":
		return fmt.Sprintf("wanderstay api: %s (HTTP %d)", e.Code, e.Status)
	default:
		return fmt.Sprintf("wanderstay api: HTTP %d: %s", e.Status, e.Message)
	}
}

// Unwrap maps well-known envelope codes onto sentinel errors so callers can
// branch with errors.Is instead of matching strings. A rejected refresh grant
// unwraps to auth.ErrRefreshTokenExpired, which the session coordinator
// treats as fatal.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case CodeTokenExpired:
		return auth.ErrTokenExpired
	case CodeInvalidGrant, CodeRefreshTokenExpired:
		return auth.ErrRefreshTokenExpired
	case CodeInvalidCredentials:
		return auth.ErrInvalidCredentials
	case CodeStayUnavailable:
		return ErrStayUnavailable
	default:
		return nil
	}
}

// decodeAPIError builds an *APIError from a non-2xx response body. Bodies
// that are not the standard envelope are preserved verbatim in Message.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		return &APIError{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return apiErr
}
