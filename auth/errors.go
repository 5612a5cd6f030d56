package auth

import "errors"

// Sentinel errors for session handling. API and transport code wrap these so
// callers can branch with errors.Is regardless of where the failure surfaced.
var (
	// ErrNotLoggedIn means no token record exists locally.
	ErrNotLoggedIn = errors.New("not logged in; run 'wander login' first")

	// ErrTokenExpired is the server's verdict on a stale access token.
	ErrTokenExpired = errors.New("access token expired")

	// ErrRefreshTokenExpired means the refresh token was rejected. The session
	// cannot be recovered without a fresh login.
	ErrRefreshTokenExpired = errors.New("refresh token expired or revoked")

	// ErrInvalidCredentials is returned by the token endpoint on bad grants.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired is surfaced to callers whose requests were waiting on a
	// renewal that ended the session.
	ErrSessionExpired = errors.New("session expired; please login again")
)

// IsFatalSessionError reports whether err means the session is gone for
// good, so callers can stop retrying the request that surfaced it.
func IsFatalSessionError(err error) bool {
	return errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrNotLoggedIn)
}
