package auth

import (
	"context"

	"github.com/wanderstay/wander/db"
)

// TokenStorer defines the contract for any component that can store and retrieve a token.
type TokenStorer interface {
	GetTokenRecord() (*db.Token, error)
	UpsertTokenRecord(token *db.Token) error
	ClearTokenRecord() error
}

// TokenRefresher defines the contract for any component that can perform a token refresh action.
type TokenRefresher interface {
	PerformTokenRefresh(refreshToken string) (accessToken string, newRefreshToken string, expiresIn int64, err error)
}

// TokenRefresherWithCtx is an optional upgrade of TokenRefresher that honors cancellation.
type TokenRefresherWithCtx interface {
	PerformTokenRefreshCtx(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, expiresIn int64, err error)
}

// SessionExpiryListener is notified when the session dies for good and the
// stored tokens have been cleared. Fired at most once per failed renewal.
type SessionExpiryListener interface {
	SessionExpired(reason error)
}

// SessionExpiryFunc adapts a plain function to SessionExpiryListener.
type SessionExpiryFunc func(reason error)

func (f SessionExpiryFunc) SessionExpired(reason error) { f(reason) }
