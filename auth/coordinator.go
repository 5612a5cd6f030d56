package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/wanderstay/wander/db"
)

const (
	// DefaultRenewTimeout bounds a single token renewal round trip.
	DefaultRenewTimeout = 15 * time.Second

	// expirySkew treats tokens expiring this soon as already stale.
	expirySkew = 5 * time.Minute
)

// renewal carries the outcome of one refresh cycle to a queued caller.
type renewal struct {
	token *db.Token
	err   error
}

// Coordinator serializes token renewal across concurrent API calls. The first
// caller that finds the session stale owns a refresh cycle; callers arriving
// while the cycle runs are parked on a queue and settled with the cycle's
// outcome, so the refresh token is spent at most once per cycle.
type Coordinator struct {
	Storer    TokenStorer
	Refresher TokenRefresher

	// Clock and Timeout are settable before first use; NewCoordinator fills defaults.
	Clock   clockwork.Clock
	Timeout time.Duration

	mu         sync.Mutex
	refreshing bool
	waiters    []chan renewal
	listeners  []SessionExpiryListener
}

// NewCoordinator creates a Coordinator with the default clock and timeout.
func NewCoordinator(storer TokenStorer, refresher TokenRefresher) *Coordinator {
	return &Coordinator{
		Storer:    storer,
		Refresher: refresher,
		Clock:     clockwork.NewRealClock(),
		Timeout:   DefaultRenewTimeout,
	}
}

// OnSessionExpired registers a listener fired after a renewal ends the
// session. Registration order is preserved when notifying.
func (c *Coordinator) OnSessionExpired(l SessionExpiryListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// IsRefreshing reports whether a renewal cycle is in flight.
func (c *Coordinator) IsRefreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// PendingWaiters returns the number of callers parked on the current cycle.
func (c *Coordinator) PendingWaiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// CurrentAccessToken returns the stored access token without renewing.
// It is empty when the record holds no access token yet.
func (c *Coordinator) CurrentAccessToken() (string, error) {
	token, err := c.Storer.GetTokenRecord()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve token record: %w", err)
	}
	if token == nil {
		return "", ErrNotLoggedIn
	}
	return token.AccessToken, nil
}

// Current returns a usable token record, renewing it first when stale.
func (c *Coordinator) Current(ctx context.Context) (*db.Token, error) {
	token, err := c.Storer.GetTokenRecord()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token record: %w", err)
	}
	if token == nil {
		return nil, ErrNotLoggedIn
	}
	if c.tokenFresh(token) {
		return token, nil
	}
	return c.Renew(ctx, token.AccessToken)
}

// AccessToken returns a bearer token ready for the Authorization header,
// renewing the session first when it is stale.
func (c *Coordinator) AccessToken(ctx context.Context) (string, error) {
	token, err := c.Current(ctx)
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// Renew obtains a fresh token, collapsing concurrent calls into one refresh.
// stale is the access token the caller just saw rejected; when the store
// already holds a newer usable token the cycle returns it without spending
// the refresh token. Waiters abandon the queue when their context ends, but
// the cycle itself runs to completion on a detached context so its outcome
// can settle everyone else.
func (c *Coordinator) Renew(ctx context.Context, stale string) (*db.Token, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan renewal, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()
		select {
		case r := <-ch:
			return r.token, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.runRefreshCycle(ctx, stale)
}

// runRefreshCycle executes one owned refresh cycle end to end. Every exit
// path settles the waiter queue and drops the refreshing flag.
func (c *Coordinator) runRefreshCycle(ctx context.Context, stale string) (*db.Token, error) {
	token, err := c.Storer.GetTokenRecord()
	if err != nil {
		err = fmt.Errorf("failed to retrieve token record: %w", err)
		c.settle(nil, err)
		return nil, err
	}

	// Another cycle may have replaced the token this caller saw rejected.
	if token != nil && token.AccessToken != "" && token.AccessToken != stale && c.tokenFresh(token) {
		c.settle(token, nil)
		return token, nil
	}

	if token == nil {
		return nil, c.endSession(ErrNotLoggedIn)
	}
	if token.RefreshToken == "" {
		return nil, c.endSession(fmt.Errorf("%w: no refresh token on record", ErrRefreshTokenExpired))
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.Timeout)
	defer cancel()

	log.Info().Msg("Access token expired or invalid, refreshing...")
	access, refresh, expiresIn, err := c.callRefresher(rctx, token.RefreshToken)
	if err != nil {
		// A failed renewal ends the session no matter how the endpoint
		// failed: the refresh token may already be spent server-side, so
		// it is never presented a second time.
		return nil, c.endSession(fmt.Errorf("failed to perform token refresh via client: %w", err))
	}

	if refresh == "" {
		// Token endpoints may omit rotation; the old refresh token stays valid.
		refresh = token.RefreshToken
	}
	fresh := &db.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    c.expiryFor(access, expiresIn),
	}
	if err := c.Storer.UpsertTokenRecord(fresh); err != nil {
		err = fmt.Errorf("failed to save refreshed token: %w", err)
		c.settle(nil, err)
		return nil, err
	}

	log.Info().Msg("Token refreshed and saved successfully.")
	c.settle(fresh, nil)
	return fresh, nil
}

// Logout clears the stored session. Expiry listeners stay quiet: the user
// asked for this, there is nothing to announce.
func (c *Coordinator) Logout() error {
	if err := c.Storer.ClearTokenRecord(); err != nil {
		return fmt.Errorf("failed to clear token record: %w", err)
	}
	log.Info().Msg("Session cleared.")
	return nil
}

// endSession tears the session down after a fatal renewal: tokens are cleared
// first, then queued callers fail, then listeners hear about it.
func (c *Coordinator) endSession(reason error) error {
	if err := c.Storer.ClearTokenRecord(); err != nil {
		log.Error().Err(err).Msg("Failed to clear token record after fatal refresh")
	}
	sessionErr := fmt.Errorf("%w: %w", ErrSessionExpired, reason)
	c.settle(nil, sessionErr)
	c.notifyExpired(reason)
	return sessionErr
}

// settle ends the current cycle: the refreshing flag drops, the queue empties,
// and every parked caller receives the outcome exactly once.
func (c *Coordinator) settle(token *db.Token, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- renewal{token: token, err: err}
	}
}

func (c *Coordinator) notifyExpired(reason error) {
	c.mu.Lock()
	listeners := make([]SessionExpiryListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	log.Warn().Err(reason).Msg("Session expired, notifying listeners")
	for _, l := range listeners {
		l.SessionExpired(reason)
	}
}

func (c *Coordinator) callRefresher(ctx context.Context, refreshToken string) (string, string, int64, error) {
	if rf, ok := c.Refresher.(TokenRefresherWithCtx); ok {
		return rf.PerformTokenRefreshCtx(ctx, refreshToken)
	}
	return c.Refresher.PerformTokenRefresh(refreshToken)
}

// tokenFresh reports whether the stored token is usable without renewal.
// Tokens within expirySkew of their deadline count as stale.
func (c *Coordinator) tokenFresh(token *db.Token) bool {
	if token == nil || token.AccessToken == "" || token.RefreshToken == "" || token.ExpiresAt == "" {
		return false
	}
	expiresAt, err := time.Parse(time.RFC3339, token.ExpiresAt)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to parse expiration time: %s", token.ExpiresAt)
		return false
	}
	return c.Clock.Now().Add(expirySkew).Before(expiresAt)
}

// expiryFor computes the RFC3339 expiry for a new access token. The token
// endpoint's expires_in wins; the token's own exp claim is the fallback.
func (c *Coordinator) expiryFor(accessToken string, expiresIn int64) string {
	if expiresIn > 0 {
		return c.Clock.Now().Add(time.Duration(expiresIn) * time.Second).Format(time.RFC3339)
	}
	if exp, ok := ExpiryFromJWT(accessToken); ok {
		return exp.Format(time.RFC3339)
	}
	log.Debug().Msg("Token response carried no expiry, assuming one hour")
	return c.Clock.Now().Add(time.Hour).Format(time.RFC3339)
}
