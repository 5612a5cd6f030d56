package auth

import (
	"context"

	"github.com/wanderstay/wander/db"
)

// Service is the high-level entry point for code that wants a valid session
// before doing bulk work. It shares one Coordinator with the HTTP transport,
// so a proactive refresh here and a reactive one there never race.
type Service struct {
	Coordinator *Coordinator
}

// NewService is the constructor for our auth service.
func NewService(coordinator *Coordinator) *Service {
	return &Service{Coordinator: coordinator}
}

// NewServiceWithRepo constructs a Service (and its Coordinator) from a
// TokenRepository directly.
func NewServiceWithRepo(tokenRepo db.TokenRepository, refresher TokenRefresher) *Service {
	return NewService(NewCoordinator(&tokenRepoStorer{repo: tokenRepo}, refresher))
}

// RefreshToken is a method that handles the full token refresh logic.
// Deprecated: Use RefreshTokenCtx for context-aware cancellation support.
func (s *Service) RefreshToken() (*db.Token, error) {
	return s.RefreshTokenCtx(context.Background())
}

// RefreshTokenCtx returns a token that is valid now, refreshing it first if
// needed. Concurrent callers share a single refresh via the Coordinator.
func (s *Service) RefreshTokenCtx(ctx context.Context) (*db.Token, error) {
	return s.Coordinator.Current(ctx)
}

// tokenRepoStorer adapts db.TokenRepository to TokenStorer.
type tokenRepoStorer struct{ repo db.TokenRepository }

func (s *tokenRepoStorer) GetTokenRecord() (*db.Token, error) {
	return s.repo.Get(context.Background())
}

func (s *tokenRepoStorer) UpsertTokenRecord(token *db.Token) error {
	return s.repo.Upsert(context.Background(), token)
}

func (s *tokenRepoStorer) ClearTokenRecord() error {
	return s.repo.Clear(context.Background())
}
