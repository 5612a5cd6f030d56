package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// tokenResponse is the body of a successful POST /oauth/token.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// PerformTokenRefreshCtx exchanges a refresh token for a new token pair. A
// rejected grant comes back as an *APIError that unwraps to
// auth.ErrRefreshTokenExpired; the coordinator ends the session on any
// failure returned here.
func (c *WanderClient) PerformTokenRefreshCtx(ctx context.Context, refreshToken string) (string, string, int64, error) {
	form := url.Values{
		"client_id":     {oauthClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	result, err := c.postTokenForm(ctx, form)
	if err != nil {
		return "", "", 0, err
	}
	return result.AccessToken, result.RefreshToken, result.ExpiresIn, nil
}

// PerformTokenRefresh is the context-free variant kept for auth.TokenRefresher.
func (c *WanderClient) PerformTokenRefresh(refreshToken string) (string, string, int64, error) {
	return c.PerformTokenRefreshCtx(context.Background(), refreshToken)
}

// PasswordLogin signs in with email and password and returns the access
// token, refresh token, and expiry in RFC3339.
func (c *WanderClient) PasswordLogin(ctx context.Context, email, password string) (string, string, string, error) {
	if email == "" || password == "" {
		return "", "", "", fmt.Errorf("email and password cannot be empty")
	}
	form := url.Values{
		"client_id":  {oauthClientID},
		"grant_type": {"password"},
		"username":   {email},
		"password":   {password},
	}
	result, err := c.postTokenForm(ctx, form)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to sign in: %w", err)
	}
	return result.AccessToken, result.RefreshToken, expiresAtString(result.ExpiresIn), nil
}

// exchangeCodeForToken trades an authorization code from the hosted login
// page for a token pair.
func (c *WanderClient) exchangeCodeForToken(ctx context.Context, code string) (string, string, string, error) {
	form := url.Values{
		"client_id":    {oauthClientID},
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {"https://www.wanderstay.com/auth/callback"},
	}
	result, err := c.postTokenForm(ctx, form)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return result.AccessToken, result.RefreshToken, expiresAtString(result.ExpiresIn), nil
}

// postTokenForm posts a form grant to the token endpoint with a plain HTTP
// client. Going through the session transport here would let a refresh
// trigger another refresh.
func (c *WanderClient) postTokenForm(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to post token form: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp.StatusCode, body)
		log.Warn().Int("status", resp.StatusCode).Str("code", apiErr.Code).Msg("Token endpoint rejected the grant")
		return tokenResponse{}, apiErr
	}

	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return tokenResponse{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	if result.AccessToken == "" {
		return tokenResponse{}, fmt.Errorf("token response missing access_token")
	}
	return result, nil
}

func expiresAtString(expiresIn int64) string {
	return time.Now().Add(time.Duration(expiresIn) * time.Second).Format(time.RFC3339)
}
