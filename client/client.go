package client

import (
	"net/http"
	"os"
	"strings"
	"time"
)

// Default Wanderstay endpoints. WANDER_API_URL overrides the API base so the
// CLI can be pointed at a staging deployment.
var (
	DefaultAPIBaseURL = "https://api.wanderstay.com"
	DefaultTokenURL   = "https://api.wanderstay.com/oauth/token"
	DefaultAuthURL    = "https://www.wanderstay.com/oauth/authorize?client_id=wander-cli" +
		"&redirect_uri=https%3A%2F%2Fwww.wanderstay.com%2Fauth%2Fcallback" +
		"&response_type=code&layout=client"
)

const oauthClientID = "wander-cli"

// WanderClient talks to the Wanderstay REST API. HTTP should carry a
// SessionTransport so every call goes out with a bearer token; the OAuth
// token endpoint is always called with a plain client instead, so a refresh
// can never recurse into itself.
//
// WanderClient implements auth.TokenRefresher and auth.TokenRefresherWithCtx.
type WanderClient struct {
	BaseURL  string
	TokenURL string
	AuthURL  string
	HTTP     *http.Client
}

// NewWanderClient returns a client against the production endpoints, or
// against WANDER_API_URL when set.
func NewWanderClient() *WanderClient {
	c := &WanderClient{
		BaseURL:  DefaultAPIBaseURL,
		TokenURL: DefaultTokenURL,
		AuthURL:  DefaultAuthURL,
	}
	if base := strings.TrimSuffix(os.Getenv("WANDER_API_URL"), "/"); base != "" {
		c.BaseURL = base
		c.TokenURL = base + "/oauth/token"
	}
	return c
}

func (c *WanderClient) apiURL(path string) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	return strings.TrimSuffix(base, "/") + path
}

func (c *WanderClient) tokenURL() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return DefaultTokenURL
}

func (c *WanderClient) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return DefaultAuthURL
}

func (c *WanderClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 30 * time.Second}
}
