package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wanderstay/wander/auth"
)

// expiredSniffLimit bounds how much of a 401 body is read to look for the
// token_expired marker before the body is restored for the caller.
const expiredSniffLimit = 4 * 1024

type retryKey struct{}

// markRetried flags a request context so a replay can never trigger a second
// renewal cycle.
func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

func alreadyRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retryKey{}).(bool)
	return retried
}

// RequestQueuer receives requests that failed at the network level so they
// can be re-issued once connectivity returns. EnqueueRequest reports whether
// the request was accepted.
type RequestQueuer interface {
	EnqueueRequest(req *http.Request) bool
}

// SessionTransport is an http.RoundTripper that attaches the current access
// token to every outgoing request and, when a response comes back 401 with
// the token_expired marker, renews the session through the Coordinator and
// replays the request once with the fresh token.
//
// Concurrent expired requests collapse into a single renewal: the
// Coordinator runs one refresh cycle and parks the rest until it settles.
// Requests that fail before a response exists are handed to Offline and
// never trigger a renewal. Any other response, including a 401 without the
// marker and a 401 on an already-replayed request, passes through with its
// body intact.
type SessionTransport struct {
	Base        http.RoundTripper
	Coordinator *auth.Coordinator
	Offline     RequestQueuer
}

// NewSessionHTTPClient builds the authenticated client the API wrappers use.
func NewSessionHTTPClient(coordinator *auth.Coordinator, offline RequestQueuer) *http.Client {
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: &SessionTransport{Coordinator: coordinator, Offline: offline},
	}
}

func (t *SessionTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.currentToken()

	attempt, err := cloneRequest(req, req.Context(), token)
	if err != nil {
		return nil, err
	}
	resp, err := t.send(req, attempt)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized || alreadyRetried(req.Context()) {
		return resp, nil
	}
	if !tokenExpiredResponse(resp) {
		// Some other auth failure, e.g. invalid credentials. Not ours to fix.
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		log.Warn().Str("url", req.URL.String()).Msg("Token expired but request body cannot be replayed")
		return resp, nil
	}

	closeResponseBody(resp)
	log.Debug().Str("url", req.URL.String()).Msg("Access token expired or invalid, refreshing...")

	fresh, err := t.Coordinator.Renew(req.Context(), token)
	if err != nil {
		return nil, err
	}

	replay, err := cloneRequest(req, markRetried(req.Context()), fresh.AccessToken)
	if err != nil {
		return nil, err
	}
	return t.send(req, replay)
}

// send issues the prepared clone. A transport-level failure hands the
// original request to the offline queue, unless the caller itself gave up.
func (t *SessionTransport) send(original, prepared *http.Request) (*http.Response, error) {
	resp, err := t.base().RoundTrip(prepared)
	if err == nil {
		return resp, nil
	}
	if t.Offline != nil && original.Context().Err() == nil {
		if t.Offline.EnqueueRequest(original) {
			log.Warn().Err(err).Str("url", original.URL.String()).Msg("Network error, request queued for retry on reconnect")
			return nil, fmt.Errorf("%w: %w", ErrQueuedOffline, err)
		}
	}
	return nil, err
}

// currentToken reads the stored access token. A missing session is not an
// error here: the request simply goes out unauthenticated.
func (t *SessionTransport) currentToken() string {
	token, err := t.Coordinator.CurrentAccessToken()
	if err != nil {
		if !errors.Is(err, auth.ErrNotLoggedIn) {
			log.Debug().Err(err).Msg("Failed to read access token, sending request unauthenticated")
		}
		return ""
	}
	return token
}

// cloneRequest copies req onto ctx with a fresh body and the given bearer
// token attached.
func cloneRequest(req *http.Request, ctx context.Context, token string) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return out, nil
}

// tokenExpiredResponse reports whether a 401 body carries the token_expired
// envelope. The consumed prefix is stitched back so pass-through callers see
// the full body.
func tokenExpiredResponse(resp *http.Response) bool {
	if resp.Body == nil {
		return false
	}
	prefix, err := io.ReadAll(io.LimitReader(resp.Body, expiredSniffLimit))
	if err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(prefix))
		return false
	}
	rest := resp.Body
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(prefix), rest), rest}

	var envelope struct {
		Code string `json:"error"`
	}
	if err := json.Unmarshal(prefix, &envelope); err != nil {
		return false
	}
	return envelope.Code == CodeTokenExpired
}
