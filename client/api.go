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

func createRequest(ctx context.Context, method, url, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create request")
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	}
	return req, nil
}

// sendRequest issues req, retrying transport failures and 5xx responses with
// a doubling backoff. Non-2xx responses are decoded into an *APIError.
func (c *WanderClient) sendRequest(req *http.Request) (*http.Response, error) {
	httpClient := c.httpClient()
	var resp *http.Response
	var err error

	const maxRetries = 3
	backoff := 1 * time.Second

	for i := 0; i < maxRetries; i++ {
		if i > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, fmt.Errorf("failed to rewind request body for retry: %w", bodyErr)
			}
			req.Body = body
		}

		resp, err = httpClient.Do(req)
		if err != nil {
			if !retryableSendError(err) {
				return nil, err
			}
			log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxRetries).Msg("Request failed, retrying...")
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		// Keep the last attempt's body open so the error envelope below
		// still has something to decode.
		if resp.StatusCode >= 500 && i < maxRetries-1 {
			log.Warn().Int("status", resp.StatusCode).Int("attempt", i+1).Int("max_attempts", maxRetries).Msg("Server error, retrying...")
			closeResponseBody(resp)
			time.Sleep(backoff)
			backoff *= 2
			continue
		}

		break
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to send request after multiple retries")
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readResponseBody(resp)
		closeResponseBody(resp)
		apiErr := decodeAPIError(resp.StatusCode, body)
		log.Error().Int("status", resp.StatusCode).Str("code", apiErr.Code).Msg("HTTP request failed with non-successful status")
		return nil, apiErr
	}
	return resp, nil
}

// retryableSendError reports whether re-issuing the request could succeed.
// A request already parked on the offline queue must not be sent again, and
// a session that ended mid-request will not be back on the next attempt.
func retryableSendError(err error) bool {
	if errors.Is(err, ErrQueuedOffline) || errors.Is(err, auth.ErrSessionExpired) {
		return false
	}
	return !auth.IsFatalSessionError(err)
}

func readResponseBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}

func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, 1024*1024)
	_ = resp.Body.Close()
}

// getJSON fetches url and decodes the response into out.
func (c *WanderClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := createRequest(ctx, http.MethodGet, url, "")
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// postJSON sends in as a JSON body and decodes the response into out. Either
// side may be nil.
func (c *WanderClient) postJSON(ctx context.Context, url string, in, out any) error {
	req, err := newJSONRequest(ctx, http.MethodPost, url, in)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func newJSONRequest(ctx context.Context, method, url string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create request")
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *WanderClient) doJSON(req *http.Request, out any) error {
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	if out == nil {
		return nil
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("Failed to parse response")
		return err
	}
	return nil
}
