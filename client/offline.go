package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultOfflineQueueLimit caps how many failed requests are held for
	// replay before new ones are dropped.
	DefaultOfflineQueueLimit = 64

	// DefaultProbeInterval is how often Run checks whether the API is
	// reachable again.
	DefaultProbeInterval = 30 * time.Second
)

// PendingRequest is a snapshot of a request that failed at the network level,
// complete enough to be re-issued later.
type PendingRequest struct {
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
	EnqueuedAt time.Time
}

// OfflineQueue holds requests that could not be sent because the network was
// down and replays them once connectivity returns. The transport only
// enqueues; the queue owns probing and draining.
type OfflineQueue struct {
	// HTTP is the client used for probes and replays. Point it at the
	// session client so replays go out authenticated.
	HTTP      *http.Client
	HealthURL string
	Interval  time.Duration
	Limit     int
	Clock     clockwork.Clock

	mu      sync.Mutex
	pending []PendingRequest
}

func NewOfflineQueue(healthURL string) *OfflineQueue {
	return &OfflineQueue{
		HealthURL: healthURL,
		Interval:  DefaultProbeInterval,
		Limit:     DefaultOfflineQueueLimit,
		Clock:     clockwork.NewRealClock(),
	}
}

// EnqueueRequest snapshots req for later replay. Requests with a
// non-rewindable body and requests over the queue limit are refused.
func (q *OfflineQueue) EnqueueRequest(req *http.Request) bool {
	var body []byte
	if req.GetBody != nil {
		reader, err := req.GetBody()
		if err != nil {
			log.Debug().Err(err).Str("url", req.URL.String()).Msg("Cannot snapshot request body, dropping from offline queue")
			return false
		}
		defer func() { _ = reader.Close() }()
		body, err = io.ReadAll(reader)
		if err != nil {
			log.Debug().Err(err).Str("url", req.URL.String()).Msg("Cannot read request body, dropping from offline queue")
			return false
		}
	} else if req.Body != nil {
		return false
	}

	header := req.Header.Clone()
	header.Del("Authorization")

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) >= q.limit() {
		log.Warn().Str("url", req.URL.String()).Int("limit", q.limit()).Msg("Offline queue full, dropping request")
		return false
	}
	q.pending = append(q.pending, PendingRequest{
		Method:     req.Method,
		URL:        req.URL.String(),
		Header:     header,
		Body:       body,
		EnqueuedAt: q.clock().Now(),
	})
	return true
}

// Len reports how many requests are waiting for connectivity.
func (q *OfflineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Online probes the health endpoint and reports whether the API answered.
func (q *OfflineQueue) Online(ctx context.Context) bool {
	if q.HealthURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.HealthURL, nil)
	if err != nil {
		return false
	}
	resp, err := q.httpClient().Do(req)
	if err != nil {
		return false
	}
	closeResponseBody(resp)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Drain re-issues every queued request and returns how many were replayed
// and how many failed. A replay that dies on the network is enqueued again
// by the transport, so nothing is lost while the API flaps.
func (q *OfflineQueue) Drain(ctx context.Context) (replayed, failed int) {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range batch {
		if ctx.Err() != nil {
			q.requeue(batch[replayed+failed:])
			return replayed, failed
		}
		if err := q.replay(ctx, p); err != nil {
			log.Warn().Err(err).Str("method", p.Method).Str("url", p.URL).Msg("Failed to replay queued request")
			failed++
			continue
		}
		log.Info().Str("method", p.Method).Str("url", p.URL).Msg("Replayed queued request")
		replayed++
	}
	return replayed, failed
}

// Run probes for connectivity on the configured interval and drains the
// queue whenever the API is reachable. It blocks until ctx is done.
func (q *OfflineQueue) Run(ctx context.Context) {
	ticker := q.clock().NewTicker(q.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if q.Len() == 0 {
				continue
			}
			if !q.Online(ctx) {
				log.Debug().Msg("Still offline, keeping queued requests")
				continue
			}
			replayed, failed := q.Drain(ctx)
			log.Info().Int("replayed", replayed).Int("failed", failed).Msg("Drained offline queue")
		}
	}
}

func (q *OfflineQueue) replay(ctx context.Context, p PendingRequest) error {
	var body io.Reader
	if len(p.Body) > 0 {
		body = bytes.NewReader(p.Body)
	}
	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL, body)
	if err != nil {
		return err
	}
	for key, values := range p.Header {
		req.Header[key] = values
	}
	resp, err := q.httpClient().Do(req)
	if err != nil {
		return err
	}
	closeResponseBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (q *OfflineQueue) requeue(rest []PendingRequest) {
	if len(rest) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(rest, q.pending...)
	q.mu.Unlock()
}

func (q *OfflineQueue) httpClient() *http.Client {
	if q.HTTP != nil {
		return q.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (q *OfflineQueue) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultOfflineQueueLimit
}

func (q *OfflineQueue) interval() time.Duration {
	if q.Interval > 0 {
		return q.Interval
	}
	return DefaultProbeInterval
}

func (q *OfflineQueue) clock() clockwork.Clock {
	if q.Clock != nil {
		return q.Clock
	}
	return clockwork.NewRealClock()
}
