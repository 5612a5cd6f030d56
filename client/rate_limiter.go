package client

import (
	"io"
	"sync"
	"time"
)

// RateLimiter is a token-bucket limiter over read throughput, shared by all
// concurrent media downloads.
type RateLimiter struct {
	mu     sync.Mutex
	rate   int64   // bytes per second
	tokens float64 // current available tokens
	last   time.Time
}

var (
	downloadRateLimiter *RateLimiter
	rateLimiterMu       sync.RWMutex
)

// SetDownloadRateLimit caps total media download throughput. Zero or
// negative removes the cap.
func SetDownloadRateLimit(bytesPerSecond int64) {
	rateLimiterMu.Lock()
	lim := downloadRateLimiter
	if bytesPerSecond <= 0 {
		downloadRateLimiter = nil
		rateLimiterMu.Unlock()
		return
	}
	if lim == nil {
		downloadRateLimiter = &RateLimiter{rate: bytesPerSecond, tokens: float64(bytesPerSecond), last: time.Now()}
		rateLimiterMu.Unlock()
		return
	}
	// rl.mu is never taken while holding rateLimiterMu.
	rateLimiterMu.Unlock()
	lim.mu.Lock()
	lim.rate = bytesPerSecond
	if lim.tokens > float64(bytesPerSecond) {
		lim.tokens = float64(bytesPerSecond)
	}
	lim.last = time.Now()
	lim.mu.Unlock()
}

// DownloadRateLimit reports the current cap in bytes per second, 0 when
// unlimited.
func DownloadRateLimit() int64 {
	rateLimiterMu.RLock()
	defer rateLimiterMu.RUnlock()
	if downloadRateLimiter == nil {
		return 0
	}
	return downloadRateLimiter.currentRate()
}

func (rl *RateLimiter) currentRate() int64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.rate
}

// refillLocked credits tokens for the time elapsed since the last refill,
// capped at one second's worth. The caller holds mu.
func (rl *RateLimiter) refillLocked(now time.Time) {
	elapsed := now.Sub(rl.last).Seconds()
	if elapsed <= 0 {
		return
	}
	rl.tokens += elapsed * float64(rl.rate)
	if limit := float64(rl.rate); rl.tokens > limit {
		rl.tokens = limit
	}
	rl.last = now
}

// reserve reports how many bytes may be read right now, zero when the
// bucket is empty.
func (rl *RateLimiter) reserve() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(time.Now())
	return int(rl.tokens)
}

func (rl *RateLimiter) consume(n int) {
	rl.mu.Lock()
	rl.tokens -= float64(n)
	rl.mu.Unlock()
}

type limitedReader struct {
	under io.Reader
	lim   *RateLimiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.lim == nil {
		return lr.under.Read(p)
	}
	rate := lr.lim.currentRate()
	if rate <= 0 {
		return lr.under.Read(p)
	}

	allowed := lr.lim.reserve()
	for allowed <= 0 {
		// Bucket is dry; wait roughly one byte's worth of time and retry.
		time.Sleep(time.Duration(float64(time.Second) / float64(rate)))
		allowed = lr.lim.reserve()
	}
	if len(p) > allowed {
		p = p[:allowed]
	}

	n, err := lr.under.Read(p)
	if n > 0 {
		lr.lim.consume(n)
	}
	return n, err
}

func wrapWithDownloadRateLimit(r io.Reader) io.Reader {
	rateLimiterMu.RLock()
	lim := downloadRateLimiter
	rateLimiterMu.RUnlock()

	if lim == nil {
		return r
	}
	return &limitedReader{under: r, lim: lim}
}
