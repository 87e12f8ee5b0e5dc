package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Hourly quotas of the REST API.
const (
	GitHubRateLimit    = 5000
	AnonymousRateLimit = 60
)

// DefaultRequestsPerSecond paces requests below the authenticated quota.
const DefaultRequestsPerSecond = 1.2

// Response headers carrying the quota.
const (
	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// Quota is the last rate limit state reported by GitHub.
type Quota struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimiter paces requests with a token bucket and holds them back when
// the reported quota falls below a reserve until the window resets.
type RateLimiter struct {
	bucket  *rate.Limiter
	reserve int

	mu    sync.Mutex
	quota Quota
}

// NewRateLimiter creates a limiter for an hourly quota. A zero perSecond
// uses DefaultRequestsPerSecond; a negative one disables pacing.
func NewRateLimiter(quota int, perSecond float64) *RateLimiter {
	if quota <= 0 {
		quota = GitHubRateLimit
	}
	pace := rate.Limit(DefaultRequestsPerSecond)
	if perSecond < 0 {
		pace = rate.Inf
	} else if perSecond > 0 {
		pace = rate.Limit(perSecond)
	}
	return &RateLimiter{
		bucket:  rate.NewLimiter(pace, 1),
		reserve: min(100, quota/10),
		quota:   Quota{Limit: quota, Remaining: quota},
	}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	q := r.Quota()
	if q.Remaining >= r.reserve || !time.Now().Before(q.Reset) {
		return nil
	}

	timer := time.NewTimer(time.Until(q.Reset))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Observe records the quota headers of resp and returns a *RateLimitError
// when resp is a rate limit rejection.
func (r *RateLimiter) Observe(resp *http.Response) error {
	if resp == nil {
		return nil
	}

	r.mu.Lock()
	if v, ok := headerInt(resp, HeaderRateRemaining); ok {
		r.quota.Remaining = v
	}
	if v, ok := headerInt(resp, HeaderRateLimit); ok {
		r.quota.Limit = v
	}
	if v, ok := headerInt(resp, HeaderRateReset); ok {
		r.quota.Reset = time.Unix(int64(v), 0)
	}
	q := r.quota
	r.mu.Unlock()

	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && q.Remaining == 0)
	if !limited {
		return nil
	}
	if secs, ok := headerInt(resp, HeaderRetryAfter); ok {
		q.Reset = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return q.exceeded()
}

// Quota returns the last observed quota.
func (r *RateLimiter) Quota() Quota {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quota
}

func (q Quota) exceeded() *RateLimitError {
	return &RateLimitError{ResetAt: q.Reset, Remaining: q.Remaining, Limit: q.Limit}
}

func headerInt(resp *http.Response, name string) (int, bool) {
	s := resp.Header.Get(name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}
