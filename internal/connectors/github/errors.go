package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidURL is returned for roots that do not name a github.com repository.
	ErrInvalidURL = errors.New("github: not a repository URL")

	// ErrRepoNotFound covers missing repositories and private ones the token cannot see.
	ErrRepoNotFound = errors.New("github: repository not found")
)

// RateLimitError is returned when the quota is spent. ResetAt is when
// requests may resume.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError is any other non-2xx reply.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

func statusIs(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// IsNotFound reports a 404 or ErrRepoNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRepoNotFound) || statusIs(err, http.StatusNotFound)
}

// IsUnauthorized reports a rejected token.
func IsUnauthorized(err error) bool {
	return statusIs(err, http.StatusUnauthorized)
}

// IsRateLimited reports a *RateLimitError anywhere in the chain.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
