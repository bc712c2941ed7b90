package embedder

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusError is returned when an embedding backend answers with a non-2xx
// status. RetryAfter is set from the Retry-After header when present.
type StatusError struct {
	// Backend names the embedder that produced the error ("openai", "ollama").
	Backend string
	// Code is the HTTP status code.
	Code int
	// RetryAfter is the server-requested wait, zero when absent.
	RetryAfter time.Duration
	// Message is the error message from the response body, if any.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("%s embedder: HTTP %d: %s", e.Backend, e.Code, msg)
}

// RateLimited reports whether the backend asked the caller to slow down.
func (e *StatusError) RateLimited() bool { return e.Code == http.StatusTooManyRequests }

// retryable reports whether the request may succeed if repeated as-is.
func (e *StatusError) retryable() bool { return e.Code >= 500 }

// AsRateLimit reports whether err carries a 429 and returns the requested
// wait, which is zero when the backend sent no Retry-After.
func AsRateLimit(err error) (time.Duration, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RateLimited() {
		return se.RetryAfter, true
	}
	return 0, false
}

// parseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
