package imagesweep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error categories. Every per-item error returned or reported by this
// package wraps exactly one of them.
var (
	ErrTransport         = errors.New("transport error")
	ErrRateLimited       = errors.New("rate limited")
	ErrClientRejected    = errors.New("client rejected")
	ErrValidation        = errors.New("validation failed")
	ErrDecode            = errors.New("decode error")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration // zero when the server did not signal a delay
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps the status to its category: 429 is rate limiting, 5xx is a
// transport failure, everything else is a client rejection.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrTransport
	default:
		return ErrClientRejected
	}
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrRateLimited)
}

// retryAfter extracts a server-signalled delay from err, if any.
func retryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
