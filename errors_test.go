package imagesweep

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestStatusError_Category(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
		retry  bool
	}{
		{http.StatusTooManyRequests, ErrRateLimited, true},
		{http.StatusInternalServerError, ErrTransport, true},
		{http.StatusServiceUnavailable, ErrTransport, true},
		{http.StatusNotFound, ErrClientRejected, false},
		{http.StatusUnauthorized, ErrClientRejected, false},
		{http.StatusMovedPermanently, ErrClientRejected, false},
	}
	for _, tc := range tests {
		err := fmt.Errorf("wrapped: %w", &StatusError{StatusCode: tc.status})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: errors.Is(%v) = false", tc.status, tc.want)
		}
		if got := retryable(err); got != tc.retry {
			t.Errorf("status %d: retryable = %v, want %v", tc.status, got, tc.retry)
		}
	}
}

func TestRetryable_CanceledNeverRetried(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: %w", ErrTransport, context.Canceled)
	if retryable(err) {
		t.Error("canceled transport error must not be retried")
	}
	timeout := fmt.Errorf("%w: %w", ErrTransport, context.DeadlineExceeded)
	if !retryable(timeout) {
		t.Error("per-attempt timeout should be retried")
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	if d, ok := parseRetryAfter("2"); !ok || d != 2*time.Second {
		t.Errorf("seconds: got %v %v, want 2s true", d, ok)
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	if d, ok := parseRetryAfter(future); !ok || d < 80*time.Second || d > 90*time.Second {
		t.Errorf("http date: got %v %v, want about 90s", d, ok)
	}
	for _, bad := range []string{"", "-3", "soon", "Mon, 01 Jan 2001 00:00:00 GMT"} {
		if d, ok := parseRetryAfter(bad); ok {
			t.Errorf("parseRetryAfter(%q) = %v, want not ok", bad, d)
		}
	}
}

func TestOutcomeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"nil", nil, OutcomeSaved},
		{"validation", fmt.Errorf("%w: too small", ErrValidation), OutcomeValidation},
		{"rate limited", &StatusError{StatusCode: 429}, OutcomeRateLimited},
		{"server error", &StatusError{StatusCode: 502}, OutcomeTransport},
		{"client rejected", &StatusError{StatusCode: 404}, OutcomeClientRejected},
		{"decode", fmt.Errorf("x: %w", ErrDecode), OutcomeUndecodable},
		{"disk", fmt.Errorf("%w: write", ErrResourceExhausted), OutcomeResourceExhausted},
		{"transport", fmt.Errorf("%w: reset", ErrTransport), OutcomeTransport},
		{"attempt timeout", fmt.Errorf("%w: %w", ErrTransport, context.DeadlineExceeded), OutcomeTransport},
		{"canceled", fmt.Errorf("%w: %w", ErrTransport, context.Canceled), OutcomeCanceled},
		{"run deadline", context.DeadlineExceeded, OutcomeCanceled},
		{"unknown", errors.New("boom"), OutcomeTransport},
	}
	for _, tc := range tests {
		if got := OutcomeOf(tc.err); got != tc.want {
			t.Errorf("%s: OutcomeOf = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestOutcome_Names(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, o := range Outcomes() {
		name := o.String()
		if name == "unknown" || seen[name] {
			t.Errorf("outcome %d has bad or duplicate name %q", o, name)
		}
		seen[name] = true
	}
	if Outcome(99).String() != "unknown" {
		t.Error("out of range outcome should be unknown")
	}
}
