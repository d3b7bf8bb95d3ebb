package imagesweep

import (
	"context"
	"errors"
	"time"
)

// Cache abstracts key-value caching of fingerprints (SQLite, sync.Map, etc.)
type Cache interface {
	Key(prefix, value string) string
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any)
}

// Session is the pause/progress collaborator polled by DownloadAll.
type Session interface {
	// ShouldPause is a non-blocking check made before every attempt.
	ShouldPause() bool
	// Progress is called once per URL when it completes or fails.
	Progress(url string, ok bool)
}

// Outcome is the terminal state of one URL.
type Outcome int

const (
	OutcomeSaved             Outcome = iota // decoded, re-encoded and written
	OutcomeUndecodable                      // validated but corrupt; raw bytes kept as .unknown
	OutcomeTransport                        // network errors or 5xx until retries ran out
	OutcomeRateLimited                      // 429 until retries ran out
	OutcomeClientRejected                   // 4xx other than 429
	OutcomeValidation                       // URL, MIME or size outside policy
	OutcomeResourceExhausted                // disk or memory pressure while persisting
	OutcomeCanceled                         // run canceled before the URL finished
)

var outcomeNames = [...]string{
	OutcomeSaved:             "saved",
	OutcomeUndecodable:       "undecodable",
	OutcomeTransport:         "transport_error",
	OutcomeRateLimited:       "rate_limited",
	OutcomeClientRejected:    "client_rejected",
	OutcomeValidation:        "validation_failed",
	OutcomeResourceExhausted: "resource_exhausted",
	OutcomeCanceled:          "canceled",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// Outcomes lists every Outcome in declaration order.
func Outcomes() []Outcome {
	out := make([]Outcome, len(outcomeNames))
	for i := range out {
		out[i] = Outcome(i)
	}
	return out
}

// OutcomeOf maps an item error to its Outcome. A nil error is OutcomeSaved.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSaved
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTransport):
		return OutcomeCanceled
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, ErrClientRejected):
		return OutcomeClientRejected
	case errors.Is(err, ErrDecode):
		return OutcomeUndecodable
	case errors.Is(err, ErrResourceExhausted):
		return OutcomeResourceExhausted
	default:
		return OutcomeTransport
	}
}

// DownloadEvent is emitted once per URL through Config.OnDownload.
type DownloadEvent struct {
	URL      string
	Index    int
	Outcome  Outcome
	Path     string // written file, empty when nothing was written
	Bytes    int    // body size
	Attempts int
	Elapsed  time.Duration
	Err      error
}
