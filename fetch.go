package imagesweep

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// fetchResult holds one downloaded body.
type fetchResult struct {
	Data     []byte
	MIMEType string
}

// fetch performs one attempt. Tries cfg.StealthClient first (if set),
// falls back to cfg.HTTPClient on any failure.
func (cfg *Config) fetch(ctx context.Context, rawURL, ua string) (*fetchResult, error) {
	if cfg.StealthClient != nil {
		r, err := cfg.fetchWith(ctx, cfg.StealthClient, rawURL, ua)
		if err == nil {
			return r, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		cfg.Logger.Debug("imagesweep: stealth fetch failed, falling back", "url", rawURL, "error", err)
	}
	return cfg.fetchWith(ctx, cfg.HTTPClient, rawURL, ua)
}

func (cfg *Config) fetchWith(ctx context.Context, client *http.Client, rawURL, ua string) (*fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrValidation, err)
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := client.Do(req) //nolint:gosec // URL passed CheckURL before reaching here
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		se := &StatusError{StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			se.RetryAfter, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
		}
		return nil, se
	}
	if err := cfg.checkDeclaredLength(resp); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	mt, err := cfg.checkBody(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, err
	}
	return &fetchResult{Data: data, MIMEType: mt}, nil
}
