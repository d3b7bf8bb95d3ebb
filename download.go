package imagesweep

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DownloadOpts configures one DownloadAll call. Zero values fall back to
// the Config and its defaults.
type DownloadOpts struct {
	StartIndex  int // index of the first URL's file (default DefaultStartIndex)
	Concurrency int // simultaneous network fetches (default Config.MaxConcurrent)
	Retries     int // extra attempts per URL (default Config.Retries, negative = none)
}

// URLResult is the terminal state of one URL.
type URLResult struct {
	URL      string
	Index    int
	Outcome  Outcome
	Path     string // written file, set for OutcomeSaved and OutcomeUndecodable
	MIMEType string
	Bytes    int
	Attempts int
	Elapsed  time.Duration
	Rights   *Rights // nil when the body carried no rights metadata
	License  License
	Err      error
}

// BatchResult aggregates a DownloadAll run. Results follow input order.
type BatchResult struct {
	Succeeded int
	Results   []URLResult
	Elapsed   time.Duration
}

// Counts returns the number of URLs per outcome.
func (b *BatchResult) Counts() map[Outcome]int {
	counts := make(map[Outcome]int, len(outcomeNames))
	for _, r := range b.Results {
		counts[r.Outcome]++
	}
	return counts
}

// Failures returns every result other than OutcomeSaved.
func (b *BatchResult) Failures() []URLResult {
	var out []URLResult
	for _, r := range b.Results {
		if r.Outcome != OutcomeSaved {
			out = append(out, r)
		}
	}
	return out
}

// DownloadAll fetches every URL into targetDir. At most opts.Concurrency
// requests are in flight at once; decode and encode run on a separate pool
// of ProcessWorkers goroutines. Failures are recorded per URL and never
// stop the batch. The only returned error is an unusable targetDir.
func (cfg *Config) DownloadAll(ctx context.Context, urls []string, targetDir string, opts DownloadOpts) (*BatchResult, error) {
	cfg.defaults()
	if opts.StartIndex == 0 {
		opts.StartIndex = DefaultStartIndex
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = cfg.MaxConcurrent
	}
	retries := cfg.retries()
	switch {
	case opts.Retries < 0:
		retries = 0
	case opts.Retries > 0:
		retries = opts.Retries
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create target dir %s: %w", targetDir, err)
	}

	start := time.Now()
	cfg.Logger.Info("imagesweep: download started",
		"urls", len(urls), "dir", targetDir, "concurrency", opts.Concurrency, "retries", retries)

	sem := semaphore.NewWeighted(int64(opts.Concurrency))
	pool := cfg.startWorkers(cfg.ProcessWorkers)

	results := make([]URLResult, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = cfg.downloadOne(ctx, sem, pool, targetDir, u, opts.StartIndex+i, retries)
		}()
	}
	wg.Wait()
	pool.close()

	batch := &BatchResult{Results: results, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.Outcome == OutcomeSaved {
			batch.Succeeded++
		}
	}
	cfg.Logger.Info("imagesweep: download finished",
		"urls", len(urls), "saved", batch.Succeeded, "elapsed", batch.Elapsed)
	return batch, nil
}

func (cfg *Config) downloadOne(ctx context.Context, sem *semaphore.Weighted, pool *workerPool, dir, rawURL string, index, retries int) (res URLResult) {
	start := time.Now()
	res = URLResult{URL: rawURL, Index: index}
	defer func() {
		res.Elapsed = time.Since(start)
		res.Outcome = OutcomeOf(res.Err)
		cfg.report(res)
	}()
	defer cfg.recoverPanic("download", &res.Err)

	if _, err := cfg.checkURL(rawURL); err != nil {
		res.Err = err
		return res
	}

	body, err := cfg.fetchWithRetry(ctx, sem, rawURL, index, retries, &res.Attempts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Bytes = len(body.Data)
	res.MIMEType = body.MIMEType
	res.Rights = ExtractRights(body.Data)
	res.License = AssessLicense(rawURL, res.Rights)

	res.Path, res.Err = pool.submit(ctx, dir, index, body.Data)
	return res
}

// fetchWithRetry runs the attempt loop for one URL. The pause check comes
// first in every attempt; the permit is held only for the request itself.
func (cfg *Config) fetchWithRetry(ctx context.Context, sem *semaphore.Weighted, rawURL string, index, retries int, attempts *int) (*fetchResult, error) {
	for attempt := 1; ; attempt++ {
		if err := cfg.waitWhilePaused(ctx); err != nil {
			return nil, err
		}
		*attempts = attempt

		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		r, err := cfg.fetch(ctx, rawURL, cfg.userAgent(index, attempt))
		sem.Release(1)
		if err == nil {
			return r, nil
		}

		if !retryable(err) || attempt > retries {
			return nil, err
		}
		delay := cfg.backoffDelay(attempt, err)
		cfg.Logger.Debug("imagesweep: retrying",
			"url", rawURL, "attempt", attempt, "delay", delay, "error", err)
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// userAgent rotates through the pool, shifting by one on every attempt.
func (cfg *Config) userAgent(index, attempt int) string {
	n := len(cfg.UserAgents)
	return cfg.UserAgents[((index+attempt-1)%n+n)%n]
}

func (cfg *Config) report(res URLResult) {
	if res.Err != nil {
		cfg.Logger.Warn("imagesweep: download failed",
			"url", res.URL, "outcome", res.Outcome.String(), "attempts", res.Attempts,
			"bytes", res.Bytes, "elapsed", res.Elapsed, "error", res.Err)
	} else if res.License == LicenseStock {
		cfg.Logger.Warn("imagesweep: saved image from stock source",
			"url", res.URL, "path", res.Path, "rights", res.Rights.String())
	} else {
		cfg.Logger.Debug("imagesweep: download saved",
			"url", res.URL, "path", res.Path, "bytes", res.Bytes, "elapsed", res.Elapsed)
	}

	if cfg.Session != nil {
		cfg.Session.Progress(res.URL, res.Outcome == OutcomeSaved)
	}
	if cfg.OnDownload != nil {
		cfg.OnDownload(DownloadEvent{
			URL:      res.URL,
			Index:    res.Index,
			Outcome:  res.Outcome,
			Path:     res.Path,
			Bytes:    res.Bytes,
			Attempts: res.Attempts,
			Elapsed:  res.Elapsed,
			Err:      res.Err,
		})
	}
}
