package imagesweep

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// Defaults applied by Config when a field is left at its zero value.
const (
	DefaultMaxConcurrent       = 50
	DefaultRetries             = 3
	DefaultTimeout             = 30 * time.Second
	DefaultInitialBackoff      = time.Second
	DefaultMaxBackoff          = 30 * time.Second
	DefaultMinBytes            = 100
	DefaultMaxBytes            = 100 * 1024 * 1024 // 100MB
	DefaultJPEGQuality         = 95
	DefaultSimilarityThreshold = 2
	DefaultMaxUniquifyAttempts = 10
	DefaultMutationsPerAttempt = 2
	DefaultNoiseAmplitude      = 4
	DefaultStartIndex          = 1000
)

// DefaultUserAgents is the rotation pool used when Config.UserAgents is empty.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
}

// DefaultAllowedMIMETypes are the image types accepted by DownloadAll.
var DefaultAllowedMIMETypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/webp",
	"image/gif",
}

// DefaultAllowedSchemes are the URL schemes DownloadAll will fetch.
var DefaultAllowedSchemes = []string{"http", "https"}

// DefaultForbiddenDomains are hosts DownloadAll refuses to contact.
var DefaultForbiddenDomains = []string{"localhost", "127.0.0.1", "0.0.0.0"}

// Config holds all settings and collaborators for one run.
// Build it once and share it between DownloadAll, Classify and
// ResolveDuplicates. Zero values mean "use the documented default".
type Config struct {
	HTTPClient    *http.Client // optional: default http client (nil = http.DefaultClient)
	StealthClient *http.Client // optional: TLS-fingerprinted client tried before HTTPClient
	Cache         Cache        // optional: fingerprint cache (nil = no caching)
	Session       Session      // optional: pause checks and progress sink
	Logger        *slog.Logger // optional: nil = slog.Default()
	Mutator       ImageMutator // optional: nil = NewMutator(Seed, NoiseAmplitude)

	// Download orchestration.
	MaxConcurrent  int           // in-flight network fetches (default 50)
	Retries        int           // extra attempts per URL (default 3, negative = none)
	Timeout        time.Duration // per-attempt timeout (default 30s)
	InitialBackoff time.Duration // first retry delay (default 1s)
	MaxBackoff     time.Duration // backoff cap (default 30s)
	ProcessWorkers int           // CPU workers for decode/encode (default runtime.NumCPU())
	UserAgents     []string      // rotated per attempt (default DefaultUserAgents)

	// Validation policy.
	MinBytes         int64    // bodies must be at least this large (default 100)
	MaxBytes         int64    // bodies larger than this are rejected (default 100MB)
	AllowedMIMETypes []string // default DefaultAllowedMIMETypes
	AllowedSchemes   []string // default DefaultAllowedSchemes
	ForbiddenDomains []string // default DefaultForbiddenDomains

	// Duplicate handling.
	SimilarityThreshold int   // exact slot matches needed for a duplicate (default 2, negative = never)
	MaxUniquifyAttempts int   // mutation rounds per duplicate (default 10)
	MutationsPerAttempt int   // independent mutation draws per round (default 2)
	NoiseAmplitude      int   // per-channel noise bound for MutationNoise (default 4)
	JPEGQuality         int   // re-encode quality (default 95)
	HashWorkers         int   // parallel fingerprinting (default runtime.NumCPU())
	Seed                int64 // mutation RNG seed (0 = time based)

	// Optional callbacks for progress reporting. OnDownload and OnPanic are
	// called from download goroutines and must be safe for concurrent use.
	OnDownload func(DownloadEvent)
	OnResolve  func(Resolution)
	OnPanic    func(tag string, r any)
}

// defaults fills zero-value fields with sensible defaults.
func (c *Config) defaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.Retries == 0 {
		c.Retries = DefaultRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.ProcessWorkers <= 0 {
		c.ProcessWorkers = runtime.NumCPU()
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = DefaultUserAgents
	}
	if c.MinBytes <= 0 {
		c.MinBytes = DefaultMinBytes
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if len(c.AllowedMIMETypes) == 0 {
		c.AllowedMIMETypes = DefaultAllowedMIMETypes
	}
	if len(c.AllowedSchemes) == 0 {
		c.AllowedSchemes = DefaultAllowedSchemes
	}
	if c.ForbiddenDomains == nil {
		c.ForbiddenDomains = DefaultForbiddenDomains
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.MaxUniquifyAttempts <= 0 {
		c.MaxUniquifyAttempts = DefaultMaxUniquifyAttempts
	}
	if c.MutationsPerAttempt <= 0 {
		c.MutationsPerAttempt = DefaultMutationsPerAttempt
	}
	if c.NoiseAmplitude <= 0 {
		c.NoiseAmplitude = DefaultNoiseAmplitude
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.HashWorkers <= 0 {
		c.HashWorkers = runtime.NumCPU()
	}
	if c.Mutator == nil {
		c.Mutator = NewMutator(c.Seed, c.NoiseAmplitude)
	}
}

// retries returns the number of extra attempts after the first one.
func (c *Config) retries() int {
	if c.Retries < 0 {
		return 0
	}
	return c.Retries
}

// threshold returns the effective match threshold; 0 disables matching.
func (c *Config) threshold() int {
	if c.SimilarityThreshold < 0 {
		return 0
	}
	return c.SimilarityThreshold
}

// recoverPanic must be deferred directly. It reports the panic and, when
// errp is non-nil, turns it into the item's error.
func (c *Config) recoverPanic(tag string, errp *error) {
	if r := recover(); r != nil {
		c.Logger.Error("imagesweep: recovered panic", "tag", tag, "panic", r)
		if c.OnPanic != nil {
			c.OnPanic(tag, r)
		}
		if errp != nil {
			*errp = fmt.Errorf("panic in %s: %v", tag, r)
		}
	}
}
