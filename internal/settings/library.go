package settings

import (
	"time"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

// Library maps the file settings onto a library Config. Collaborators such
// as the HTTP client, cache and logger are left for the caller to set.
func (s *Settings) Library() *imagesweep.Config {
	retries := s.Download.Retries
	if retries == 0 {
		retries = -1
	}
	threshold := s.Duplicates.SimilarityThreshold
	if threshold == 0 {
		threshold = -1
	}
	return &imagesweep.Config{
		MaxConcurrent:  s.Download.MaxConcurrent,
		Retries:        retries,
		Timeout:        time.Duration(s.Download.TimeoutSeconds) * time.Second,
		InitialBackoff: time.Duration(s.Download.InitialBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(s.Download.MaxBackoffSeconds) * time.Second,
		ProcessWorkers: s.Download.ProcessWorkers,
		UserAgents:     s.Download.UserAgents,

		MinBytes:         s.Validation.MinBytes,
		MaxBytes:         s.Validation.MaxBytes,
		AllowedMIMETypes: s.Validation.AllowedMIMETypes,
		AllowedSchemes:   s.Validation.AllowedSchemes,
		ForbiddenDomains: s.Validation.ForbiddenDomains,

		SimilarityThreshold: threshold,
		MaxUniquifyAttempts: s.Duplicates.MaxUniquifyAttempts,
		MutationsPerAttempt: s.Duplicates.MutationsPerAttempt,
		NoiseAmplitude:      s.Duplicates.NoiseAmplitude,
		JPEGQuality:         s.Duplicates.JPEGQuality,
		HashWorkers:         s.Duplicates.HashWorkers,
		Seed:                s.Duplicates.Seed,
	}
}

// DownloadOpts returns the per-call download options.
func (s *Settings) DownloadOpts() imagesweep.DownloadOpts {
	return imagesweep.DownloadOpts{StartIndex: s.Download.StartIndex}
}
