package settings

import (
	"errors"
	"fmt"
)

// Validate ensures the settings are usable.
func (s *Settings) Validate() error {
	if err := s.validateDownload(); err != nil {
		return err
	}
	if err := s.validateValidation(); err != nil {
		return err
	}
	if err := s.validateDuplicates(); err != nil {
		return err
	}
	return s.validateLogging()
}

func (s *Settings) validateDownload() error {
	d := s.Download
	switch {
	case d.MaxConcurrent < 1:
		return errors.New("download.max_concurrent must be at least 1")
	case d.Retries < 0:
		return errors.New("download.retries must not be negative")
	case d.TimeoutSeconds < 1:
		return errors.New("download.timeout_seconds must be at least 1")
	case d.InitialBackoffMS < 1:
		return errors.New("download.initial_backoff_ms must be at least 1")
	case d.MaxBackoffSeconds < 1:
		return errors.New("download.max_backoff_seconds must be at least 1")
	case d.StartIndex < 0:
		return errors.New("download.start_index must not be negative")
	case d.ProcessWorkers < 0:
		return errors.New("download.process_workers must not be negative")
	}
	return nil
}

func (s *Settings) validateValidation() error {
	v := s.Validation
	if v.MinBytes < 0 {
		return errors.New("validation.min_bytes must not be negative")
	}
	if v.MaxBytes < 1 || v.MaxBytes < v.MinBytes {
		return fmt.Errorf("validation.max_bytes must be at least min_bytes (%d)", v.MinBytes)
	}
	for _, scheme := range v.AllowedSchemes {
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("validation.allowed_schemes: unsupported scheme %q", scheme)
		}
	}
	return nil
}

func (s *Settings) validateDuplicates() error {
	d := s.Duplicates
	switch {
	case d.SimilarityThreshold < 0 || d.SimilarityThreshold > 3:
		return errors.New("duplicates.similarity_threshold must be between 0 and 3")
	case d.MaxUniquifyAttempts < 1:
		return errors.New("duplicates.max_uniquify_attempts must be at least 1")
	case d.MutationsPerAttempt < 1:
		return errors.New("duplicates.mutations_per_attempt must be at least 1")
	case d.NoiseAmplitude < 0 || d.NoiseAmplitude > 255:
		return errors.New("duplicates.noise_amplitude must be between 0 and 255")
	case d.JPEGQuality < 1 || d.JPEGQuality > 100:
		return errors.New("duplicates.jpeg_quality must be between 1 and 100")
	case d.HashWorkers < 0:
		return errors.New("duplicates.hash_workers must not be negative")
	}
	return nil
}

func (s *Settings) validateLogging() error {
	switch s.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", s.Logging.Format)
	}
	return nil
}
