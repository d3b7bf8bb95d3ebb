// Package settings loads the imagesweep TOML configuration file and maps it
// onto the library Config.
package settings

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// EnvConfigPath names the environment variable that overrides the config location.
const EnvConfigPath = "IMAGESWEEP_CONFIG"

// Download contains fetch orchestration settings.
type Download struct {
	MaxConcurrent     int      `toml:"max_concurrent"`
	Retries           int      `toml:"retries"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	InitialBackoffMS  int      `toml:"initial_backoff_ms"`
	MaxBackoffSeconds int      `toml:"max_backoff_seconds"`
	StartIndex        int      `toml:"start_index"`
	ProcessWorkers    int      `toml:"process_workers"`
	UserAgents        []string `toml:"user_agents"`
}

// Validation contains the URL and body acceptance policy.
type Validation struct {
	MinBytes         int64    `toml:"min_bytes"`
	MaxBytes         int64    `toml:"max_bytes"`
	AllowedMIMETypes []string `toml:"allowed_mime_types"`
	AllowedSchemes   []string `toml:"allowed_schemes"`
	ForbiddenDomains []string `toml:"forbidden_domains"`
}

// Duplicates contains fingerprint matching and uniquify settings.
type Duplicates struct {
	// SimilarityThreshold of 0 disables duplicate matching.
	SimilarityThreshold int   `toml:"similarity_threshold"`
	MaxUniquifyAttempts int   `toml:"max_uniquify_attempts"`
	MutationsPerAttempt int   `toml:"mutations_per_attempt"`
	NoiseAmplitude      int   `toml:"noise_amplitude"`
	JPEGQuality         int   `toml:"jpeg_quality"`
	HashWorkers         int   `toml:"hash_workers"`
	Seed                int64 `toml:"seed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Cache contains configuration for the fingerprint cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Settings is the parsed configuration file.
type Settings struct {
	Download   Download   `toml:"download"`
	Validation Validation `toml:"validation"`
	Duplicates Duplicates `toml:"duplicates"`
	Logging    Logging    `toml:"logging"`
	Cache      Cache      `toml:"cache"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/imagesweep/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error; defaults are returned with exists set to false.
func Load(path string) (*Settings, string, bool, error) {
	s := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		dec := toml.NewDecoder(file).DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	}

	if err := s.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := s.Validate(); err != nil {
		return nil, "", false, err
	}
	return &s, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("imagesweep.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// CreateSample writes the sample configuration file to path. An existing
// file is left alone unless overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("config %s already exists", path)
		}
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		_ = f.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return f.Close()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the same ~ and relative path rules used for config values.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
