package settings

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

// Default returns the settings used when no config file exists.
func Default() Settings {
	return Settings{
		Download: Download{
			MaxConcurrent:     imagesweep.DefaultMaxConcurrent,
			Retries:           imagesweep.DefaultRetries,
			TimeoutSeconds:    int(imagesweep.DefaultTimeout / time.Second),
			InitialBackoffMS:  int(imagesweep.DefaultInitialBackoff / time.Millisecond),
			MaxBackoffSeconds: int(imagesweep.DefaultMaxBackoff / time.Second),
			StartIndex:        imagesweep.DefaultStartIndex,
		},
		Validation: Validation{
			MinBytes: imagesweep.DefaultMinBytes,
			MaxBytes: imagesweep.DefaultMaxBytes,
		},
		Duplicates: Duplicates{
			SimilarityThreshold: imagesweep.DefaultSimilarityThreshold,
			MaxUniquifyAttempts: imagesweep.DefaultMaxUniquifyAttempts,
			MutationsPerAttempt: imagesweep.DefaultMutationsPerAttempt,
			NoiseAmplitude:      imagesweep.DefaultNoiseAmplitude,
			JPEGQuality:         imagesweep.DefaultJPEGQuality,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Cache: Cache{
			Enabled: true,
			Path:    defaultCachePath(),
		},
	}
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "imagesweep", "fingerprints.db")
	}
	return "~/.cache/imagesweep/fingerprints.db"
}
