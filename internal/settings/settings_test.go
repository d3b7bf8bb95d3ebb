package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	imagesweep "github.com/anatolykoptev/go-imagesweep"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.toml")
	s, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if exists || resolved != path {
		t.Errorf("resolved = %s exists = %v", resolved, exists)
	}
	if s.Download.MaxConcurrent != imagesweep.DefaultMaxConcurrent || s.Duplicates.SimilarityThreshold != 2 {
		t.Errorf("defaults not applied: %+v", s)
	}
	if !filepath.IsAbs(s.Cache.Path) {
		t.Errorf("cache path %q not expanded", s.Cache.Path)
	}
}

func TestLoad_SampleIsValid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg", "config.toml")
	if err := CreateSample(path, false); err != nil {
		t.Fatal(err)
	}
	s, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample does not load: %v", err)
	}
	if !exists || s.Download.StartIndex != 1000 || s.Logging.Format != "console" {
		t.Errorf("sample settings = %+v", s)
	}
	if err := CreateSample(path, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("second CreateSample err = %v", err)
	}
	if err := CreateSample(path, true); err != nil {
		t.Errorf("overwrite: %v", err)
	}
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
[download]
max_concurrent = 8
retries = 0

[validation]
allowed_schemes = [" HTTPS "]
forbidden_domains = ["Internal.Example", ""]

[duplicates]
similarity_threshold = 3

[logging]
format = "JSON"
`)
	s, _, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Download.MaxConcurrent != 8 || s.Download.TimeoutSeconds != 30 {
		t.Errorf("download = %+v", s.Download)
	}
	if len(s.Validation.AllowedSchemes) != 1 || s.Validation.AllowedSchemes[0] != "https" {
		t.Errorf("schemes = %q", s.Validation.AllowedSchemes)
	}
	if len(s.Validation.ForbiddenDomains) != 1 || s.Validation.ForbiddenDomains[0] != "internal.example" {
		t.Errorf("domains = %q", s.Validation.ForbiddenDomains)
	}
	if s.Logging.Format != "json" {
		t.Errorf("format = %q", s.Logging.Format)
	}

	cfg := s.Library()
	if cfg.Retries != -1 {
		t.Errorf("retries 0 should disable retries, got %d", cfg.Retries)
	}
	if cfg.SimilarityThreshold != 3 || cfg.Timeout != 30*time.Second || cfg.InitialBackoff != time.Second {
		t.Errorf("library config = %+v", cfg)
	}
}

func TestLoad_Rejects(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown key":        "[download]\nturbo = true\n",
		"bad toml":           "[download\n",
		"zero concurrency":   "[download]\nmax_concurrent = 0\n",
		"negative retries":   "[download]\nretries = -2\n",
		"max below min":      "[validation]\nmin_bytes = 500\nmax_bytes = 100\n",
		"ftp scheme":         "[validation]\nallowed_schemes = [\"ftp\"]\n",
		"threshold too high": "[duplicates]\nsimilarity_threshold = 4\n",
		"quality zero":       "[duplicates]\njpeg_quality = 0\n",
		"no attempts":        "[duplicates]\nmax_uniquify_attempts = 0\n",
		"bad level":          "[logging]\nlevel = \"loud\"\n",
		"bad format":         "[logging]\nformat = \"xml\"\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, _, _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLibrary_DisabledThreshold(t *testing.T) {
	t.Parallel()

	s := Default()
	s.Duplicates.SimilarityThreshold = 0
	if got := s.Library().SimilarityThreshold; got >= 0 {
		t.Errorf("threshold = %d, want negative (disabled)", got)
	}
	if got := s.DownloadOpts().StartIndex; got != imagesweep.DefaultStartIndex {
		t.Errorf("start index = %d", got)
	}
}

func TestResolveConfigPath_Env(t *testing.T) {
	path := writeConfig(t, "[download]\nmax_concurrent = 3\n")
	t.Setenv(EnvConfigPath, path)

	s, resolved, exists, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !exists || resolved != path || s.Download.MaxConcurrent != 3 {
		t.Errorf("resolved = %s exists = %v concurrency = %d", resolved, exists, s.Download.MaxConcurrent)
	}
}
