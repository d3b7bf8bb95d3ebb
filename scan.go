package imagesweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ScanOpts controls which files of a directory are considered.
type ScanOpts struct {
	// SkipFlagged excludes files already renamed as duplicates.
	SkipFlagged bool
}

// Duplicate is a file whose fingerprint matched an earlier one.
type Duplicate struct {
	Path        string
	Fingerprint Fingerprint
	Original    string
}

// FileError is a file that could not be fingerprinted.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e FileError) Unwrap() error { return e.Err }

// Classification is the result of scanning a set of files.
type Classification struct {
	Unique     map[Fingerprint]string
	Duplicates []Duplicate
	Records    []ImageRecord // every fingerprinted file, in scan order
	Failed     []FileError
	Index      *Index
}

// ListImages returns the image files directly inside dir, sorted by name.
// Hidden files and unsupported extensions are skipped.
func ListImages(dir string, opts ScanOpts) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !IsImageFile(name) {
			continue
		}
		if opts.SkipFlagged && IsFlagged(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// Classify fingerprints every image in dir and splits them into unique
// files and duplicates. Only an unreadable dir is returned as an error.
func (cfg *Config) Classify(ctx context.Context, dir string, opts ScanOpts) (*Classification, error) {
	paths, err := ListImages(dir, opts)
	if err != nil {
		return nil, err
	}
	return cfg.ClassifyFiles(ctx, paths)
}

// ClassifyFiles is Classify over an explicit list. Fingerprinting runs in
// parallel; insertion into the index follows the order of paths, so the
// first file of a duplicate group is always the one kept.
func (cfg *Config) ClassifyFiles(ctx context.Context, paths []string) (*Classification, error) {
	cfg.defaults()

	records := make([]ImageRecord, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.HashWorkers)
	for i, p := range paths {
		g.Go(func() error {
			defer cfg.recoverPanic("fingerprint", &errs[i])
			if gctx.Err() != nil {
				return gctx.Err()
			}
			records[i], errs[i] = cfg.FingerprintFile(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &Classification{
		Unique: make(map[Fingerprint]string),
		Index:  NewIndex(cfg.threshold()),
	}
	for i, p := range paths {
		if errs[i] != nil {
			cfg.Logger.Debug("imagesweep: fingerprint failed", "path", p, "error", errs[i])
			c.Failed = append(c.Failed, FileError{Path: p, Err: errs[i]})
			continue
		}
		rec := records[i]
		c.Records = append(c.Records, rec)

		if orig, ok := c.Index.Match(rec.Fingerprint, ""); ok {
			c.Duplicates = append(c.Duplicates, Duplicate{
				Path:        p,
				Fingerprint: rec.Fingerprint,
				Original:    orig.Path,
			})
			continue
		}
		c.Index.Register(rec.Fingerprint, p)
		if _, exists := c.Unique[rec.Fingerprint]; !exists {
			c.Unique[rec.Fingerprint] = p
		}
	}

	cfg.Logger.Debug("imagesweep: classified",
		"files", len(paths), "unique", c.Index.Len(),
		"duplicates", len(c.Duplicates), "failed", len(c.Failed))
	return c, nil
}
