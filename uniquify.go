package imagesweep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// Uniquify mutates the duplicate file until its fingerprint no longer
// matches anything in idx other than itself, or MaxUniquifyAttempts rounds
// have run. Every attempt starts from the decoded original, so an accepted
// file carries only that attempt's mutations. The file is only rewritten
// once an attempt succeeds. The new fingerprint is registered in
// idx under the file's path.
func (cfg *Config) Uniquify(ctx context.Context, dup Duplicate, idx *Index) (res Resolution) {
	cfg.defaults()
	res = Resolution{Path: dup.Path, Original: dup.Original, Fingerprint: dup.Fingerprint}
	defer func() {
		if res.Err != nil {
			res.Status = StatusFailed
		}
	}()
	defer cfg.recoverPanic("uniquify", &res.Err)

	if _, ok := idx.Match(dup.Fingerprint, dup.Path); !ok {
		res.Status = StatusUnique
		return res
	}

	format, err := formatFor(dup.Path)
	if err != nil {
		res.Err = err
		return res
	}
	base, err := loadWorkingCopy(dup.Path, format)
	if err != nil {
		res.Err = err
		return res
	}

	for attempt := 1; attempt <= cfg.MaxUniquifyAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		res.Attempts = attempt

		candidate := base
		kinds := make([]Mutation, 0, cfg.MutationsPerAttempt)
		for range cfg.MutationsPerAttempt {
			var kind Mutation
			candidate, kind = cfg.Mutator.Mutate(candidate)
			kinds = append(kinds, kind)
		}
		res.Mutations = kinds

		data, decoded, err := reencode(candidate, format, cfg.JPEGQuality)
		if err != nil {
			res.Err = err
			return res
		}
		fp, err := ComputeFingerprint(decoded)
		if err != nil {
			res.Err = err
			return res
		}

		if orig, still := idx.Match(fp, dup.Path); still {
			cfg.Logger.Debug("imagesweep: still duplicate",
				"path", dup.Path, "attempt", attempt, "matches", orig.Path)
			continue
		}

		if err := writeFileAtomic(dup.Path, data); err != nil {
			res.Err = err
			return res
		}
		idx.Register(fp, dup.Path)
		res.Status, res.Fingerprint = StatusMutated, fp
		cfg.Logger.Debug("imagesweep: uniquified", "path", dup.Path, "attempts", attempt)
		return res
	}

	cfg.Logger.Warn("imagesweep: uniquify gave up", "path", dup.Path, "attempts", res.Attempts)
	res.Status = StatusGaveUp
	return res
}

// UniquifyAll mutates every image in dir once, without any duplicate check.
func (cfg *Config) UniquifyAll(ctx context.Context, dir string) (*Report, error) {
	cfg.defaults()
	start := time.Now()

	paths, err := ListImages(dir, ScanOpts{})
	if err != nil {
		return nil, err
	}

	results := make([]Resolution, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.HashWorkers)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = cfg.mutateOnce(gctx, p)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Dir: dir, Mode: ModeUniquify}
	for _, res := range results {
		cfg.emitResolution(report, res)
	}
	report.Elapsed = time.Since(start)
	cfg.Logger.Info("imagesweep: uniquify-all done", "dir", dir, "files", len(paths), "elapsed", report.Elapsed)
	return report, ctx.Err()
}

func (cfg *Config) mutateOnce(ctx context.Context, path string) (res Resolution) {
	res = Resolution{Path: path}
	defer func() {
		if res.Err != nil {
			res.Status = StatusFailed
		}
	}()
	defer cfg.recoverPanic("uniquify-all", &res.Err)

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	format, err := formatFor(path)
	if err != nil {
		res.Err = err
		return res
	}
	work, err := loadWorkingCopy(path, format)
	if err != nil {
		res.Err = err
		return res
	}

	res.Attempts = 1
	for range cfg.MutationsPerAttempt {
		var kind Mutation
		work, kind = cfg.Mutator.Mutate(work)
		res.Mutations = append(res.Mutations, kind)
	}
	data, decoded, err := reencode(work, format, cfg.JPEGQuality)
	if err != nil {
		res.Err = err
		return res
	}
	if fp, err := ComputeFingerprint(decoded); err == nil {
		res.Fingerprint = fp
	}
	if err := writeFileAtomic(path, data); err != nil {
		res.Err = err
		return res
	}
	res.Status = StatusMutated
	return res
}

// loadWorkingCopy decodes path into an NRGBA copy. Formats without alpha
// support are flattened onto white.
func loadWorkingCopy(path string, format imaging.Format) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if format == imaging.JPEG || format == imaging.BMP {
		return flatten(img), nil
	}
	return imaging.Clone(img), nil
}

// writeFileAtomic replaces path with data through a temp file in the same
// directory, keeping the original permissions.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".imagesweep-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("%w: create temp: %w", ErrResourceExhausted, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: write %s: %w", ErrResourceExhausted, path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: close %s: %w", ErrResourceExhausted, path, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
