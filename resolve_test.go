package imagesweep

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
)

// noopMutator returns the image unchanged.
type noopMutator struct{}

func (noopMutator) Mutate(img image.Image) (*image.NRGBA, Mutation) {
	return imaging.Clone(img), MutationNoise
}

// cropMutator always crops, using the production margins.
type cropMutator struct{ m *Mutator }

func (c cropMutator) Mutate(img image.Image) (*image.NRGBA, Mutation) {
	return c.m.Apply(img, MutationCrop), MutationCrop
}

// lateCropMutator leaves the image unchanged for the first keep calls and
// crops afterwards. It records every input it receives.
type lateCropMutator struct {
	mu     sync.Mutex
	m      *Mutator
	keep   int
	inputs []image.Image
}

func (c *lateCropMutator) Mutate(img image.Image) (*image.NRGBA, Mutation) {
	c.mu.Lock()
	c.inputs = append(c.inputs, img)
	n := len(c.inputs)
	c.mu.Unlock()
	if n <= c.keep {
		return imaging.Clone(img), MutationNoise
	}
	return c.m.Apply(img, MutationCrop), MutationCrop
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Mode{"rename": ModeRename, " Uniquify ": ModeUniquify} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("delete"); err == nil {
		t.Error("ParseMode(delete) succeeded")
	}
}

func TestIsFlagged(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"b_duplicate_1.jpg":        true,
		"dir/b_duplicate_12.png":   true,
		"b_duplicate_.jpg":         false,
		"b_duplicate_1_copy.jpg":   false,
		"b.jpg":                    false,
		"my_duplicate_photo_1.jpg": false,
	}
	for name, want := range tests {
		if got := IsFlagged(name); got != want {
			t.Errorf("IsFlagged(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNamer_SkipsTakenNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b_duplicate_1.jpg"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	n := newNamer()
	first, err := n.next(filepath.Join(dir, "b.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "b_duplicate_2.jpg" {
		t.Errorf("first = %s, want b_duplicate_2.jpg", filepath.Base(first))
	}
	other, err := n.next(filepath.Join(dir, "c.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(other) != "c_duplicate_1.jpg" {
		t.Errorf("other stem = %s, want c_duplicate_1.jpg", filepath.Base(other))
	}
}

// Three identical solid images a, b, c: a is kept and b, c are renamed with
// per-stem counters starting at 1.
func TestResolveDuplicates_RenameScenario(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	red := solid(100, 100, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		writeImage(t, filepath.Join(dir, name), red)
	}

	var resolved []Resolution
	cfg := &Config{OnResolve: func(r Resolution) { resolved = append(resolved, r) }}
	report, err := cfg.ResolveDuplicates(context.Background(), dir, ModeRename)
	if err != nil {
		t.Fatal(err)
	}

	if !exists(filepath.Join(dir, "a.jpg")) {
		t.Error("a.jpg was touched")
	}
	for _, name := range []string{"b.jpg", "c.jpg"} {
		if exists(filepath.Join(dir, name)) {
			t.Errorf("%s still present", name)
		}
	}
	for _, name := range []string{"b_duplicate_1.jpg", "c_duplicate_1.jpg"} {
		if !exists(filepath.Join(dir, name)) {
			t.Errorf("%s missing", name)
		}
	}

	counts := report.Counts()
	if counts[StatusUnique] != 1 || counts[StatusRenamed] != 2 {
		t.Errorf("counts = %v, want 1 unique and 2 renamed", counts)
	}
	if len(resolved) != 3 {
		t.Errorf("OnResolve called %d times, want 3", len(resolved))
	}
	if r := report.Resolutions[1]; r.Original != filepath.Join(dir, "a.jpg") || r.NewPath != filepath.Join(dir, "b_duplicate_1.jpg") {
		t.Errorf("b resolution = %+v", r)
	}
}

func TestResolveDuplicates_RenameIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := makePattern(80, 80, 10, 6)
	for _, name := range []string{"one.png", "two.png"} {
		writeImage(t, filepath.Join(dir, name), img)
	}

	cfg := &Config{}
	if _, err := cfg.ResolveDuplicates(context.Background(), dir, ModeRename); err != nil {
		t.Fatal(err)
	}
	again, err := cfg.ResolveDuplicates(context.Background(), dir, ModeRename)
	if err != nil {
		t.Fatal(err)
	}
	counts := again.Counts()
	if counts[StatusRenamed] != 0 || counts[StatusUnique] != 1 {
		t.Errorf("second run counts = %v, want nothing renamed", counts)
	}
	if exists(filepath.Join(dir, "two_duplicate_1_duplicate_1.png")) || exists(filepath.Join(dir, "two_duplicate_2.png")) {
		t.Error("second run renamed an already flagged file")
	}
}

func TestUniquify_DisabledThresholdNoAttempts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "b.png")
	writeImage(t, path, makePattern(64, 64, 8, 2))
	fp, err := (&Config{}).FingerprintFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	idx := NewIndex(0)
	idx.Register(fp.Fingerprint, filepath.Join(dir, "a.png"))

	cfg := &Config{Mutator: noopMutator{}}
	res := cfg.Uniquify(context.Background(), Duplicate{Path: path, Fingerprint: fp.Fingerprint}, idx)
	if res.Status != StatusUnique || res.Attempts != 0 {
		t.Errorf("status = %v attempts = %d, want unique after 0", res.Status, res.Attempts)
	}
}

func TestResolveDuplicates_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := makePattern(64, 64, 8, 3)
	writeImage(t, filepath.Join(dir, "a.png"), img)
	dupPath := filepath.Join(dir, "b.png")
	writeImage(t, dupPath, img)
	before, err := os.ReadFile(dupPath)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Mutator: noopMutator{}, MaxUniquifyAttempts: 4}
	report, err := cfg.ResolveDuplicates(context.Background(), dir, ModeUniquify)
	if err != nil {
		t.Fatal(err)
	}
	res := report.Resolutions[1]
	if res.Path != dupPath || res.Status != StatusGaveUp {
		t.Fatalf("resolution = %+v, want gave up on b.png", res)
	}
	if res.Attempts != 4 || len(res.Mutations) != DefaultMutationsPerAttempt {
		t.Errorf("attempts = %d mutations = %d, want 4 and %d", res.Attempts, len(res.Mutations), DefaultMutationsPerAttempt)
	}
	after, err := os.ReadFile(dupPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("file changed although uniquify gave up")
	}
}

func TestResolveDuplicates_UniquifyMutatesDuplicate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := makePattern(160, 160, 16, 12)
	orig := filepath.Join(dir, "a.png")
	dupPath := filepath.Join(dir, "b.png")
	writeImage(t, orig, img)
	writeImage(t, dupPath, img)
	origBefore, err := os.ReadFile(orig)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Mutator: cropMutator{NewMutator(21, 0)}}
	report, err := cfg.ResolveDuplicates(context.Background(), dir, ModeUniquify)
	if err != nil {
		t.Fatal(err)
	}
	res := report.Resolutions[1]
	if res.Status != StatusMutated {
		t.Fatalf("status = %v (err %v), want mutated", res.Status, res.Err)
	}
	if res.Attempts < 1 || res.Attempts > DefaultMaxUniquifyAttempts {
		t.Errorf("attempts = %d out of range", res.Attempts)
	}

	rec, err := cfg.FingerprintFile(context.Background(), dupPath)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Fingerprint != res.Fingerprint {
		t.Errorf("file fingerprint %v differs from reported %v", rec.Fingerprint, res.Fingerprint)
	}
	a, err := cfg.FingerprintFile(context.Background(), orig)
	if err != nil {
		t.Fatal(err)
	}
	if Matches(a.Fingerprint, rec.Fingerprint, DefaultSimilarityThreshold) {
		t.Error("mutated file still matches the original")
	}
	out, err := imaging.Open(dupPath)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() >= 160 {
		t.Errorf("width = %d, want cropped", out.Bounds().Dx())
	}
	origAfter, _ := os.ReadFile(orig)
	if !bytes.Equal(origBefore, origAfter) {
		t.Error("canonical file was modified")
	}
}

func TestUniquify_UnsupportedEncoderFails(t *testing.T) {
	t.Parallel()

	idx := NewIndex(2)
	idx.Register(Fingerprint{1, 2, 3}, "a.webp")
	cfg := &Config{Mutator: noopMutator{}}
	res := cfg.Uniquify(context.Background(), Duplicate{Path: "b.webp", Fingerprint: Fingerprint{1, 2, 3}}, idx)
	if res.Status != StatusFailed || res.Err == nil {
		t.Errorf("status = %v err = %v, want failed", res.Status, res.Err)
	}
}

func TestUniquifyAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg")}
	writeImage(t, paths[0], makePattern(60, 60, 6, 1))
	writeImage(t, paths[1], makePattern(60, 60, 6, 2))
	if err := os.WriteFile(filepath.Join(dir, "c.jpg"), []byte("broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	before := make([][]byte, len(paths))
	for i, p := range paths {
		before[i], _ = os.ReadFile(p)
	}

	cfg := &Config{Seed: 4}
	report, err := cfg.UniquifyAll(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	counts := report.Counts()
	if counts[StatusMutated] != 2 || counts[StatusFailed] != 1 {
		t.Errorf("counts = %v, want 2 mutated and 1 failed", counts)
	}
	for i, p := range paths {
		after, _ := os.ReadFile(p)
		if bytes.Equal(before[i], after) {
			t.Errorf("%s was not rewritten", filepath.Base(p))
		}
		if res := report.Resolutions[i]; res.Attempts != 1 || len(res.Mutations) != DefaultMutationsPerAttempt {
			t.Errorf("%s: attempts = %d mutations = %d", filepath.Base(p), res.Attempts, len(res.Mutations))
		}
	}
	if _, err := (&Config{}).UniquifyAll(context.Background(), filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestResolveDuplicates_UniquifyAttemptsStartFromOriginal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := makePattern(160, 160, 16, 7)
	writeImage(t, filepath.Join(dir, "a.png"), img)
	dupPath := filepath.Join(dir, "b.png")
	writeImage(t, dupPath, img)

	mut := &lateCropMutator{m: NewMutator(33, 0), keep: 3}
	cfg := &Config{Mutator: mut, MutationsPerAttempt: 1}
	report, err := cfg.ResolveDuplicates(context.Background(), dir, ModeUniquify)
	if err != nil {
		t.Fatal(err)
	}
	res := report.Resolutions[1]
	if res.Status != StatusMutated {
		t.Fatalf("status = %v (err %v), want mutated", res.Status, res.Err)
	}
	if res.Attempts < 4 {
		t.Fatalf("attempts = %d, want at least 4", res.Attempts)
	}
	if len(res.Mutations) != 1 {
		t.Errorf("mutations = %v, want only the last attempt's", res.Mutations)
	}

	mut.mu.Lock()
	inputs := mut.inputs
	mut.mu.Unlock()
	if len(inputs) != res.Attempts {
		t.Fatalf("mutator called %d times for %d attempts", len(inputs), res.Attempts)
	}
	for i, in := range inputs {
		if in != inputs[0] {
			t.Errorf("attempt %d did not start from the original image", i+1)
		}
	}

	out, err := imaging.Open(dupPath)
	if err != nil {
		t.Fatal(err)
	}
	if w := out.Bounds().Dx(); w < 144 || w >= 160 {
		t.Errorf("width = %d, want one crop of 160 (144..159)", w)
	}
}
