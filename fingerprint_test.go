package imagesweep

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

// memCache is an in-memory Cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string]any
	hits int
}

func (c *memCache) Key(prefix, value string) string { return prefix + ":" + value }

func (c *memCache) Get(_ context.Context, key string, dest any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return false
	}
	s, ok := dest.(*string)
	if !ok {
		return false
	}
	*s = v.(string)
	c.hits++
	return true
}

func (c *memCache) Set(_ context.Context, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

func TestFingerprint_StringParse(t *testing.T) {
	t.Parallel()

	fp := Fingerprint{0x0123456789abcdef, 0, ^uint64(0)}
	s := fp.String()
	if s != "0123456789abcdef:0000000000000000:ffffffffffffffff" {
		t.Errorf("String() = %q", s)
	}
	back, err := ParseFingerprint(s)
	if err != nil || back != fp {
		t.Errorf("ParseFingerprint(%q) = %v, %v", s, back, err)
	}
	for _, bad := range []string{"", "abc", "1:2", "1:2:zz", "1:2:3:4"} {
		if _, err := ParseFingerprint(bad); err == nil {
			t.Errorf("ParseFingerprint(%q) succeeded, want error", bad)
		}
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	base := Fingerprint{0xf0, 0x0f, 0xff}
	tests := []struct {
		name      string
		other     Fingerprint
		threshold int
		want      bool
	}{
		{"identical at 2", base, 2, true},
		{"two slots equal at 2", Fingerprint{0xf0, 0x0f, 0x00}, 2, true},
		{"one slot equal at 2", Fingerprint{0xf0, 0x00, 0x00}, 2, false},
		{"one bit off in two slots at 2", Fingerprint{0xf1, 0x0e, 0xff}, 2, false},
		{"identical at 3", base, 3, true},
		{"two slots equal at 3", Fingerprint{0xf0, 0x0f, 0x00}, 3, false},
		{"one slot equal at 1", Fingerprint{0x00, 0x0f, 0x00}, 1, true},
		{"identical but disabled", base, 0, false},
		{"identical but negative", base, -1, false},
	}
	for _, tc := range tests {
		if got := Matches(base, tc.other, tc.threshold); got != tc.want {
			t.Errorf("%s: Matches = %v, want %v", tc.name, got, tc.want)
		}
	}

	d := base.Distance(Fingerprint{0xf1, 0x0f, 0x00})
	if d != (Distance{1, 0, 8}) || d.Exact() != 1 {
		t.Errorf("Distance = %v exact %d, want [1 0 8] exact 1", d, d.Exact())
	}
}

func TestComputeFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	img := makePattern(120, 90, 10, 3)
	a, err := ComputeFingerprint(img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeFingerprint(imaging.Clone(img))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ for identical pixels: %v vs %v", a, b)
	}

	if _, err := ComputeFingerprint(image.NewNRGBA(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrDecode) {
		t.Errorf("empty image: err = %v, want ErrDecode", err)
	}
}

func TestFingerprintBytes_Undecodable(t *testing.T) {
	t.Parallel()

	if _, err := FingerprintBytes([]byte("definitely not an image")); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

// TestReencodeStability samples synthetic photographs built from flat
// 8x8-aligned tiles and checks that a q95 JPEG round trip changes at most
// one fingerprint slot for at least 90% of them.
func TestReencodeStability(t *testing.T) {
	t.Parallel()

	const samples = 20
	rng := rand.New(rand.NewPCG(7, 11))
	stable := 0
	for i := range samples {
		img := image.NewGray(image.Rect(0, 0, 128, 96))
		for ty := 0; ty < 96; ty += 8 {
			for tx := 0; tx < 128; tx += 8 {
				level := color.Gray{Y: uint8(16 * (1 + rng.IntN(14)))}
				for y := ty; y < ty+8; y++ {
					for x := tx; x < tx+8; x++ {
						img.SetGray(x, y, level)
					}
				}
			}
		}

		before, err := ComputeFingerprint(img)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		_, decoded, err := reencode(img, imaging.JPEG, DefaultJPEGQuality)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		after, err := ComputeFingerprint(decoded)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if before.Distance(after).Exact() >= numSlots-1 {
			stable++
		}
	}
	if stable*10 < samples*9 {
		t.Errorf("stable after re-encode: %d/%d, want >= 90%%", stable, samples)
	}
}

func TestFingerprintFile_UsesCache(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	writeImage(t, path, makePattern(64, 64, 8, 5))

	cache := &memCache{}
	cfg := &Config{Cache: cache}
	first, err := cfg.FingerprintFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cfg.FingerprintFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("cached fingerprint differs: %v vs %v", first.Fingerprint, second.Fingerprint)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}

	// A rewrite changes size or mtime and must miss.
	writeImage(t, path, makePattern(64, 64, 16, 9))
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	third, err := cfg.FingerprintFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits after rewrite = %d, want 1", cache.hits)
	}
	if third.Fingerprint == first.Fingerprint {
		t.Error("rewritten file kept the old fingerprint")
	}
}
