package imagesweep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math/bits"
	"os"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"
)

// Fingerprint slots, one per perceptual hash algorithm.
const (
	SlotPerception = iota // DCT frequency-domain hash
	SlotDifference        // gradient-direction hash
	SlotAverage           // block-average hash
	numSlots
)

// Fingerprint is the ordered triple of 64-bit perceptual hashes of an image.
type Fingerprint [numSlots]uint64

// Distance holds the per-slot Hamming distances between two fingerprints.
type Distance [numSlots]int

// String renders the fingerprint as three colon-separated hex words.
func (f Fingerprint) String() string {
	parts := make([]string, numSlots)
	for i, h := range f {
		parts[i] = fmt.Sprintf("%016x", h)
	}
	return strings.Join(parts, ":")
}

// ParseFingerprint is the inverse of Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	parts := strings.Split(s, ":")
	if len(parts) != numSlots {
		return fp, fmt.Errorf("fingerprint %q: want %d slots, got %d", s, numSlots, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 64)
		if err != nil {
			return fp, fmt.Errorf("fingerprint %q slot %d: %w", s, i, err)
		}
		fp[i] = v
	}
	return fp, nil
}

// Distance returns the Hamming distance of each slot.
func (f Fingerprint) Distance(other Fingerprint) Distance {
	var d Distance
	for i := range f {
		d[i] = bits.OnesCount64(f[i] ^ other[i])
	}
	return d
}

// Exact returns how many slots are at distance zero.
func (d Distance) Exact() int {
	n := 0
	for _, v := range d {
		if v == 0 {
			n++
		}
	}
	return n
}

// Matches reports whether a and b are duplicates: at least threshold of
// the three slots must be exactly equal. A threshold <= 0 never matches.
func Matches(a, b Fingerprint, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return a.Distance(b).Exact() >= threshold
}

// ImageRecord is a scanned file and its fingerprint.
type ImageRecord struct {
	Path        string
	Fingerprint Fingerprint
	Size        int64
}

// ComputeFingerprint hashes img with the three algorithms.
func ComputeFingerprint(img image.Image) (Fingerprint, error) {
	var fp Fingerprint
	if img == nil || img.Bounds().Empty() {
		return fp, fmt.Errorf("%w: empty image", ErrDecode)
	}

	p, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return fp, fmt.Errorf("perception hash: %w", err)
	}
	d, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return fp, fmt.Errorf("difference hash: %w", err)
	}
	a, err := goimagehash.AverageHash(img)
	if err != nil {
		return fp, fmt.Errorf("average hash: %w", err)
	}

	fp[SlotPerception] = p.GetHash()
	fp[SlotDifference] = d.GetHash()
	fp[SlotAverage] = a.GetHash()
	return fp, nil
}

// FingerprintBytes decodes data and fingerprints the result.
func FingerprintBytes(data []byte) (Fingerprint, error) {
	img, err := decodeImage(bytes.NewReader(data))
	if err != nil {
		return Fingerprint{}, err
	}
	return ComputeFingerprint(img)
}

// FingerprintFile fingerprints the file at path, consulting cfg.Cache
// (keyed by path, size and modification time) when one is configured.
func (cfg *Config) FingerprintFile(ctx context.Context, path string) (ImageRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ImageRecord{}, fmt.Errorf("stat %s: %w", path, err)
	}
	rec := ImageRecord{Path: path, Size: info.Size()}

	var key string
	if cfg.Cache != nil {
		key = cfg.Cache.Key("fp", fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano()))
		var cached string
		if cfg.Cache.Get(ctx, key, &cached) {
			if fp, perr := ParseFingerprint(cached); perr == nil {
				rec.Fingerprint = fp
				return rec, nil
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read %s: %w", path, err)
	}
	fp, err := FingerprintBytes(data)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", path, err)
	}
	rec.Fingerprint = fp

	if cfg.Cache != nil {
		cfg.Cache.Set(ctx, key, fp.String())
	}
	return rec, nil
}
