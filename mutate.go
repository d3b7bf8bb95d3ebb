package imagesweep

import (
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Mutation is one kind of small visual perturbation.
type Mutation int

const (
	MutationBrightness Mutation = iota
	MutationContrast
	MutationCrop
	MutationNoise
	numMutations
)

var mutationNames = [...]string{
	MutationBrightness: "brightness",
	MutationContrast:   "contrast",
	MutationCrop:       "crop",
	MutationNoise:      "noise",
}

func (m Mutation) String() string {
	if m < 0 || m >= numMutations {
		return "unknown"
	}
	return mutationNames[m]
}

// Percent bounds for brightness and contrast shifts, and per-side crop margins.
const (
	minShiftPercent = 5
	maxShiftPercent = 15
	minCropPercent  = 1
	maxCropPercent  = 5
)

// ImageMutator perturbs an image. *Mutator is the production implementation.
type ImageMutator interface {
	Mutate(img image.Image) (*image.NRGBA, Mutation)
}

// Mutator applies randomly drawn mutations. It is safe for concurrent use.
type Mutator struct {
	mu        sync.Mutex
	rng       *rand.Rand
	amplitude int
}

// NewMutator returns a Mutator seeded with seed (0 = time based) whose
// noise mutation adds at most ±amplitude per channel.
func NewMutator(seed int64, amplitude int) *Mutator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if amplitude <= 0 {
		amplitude = DefaultNoiseAmplitude
	}
	return &Mutator{
		rng:       rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1^0x9e3779b97f4a7c15)),
		amplitude: amplitude,
	}
}

// Draw picks a mutation kind uniformly.
func (m *Mutator) Draw() Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Mutation(m.rng.IntN(int(numMutations)))
}

// Mutate draws a kind and applies it.
func (m *Mutator) Mutate(img image.Image) (*image.NRGBA, Mutation) {
	kind := m.Draw()
	return m.Apply(img, kind), kind
}

// Apply applies kind to img and returns a new image; img is not modified.
func (m *Mutator) Apply(img image.Image, kind Mutation) *image.NRGBA {
	switch kind {
	case MutationBrightness:
		return imaging.AdjustBrightness(img, m.shift())
	case MutationContrast:
		return imaging.AdjustContrast(img, m.shift())
	case MutationCrop:
		return m.crop(img)
	case MutationNoise:
		return m.noise(img)
	default:
		return imaging.Clone(img)
	}
}

// shift returns a signed percentage with magnitude in [5,15].
func (m *Mutator) shift() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	mag := minShiftPercent + m.rng.Float64()*(maxShiftPercent-minShiftPercent)
	if m.rng.IntN(2) == 0 {
		return -mag
	}
	return mag
}

// margin returns a crop margin in [1%,5%] of size, at least one pixel.
func (m *Mutator) margin(size int) int {
	m.mu.Lock()
	pct := minCropPercent + m.rng.Float64()*(maxCropPercent-minCropPercent)
	m.mu.Unlock()
	px := int(float64(size) * pct / 100)
	return max(px, 1)
}

func (m *Mutator) crop(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 2 || h <= 2 {
		return imaging.Clone(img)
	}
	left, right := m.margin(w), m.margin(w)
	top, bottom := m.margin(h), m.margin(h)
	// Keep at least one pixel in each dimension.
	if left+right >= w {
		left, right = 1, 0
	}
	if top+bottom >= h {
		top, bottom = 1, 0
	}
	rect := image.Rect(b.Min.X+left, b.Min.Y+top, b.Max.X-right, b.Max.Y-bottom)
	return imaging.Crop(img, rect)
}

func (m *Mutator) noise(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	amp := m.amplitude
	span := 2*amp + 1

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < len(out.Pix); i += 4 {
		for c := range 3 {
			v := int(out.Pix[i+c]) + m.rng.IntN(span) - amp
			out.Pix[i+c] = uint8(min(max(v, 0), 255))
		}
	}
	return out
}
