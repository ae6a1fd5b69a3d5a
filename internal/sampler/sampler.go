package sampler

import (
	"math"
	"math/rand/v2"

	"github.com/nvandessel/thoughtseed/internal/constants"
)

// Sampler draws rounded feature values from distributions using a single
// random source. A Sampler is not safe for concurrent use.
type Sampler struct {
	rng *rand.Rand
}

// New creates a sampler backed by rng.
func New(rng *rand.Rand) *Sampler {
	return &Sampler{rng: rng}
}

// Draw samples d and rounds the result to FeatureValuePrecision decimal places.
func (s *Sampler) Draw(d Distribution) (float64, error) {
	v, err := d.Sample(s.rng)
	if err != nil {
		return 0, err
	}
	return Round(v, constants.FeatureValuePrecision), nil
}

// Noise draws from N(0, sigma) without rounding.
func (s *Sampler) Noise(sigma float64) float64 {
	return s.rng.NormFloat64() * sigma
}

// Byte draws a uniform integer in [0, 255].
func (s *Sampler) Byte() int {
	return s.rng.IntN(constants.MemorySegmentMax + 1)
}

// Round rounds x to the given number of decimal places, half away from zero.
func Round(x float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(x*scale) / scale
}
