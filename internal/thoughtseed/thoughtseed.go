// Package thoughtseed defines the thoughtseed entity, its activation and
// firing-cost dynamics, the population generator and the thoughtsprout that
// an activated thoughtseed turns into.
package thoughtseed

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nvandessel/thoughtseed/internal/config"
	"github.com/nvandessel/thoughtseed/internal/constants"
)

var (
	// ErrMissingFeatureValue is returned when a computation needs a feature the
	// thoughtseed was not sampled with.
	ErrMissingFeatureValue = errors.New("missing feature value")

	// ErrInvalidMemoryPattern is returned when a memory pattern is not 32
	// binary digits.
	ErrInvalidMemoryPattern = errors.New("invalid memory pattern")
)

// Thoughtseed is a single cognitive unit.
type Thoughtseed struct {
	FeatureValues FeatureValues `json:"feature_values"`

	// MemoryPattern is 32 '0'/'1' characters, four 8-bit segments.
	MemoryPattern string `json:"memory_pattern"`

	// EnergyLevel is unbounded; synapse input and firing cost move it freely.
	EnergyLevel float64 `json:"energy_level"`

	// ActivationStatus holds the result of the last activation check. It is
	// not refreshed when EnergyLevel is written directly.
	ActivationStatus bool `json:"activation_status"`
}

// New creates a thoughtseed at the initial energy level, not activated.
func New(features FeatureValues, memoryPattern string) *Thoughtseed {
	return &Thoughtseed{
		FeatureValues: features,
		MemoryPattern: memoryPattern,
		EnergyLevel:   constants.InitialEnergyLevel,
	}
}

// Sigmoid is the logistic function 1/(1+e^-x).
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// ReceiveSynapse adds input to the energy level and refreshes the activation
// status against the default threshold.
func (s *Thoughtseed) ReceiveSynapse(input float64) {
	s.EnergyLevel += input
	s.IsActivated()
}

// IsActivated reports whether sigmoid(energy) exceeds the default threshold
// and caches the answer in ActivationStatus.
func (s *Thoughtseed) IsActivated() bool {
	return s.IsActivatedAt(constants.DefaultActivationThreshold)
}

// IsActivatedAt is IsActivated with an explicit threshold.
func (s *Thoughtseed) IsActivatedAt(threshold float64) bool {
	s.ActivationStatus = s.Activated(threshold)
	return s.ActivationStatus
}

// Activated reports whether sigmoid(energy) exceeds threshold without touching
// ActivationStatus.
func (s *Thoughtseed) Activated(threshold float64) bool {
	return Sigmoid(s.EnergyLevel) > threshold
}

// CostWeights are the configured feature weights used by FiringCost.
type CostWeights struct {
	Complexity            float64
	ManifestationStrength float64
}

// CostWeightsFrom reads the firing-cost weights out of a feature configuration.
func CostWeightsFrom(fc config.FeatureConfig) (CostWeights, error) {
	wc, err := fc.FeatureWeight(constants.FeatureComplexity)
	if err != nil {
		return CostWeights{}, err
	}
	wm, err := fc.FeatureWeight(constants.FeatureManifestationStrength)
	if err != nil {
		return CostWeights{}, err
	}
	return CostWeights{Complexity: wc, ManifestationStrength: wm}, nil
}

// FiringCost returns
//
//	(1 + C) * AT * exp(wc*C + wm*MS) + noise
//
// where C, AT and MS are the thoughtseed's Complexity, Activation Threshold
// and Manifestation Strength. The result is not floored and may be negative.
func (s *Thoughtseed) FiringCost(w CostWeights, noise float64) (float64, error) {
	values := make([]float64, 3)
	for i, name := range []string{
		constants.FeatureComplexity,
		constants.FeatureActivationThreshold,
		constants.FeatureManifestationStrength,
	} {
		v, ok := s.FeatureValues.Get(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrMissingFeatureValue, name)
		}
		values[i] = v
	}
	c, at, ms := values[0], values[1], values[2]

	return (1+c)*at*math.Exp(w.Complexity*c+w.ManifestationStrength*ms) + noise, nil
}

// DecodeMemoryPattern splits the memory pattern into its four segments. The
// pattern is laid out as activity, emotion, location, time slot; the result
// is returned as location, time slot, activity, emotion.
func (s *Thoughtseed) DecodeMemoryPattern() (location, timeSlot, activity, emotion int, err error) {
	segs, err := splitMemoryPattern(s.MemoryPattern)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return segs[2], segs[3], segs[0], segs[1], nil
}

// EncodeMemoryPattern builds a memory pattern from a thoughtseed's Complexity
// and Valence and two random segments. Complexity and Valence are scaled by
// 255, rounded and clamped to [0, 255].
func EncodeMemoryPattern(complexity, valence float64, random1, random2 int) (string, error) {
	var sb strings.Builder
	sb.Grow(constants.MemoryPatternLength)
	for _, v := range []float64{complexity, valence} {
		seg, err := scaleSegment(v)
		if err != nil {
			return "", err
		}
		writeSegment(&sb, seg)
	}
	writeSegment(&sb, random1)
	writeSegment(&sb, random2)
	return sb.String(), nil
}

func scaleSegment(v float64) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: cannot encode %v", ErrInvalidMemoryPattern, v)
	}
	x := math.Round(v * constants.MemorySegmentMax)
	return int(math.Max(0, math.Min(constants.MemorySegmentMax, x))), nil
}

func writeSegment(sb *strings.Builder, v int) {
	v = max(0, min(constants.MemorySegmentMax, v))
	fmt.Fprintf(sb, "%0*b", constants.MemorySegmentBits, v)
}

func splitMemoryPattern(p string) ([constants.MemorySegments]int, error) {
	var segs [constants.MemorySegments]int
	if len(p) != constants.MemoryPatternLength {
		return segs, fmt.Errorf("%w: length %d, want %d", ErrInvalidMemoryPattern, len(p), constants.MemoryPatternLength)
	}
	for i := range segs {
		chunk := p[i*constants.MemorySegmentBits : (i+1)*constants.MemorySegmentBits]
		v, err := strconv.ParseUint(chunk, 2, constants.MemorySegmentBits)
		if err != nil {
			return segs, fmt.Errorf("%w: segment %d %q", ErrInvalidMemoryPattern, i, chunk)
		}
		segs[i] = int(v)
	}
	return segs, nil
}
