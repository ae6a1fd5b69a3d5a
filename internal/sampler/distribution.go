// Package sampler draws thoughtseed feature values from configured probability
// distributions. Distributions are resolved once from their configured kind and
// parameters (see Resolve) and are then safe to sample repeatedly.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind names a supported distribution family.
type Kind string

const (
	KindNormal          Kind = "normal"
	KindBeta            Kind = "beta"
	KindTruncatedNormal Kind = "truncated_normal"
)

var (
	// ErrUnsupportedDistribution is returned when a configuration names a
	// distribution family the sampler does not implement.
	ErrUnsupportedDistribution = errors.New("unsupported distribution")

	// ErrMissingParameter is returned when a distribution lacks a required parameter.
	ErrMissingParameter = errors.New("missing distribution parameter")

	// ErrInvalidParameter is returned when a parameter is outside its valid domain.
	ErrInvalidParameter = errors.New("invalid distribution parameter")

	// ErrNonFinite is returned when a draw produces NaN or an infinity.
	ErrNonFinite = errors.New("non-finite sample")
)

// Distribution is a validated feature distribution.
type Distribution interface {
	// Kind reports the distribution family.
	Kind() Kind

	// Sample draws one raw (unrounded) value using src.
	Sample(src rand.Source) (float64, error)
}

// Located is implemented by distributions that carry an explicit mean and
// standard deviation. Valence must be configured with one of these.
type Located interface {
	Location() (mu, sigma float64)
}

// Normal is a Gaussian distribution.
type Normal struct {
	Mu    float64 `json:"mu" yaml:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
}

func (d Normal) Kind() Kind { return KindNormal }

// Location returns the configured mean and standard deviation.
func (d Normal) Location() (float64, float64) { return d.Mu, d.Sigma }

// Sample draws from N(Mu, Sigma).
func (d Normal) Sample(src rand.Source) (float64, error) {
	v := distuv.Normal{Mu: d.Mu, Sigma: d.Sigma, Src: src}.Rand()
	return finite(KindNormal, v)
}

// Beta is a beta distribution on [0, 1].
type Beta struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
}

func (d Beta) Kind() Kind { return KindBeta }

// Sample draws from Beta(Alpha, Beta).
func (d Beta) Sample(src rand.Source) (float64, error) {
	v := distuv.Beta{Alpha: d.Alpha, Beta: d.Beta, Src: src}.Rand()
	return finite(KindBeta, v)
}

// TruncatedNormal is a Gaussian restricted to [Low, Up].
type TruncatedNormal struct {
	Mu    float64 `json:"mu" yaml:"mu"`
	Sigma float64 `json:"sigma" yaml:"sigma"`
	Low   float64 `json:"low" yaml:"low"`
	Up    float64 `json:"up" yaml:"up"`
}

func (d TruncatedNormal) Kind() Kind { return KindTruncatedNormal }

// Location returns the mean and standard deviation of the parent normal.
func (d TruncatedNormal) Location() (float64, float64) { return d.Mu, d.Sigma }

// Bounds returns the truncation bounds in standard units,
// (Low-Mu)/Sigma and (Up-Mu)/Sigma.
func (d TruncatedNormal) Bounds() (a, b float64) {
	return (d.Low - d.Mu) / d.Sigma, (d.Up - d.Mu) / d.Sigma
}

// Sample draws by inverting the standard normal CDF over the truncated range.
func (d TruncatedNormal) Sample(src rand.Source) (float64, error) {
	a, b := d.Bounds()
	lo := distuv.UnitNormal.CDF(a)
	hi := distuv.UnitNormal.CDF(b)
	u := lo + rand.New(src).Float64()*(hi-lo)

	v := d.Mu + d.Sigma*distuv.UnitNormal.Quantile(u)
	// Deep-tail bounds can push the quantile outside the range through
	// floating-point error.
	v = math.Max(d.Low, math.Min(d.Up, v))
	return finite(KindTruncatedNormal, v)
}

// Resolve validates kind and params and returns the matching Distribution.
// Unknown kinds fail with ErrUnsupportedDistribution.
func Resolve(kind string, params map[string]float64) (Distribution, error) {
	switch Kind(kind) {
	case KindNormal:
		p, err := require(params, "mu", "sigma")
		if err != nil {
			return nil, err
		}
		if p[1] <= 0 {
			return nil, fmt.Errorf("%w: sigma must be positive, got %v", ErrInvalidParameter, p[1])
		}
		return Normal{Mu: p[0], Sigma: p[1]}, nil

	case KindBeta:
		p, err := require(params, "alpha", "beta")
		if err != nil {
			return nil, err
		}
		if p[0] <= 0 || p[1] <= 0 {
			return nil, fmt.Errorf("%w: alpha and beta must be positive, got %v and %v", ErrInvalidParameter, p[0], p[1])
		}
		return Beta{Alpha: p[0], Beta: p[1]}, nil

	case KindTruncatedNormal:
		p, err := require(params, "mu", "sigma", "low", "up")
		if err != nil {
			return nil, err
		}
		if p[1] <= 0 {
			return nil, fmt.Errorf("%w: sigma must be positive, got %v", ErrInvalidParameter, p[1])
		}
		if p[2] >= p[3] {
			return nil, fmt.Errorf("%w: low (%v) must be below up (%v)", ErrInvalidParameter, p[2], p[3])
		}
		return TruncatedNormal{Mu: p[0], Sigma: p[1], Low: p[2], Up: p[3]}, nil

	default:
		return nil, fmt.Errorf("%w: %q (valid: normal, beta, truncated_normal)", ErrUnsupportedDistribution, kind)
	}
}

// Parameters returns the parameter map that Resolve would accept for d.
func Parameters(d Distribution) map[string]float64 {
	switch v := d.(type) {
	case Normal:
		return map[string]float64{"mu": v.Mu, "sigma": v.Sigma}
	case Beta:
		return map[string]float64{"alpha": v.Alpha, "beta": v.Beta}
	case TruncatedNormal:
		return map[string]float64{"mu": v.Mu, "sigma": v.Sigma, "low": v.Low, "up": v.Up}
	default:
		return nil
	}
}

func require(params map[string]float64, names ...string) ([]float64, error) {
	values := make([]float64, len(names))
	var missing []string
	for i, name := range names {
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		values[i] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %v", ErrMissingParameter, missing)
	}
	return values, nil
}

func finite(kind Kind, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w from %s distribution", ErrNonFinite, kind)
	}
	return v, nil
}
