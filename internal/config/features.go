package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nvandessel/thoughtseed/internal/constants"
	"github.com/nvandessel/thoughtseed/internal/sampler"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFeature is returned when a required feature is not configured.
	ErrMissingFeature = errors.New("required feature not configured")

	// ErrMissingValence is returned when the Valence feature has no mean and
	// standard deviation. Network building and pool assignment cannot proceed
	// without them.
	ErrMissingValence = errors.New("valence mean and standard deviation not configured")

	// ErrMissingWeight is returned when a feature used in the firing cost has no weight.
	ErrMissingWeight = errors.New("feature weight not configured")
)

// ConfigurationError reports a systemic configuration defect. It is always
// fatal for the run that encounters it.
type ConfigurationError struct {
	Feature string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Feature == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: feature %q: %v", e.Feature, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Feature is one configured thoughtseed feature.
type Feature struct {
	Name         string
	Distribution sampler.Distribution
	// Weight is optional; Complexity and Manifestation Strength need one for
	// the firing cost.
	Weight *float64
}

// rawFeature is the on-disk shape of a feature before resolution.
type rawFeature struct {
	Distribution string             `json:"distribution" yaml:"distribution"`
	Parameters   map[string]float64 `json:"parameters" yaml:"parameters"`
	Weight       *float64           `json:"weight,omitempty" yaml:"weight,omitempty"`
}

type namedRaw struct {
	name string
	raw  rawFeature
}

// FeatureConfig is an ordered set of features. Iteration order is the
// configured order and is preserved for reproducible sampling and encoding.
type FeatureConfig struct {
	features []Feature
	index    map[string]int

	// raw holds decoded-but-unresolved entries between UnmarshalYAML and resolve.
	raw []namedRaw
}

// Weight returns a pointer to w, for use in Feature literals.
func Weight(w float64) *float64 {
	return &w
}

// Add resolves and appends a feature. Adding an existing name replaces it in place.
func (fc *FeatureConfig) Add(name, kind string, params map[string]float64, weight *float64) error {
	d, err := sampler.Resolve(kind, params)
	if err != nil {
		return &ConfigurationError{Feature: name, Err: err}
	}
	fc.AddDistribution(name, d, weight)
	return nil
}

// AddDistribution appends a feature with an already resolved distribution.
func (fc *FeatureConfig) AddDistribution(name string, d sampler.Distribution, weight *float64) {
	if fc.index == nil {
		fc.index = make(map[string]int)
	}
	f := Feature{Name: name, Distribution: d, Weight: weight}
	if i, ok := fc.index[name]; ok {
		fc.features[i] = f
		return
	}
	fc.index[name] = len(fc.features)
	fc.features = append(fc.features, f)
}

// Len returns the number of features.
func (fc FeatureConfig) Len() int { return len(fc.features) }

// Features returns the features in configured order.
func (fc FeatureConfig) Features() []Feature {
	out := make([]Feature, len(fc.features))
	copy(out, fc.features)
	return out
}

// Names returns the feature names in configured order.
func (fc FeatureConfig) Names() []string {
	names := make([]string, len(fc.features))
	for i, f := range fc.features {
		names[i] = f.Name
	}
	return names
}

// Get returns the named feature.
func (fc FeatureConfig) Get(name string) (Feature, bool) {
	i, ok := fc.index[name]
	if !ok {
		return Feature{}, false
	}
	return fc.features[i], true
}

// FeatureWeight returns the configured weight of the named feature.
func (fc FeatureConfig) FeatureWeight(name string) (float64, error) {
	f, ok := fc.Get(name)
	if !ok {
		return 0, &ConfigurationError{Feature: name, Err: ErrMissingFeature}
	}
	if f.Weight == nil {
		return 0, &ConfigurationError{Feature: name, Err: ErrMissingWeight}
	}
	return *f.Weight, nil
}

// Valence returns the configured valence mean and standard deviation.
func (fc FeatureConfig) Valence() (mu, sigma float64, err error) {
	f, ok := fc.Get(constants.FeatureValence)
	if !ok {
		return 0, 0, &ConfigurationError{Feature: constants.FeatureValence, Err: ErrMissingValence}
	}
	loc, ok := f.Distribution.(sampler.Located)
	if !ok {
		return 0, 0, &ConfigurationError{
			Feature: constants.FeatureValence,
			Err:     fmt.Errorf("%w: %s distribution has no mu/sigma", ErrMissingValence, f.Distribution.Kind()),
		}
	}
	mu, sigma = loc.Location()
	return mu, sigma, nil
}

// Validate checks that every required feature is present, that valence is
// located and that the firing-cost weights are set.
func (fc FeatureConfig) Validate() error {
	for _, name := range constants.RequiredFeatures {
		if _, ok := fc.Get(name); !ok {
			return &ConfigurationError{Feature: name, Err: ErrMissingFeature}
		}
	}
	if _, _, err := fc.Valence(); err != nil {
		return err
	}
	for _, name := range []string{constants.FeatureComplexity, constants.FeatureManifestationStrength} {
		if _, err := fc.FeatureWeight(name); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalYAML decodes a feature mapping, keeping document order.
// Distributions are resolved later by resolve so that unsupported kinds
// surface as a *ConfigurationError rather than a YAML error.
func (fc *FeatureConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("features: expected a mapping, got %s", nodeKind(value.Kind))
	}
	*fc = FeatureConfig{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		var name string
		if err := value.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("features: decoding name: %w", err)
		}
		var raw rawFeature
		if err := value.Content[i+1].Decode(&raw); err != nil {
			return fmt.Errorf("features: decoding %q: %w", name, err)
		}
		fc.raw = append(fc.raw, namedRaw{name: name, raw: raw})
	}
	return nil
}

// MarshalYAML encodes the features as an ordered mapping.
func (fc FeatureConfig) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range fc.features {
		var val yaml.Node
		if err := val.Encode(toRaw(f)); err != nil {
			return nil, fmt.Errorf("encoding feature %q: %w", f.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Name},
			&val,
		)
	}
	return node, nil
}

// MarshalJSON encodes the features as an object whose keys keep configured order.
func (fc FeatureConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fc.features {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(toRaw(f))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// resolve turns raw entries into distributions.
func (fc *FeatureConfig) resolve() error {
	raw := fc.raw
	fc.raw = nil
	for _, r := range raw {
		if err := fc.Add(r.name, r.raw.Distribution, r.raw.Parameters, r.raw.Weight); err != nil {
			return err
		}
	}
	return nil
}

func toRaw(f Feature) rawFeature {
	return rawFeature{
		Distribution: string(f.Distribution.Kind()),
		Parameters:   sampler.Parameters(f.Distribution),
		Weight:       f.Weight,
	}
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// DefaultFeatures returns the stock feature set.
func DefaultFeatures() FeatureConfig {
	var fc FeatureConfig
	fc.AddDistribution(constants.FeatureComplexity, sampler.Beta{Alpha: 2, Beta: 5}, Weight(0.5))
	fc.AddDistribution(constants.FeatureValence, sampler.Normal{Mu: 0, Sigma: 1}, nil)
	fc.AddDistribution(constants.FeatureManifestationStrength, sampler.Beta{Alpha: 2, Beta: 2}, Weight(0.3))
	fc.AddDistribution(constants.FeatureActivationThreshold,
		sampler.TruncatedNormal{Mu: 0.5, Sigma: 0.15, Low: 0, Up: 1}, nil)
	return fc
}
