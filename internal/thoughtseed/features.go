package thoughtseed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FeatureValues maps feature names to sampled values. Iteration order is
// insertion order, which the generator keeps equal to the configured feature
// order so that encodings are reproducible.
type FeatureValues struct {
	names  []string
	values map[string]float64
}

// NewFeatureValues returns an empty mapping with room for n features.
func NewFeatureValues(n int) FeatureValues {
	return FeatureValues{
		names:  make([]string, 0, n),
		values: make(map[string]float64, n),
	}
}

// Set stores v under name. A new name is appended; an existing one keeps its position.
func (fv *FeatureValues) Set(name string, v float64) {
	if fv.values == nil {
		fv.values = make(map[string]float64)
	}
	if _, ok := fv.values[name]; !ok {
		fv.names = append(fv.names, name)
	}
	fv.values[name] = v
}

// Get returns the value stored under name.
func (fv FeatureValues) Get(name string) (float64, bool) {
	v, ok := fv.values[name]
	return v, ok
}

// Value returns the value stored under name, or 0 if absent.
func (fv FeatureValues) Value(name string) float64 {
	return fv.values[name]
}

// Names returns the feature names in insertion order.
func (fv FeatureValues) Names() []string {
	out := make([]string, len(fv.names))
	copy(out, fv.names)
	return out
}

// Len returns the number of features.
func (fv FeatureValues) Len() int { return len(fv.names) }

// Clone returns an independent copy.
func (fv FeatureValues) Clone() FeatureValues {
	out := NewFeatureValues(len(fv.names))
	for _, name := range fv.names {
		out.Set(name, fv.values[name])
	}
	return out
}

// Map returns the values as a plain map. Order is lost.
func (fv FeatureValues) Map() map[string]float64 {
	out := make(map[string]float64, len(fv.values))
	for k, v := range fv.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the values as an object whose keys keep insertion order.
func (fv FeatureValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range fv.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fv.values[name])
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

// UnmarshalJSON decodes an object, keeping the document's key order.
func (fv *FeatureValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("feature values: expected object, got %v", tok)
	}

	*fv = NewFeatureValues(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("feature values: expected key, got %v", tok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("feature values: decoding %q: %w", name, err)
		}
		fv.Set(name, v)
	}
	_, err = dec.Token()
	return err
}
