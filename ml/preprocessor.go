package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"busdelay/features"
)

const (
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// StandardScaler centres each column on its fitted mean and divides by the
// fitted scale.
type StandardScaler struct {
	Names []string  `json:"feature_names"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) FeatureNames() []string {
	return append([]string(nil), s.Names...)
}

func (s *StandardScaler) Transform(rec features.Record) ([]float64, error) {
	values, err := alignRecord(s.Names, rec)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		scale := s.Scale[i]
		// zero-variance columns were fit with unit scale
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

func (s *StandardScaler) validate() error {
	if len(s.Names) == 0 {
		return fmt.Errorf("%w: standard scaler has no features", ErrNotFitted)
	}
	if len(s.Mean) != len(s.Names) || len(s.Scale) != len(s.Names) {
		return fmt.Errorf("%w: standard scaler has %d features, %d means, %d scales",
			ErrNotFitted, len(s.Names), len(s.Mean), len(s.Scale))
	}
	return nil
}

// MinMaxScaler maps each column onto [0, 1] using the fitted bounds.
type MinMaxScaler struct {
	Names []string  `json:"feature_names"`
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
}

func (s *MinMaxScaler) FeatureNames() []string {
	return append([]string(nil), s.Names...)
}

func (s *MinMaxScaler) Transform(rec features.Record) ([]float64, error) {
	values, err := alignRecord(s.Names, rec)
	if err != nil {
		return nil, err
	}
	return NormalizeVector(values, s.Min, s.Max)
}

func (s *MinMaxScaler) validate() error {
	if len(s.Names) == 0 {
		return fmt.Errorf("%w: minmax scaler has no features", ErrNotFitted)
	}
	if len(s.Min) != len(s.Names) || len(s.Max) != len(s.Names) {
		return fmt.Errorf("%w: minmax scaler has %d features, %d mins, %d maxs",
			ErrNotFitted, len(s.Names), len(s.Min), len(s.Max))
	}
	return nil
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func NormalizeVector(values []float64, mins []float64, maxs []float64) ([]float64, error) {
	if len(values) != len(mins) || len(values) != len(maxs) {
		return nil, errors.New("values/mins/maxs length mismatch")
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = NormalizeFeature(values[i], mins[i], maxs[i])
	}
	return result, nil
}

// alignRecord returns the record values provided the record carries exactly
// the fitted columns in the fitted order.
func alignRecord(names []string, rec features.Record) ([]float64, error) {
	got := rec.Names()
	for i, name := range names {
		if _, ok := rec.Get(name); !ok {
			return nil, fmt.Errorf("%w: record lacks fitted feature %q", ErrSchemaMismatch, name)
		}
		if i >= len(got) || got[i] != name {
			return nil, fmt.Errorf("%w: feature %q is not at fitted position %d", ErrSchemaMismatch, name, i)
		}
	}
	if len(got) != len(names) {
		return nil, fmt.Errorf("%w: record has %d features, scaler was fit on %d", ErrSchemaMismatch, len(got), len(names))
	}
	return rec.Values(), nil
}

// LoadScaler reads a fitted scaler of the given type from a JSON file.
func LoadScaler(scalerType, path string) (Scaler, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch scalerType {
	case ScalerStandard, "":
		scaler := &StandardScaler{}
		if err := json.Unmarshal(payload, scaler); err != nil {
			return nil, fmt.Errorf("decode standard scaler %s: %w", path, err)
		}
		if err := scaler.validate(); err != nil {
			return nil, err
		}
		return scaler, nil
	case ScalerMinMax:
		scaler := &MinMaxScaler{}
		if err := json.Unmarshal(payload, scaler); err != nil {
			return nil, fmt.Errorf("decode minmax scaler %s: %w", path, err)
		}
		if err := scaler.validate(); err != nil {
			return nil, err
		}
		return scaler, nil
	default:
		return nil, fmt.Errorf("unsupported scaler type %q", scalerType)
	}
}
