package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const defaultThreshold = 0.5

// LogisticRegression is a fitted linear model over the scaled features.
type LogisticRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	// Threshold on the positive probability; zero means 0.5.
	Threshold float64 `json:"threshold,omitempty"`
}

func (m *LogisticRegression) PredictProba(x []float64) (float64, error) {
	if len(m.Coef) == 0 {
		return 0, fmt.Errorf("%w: logistic regression has no coefficients", ErrNotFitted)
	}
	if len(x) != len(m.Coef) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrSchemaMismatch, len(m.Coef), len(x))
	}
	z := m.Intercept
	for i, c := range m.Coef {
		z += c * x[i]
	}
	return 1 / (1 + math.Exp(-z)), nil
}

func (m *LogisticRegression) Predict(x []float64) (int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	threshold := m.Threshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	if p > threshold {
		return 1, nil
	}
	return 0, nil
}

func (m *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LogisticRegression
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode logistic regression %s: %w", path, err)
	}
	if len(loaded.Coef) == 0 {
		return fmt.Errorf("%w: logistic regression %s has no coefficients", ErrNotFitted, path)
	}
	if loaded.Threshold < 0 || loaded.Threshold >= 1 {
		return fmt.Errorf("logistic regression %s: threshold %g outside [0, 1)", path, loaded.Threshold)
	}
	*m = loaded
	return nil
}
