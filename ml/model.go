// Package ml holds the fitted preprocessing and classification artifacts and
// the code that loads them.
package ml

import (
	"errors"

	"busdelay/features"
)

var (
	ErrSchemaMismatch   = errors.New("schema mismatch")
	ErrNotFitted        = errors.New("artifact not fitted")
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// Scaler maps a raw feature record onto the scale the classifier was trained
// on.
type Scaler interface {
	FeatureNames() []string
	Transform(rec features.Record) ([]float64, error)
}

// Classifier is a fitted binary model. PredictProba returns the probability
// of class 1.
type Classifier interface {
	Predict(x []float64) (int, error)
	PredictProba(x []float64) (float64, error)
}
