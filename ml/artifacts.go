package ml

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"busdelay/features"
)

// ArtifactSpec names the scaler/model files of one schema variant.
type ArtifactSpec struct {
	Schema     features.Schema
	ScalerType string
	ScalerPath string
	ModelType  string
	ModelPath  string
}

// Artifacts is an immutable fitted scaler/model pair. It is created once
// per load and shared by every request that sees it.
type Artifacts struct {
	spec       ArtifactSpec
	scaler     Scaler
	model      Classifier
	generation uint64
	loadedAt   time.Time
}

// Source hands out the artifacts a request should use.
type Source interface {
	Current() *Artifacts
}

var generations atomic.Uint64

func NewArtifacts(spec ArtifactSpec, scaler Scaler, model Classifier) *Artifacts {
	return &Artifacts{
		spec:       spec,
		scaler:     scaler,
		model:      model,
		generation: generations.Add(1),
		loadedAt:   time.Now(),
	}
}

// LoadArtifacts reads both files named by spec.
func LoadArtifacts(spec ArtifactSpec) (*Artifacts, error) {
	scaler, err := LoadScaler(spec.ScalerType, spec.ScalerPath)
	if err != nil {
		return nil, fmt.Errorf("load scaler for %s: %w", spec.Schema.Name, err)
	}
	model, err := LoadModel(spec.ModelType, spec.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model for %s: %w", spec.Schema.Name, err)
	}
	return NewArtifacts(spec, scaler, model), nil
}

// Current lets a fixed artifact set act as its own Source.
func (a *Artifacts) Current() *Artifacts { return a }

func (a *Artifacts) Spec() ArtifactSpec { return a.spec }
func (a *Artifacts) Scaler() Scaler { return a.scaler }
func (a *Artifacts) Model() Classifier { return a.model }
func (a *Artifacts) Generation() uint64 { return a.generation }
func (a *Artifacts) LoadedAt() time.Time { return a.loadedAt }

// CheckSchema reports whether the scaler was fit on the schema's columns.
// A mismatch is not fatal here; it surfaces on every inference call.
func (a *Artifacts) CheckSchema() error {
	want := a.spec.Schema.Names()
	got := a.scaler.FeatureNames()
	if !slices.Equal(want, got) {
		return fmt.Errorf("%w: %s expects %v, scaler was fit on %v", ErrSchemaMismatch, a.spec.Schema.Name, want, got)
	}
	return nil
}
