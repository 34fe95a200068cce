package features

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"busdelay/form"
)

var (
	ErrMissingFeature    = errors.New("missing feature")
	ErrUnexpectedFeature = errors.New("unexpected feature")
	ErrFeatureOrder      = errors.New("feature out of order")
	ErrOutOfDomain       = errors.New("feature value out of domain")
)

// FieldSpec constrains one column of a schema.
type FieldSpec struct {
	Name    string  `json:"name"`
	Integer bool    `json:"integer"`
	Bounded bool    `json:"bounded"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
}

// Schema is the column layout a scaler/model pair was fit against.
type Schema struct {
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields"`
}

var StopVisitSchema = Schema{
	Name: "stop_visit",
	Fields: []FieldSpec{
		{Name: "stop_sequence", Integer: true, Bounded: true, Min: 1, Max: 100},
		{Name: "stop_lat", Bounded: true, Min: -90, Max: 90},
		{Name: "stop_lon", Bounded: true, Min: -180, Max: 180},
		{Name: "hour_of_day", Integer: true, Bounded: true, Min: 0, Max: 23},
		{Name: "day_of_week", Integer: true, Bounded: true, Min: 0, Max: 6},
	},
}

var ScheduleDelaySchema = Schema{
	Name: "schedule_delay",
	Fields: []FieldSpec{
		{Name: "stop_sequence", Integer: true, Bounded: true, Min: 1, Max: 100},
		{Name: "scheduled_time", Integer: true, Bounded: true, Min: 0, Max: form.SecondsPerDay - 1},
		{Name: "actual_time", Integer: true, Bounded: true, Min: 0, Max: form.SecondsPerDay - 1},
		// Negative when the simulated arrival wraps past midnight.
		{Name: "delay_minutes", Bounded: true, Min: -form.SecondsPerDay / 60, Max: form.SecondsPerDay / 60},
	},
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks that r has exactly the schema's columns, in order, each
// finite and inside its domain. All violations are reported.
func (s Schema) Validate(r Record) error {
	var errs error
	known := make(map[string]FieldSpec, len(s.Fields))
	for _, spec := range s.Fields {
		known[spec.Name] = spec
	}

	present := make(map[string]bool, r.Len())
	for i, f := range r.features {
		spec, ok := known[f.Name]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w %q", s.Name, ErrUnexpectedFeature, f.Name))
			continue
		}
		present[f.Name] = true
		if i < len(s.Fields) && s.Fields[i].Name != f.Name {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w: %q at position %d, expected %q",
				s.Name, ErrFeatureOrder, f.Name, i, s.Fields[i].Name))
		}
		if err := spec.check(f.Value); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	for _, spec := range s.Fields {
		if !present[spec.Name] {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w %q", s.Name, ErrMissingFeature, spec.Name))
		}
	}
	return errs
}

func (f FieldSpec) check(v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return fmt.Errorf("%w: %s is not finite", ErrOutOfDomain, f.Name)
	case f.Integer && v != math.Trunc(v):
		return fmt.Errorf("%w: %s=%g is not a whole number", ErrOutOfDomain, f.Name, v)
	case f.Bounded && (v < f.Min || v > f.Max):
		return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrOutOfDomain, f.Name, v, f.Min, f.Max)
	}
	return nil
}
