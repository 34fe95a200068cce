package form

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// Submission holds one collected value per field of a form.
type Submission struct {
	values map[string]Value
}

// Collect reads every field of f from values. Missing or blank fields take
// the widget default. Values the widget could not have produced are reported
// together as ConstraintErrors.
func (f Form) Collect(values url.Values) (Submission, error) {
	sub := Submission{values: make(map[string]Value, len(f.Fields))}
	var errs error
	for _, field := range f.Fields {
		raw := strings.TrimSpace(values.Get(field.Name))
		if raw == "" {
			sub.values[field.Name] = field.Default
			continue
		}
		v, err := field.Parse(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		sub.values[field.Name] = v
	}
	if errs != nil {
		return Submission{}, errs
	}
	return sub, nil
}

// Defaults returns the submission a freshly rendered form represents.
func (f Form) Defaults() Submission {
	sub := Submission{values: make(map[string]Value, len(f.Fields))}
	for _, field := range f.Fields {
		sub.values[field.Name] = field.Default
	}
	return sub
}

// Value returns the raw collected value.
func (s Submission) Value(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s Submission) Number(name string) (float64, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, fmt.Errorf("form: field %q not collected", name)
	}
	switch v.Kind {
	case KindNumber, KindSlider, KindSelect:
		return v.Number, nil
	default:
		return 0, fmt.Errorf("form: field %q is a %s widget, not numeric", name, v.Kind)
	}
}

func (s Submission) Int(name string) (int, error) {
	n, err := s.Number(name)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s Submission) Clock(name string) (Clock, error) {
	v, ok := s.values[name]
	if !ok {
		return 0, fmt.Errorf("form: field %q not collected", name)
	}
	if v.Kind != KindTime {
		return 0, fmt.Errorf("form: field %q is a %s widget, not a time", name, v.Kind)
	}
	return v.Clock, nil
}

func (s Submission) Text(name string) string {
	return s.values[name].Text
}
