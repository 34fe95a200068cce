// Package form describes the input widgets of the predictor pages and turns
// raw submitted values into typed, widget-constrained values.
package form

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the widget type of a field.
type Kind string

const (
	KindNumber Kind = "number"
	KindSlider Kind = "slider"
	KindSelect Kind = "select"
	KindTime   Kind = "time"
	KindText   Kind = "text"
)

// Option is one choice of a select widget.
type Option struct {
	Label string
	Value int
}

// Field describes a single widget and the constraints it enforces.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Help    string
	Bounded bool
	Min     float64
	Max     float64
	Step    float64
	Integer bool
	// Format is the printf verb used to show numeric values.
	Format    string
	Options   []Option
	MaxLength int
	Default   Value
}

// Value is a collected widget value. Only the member matching Kind is set;
// select widgets store the option value in Number.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Clock  Clock
}

// InputType maps the widget to an HTML input type.
func (f Field) InputType() string {
	switch f.Kind {
	case KindSlider:
		return "range"
	case KindTime:
		return "time"
	case KindText:
		return "text"
	default:
		return "number"
	}
}

// StepAttr renders the step attribute; "any" lets float inputs through.
func (f Field) StepAttr() string {
	if f.Kind == KindTime {
		return "1"
	}
	if f.Step <= 0 {
		return "any"
	}
	return strconv.FormatFloat(f.Step, 'f', -1, 64)
}

// Display renders v the way the widget shows it.
func (f Field) Display(v Value) string {
	switch f.Kind {
	case KindTime:
		return v.Clock.String()
	case KindText:
		return v.Text
	case KindSelect:
		for _, opt := range f.Options {
			if float64(opt.Value) == v.Number {
				return opt.Label
			}
		}
		return strconv.Itoa(int(v.Number))
	default:
		if f.Integer {
			return strconv.FormatInt(int64(v.Number), 10)
		}
		if f.Format != "" {
			return fmt.Sprintf(f.Format, v.Number)
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

// Parse converts a raw submitted string into a Value, enforcing the widget
// constraints.
func (f Field) Parse(raw string) (Value, error) {
	switch f.Kind {
	case KindNumber, KindSlider:
		return f.parseNumber(raw)
	case KindSelect:
		return f.parseOption(raw)
	case KindTime:
		c, err := ParseClock(raw)
		if err != nil {
			return Value{}, f.violation(raw, "not a time of day")
		}
		return Value{Kind: KindTime, Clock: c}, nil
	case KindText:
		if f.MaxLength > 0 && len(raw) > f.MaxLength {
			return Value{}, f.violation(raw, fmt.Sprintf("longer than %d characters", f.MaxLength))
		}
		return Value{Kind: KindText, Text: raw}, nil
	default:
		return Value{}, fmt.Errorf("form: field %q has unknown widget kind %q", f.Name, f.Kind)
	}
}

func (f Field) parseNumber(raw string) (Value, error) {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return Value{}, f.violation(raw, "not a number")
	}
	if f.Integer && n != math.Trunc(n) {
		return Value{}, f.violation(raw, "not a whole number")
	}
	if f.Bounded && (n < f.Min || n > f.Max) {
		return Value{}, f.violation(raw, fmt.Sprintf("outside [%g, %g]", f.Min, f.Max))
	}
	return Value{Kind: f.Kind, Number: n}, nil
}

// parseOption accepts either the option label or its numeric value.
func (f Field) parseOption(raw string) (Value, error) {
	for _, opt := range f.Options {
		if opt.Label == raw || strconv.Itoa(opt.Value) == raw {
			return Value{Kind: KindSelect, Number: float64(opt.Value)}, nil
		}
	}
	return Value{}, f.violation(raw, "not one of the offered choices")
}

func (f Field) violation(raw, reason string) *ConstraintError {
	return &ConstraintError{Field: f.Name, Value: raw, Reason: reason}
}

// ConstraintError reports a value the widget would never have produced.
type ConstraintError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("form: field %q: %s (got %q)", e.Field, e.Reason, e.Value)
}
