// Package features assembles the fixed-order numeric records the scaler and
// classifier were fit on.
package features

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Feature is one named column of a record.
type Feature struct {
	Name  string
	Value float64
}

// Record is an ordered feature row. It is built per submission and never
// mutated after construction.
type Record struct {
	features []Feature
}

func NewRecord(features ...Feature) Record {
	return Record{features: append([]Feature(nil), features...)}
}

func (r Record) Len() int {
	return len(r.features)
}

func (r Record) Names() []string {
	names := make([]string, len(r.features))
	for i, f := range r.features {
		names[i] = f.Name
	}
	return names
}

func (r Record) Values() []float64 {
	values := make([]float64, len(r.features))
	for i, f := range r.features {
		values[i] = f.Value
	}
	return values
}

func (r Record) Features() []Feature {
	return append([]Feature(nil), r.features...)
}

func (r Record) Get(name string) (float64, bool) {
	for _, f := range r.features {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Without returns a copy of r lacking the named feature.
func (r Record) Without(name string) Record {
	kept := make([]Feature, 0, len(r.features))
	for _, f := range r.features {
		if f.Name != name {
			kept = append(kept, f)
		}
	}
	return Record{features: kept}
}

// Key is a stable textual identity of the record contents.
func (r Record) Key() string {
	var b strings.Builder
	for i, f := range r.features {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	return b.String()
}

// MarshalJSON keeps the column order, which a map would lose.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.features {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
