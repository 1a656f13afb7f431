package models

import (
	"encoding/json"
	"fmt"
)

// FilterData is the structural form of a filter used for persistence and tag keys.
// A leaf is {field, op, value}; a composite is {op: AND|OR, filters, field?}.
type FilterData struct {
	Field   string       `json:"field,omitempty" yaml:"field,omitempty" msgpack:"field,omitempty"`
	Op      string       `json:"op" yaml:"op" msgpack:"op"`
	Value   any          `json:"value,omitempty" yaml:"value,omitempty" msgpack:"value,omitempty"`
	Filters []FilterData `json:"filters,omitempty" yaml:"filters,omitempty" msgpack:"filters,omitempty"`
}

// IsCompound reports whether the data describes a composite
func (d FilterData) IsCompound() bool {
	_, ok := ParseCompoundOperator(d.Op)
	return ok
}

// ToData converts a filter to its structural form. Nil yields nil.
func ToData(f Filter) (*FilterData, error) {
	if f == nil {
		return nil, nil
	}

	switch t := f.(type) {
	case *FieldFilter:
		d := &FilterData{Field: t.Field, Op: string(t.Op), Value: t.Value}
		if t.Op.IsArray() {
			d.Value = t.Values()
		}
		return d, nil
	case *CompoundFilter:
		d := &FilterData{Field: t.Field, Op: string(t.Op), Filters: make([]FilterData, 0, len(t.Filters))}
		for _, child := range t.Filters {
			cd, err := ToData(child)
			if err != nil {
				return nil, err
			}
			d.Filters = append(d.Filters, *cd)
		}
		return d, nil
	case *FunctionFilter:
		return nil, Unsupportedf("function filter %s cannot be serialized", t.Key)
	}
	return nil, Unsupportedf("unknown filter type %T", f)
}

// FilterKey returns the JSON encoding of a filter's structural form.
// Equal filters with the same value order produce the same key.
func FilterKey(f Filter) (string, error) {
	d, err := ToData(f)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode filter: %w", err)
	}
	return string(b), nil
}
