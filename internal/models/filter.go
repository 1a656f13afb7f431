package models

import (
	"fmt"
	"strings"
)

// FilterOperator represents a field filter comparison operator
type FilterOperator string

const (
	OpEqual          FilterOperator = "="
	OpNotEqual       FilterOperator = "!="
	OpGreaterThan    FilterOperator = ">"
	OpGreaterOrEqual FilterOperator = ">="
	OpLessThan       FilterOperator = "<"
	OpLessOrEqual    FilterOperator = "<="
	OpLike           FilterOperator = "like"
	OpNotLike        FilterOperator = "not like"
	OpBegins         FilterOperator = "begins"
	OpEnds           FilterOperator = "ends"
	OpIn             FilterOperator = "in"
	OpNotIn          FilterOperator = "not in"
	OpIncludes       FilterOperator = "includes" // array-valued field contains any of the values
	OpExcludes       FilterOperator = "excludes" // array-valued field contains none of the values
)

// FieldOperators lists every operator a FieldFilter accepts
var FieldOperators = []FilterOperator{
	OpEqual, OpNotEqual,
	OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual,
	OpLike, OpNotLike, OpBegins, OpEnds,
	OpIn, OpNotIn, OpIncludes, OpExcludes,
}

// ArrayOperators take a set of values rather than a single scalar
var ArrayOperators = []FilterOperator{OpIn, OpNotIn, OpIncludes, OpExcludes}

// IsArray reports whether the operator takes a set of values
func (op FilterOperator) IsArray() bool {
	for _, a := range ArrayOperators {
		if op == a {
			return true
		}
	}
	return false
}

// IsValid reports whether op is a known field operator
func (op FilterOperator) IsValid() bool {
	for _, o := range FieldOperators {
		if op == o {
			return true
		}
	}
	return false
}

// ParseOperator normalizes user or persisted operator text
func ParseOperator(s string) (FilterOperator, bool) {
	op := FilterOperator(strings.Join(strings.Fields(strings.ToLower(s)), " "))
	switch op {
	case "==":
		op = OpEqual
	case "<>":
		op = OpNotEqual
	}
	return op, op.IsValid()
}

// CompoundOperator joins the children of a CompoundFilter
type CompoundOperator string

const (
	OpAnd CompoundOperator = "AND"
	OpOr  CompoundOperator = "OR"
)

// ParseCompoundOperator accepts "and"/"or" in any case
func ParseCompoundOperator(s string) (CompoundOperator, bool) {
	switch CompoundOperator(strings.ToUpper(strings.TrimSpace(s))) {
	case OpAnd:
		return OpAnd, true
	case OpOr:
		return OpOr, true
	}
	return "", false
}

// FilterKind discriminates the Filter variants
type FilterKind int

const (
	KindField FilterKind = iota
	KindCompound
	KindFunction
)

func (k FilterKind) String() string {
	switch k {
	case KindField:
		return "FieldFilter"
	case KindCompound:
		return "CompoundFilter"
	case KindFunction:
		return "FunctionFilter"
	default:
		return "Unknown"
	}
}

// Filter is an immutable predicate. The set of implementations is closed:
// *FieldFilter, *CompoundFilter and *FunctionFilter.
type Filter interface {
	Kind() FilterKind
	String() string

	filterMarker()
}

// Record is a single row as seen by FunctionFilter tests
type Record map[string]any

// FieldFilter is a leaf predicate over one field
type FieldFilter struct {
	Field string
	Op    FilterOperator
	Value any // []any for array operators, a scalar otherwise
}

// NewFieldFilter validates and normalizes a leaf filter.
// Array operators always carry a non-empty []any; other operators a scalar.
func NewFieldFilter(field string, op FilterOperator, value any) (*FieldFilter, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, Unsupportedf("field filter requires a field")
	}
	if !op.IsValid() {
		return nil, Unsupportedf("unknown operator %q for field %s", op, field)
	}

	if op.IsArray() {
		values := ToSlice(value)
		if len(values) == 0 {
			return nil, Unsupportedf("operator %s on field %s requires at least one value", op, field)
		}
		return &FieldFilter{Field: field, Op: op, Value: values}, nil
	}

	if IsSequence(value) {
		return nil, Unsupportedf("operator %s on field %s takes a single value", op, field)
	}
	return &FieldFilter{Field: field, Op: op, Value: value}, nil
}

// MustFieldFilter is like NewFieldFilter but panics on error
func MustFieldFilter(field string, op FilterOperator, value any) *FieldFilter {
	f, err := NewFieldFilter(field, op, value)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *FieldFilter) Kind() FilterKind { return KindField }
func (f *FieldFilter) filterMarker()    {}

// Values returns the filter value as a slice
func (f *FieldFilter) Values() []any {
	return ToSlice(f.Value)
}

// WithValue returns a copy of the filter carrying a different value
func (f *FieldFilter) WithValue(value any) (*FieldFilter, error) {
	return NewFieldFilter(f.Field, f.Op, value)
}

func (f *FieldFilter) String() string {
	if f.Op.IsArray() {
		parts := make([]string, 0, len(f.Values()))
		for _, v := range f.Values() {
			parts = append(parts, fmt.Sprintf("%v", v))
		}
		return fmt.Sprintf("%s %s [%s]", f.Field, f.Op, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s %s %v", f.Field, f.Op, f.Value)
}

// CompoundFilter combines child filters with AND or OR.
// Field, when set, marks the composite as owned by that single field.
type CompoundFilter struct {
	Op      CompoundOperator
	Filters []Filter
	Field   string
}

// NewCompoundFilter validates a composite. Children are copied.
func NewCompoundFilter(op CompoundOperator, filters []Filter, field string) (*CompoundFilter, error) {
	if op != OpAnd && op != OpOr {
		return nil, Unsupportedf("unknown compound operator %q", op)
	}
	if len(filters) == 0 {
		return nil, Unsupportedf("compound filter requires at least one child")
	}

	children := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f == nil {
			return nil, Unsupportedf("compound filter cannot contain a nil child")
		}
		children = append(children, f)
	}

	c := &CompoundFilter{Op: op, Filters: children, Field: strings.TrimSpace(field)}
	if c.Field != "" {
		if err := checkOwnedBy(c, c.Field); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustCompoundFilter is like NewCompoundFilter but panics on error
func MustCompoundFilter(op CompoundOperator, field string, filters ...Filter) *CompoundFilter {
	c, err := NewCompoundFilter(op, filters, field)
	if err != nil {
		panic(err)
	}
	return c
}

func checkOwnedBy(f Filter, field string) error {
	switch t := f.(type) {
	case *FieldFilter:
		if t.Field != field {
			return Unsupportedf("compound filter for field %s contains a filter on %s", field, t.Field)
		}
	case *CompoundFilter:
		if t.Field != "" && t.Field != field {
			return Unsupportedf("compound filter for field %s contains a compound filter for %s", field, t.Field)
		}
		for _, child := range t.Filters {
			if err := checkOwnedBy(child, field); err != nil {
				return err
			}
		}
	default:
		return Unsupportedf("compound filter for field %s contains a %s", field, f.Kind())
	}
	return nil
}

func (c *CompoundFilter) Kind() FilterKind { return KindCompound }
func (c *CompoundFilter) filterMarker()    {}

func (c *CompoundFilter) String() string {
	parts := make([]string, 0, len(c.Filters))
	for _, f := range c.Filters {
		parts = append(parts, f.String())
	}
	return "(" + strings.Join(parts, " "+string(c.Op)+" ") + ")"
}

// FunctionFilter is a programmatic predicate applied by the bound source.
// It is identified by Key and is never serialized.
type FunctionFilter struct {
	Key  string
	Test func(Record) bool
}

func (f *FunctionFilter) Kind() FilterKind { return KindFunction }
func (f *FunctionFilter) filterMarker()    {}
func (f *FunctionFilter) String() string   { return "fn(" + f.Key + ")" }

// Equal reports structural equality. Values of array operators compare as sets.
func Equal(a, b Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}

	switch x := a.(type) {
	case *FieldFilter:
		y := b.(*FieldFilter)
		if x.Field != y.Field || x.Op != y.Op {
			return false
		}
		if x.Op.IsArray() {
			return SameValueSet(x.Values(), y.Values())
		}
		return ValuesEqual(x.Value, y.Value)
	case *CompoundFilter:
		y := b.(*CompoundFilter)
		if x.Op != y.Op || x.Field != y.Field || len(x.Filters) != len(y.Filters) {
			return false
		}
		for i := range x.Filters {
			if !Equal(x.Filters[i], y.Filters[i]) {
				return false
			}
		}
		return true
	case *FunctionFilter:
		return x.Key == b.(*FunctionFilter).Key
	}
	return false
}
