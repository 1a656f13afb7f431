package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFieldFilter(t *testing.T) {
	t.Run("array operator normalizes scalar", func(t *testing.T) {
		f, err := NewFieldFilter("status", OpIn, "A")
		require.NoError(t, err)
		assert.Equal(t, []any{"A"}, f.Value)
	})

	t.Run("array operator converts typed slices", func(t *testing.T) {
		f, err := NewFieldFilter("id", OpNotIn, []int{1, 2})
		require.NoError(t, err)
		assert.Equal(t, []any{1, 2}, f.Value)
	})

	cases := map[string]struct {
		field string
		op    FilterOperator
		value any
	}{
		"empty field":            {field: " ", op: OpEqual, value: 1},
		"unknown operator":       {field: "a", op: "~", value: 1},
		"sequence for scalar op": {field: "a", op: OpEqual, value: []string{"x", "y"}},
		"empty array value":      {field: "a", op: OpIn, value: []any{}},
		"nil array value":        {field: "a", op: OpIncludes, value: nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewFieldFilter(tc.field, tc.op, tc.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupported))
			assert.False(t, errors.Is(err, ErrInvalidField))
		})
	}
}

func TestNewCompoundFilter(t *testing.T) {
	a1 := MustFieldFilter("a", OpEqual, 1)
	a2 := MustFieldFilter("a", OpEqual, 2)
	b1 := MustFieldFilter("b", OpEqual, 1)

	_, err := NewCompoundFilter(OpOr, nil, "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = NewCompoundFilter("XOR", []Filter{a1}, "")
	assert.ErrorIs(t, err, ErrUnsupported)

	c, err := NewCompoundFilter(OpOr, []Filter{a1, a2}, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", c.Field)

	_, err = NewCompoundFilter(OpOr, []Filter{a1, b1}, "a")
	assert.ErrorIs(t, err, ErrUnsupported)

	fn := &FunctionFilter{Key: "visible"}
	_, err = NewCompoundFilter(OpAnd, []Filter{a1, fn}, "a")
	assert.ErrorIs(t, err, ErrUnsupported)

	input := []Filter{a1, b1}
	c, err = NewCompoundFilter(OpAnd, input, "")
	require.NoError(t, err)
	input[0] = a2
	assert.Same(t, a1, c.Filters[0])
}

func TestEqual(t *testing.T) {
	cases := map[string]struct {
		a, b  Filter
		equal bool
	}{
		"both nil": {a: nil, b: nil, equal: true},
		"one nil":  {a: MustFieldFilter("a", OpEqual, 1), b: nil, equal: false},
		"numeric widths": {
			a:     MustFieldFilter("a", OpEqual, 1),
			b:     MustFieldFilter("a", OpEqual, uint64(1)),
			equal: true,
		},
		"float and int": {
			a:     MustFieldFilter("a", OpGreaterThan, 2.0),
			b:     MustFieldFilter("a", OpGreaterThan, int64(2)),
			equal: true,
		},
		"different op": {
			a:     MustFieldFilter("a", OpEqual, 1),
			b:     MustFieldFilter("a", OpNotEqual, 1),
			equal: false,
		},
		"array values as set": {
			a:     MustFieldFilter("s", OpIn, []any{"A", "B"}),
			b:     MustFieldFilter("s", OpIn, []any{"B", "A", "A"}),
			equal: true,
		},
		"array values differ": {
			a:     MustFieldFilter("s", OpIn, []any{"A", "B"}),
			b:     MustFieldFilter("s", OpIn, []any{"A"}),
			equal: false,
		},
		"compound order sensitive": {
			a:     MustCompoundFilter(OpAnd, "", MustFieldFilter("a", OpEqual, 1), MustFieldFilter("b", OpEqual, 2)),
			b:     MustCompoundFilter(OpAnd, "", MustFieldFilter("b", OpEqual, 2), MustFieldFilter("a", OpEqual, 1)),
			equal: false,
		},
		"compound field tag": {
			a:     MustCompoundFilter(OpOr, "a", MustFieldFilter("a", OpEqual, 1)),
			b:     MustCompoundFilter(OpOr, "", MustFieldFilter("a", OpEqual, 1)),
			equal: false,
		},
		"function by key": {
			a:     &FunctionFilter{Key: "k"},
			b:     &FunctionFilter{Key: "k"},
			equal: true,
		},
		"different kinds": {
			a:     &FunctionFilter{Key: "k"},
			b:     MustFieldFilter("k", OpEqual, 1),
			equal: false,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.equal, Equal(tc.a, tc.b))
			assert.Equal(t, tc.equal, Equal(tc.b, tc.a))
		})
	}
}

func TestValuesEqualTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, ValuesEqual(ts, ts.In(time.FixedZone("x", 3600))))
	assert.True(t, ValuesEqual(ts, "2024-03-01T12:00:00Z"))
	assert.False(t, ValuesEqual(ts, "not a time"))
}

func TestUniqueValues(t *testing.T) {
	assert.Equal(t, []any{"A", 1, "B"}, UniqueValues([]any{"A", 1, "A", 1.0, "B"}))
}

func TestParseOperator(t *testing.T) {
	op, ok := ParseOperator("NOT   In")
	assert.True(t, ok)
	assert.Equal(t, OpNotIn, op)

	op, ok = ParseOperator("==")
	assert.True(t, ok)
	assert.Equal(t, OpEqual, op)

	_, ok = ParseOperator("between")
	assert.False(t, ok)
}

func TestFilterKey(t *testing.T) {
	key, err := FilterKey(MustFieldFilter("status", OpIn, "A"))
	require.NoError(t, err)
	assert.Equal(t, `{"field":"status","op":"in","value":["A"]}`, key)

	key, err = FilterKey(MustCompoundFilter(OpOr, "a", MustFieldFilter("a", OpEqual, 0)))
	require.NoError(t, err)
	assert.Equal(t, `{"field":"a","op":"OR","filters":[{"field":"a","op":"=","value":0}]}`, key)

	_, err = FilterKey(&FunctionFilter{Key: "fn"})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestFilterString(t *testing.T) {
	f := MustCompoundFilter(OpAnd, "",
		MustFieldFilter("a", OpEqual, 1),
		MustFieldFilter("s", OpIn, []string{"x", "y"}),
	)
	assert.Equal(t, "(a = 1 AND s in [x, y])", f.String())
}
