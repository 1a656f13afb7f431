package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// IsSequence reports whether v is a slice or array other than []byte
func IsSequence(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// ToSlice returns v as a fresh []any. Scalars become one-element slices, nil becomes nil.
func ToSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, ok := v.([]any); ok {
		out := make([]any, len(s))
		copy(out, s)
		return out
	}
	if !IsSequence(v) {
		return []any{v}
	}

	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// ValuesEqual compares two scalar filter values. Numbers compare by value across
// widths, times by instant (a string parsing as a time also matches).
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if isNumber(a) && isNumber(b) {
		x, errA := cast.ToFloat64E(a)
		y, errB := cast.ToFloat64E(b)
		return errA == nil && errB == nil && x == y
	}

	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	switch {
	case aIsTime && bIsTime:
		return ta.Equal(tb)
	case aIsTime:
		if t, err := cast.ToTimeE(b); err == nil {
			return ta.Equal(t)
		}
		return false
	case bIsTime:
		if t, err := cast.ToTimeE(a); err == nil {
			return tb.Equal(t)
		}
		return false
	}

	return reflect.DeepEqual(a, b)
}

// SameValueSet reports whether a and b hold the same values, ignoring order and repeats
func SameValueSet(a, b []any) bool {
	return containsAll(a, b) && containsAll(b, a)
}

func containsAll(haystack, needles []any) bool {
	for _, n := range needles {
		if !ContainsValue(haystack, n) {
			return false
		}
	}
	return true
}

// ContainsValue reports whether values holds v according to ValuesEqual
func ContainsValue(values []any, v any) bool {
	for _, x := range values {
		if ValuesEqual(x, v) {
			return true
		}
	}
	return false
}

// UniqueValues drops repeated values, keeping first-seen order
func UniqueValues(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if !ContainsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// ValueKey returns a stable map key for a scalar value
func ValueKey(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	case time.Time:
		return "t:" + t.UTC().Format(time.RFC3339Nano)
	}
	if isNumber(v) {
		if f, err := cast.ToFloat64E(v); err == nil {
			return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return fmt.Sprintf("%T:%v", v, v)
}
