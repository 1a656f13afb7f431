package source

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// Match evaluates f against one record. A nil filter matches everything.
// Text operators are case-insensitive.
func Match(f models.Filter, rec models.Record, tagSeparator string) bool {
	switch t := f.(type) {
	case nil:
		return true
	case *models.FieldFilter:
		return matchField(t, rec[t.Field], tagSeparator)
	case *models.CompoundFilter:
		if t.Op == models.OpOr {
			for _, child := range t.Filters {
				if Match(child, rec, tagSeparator) {
					return true
				}
			}
			return false
		}
		for _, child := range t.Filters {
			if !Match(child, rec, tagSeparator) {
				return false
			}
		}
		return true
	case *models.FunctionFilter:
		return t.Test == nil || t.Test(rec)
	}
	return false
}

func matchField(f *models.FieldFilter, v any, tagSeparator string) bool {
	switch f.Op {
	case models.OpEqual:
		return models.ValuesEqual(blankToNil(v), blankToNil(f.Value))
	case models.OpNotEqual:
		return !models.ValuesEqual(blankToNil(v), blankToNil(f.Value))
	case models.OpGreaterThan, models.OpGreaterOrEqual, models.OpLessThan, models.OpLessOrEqual:
		if v == nil || f.Value == nil {
			return false
		}
		c := compareValues(v, f.Value)
		switch f.Op {
		case models.OpGreaterThan:
			return c > 0
		case models.OpGreaterOrEqual:
			return c >= 0
		case models.OpLessThan:
			return c < 0
		default:
			return c <= 0
		}
	case models.OpLike, models.OpNotLike, models.OpBegins, models.OpEnds:
		text := strings.ToLower(cast.ToString(v))
		needle := strings.ToLower(cast.ToString(f.Value))
		switch f.Op {
		case models.OpLike:
			return strings.Contains(text, needle)
		case models.OpNotLike:
			return !strings.Contains(text, needle)
		case models.OpBegins:
			return strings.HasPrefix(text, needle)
		default:
			return strings.HasSuffix(text, needle)
		}
	case models.OpIn:
		return containsBlankAware(f.Values(), v)
	case models.OpNotIn:
		return !containsBlankAware(f.Values(), v)
	case models.OpIncludes, models.OpExcludes:
		tags := splitTags(v, tagSeparator)
		found := false
		for _, want := range f.Values() {
			if models.ContainsValue(tags, want) {
				found = true
				break
			}
		}
		if f.Op == models.OpIncludes {
			return found
		}
		return !found
	}
	return false
}

func blankToNil(v any) any {
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

func containsBlankAware(values []any, v any) bool {
	v = blankToNil(v)
	for _, x := range values {
		if models.ValuesEqual(blankToNil(x), v) {
			return true
		}
	}
	return false
}

// splitTags returns the members of a tags value, stored either as a slice or
// as separator-delimited text
func splitTags(v any, sep string) []any {
	if v == nil {
		return nil
	}
	if models.IsSequence(v) {
		return models.ToSlice(v)
	}
	if sep == "" {
		sep = filter.DefaultTagSeparator
	}
	var out []any
	for _, part := range strings.Split(cast.ToString(v), sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
