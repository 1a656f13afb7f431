package filter

import (
	"github.com/rebelice/lazyfilter/internal/models"
)

type groupKey struct {
	op    models.FilterOperator
	field string
}

// ToDisplayFilters unrolls f into the flat list edited as tags. An untagged
// composite root is split into its members. Array-valued filters become one
// single-value filter per value. Two array filters sharing (op, field) cannot
// be represented and are rejected.
func ToDisplayFilters(f models.Filter) ([]models.Filter, error) {
	if f == nil {
		return nil, nil
	}

	members := []models.Filter{f}
	if c, ok := f.(*models.CompoundFilter); ok && c.Field == "" {
		members = c.Filters
	}

	seen := make(map[groupKey]bool)
	for _, m := range members {
		switch t := m.(type) {
		case *models.FieldFilter:
			key := groupKey{op: t.Op, field: t.Field}
			if t.Op.IsArray() && seen[key] {
				return nil, models.Unsupportedf("multiple filters on %s cannot use the %s operator", t.Field, t.Op)
			}
			seen[key] = true
		case *models.CompoundFilter:
		default:
			return nil, models.Unsupportedf("filters must be field or compound filters, got %s", m.Kind())
		}
	}

	var out []models.Filter
	for _, m := range members {
		ff, ok := m.(*models.FieldFilter)
		if !ok || !ff.Op.IsArray() {
			out = append(out, m)
			continue
		}
		for _, v := range ff.Values() {
			single, err := ff.WithValue(v)
			if err != nil {
				return nil, err
			}
			out = append(out, single)
		}
	}
	return out, nil
}

// CombineValueFilters is the inverse of ToDisplayFilters: field filters sharing
// an array operator and field are merged into one filter holding the union of
// their values, in first-seen order. The result is AND-combined.
func CombineValueFilters(filters []models.Filter) (models.Filter, error) {
	type group struct {
		filters []models.Filter
	}
	var order []*group
	byKey := make(map[groupKey]*group)

	for _, f := range filters {
		if f == nil {
			continue
		}
		ff, ok := f.(*models.FieldFilter)
		if !ok {
			order = append(order, &group{filters: []models.Filter{f}})
			continue
		}
		key := groupKey{op: ff.Op, field: ff.Field}
		g, ok := byKey[key]
		if !ok {
			g = &group{}
			byKey[key] = g
			order = append(order, g)
		}
		g.filters = append(g.filters, ff)
	}

	out := make([]models.Filter, 0, len(order))
	for _, g := range order {
		first, ok := g.filters[0].(*models.FieldFilter)
		if !ok || len(g.filters) == 1 || !first.Op.IsArray() {
			out = append(out, g.filters...)
			continue
		}

		var values []any
		for _, f := range g.filters {
			values = append(values, f.(*models.FieldFilter).Values()...)
		}
		merged, err := first.WithValue(models.UniqueValues(values))
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return Combine(models.OpAnd, out...), nil
}
