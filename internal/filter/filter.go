// Package filter implements the pure combinators over models.Filter trees.
// No function in this package mutates its inputs.
package filter

import (
	"slices"

	"github.com/rebelice/lazyfilter/internal/models"
)

// Flatten returns every node of f in depth-first pre-order
func Flatten(f models.Filter) []models.Filter {
	if f == nil {
		return nil
	}
	out := []models.Filter{f}
	if c, ok := f.(*models.CompoundFilter); ok {
		for _, child := range c.Filters {
			out = append(out, Flatten(child)...)
		}
	}
	return out
}

// FieldFilters returns the leaves of f that filter on field
func FieldFilters(f models.Filter, field string) []*models.FieldFilter {
	var out []*models.FieldFilter
	for _, node := range Flatten(f) {
		if ff, ok := node.(*models.FieldFilter); ok && ff.Field == field {
			out = append(out, ff)
		}
	}
	return out
}

// Combine joins filters with op. Nil entries are skipped; an empty input gives nil
// and a single filter is returned unwrapped. Any op other than OR is treated as AND.
func Combine(op models.CompoundOperator, filters ...models.Filter) models.Filter {
	kept := make([]models.Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			kept = append(kept, f)
		}
	}

	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	if op != models.OpOr {
		op = models.OpAnd
	}
	return &models.CompoundFilter{Op: op, Filters: kept}
}

// WithFilterByField removes every filter owned by field from root and appends
// newFilter as a top-level AND sibling. Untagged AND composites are pruned
// recursively; OR composites over mixed fields are left whole.
func WithFilterByField(root, newFilter models.Filter, field string) models.Filter {
	return appendAnd(pruneField(root, field), newFilter)
}

func pruneField(f models.Filter, field string) models.Filter {
	switch t := f.(type) {
	case nil:
		return nil
	case *models.FieldFilter:
		if t.Field == field {
			return nil
		}
		return t
	case *models.CompoundFilter:
		if ownedBy(t, field) {
			return nil
		}
		if t.Op != models.OpAnd || t.Field != "" {
			return t
		}

		children := make([]models.Filter, 0, len(t.Filters))
		changed := false
		for _, child := range t.Filters {
			p := pruneField(child, field)
			if p != child {
				changed = true
			}
			if p != nil {
				children = append(children, p)
			}
		}
		if !changed {
			return t
		}
		return Combine(models.OpAnd, children...)
	}
	return f
}

// ownedBy reports whether c is tagged with field or has only leaves on field
func ownedBy(c *models.CompoundFilter, field string) bool {
	if c.Field != "" {
		return c.Field == field
	}
	for _, node := range Flatten(c) {
		switch t := node.(type) {
		case *models.FieldFilter:
			if t.Field != field {
				return false
			}
		case *models.FunctionFilter:
			return false
		}
	}
	return true
}

func appendAnd(root, newFilter models.Filter) models.Filter {
	if newFilter == nil {
		return root
	}
	if c, ok := root.(*models.CompoundFilter); ok && c.Op == models.OpAnd && c.Field == "" {
		children := slices.Clone(c.Filters)
		return Combine(models.OpAnd, append(children, newFilter)...)
	}
	return Combine(models.OpAnd, root, newFilter)
}

// WithFilterByKinds drops the top-level members of root whose kind is listed and
// appends newFilter. The members of an untagged AND root are its children; any
// other root is its own single member.
func WithFilterByKinds(root, newFilter models.Filter, kinds ...models.FilterKind) models.Filter {
	var kept []models.Filter
	for _, m := range topLevelMembers(root) {
		if !slices.Contains(kinds, m.Kind()) {
			kept = append(kept, m)
		}
	}
	return Combine(models.OpAnd, append(kept, newFilter)...)
}

func topLevelMembers(root models.Filter) []models.Filter {
	if root == nil {
		return nil
	}
	if c, ok := root.(*models.CompoundFilter); ok && c.Op == models.OpAnd && c.Field == "" {
		return c.Filters
	}
	return []models.Filter{root}
}

// FindOwningComposite returns the composite whose direct children all filter on
// field. Nil when no composite matches, or when more than one matches below the
// same parent.
func FindOwningComposite(root models.Filter, field string) *models.CompoundFilter {
	c, ok := root.(*models.CompoundFilter)
	if !ok {
		return nil
	}
	if directlyOwns(c, field) {
		return c
	}

	var matches []*models.CompoundFilter
	for _, child := range c.Filters {
		if m := FindOwningComposite(child, field); m != nil {
			matches = append(matches, m)
		}
	}
	if len(matches) != 1 {
		return nil
	}
	return matches[0]
}

func directlyOwns(c *models.CompoundFilter, field string) bool {
	for _, child := range c.Filters {
		switch t := child.(type) {
		case *models.FieldFilter:
			if t.Field != field {
				return false
			}
		case *models.CompoundFilter:
			if t.Field != field {
				return false
			}
		default:
			return false
		}
	}
	return true
}
