package chooser

import (
	"strings"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/models"
)

// OptionType distinguishes the tags a chooser renders
type OptionType int

const (
	FieldOption OptionType = iota
	CompoundOption
)

// Option is one renderable tag. Value is the JSON key used in SelectValue.
type Option struct {
	Type       OptionType
	Value      string
	Label      string
	Filter     models.Filter
	Spec       *fieldspec.FieldSpec // field options only
	FieldNames []string             // compound options only
}

// FavoriteOption is a favorite together with the tags it renders as
type FavoriteOption struct {
	Filter  models.Filter
	Label   string
	Options []Option
}

func (m *Model) createOption(f models.Filter) (Option, error) {
	key, err := models.FilterKey(f)
	if err != nil {
		return Option{}, err
	}

	switch t := f.(type) {
	case *models.FieldFilter:
		return Option{
			Type:   FieldOption,
			Value:  key,
			Label:  m.filterLabel(t),
			Filter: t,
			Spec:   m.registry.Get(t.Field),
		}, nil
	case *models.CompoundFilter:
		var names []string
		seen := make(map[string]bool)
		for _, leaf := range compoundLeaves(t) {
			name := m.displayName(leaf.Field)
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
		return Option{
			Type:       CompoundOption,
			Value:      key,
			Label:      m.filterLabel(t),
			Filter:     t,
			FieldNames: names,
		}, nil
	}
	return Option{}, models.Unsupportedf("cannot render %s filter as a tag", f.Kind())
}

func compoundLeaves(c *models.CompoundFilter) []*models.FieldFilter {
	var out []*models.FieldFilter
	for _, child := range c.Filters {
		switch t := child.(type) {
		case *models.FieldFilter:
			out = append(out, t)
		case *models.CompoundFilter:
			out = append(out, compoundLeaves(t)...)
		}
	}
	return out
}

func (m *Model) displayName(field string) string {
	if spec := m.registry.Get(field); spec != nil {
		return spec.DisplayName
	}
	return field
}

// filterLabel renders f for display, e.g. "Status = Active" or
// "(Qty > 1 OR Qty = [blank])"
func (m *Model) filterLabel(f models.Filter) string {
	switch t := f.(type) {
	case *models.FieldFilter:
		spec := m.registry.Get(t.Field)
		value := fieldspec.FormatValue(models.TypeAuto, t.Value)
		if spec != nil {
			value = spec.FormatValue(t.Value)
		}
		return m.displayName(t.Field) + " " + string(t.Op) + " " + value
	case *models.CompoundFilter:
		parts := make([]string, 0, len(t.Filters))
		for _, child := range t.Filters {
			parts = append(parts, m.filterLabel(child))
		}
		return "(" + strings.Join(parts, " "+string(t.Op)+" ") + ")"
	case nil:
		return ""
	}
	return f.String()
}
