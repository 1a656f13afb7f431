package filter

import (
	"slices"

	"github.com/rebelice/lazyfilter/internal/models"
)

// FieldLookup resolves a field name to the operators it allows
type FieldLookup interface {
	Lookup(field string) ([]models.FilterOperator, bool)
}

// Check returns the first reason f cannot be edited against fields. A nil
// filter is valid.
func Check(f models.Filter, fields FieldLookup) error {
	switch t := f.(type) {
	case nil:
		return nil
	case *models.FieldFilter:
		ops, ok := fields.Lookup(t.Field)
		if !ok {
			return models.InvalidFieldf("unknown field %s", t.Field)
		}
		if len(ops) > 0 && !slices.Contains(ops, t.Op) {
			return models.Unsupportedf("operator %s is not allowed for field %s", t.Op, t.Field)
		}
		return nil
	case *models.CompoundFilter:
		for _, child := range t.Filters {
			if err := Check(child, fields); err != nil {
				return err
			}
		}
		return nil
	case *models.FunctionFilter:
		return models.Unsupportedf("function filter %s is not editable", t.Key)
	}
	return models.Unsupportedf("unknown filter type %T", f)
}

// Validate reports whether Check succeeds
func Validate(f models.Filter, fields FieldLookup) bool {
	return Check(f, fields) == nil
}
