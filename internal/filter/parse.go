package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/models"
)

// Parse builds a filter from any of its accepted representations: an existing
// models.Filter, models.FilterData, a decoded map, a slice of those (combined
// with AND), JSON text, or nil.
func Parse(v any) (models.Filter, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *models.FieldFilter:
		if t == nil {
			return nil, nil
		}
		return t, nil
	case *models.CompoundFilter:
		if t == nil {
			return nil, nil
		}
		return t, nil
	case *models.FunctionFilter:
		if t == nil {
			return nil, nil
		}
		return t, nil
	case models.FilterData:
		return fromData(t)
	case *models.FilterData:
		if t == nil {
			return nil, nil
		}
		return fromData(*t)
	case []models.FilterData:
		items := make([]any, len(t))
		for i := range t {
			items[i] = t[i]
		}
		return parseAll(items)
	case []models.Filter:
		return Combine(models.OpAnd, t...), nil
	case []any:
		return parseAll(t)
	case map[string]any:
		return parseMap(t)
	case json.RawMessage:
		return parseJSON(t)
	case []byte:
		return parseJSON(t)
	case string:
		return parseJSON([]byte(t))
	}
	return nil, models.Unsupportedf("cannot parse filter from %T", v)
}

func parseAll(items []any) (models.Filter, error) {
	filters := make([]models.Filter, 0, len(items))
	for _, item := range items {
		f, err := Parse(item)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return Combine(models.OpAnd, filters...), nil
}

func parseJSON(b []byte) (models.Filter, error) {
	if strings.TrimSpace(string(b)) == "" {
		return nil, nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &models.FilterError{Kind: models.ErrorUnsupported, Msg: "invalid filter json", Err: err}
	}
	if _, ok := raw.(string); ok {
		return nil, models.Unsupportedf("filter json must be an object or array")
	}
	return Parse(raw)
}

func parseMap(m map[string]any) (models.Filter, error) {
	opText, err := cast.ToStringE(m["op"])
	if err != nil {
		return nil, models.Unsupportedf("filter op must be a string, got %T", m["op"])
	}
	field, err := cast.ToStringE(m["field"])
	if err != nil {
		return nil, models.Unsupportedf("filter field must be a string, got %T", m["field"])
	}

	if cop, ok := models.ParseCompoundOperator(opText); ok {
		children := make([]models.Filter, 0)
		for _, raw := range models.ToSlice(m["filters"]) {
			child, err := Parse(raw)
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		return compound(cop, children, field)
	}

	op, ok := models.ParseOperator(opText)
	if !ok {
		return nil, models.Unsupportedf("unknown filter operator %q", opText)
	}
	return models.NewFieldFilter(field, op, m["value"])
}

func fromData(d models.FilterData) (models.Filter, error) {
	if cop, ok := models.ParseCompoundOperator(d.Op); ok {
		children := make([]models.Filter, 0, len(d.Filters))
		for _, cd := range d.Filters {
			child, err := fromData(cd)
			if err != nil {
				return nil, err
			}
			if child != nil {
				children = append(children, child)
			}
		}
		return compound(cop, children, d.Field)
	}

	op, ok := models.ParseOperator(d.Op)
	if !ok {
		return nil, models.Unsupportedf("unknown filter operator %q", d.Op)
	}
	return models.NewFieldFilter(d.Field, op, d.Value)
}

func compound(op models.CompoundOperator, children []models.Filter, field string) (models.Filter, error) {
	if len(children) == 0 {
		return nil, nil
	}
	c, err := models.NewCompoundFilter(op, children, field)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compound filter: %w", err)
	}
	return c, nil
}
