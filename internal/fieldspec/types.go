package fieldspec

import (
	"strings"

	"github.com/rebelice/lazyfilter/internal/models"
)

var (
	stringOps = []models.FilterOperator{
		models.OpEqual, models.OpNotEqual,
		models.OpLike, models.OpNotLike, models.OpBegins, models.OpEnds,
		models.OpIn, models.OpNotIn,
	}
	rangeOps = []models.FilterOperator{
		models.OpEqual, models.OpNotEqual,
		models.OpGreaterThan, models.OpGreaterOrEqual,
		models.OpLessThan, models.OpLessOrEqual,
		models.OpIn, models.OpNotIn,
	}
	boolOps = []models.FilterOperator{models.OpEqual, models.OpNotEqual}
	tagOps  = []models.FilterOperator{models.OpIncludes, models.OpExcludes}
	jsonOps = []models.FilterOperator{
		models.OpEqual, models.OpNotEqual,
		models.OpLike, models.OpNotLike,
	}
)

// DefaultOperators returns the operators a field of type t allows when its
// spec does not list them. The chooser offers exactly these and validation
// accepts exactly these.
func DefaultOperators(t models.ValueType) []models.FilterOperator {
	var ops []models.FilterOperator
	switch t {
	case models.TypeInt, models.TypeNumber, models.TypeDate, models.TypeTimestamp:
		ops = rangeOps
	case models.TypeBool:
		ops = boolOps
	case models.TypeTags:
		ops = tagOps
	case models.TypeJSON:
		ops = jsonOps
	default:
		ops = stringOps
	}
	return append([]models.FilterOperator(nil), ops...)
}

// suggestionOps are the operators for which value suggestions make sense
var suggestionOps = []models.FilterOperator{
	models.OpEqual, models.OpNotEqual,
	models.OpLike, models.OpNotLike, models.OpBegins, models.OpEnds,
	models.OpIn, models.OpNotIn,
	models.OpIncludes, models.OpExcludes,
}

// ValueTypeFromDataType maps a SQL column type to a value type
func ValueTypeFromDataType(dataType string) models.ValueType {
	dt := strings.ToLower(strings.TrimSpace(dataType))

	switch {
	case dt == "":
		return models.TypeAuto
	case strings.Contains(dt, "interval"):
		return models.TypeString
	case strings.HasSuffix(dt, "[]") || strings.Contains(dt, "array"):
		return models.TypeTags
	case strings.Contains(dt, "bool"):
		return models.TypeBool
	case strings.Contains(dt, "json"):
		return models.TypeJSON
	case strings.Contains(dt, "timestamp") || strings.Contains(dt, "datetime"):
		return models.TypeTimestamp
	case strings.Contains(dt, "date"):
		return models.TypeDate
	case strings.Contains(dt, "int") || strings.Contains(dt, "serial"):
		return models.TypeInt
	case strings.Contains(dt, "numeric") || strings.Contains(dt, "decimal") ||
		strings.Contains(dt, "real") || strings.Contains(dt, "double") ||
		strings.Contains(dt, "float") || strings.Contains(dt, "money"):
		return models.TypeNumber
	case strings.Contains(dt, "char") || strings.Contains(dt, "text") ||
		strings.Contains(dt, "uuid") || strings.Contains(dt, "clob"):
		return models.TypeString
	default:
		return models.TypeAuto
	}
}
