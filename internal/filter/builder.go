package filter

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/models"
)

// Placeholder selects the bind parameter syntax of the target database
type Placeholder int

const (
	Dollar   Placeholder = iota // $1, $2 (postgres)
	Question                    // ?, ? (sqlite)
)

// DefaultTagSeparator delimits the values of a tags column stored as text
const DefaultTagSeparator = ","

// Where is a rendered WHERE clause. Function filters cannot be expressed in SQL
// and are returned for the caller to apply to loaded rows.
type Where struct {
	Clause    string // includes the WHERE keyword, empty when nothing to render
	Args      []any
	Functions []*models.FunctionFilter
}

// Builder generates SQL WHERE clauses from filters
type Builder struct {
	placeholder  Placeholder
	tagSeparator string
	arrayFields  map[string]bool
}

// NewBuilder creates a new filter builder
func NewBuilder(placeholder Placeholder) *Builder {
	return &Builder{placeholder: placeholder, tagSeparator: DefaultTagSeparator}
}

// WithTagSeparator returns a builder that matches tags split by sep
func (b *Builder) WithTagSeparator(sep string) *Builder {
	return &Builder{placeholder: b.placeholder, tagSeparator: sep, arrayFields: b.arrayFields}
}

// WithArrayFields returns a builder that matches tags of the named fields as
// native array members (postgres ANY) instead of delimited text
func (b *Builder) WithArrayFields(fields ...string) *Builder {
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return &Builder{placeholder: b.placeholder, tagSeparator: b.tagSeparator, arrayFields: set}
}

type buildState struct {
	args []any
}

// BuildWhere generates a WHERE clause from a filter. Function filters are only
// separable as top-level AND members.
func (b *Builder) BuildWhere(f models.Filter) (Where, error) {
	var where Where
	var sqlFilters []models.Filter
	for _, m := range topLevelMembers(f) {
		if fn, ok := m.(*models.FunctionFilter); ok {
			where.Functions = append(where.Functions, fn)
			continue
		}
		sqlFilters = append(sqlFilters, m)
	}

	root := Combine(models.OpAnd, sqlFilters...)
	if root == nil {
		return where, nil
	}

	st := &buildState{}
	clause, err := b.build(root, st)
	if err != nil {
		return Where{}, err
	}
	where.Clause = "WHERE " + clause
	where.Args = st.args
	return where, nil
}

func (b *Builder) build(f models.Filter, st *buildState) (string, error) {
	switch t := f.(type) {
	case *models.FieldFilter:
		return b.buildCondition(t, st)
	case *models.CompoundFilter:
		clauses := make([]string, 0, len(t.Filters))
		for _, child := range t.Filters {
			clause, err := b.build(child, st)
			if err != nil {
				return "", err
			}
			if _, nested := child.(*models.CompoundFilter); nested {
				clause = "(" + clause + ")"
			}
			clauses = append(clauses, clause)
		}
		return strings.Join(clauses, " "+string(t.Op)+" "), nil
	case *models.FunctionFilter:
		return "", models.Unsupportedf("function filter %s cannot be nested in a SQL filter", t.Key)
	}
	return "", models.Unsupportedf("unknown filter type %T", f)
}

func (b *Builder) bind(st *buildState, v any) string {
	st.args = append(st.args, v)
	if b.placeholder == Question {
		return "?"
	}
	return fmt.Sprintf("$%d", len(st.args))
}

// buildCondition builds a single filter condition
func (b *Builder) buildCondition(f *models.FieldFilter, st *buildState) (string, error) {
	column := QuoteIdent(f.Field)

	switch f.Op {
	case models.OpEqual:
		if f.Value == nil {
			return column + " IS NULL", nil
		}
		return fmt.Sprintf("%s = %s", column, b.bind(st, f.Value)), nil
	case models.OpNotEqual:
		if f.Value == nil {
			return column + " IS NOT NULL", nil
		}
		return fmt.Sprintf("%s <> %s", column, b.bind(st, f.Value)), nil
	case models.OpGreaterThan, models.OpGreaterOrEqual, models.OpLessThan, models.OpLessOrEqual:
		return fmt.Sprintf("%s %s %s", column, f.Op, b.bind(st, f.Value)), nil
	case models.OpLike, models.OpNotLike, models.OpBegins, models.OpEnds:
		return b.buildLike(f, column, st), nil
	case models.OpIn, models.OpNotIn:
		return b.buildIn(f, column, st), nil
	case models.OpIncludes, models.OpExcludes:
		return b.buildTags(f, column, st), nil
	default:
		return "", fmt.Errorf("unsupported operator: %s", f.Op)
	}
}

func (b *Builder) likeKeyword() string {
	if b.placeholder == Dollar {
		return "ILIKE"
	}
	return "LIKE"
}

func (b *Builder) buildLike(f *models.FieldFilter, column string, st *buildState) string {
	text := escapeLike(cast.ToString(f.Value))
	switch f.Op {
	case models.OpBegins:
		text = text + "%"
	case models.OpEnds:
		text = "%" + text
	default:
		text = "%" + text + "%"
	}

	keyword := b.likeKeyword()
	if f.Op == models.OpNotLike {
		keyword = "NOT " + keyword
	}
	return fmt.Sprintf("CAST(%s AS TEXT) %s %s ESCAPE '\\'", column, keyword, b.bind(st, text))
}

func (b *Builder) buildIn(f *models.FieldFilter, column string, st *buildState) string {
	var params []string
	hasNull := false
	for _, v := range f.Values() {
		if v == nil {
			hasNull = true
			continue
		}
		params = append(params, b.bind(st, v))
	}

	negate := f.Op == models.OpNotIn
	switch {
	case len(params) == 0 && negate:
		return column + " IS NOT NULL"
	case len(params) == 0:
		return column + " IS NULL"
	case negate && hasNull:
		return fmt.Sprintf("(%s NOT IN (%s) AND %s IS NOT NULL)", column, strings.Join(params, ", "), column)
	case negate:
		return fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(params, ", "))
	case hasNull:
		return fmt.Sprintf("(%s IN (%s) OR %s IS NULL)", column, strings.Join(params, ", "), column)
	default:
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(params, ", "))
	}
}

// buildTags matches values inside a separator-delimited text column
func (b *Builder) buildTags(f *models.FieldFilter, column string, st *buildState) string {
	sep := strings.ReplaceAll(b.tagSeparator, "'", "''")
	wrapped := fmt.Sprintf("('%s' || CAST(%s AS TEXT) || '%s')", sep, column, sep)

	parts := make([]string, 0, len(f.Values()))
	for _, v := range f.Values() {
		if b.arrayFields[f.Field] {
			parts = append(parts, fmt.Sprintf("%s = ANY(%s)", b.bind(st, v), column))
			continue
		}
		needle := "%" + escapeLike(b.tagSeparator+cast.ToString(v)+b.tagSeparator) + "%"
		parts = append(parts, fmt.Sprintf("%s LIKE %s ESCAPE '\\'", wrapped, b.bind(st, needle)))
	}

	clause := strings.Join(parts, " OR ")
	if f.Op == models.OpExcludes {
		return fmt.Sprintf("(%s IS NULL OR NOT (%s))", column, clause)
	}
	if len(parts) > 1 {
		clause = "(" + clause + ")"
	}
	return clause
}

// QuoteIdent quotes a column or table name
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
