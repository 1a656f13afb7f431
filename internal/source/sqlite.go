package source

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// MaxDistinctValues caps the values loaded per field for suggestions
const MaxDistinctValues = 1000

// SQLSource binds a table reachable through database/sql with ? placeholders
type SQLSource struct {
	Notifier

	db      *sql.DB
	table   string
	fields  []models.FieldInfo
	builder *filter.Builder
	ownsDB  bool

	mu     sync.RWMutex
	filter models.Filter
}

// OpenSQLite opens a sqlite database file and binds table
func OpenSQLite(ctx context.Context, dsn, table string) (*SQLSource, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s, err := NewSQLSource(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLSource binds table in an open sqlite database
func NewSQLSource(ctx context.Context, db *sql.DB, table string) (*SQLSource, error) {
	fields, err := sqliteColumns(ctx, db, table)
	if err != nil {
		return nil, err
	}
	return &SQLSource{
		db:      db,
		table:   table,
		fields:  fields,
		builder: filter.NewBuilder(filter.Question),
	}, nil
}

func sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]models.FieldInfo, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, type, \"notnull\" FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	defer rows.Close()

	var fields []models.FieldInfo
	for rows.Next() {
		var name, dataType string
		var notNull bool
		if err := rows.Scan(&name, &dataType, &notNull); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		fields = append(fields, models.FieldInfo{
			Name:     name,
			DataType: dataType,
			Type:     fieldspec.ValueTypeFromDataType(dataType),
			Nullable: !notNull,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("table %s has no columns or does not exist", table)
	}
	return fields, nil
}

// Close closes the database when the source opened it
func (s *SQLSource) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *SQLSource) Fields() []models.FieldInfo { return append([]models.FieldInfo(nil), s.fields...) }
func (s *SQLSource) FieldNames() []string       { return fieldNames(s.fields) }

func (s *SQLSource) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter checks that f renders to SQL, stores it and notifies subscribers
func (s *SQLSource) SetFilter(ctx context.Context, f models.Filter) error {
	if _, err := s.builder.BuildWhere(f); err != nil {
		return fmt.Errorf("failed to apply filter: %w", err)
	}

	s.mu.Lock()
	if models.Equal(s.filter, f) {
		s.mu.Unlock()
		return nil
	}
	s.filter = f
	s.mu.Unlock()

	s.Notify(f)
	return nil
}

// DistinctValues returns the sorted non-null values of field
func (s *SQLSource) DistinctValues(ctx context.Context, field string) ([]any, error) {
	if !hasField(s.fields, field) {
		return nil, fmt.Errorf("unknown field %s", field)
	}

	col := filter.QuoteIdent(field)
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s LIMIT %d",
		col, filter.QuoteIdent(s.table), col, col, MaxDistinctValues)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query values of %s: %w", field, err)
	}
	defer rows.Close()

	tags := false
	for _, fi := range s.fields {
		if fi.Name == field && fi.Type == models.TypeTags {
			tags = true
		}
	}

	seen := make(map[string]bool)
	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value of %s: %w", field, err)
		}
		members := []any{normalize(v)}
		if tags {
			members = splitTags(members[0], filter.DefaultTagSeparator)
		}
		for _, m := range members {
			if key := models.ValueKey(m); !seen[key] {
				seen[key] = true
				values = append(values, m)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query values of %s: %w", field, err)
	}

	SortValues(values)
	return values, nil
}

// Rows loads up to limit records matching the current filter
func (s *SQLSource) Rows(ctx context.Context, limit int) ([]models.Record, error) {
	where, err := s.builder.BuildWhere(s.Filter())
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + filter.QuoteIdent(s.table)
	if where.Clause != "" {
		query += " " + where.Clause
	}
	// function filters run after the query, so the limit is applied in Go
	if limit > 0 && len(where.Functions) == 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table data: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []models.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rec := make(models.Record, len(columns))
		for i, col := range columns {
			rec[col] = normalize(values[i])
		}
		if !matchFunctions(where.Functions, rec) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func matchFunctions(fns []*models.FunctionFilter, rec models.Record) bool {
	for _, fn := range fns {
		if !Match(fn, rec, "") {
			return false
		}
	}
	return true
}
