package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rebelice/lazyfilter/internal/db/connection"
	"github.com/rebelice/lazyfilter/internal/db/metadata"
	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// PostgresSource binds a postgres table through a pgx pool
type PostgresSource struct {
	Notifier

	pool    *connection.Pool
	schema  string
	table   string
	fields  []models.FieldInfo
	builder *filter.Builder

	mu     sync.RWMutex
	filter models.Filter
}

// OpenPostgres connects to dsn and binds table, given as "table" or "schema.table"
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresSource, error) {
	pool, err := connection.NewPool(ctx, connection.DefaultPoolConfig(dsn))
	if err != nil {
		return nil, err
	}

	s, err := NewPostgresSource(ctx, pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresSource binds table using an existing pool
func NewPostgresSource(ctx context.Context, pool *connection.Pool, table string) (*PostgresSource, error) {
	schema, name := splitTable(table)
	fields, err := metadata.GetTableColumns(ctx, pool, schema, name)
	if err != nil {
		return nil, err
	}

	var arrays []string
	for _, f := range fields {
		if strings.EqualFold(f.DataType, "ARRAY") {
			arrays = append(arrays, f.Name)
		}
	}
	return &PostgresSource{
		pool:    pool,
		schema:  schema,
		table:   name,
		fields:  fields,
		builder: filter.NewBuilder(filter.Dollar).WithArrayFields(arrays...),
	}, nil
}

func splitTable(table string) (string, string) {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return schema, name
	}
	return "public", table
}

func (s *PostgresSource) qualifiedTable() string {
	return filter.QuoteIdent(s.schema) + "." + filter.QuoteIdent(s.table)
}

// Close closes the pool
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSource) Fields() []models.FieldInfo {
	return append([]models.FieldInfo(nil), s.fields...)
}

func (s *PostgresSource) FieldNames() []string { return fieldNames(s.fields) }

func (s *PostgresSource) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter checks that f renders to SQL, stores it and notifies subscribers
func (s *PostgresSource) SetFilter(ctx context.Context, f models.Filter) error {
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

// DistinctValues returns the sorted non-null values of field. Array columns
// are unnested into their members.
func (s *PostgresSource) DistinctValues(ctx context.Context, field string) ([]any, error) {
	var info *models.FieldInfo
	for i := range s.fields {
		if s.fields[i].Name == field {
			info = &s.fields[i]
		}
	}
	if info == nil {
		return nil, fmt.Errorf("unknown field %s", field)
	}

	expr := filter.QuoteIdent(field)
	if info.Type == models.TypeTags && strings.EqualFold(info.DataType, "ARRAY") {
		expr = "unnest(" + expr + ")"
	}
	query := fmt.Sprintf("SELECT DISTINCT %s AS v FROM %s WHERE %s IS NOT NULL ORDER BY 1 LIMIT %d",
		expr, s.qualifiedTable(), filter.QuoteIdent(field), MaxDistinctValues)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query values of %s: %w", field, err)
	}

	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, normalize(row["v"]))
	}
	SortValues(values)
	return values, nil
}

// Rows loads up to limit records matching the current filter
func (s *PostgresSource) Rows(ctx context.Context, limit int) ([]models.Record, error) {
	where, err := s.builder.BuildWhere(s.Filter())
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + s.qualifiedTable()
	if where.Clause != "" {
		query += " " + where.Clause
	}
	if limit > 0 && len(where.Functions) == 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.pool.Query(ctx, query, where.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table data: %w", err)
	}

	var out []models.Record
	for _, row := range rows {
		rec := models.Record(row)
		if !matchFunctions(where.Functions, rec) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
