package source

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

// MemorySource holds its records in memory and filters them on read
type MemorySource struct {
	Notifier

	mu           sync.RWMutex
	fields       []models.FieldInfo
	rows         []models.Record
	filter       models.Filter
	tagSeparator string
}

// NewMemorySource creates a source over rows
func NewMemorySource(fields []models.FieldInfo, rows []models.Record) *MemorySource {
	return &MemorySource{
		fields:       slices.Clone(fields),
		rows:         slices.Clone(rows),
		tagSeparator: filter.DefaultTagSeparator,
	}
}

func (s *MemorySource) Fields() []models.FieldInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fields)
}

func (s *MemorySource) FieldNames() []string {
	return fieldNames(s.Fields())
}

func (s *MemorySource) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter replaces the filter and notifies subscribers when it changed
func (s *MemorySource) SetFilter(ctx context.Context, f models.Filter) error {
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

// SetRows replaces the records
func (s *MemorySource) SetRows(rows []models.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = slices.Clone(rows)
}

// DistinctValues returns the sorted non-nil values of field across all rows.
// Tags are split into their members.
func (s *MemorySource) DistinctValues(ctx context.Context, field string) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !hasField(s.fields, field) {
		return nil, fmt.Errorf("unknown field %s", field)
	}
	tags := false
	for _, fi := range s.fields {
		if fi.Name == field && fi.Type == models.TypeTags {
			tags = true
		}
	}

	seen := make(map[string]bool)
	var values []any
	add := func(v any) {
		if v == nil {
			return
		}
		key := models.ValueKey(v)
		if !seen[key] {
			seen[key] = true
			values = append(values, v)
		}
	}

	for _, row := range s.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := row[field]
		if tags || models.IsSequence(v) {
			for _, t := range splitTags(v, s.tagSeparator) {
				add(t)
			}
			continue
		}
		add(v)
	}

	SortValues(values)
	return values, nil
}

// Rows returns up to limit records matching the current filter. A limit of 0
// or less returns every match.
func (s *MemorySource) Rows(ctx context.Context, limit int) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Record
	for _, row := range s.rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if Match(s.filter, row, s.tagSeparator) {
			out = append(out, row)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
