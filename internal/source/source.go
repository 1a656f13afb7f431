// Package source implements the bound data sources a chooser reads fields and
// values from and writes its filter to.
package source

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/models"
)

// Source is a filterable collection of records
type Source interface {
	Fields() []models.FieldInfo
	FieldNames() []string
	Filter() models.Filter
	SetFilter(ctx context.Context, f models.Filter) error
	DistinctValues(ctx context.Context, field string) ([]any, error)
	Subscribe(fn func(models.Filter)) (unsubscribe func())
}

// RowSource is a source that can also load its filtered records
type RowSource interface {
	Source
	Rows(ctx context.Context, limit int) ([]models.Record, error)
}

// Notifier fans a filter change out to subscribers
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(models.Filter)
}

// Subscribe registers fn and returns a function removing it
func (n *Notifier) Subscribe(fn func(models.Filter)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(models.Filter))
	}
	id := n.next
	n.next++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify calls every subscriber, in subscription order
func (n *Notifier) Notify(f models.Filter) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.subs))
	for id := range n.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(models.Filter), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, n.subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(f)
	}
}

func fieldNames(fields []models.FieldInfo) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func hasField(fields []models.FieldInfo, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// SortValues orders values for suggestion lists: numbers numerically, times
// chronologically, everything else by text
func SortValues(values []any) {
	sort.SliceStable(values, func(i, j int) bool {
		return compareValues(values[i], values[j]) < 0
	})
}

func compareValues(a, b any) int {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	sa, sb := cast.ToString(a), cast.ToString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}

// normalize converts driver values to the scalar types used by filters
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	}
	return v
}
