package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheSize is the number of fields whose values are kept
const DefaultCacheSize = 256

const maxConcurrentLoads = 4

// ValueProvider enumerates the distinct values of a field
type ValueProvider interface {
	DistinctValues(ctx context.Context, field string) ([]any, error)
}

// ValueCache memoizes distinct values per field. Concurrent loads of the same
// field share one call to the provider.
type ValueCache struct {
	provider ValueProvider
	cache    *lru.Cache[string, []any]
	group    singleflight.Group
	logger   log.Logger

	mu         sync.Mutex
	generation uint64
}

// NewValueCache creates a cache over provider holding up to size fields
func NewValueCache(provider ValueProvider, size int, logger log.Logger) (*ValueCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cache, err := lru.New[string, []any](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create value cache: %w", err)
	}
	return &ValueCache{provider: provider, cache: cache, logger: logger}, nil
}

// Get returns the values of field, loading them on a miss
func (c *ValueCache) Get(ctx context.Context, field string) ([]any, error) {
	if values, ok := c.cache.Get(field); ok {
		return values, nil
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	v, err, _ := c.group.Do(fmt.Sprintf("%d/%s", gen, field), func() (any, error) {
		values, err := c.provider.DistinctValues(ctx, field)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.generation {
			c.cache.Add(field, values)
		}
		c.mu.Unlock()

		level.Debug(c.logger).Log("msg", "loaded field values", "field", field, "count", len(values))
		return values, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load values of %s: %w", field, err)
	}
	return v.([]any), nil
}

type fieldValues struct {
	field  string
	values []any
}

// GetMany loads several fields concurrently. Fields that fail are missing
// from the result and their errors are joined.
func (c *ValueCache) GetMany(ctx context.Context, fields []string) (map[string][]any, error) {
	p := pool.NewWithResults[fieldValues]().
		WithContext(ctx).
		WithMaxGoroutines(maxConcurrentLoads)

	for _, field := range fields {
		p.Go(func(ctx context.Context) (fieldValues, error) {
			values, err := c.Get(ctx, field)
			if err != nil {
				return fieldValues{}, err
			}
			return fieldValues{field: field, values: values}, nil
		})
	}

	results, err := p.Wait()
	out := make(map[string][]any, len(results))
	for _, r := range results {
		out[r.field] = r.values
	}
	return out, err
}

// Invalidate drops the cached values of fields, or of every field when none are given
func (c *ValueCache) Invalidate(fields ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(fields) == 0 {
		c.generation++
		c.cache.Purge()
		return
	}
	for _, f := range fields {
		c.cache.Remove(f)
	}
}

// Len returns the number of cached fields
func (c *ValueCache) Len() int {
	return c.cache.Len()
}
