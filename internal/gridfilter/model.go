// Package gridfilter manages per-column filters of a grid bound to a source.
package gridfilter

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/source"
	"github.com/rebelice/lazyfilter/internal/tick"
)

// Options configures a Model
type Options struct {
	Bind source.Source

	// Registry, when set, is used as is. Otherwise one is built from
	// FieldSpecs, FieldNames and FieldSpecDefaults against Bind.
	Registry          *fieldspec.Registry
	FieldSpecs        []fieldspec.Config
	FieldNames        []string
	FieldSpecDefaults fieldspec.Config

	// CommitOnChange applies every edit to Bind on the next tick. Defaults to
	// true; when false edits stay pending until Commit.
	CommitOnChange *bool

	// FilterTask, when set, tracks writes alongside other filter writers
	FilterTask *tick.Observer

	Loop    *tick.Loop
	Context context.Context
	Logger  log.Logger
}

// Model edits the column filters of a bound source
type Model struct {
	bind           source.Source
	registry       *fieldspec.Registry
	commitOnChange bool
	filterTask     *tick.Observer
	loop           *tick.Loop
	ctx            context.Context
	logger         log.Logger
	writeKey       string

	pending    models.Filter
	hasPending bool
}

// New creates a grid filter model
func New(opts Options) (*Model, error) {
	if opts.Bind == nil {
		return nil, models.ConfigErrorf("grid filter requires a bound source")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Loop == nil {
		opts.Loop = tick.NewLoop(opts.Logger)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.FilterTask == nil {
		opts.FilterTask = tick.NewObserver()
	}

	registry := opts.Registry
	if registry == nil {
		var err error
		registry, err = fieldspec.NewRegistry(fieldspec.Options{
			Specs:    opts.FieldSpecs,
			Names:    opts.FieldNames,
			Defaults: opts.FieldSpecDefaults,
			Source:   opts.Bind,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build field specs: %w", err)
		}
	}

	commitOnChange := true
	if opts.CommitOnChange != nil {
		commitOnChange = *opts.CommitOnChange
	}

	return &Model{
		bind:           opts.Bind,
		registry:       registry,
		commitOnChange: commitOnChange,
		filterTask:     opts.FilterTask,
		loop:           opts.Loop,
		ctx:            opts.Context,
		logger:         log.With(opts.Logger, "component", "gridfilter"),
		writeKey:       "gridfilter/" + uuid.NewString() + "/write",
	}, nil
}

// Filter returns the filter being edited: the pending one if any, else the
// bound source's
func (m *Model) Filter() models.Filter {
	if m.hasPending {
		return m.pending
	}
	return m.bind.Filter()
}

// HasPending reports whether edits have not been written to the source yet
func (m *Model) HasPending() bool { return m.hasPending }

// FilterTask tracks writes to the bound source
func (m *Model) FilterTask() *tick.Observer { return m.filterTask }

// FieldSpec returns the spec of field, or nil
func (m *Model) FieldSpec(field string) *fieldspec.FieldSpec { return m.registry.Get(field) }

// Registry returns the field specs
func (m *Model) Registry() *fieldspec.Registry { return m.registry }

func (m *Model) parse(v any) (models.Filter, error) {
	f, err := filter.Parse(v)
	if err != nil {
		return nil, err
	}
	if err := filter.Check(f, m.registry); err != nil {
		return nil, err
	}
	return f, nil
}

// parseColumn parses f and requires every leaf of it to be on field
func (m *Model) parseColumn(field string, f any) (models.Filter, error) {
	next, err := m.parse(f)
	if err != nil {
		return nil, err
	}
	for _, n := range filter.Flatten(next) {
		if leaf, ok := n.(*models.FieldFilter); ok && leaf.Field != field {
			return nil, models.Unsupportedf("filter on %s cannot be set on column %s", leaf.Field, field)
		}
	}
	return next, nil
}

// SetColumnFilters replaces the filters of field with f. A nil f removes them.
// Every leaf of f must be on field.
func (m *Model) SetColumnFilters(field string, f any) error {
	next, err := m.parseColumn(field, f)
	if err != nil {
		return err
	}

	// a composite owned by one column is wrapped so other columns are ANDed
	// alongside it
	cur := m.Filter()
	if c, ok := cur.(*models.CompoundFilter); ok && c.Field != "" {
		cur, err = models.NewCompoundFilter(models.OpAnd, []models.Filter{c}, "")
		if err != nil {
			return err
		}
	}

	m.setFilter(filter.WithFilterByField(cur, next, field))
	return nil
}

// MergeColumnFilters adds the values of an array-operator filter to the
// existing filter with the same field and operator. Other filters replace the
// column's filters as SetColumnFilters does.
func (m *Model) MergeColumnFilters(field string, f any) error {
	next, err := m.parseColumn(field, f)
	if err != nil {
		return err
	}

	if ff, ok := next.(*models.FieldFilter); ok && ff.Op.IsArray() {
		for _, cur := range filter.FieldFilters(m.Filter(), field) {
			if cur.Op != ff.Op {
				continue
			}
			values := append(cur.Values(), ff.Values()...)
			if next, err = ff.WithValue(models.UniqueValues(values)); err != nil {
				return err
			}
			break
		}
	}
	return m.SetColumnFilters(field, next)
}

// ColumnFilters returns every field filter on field
func (m *Model) ColumnFilters(field string) []*models.FieldFilter {
	return filter.FieldFilters(m.Filter(), field)
}

// ColumnCompoundFilter returns the unique composite wrapping the filters of
// field, or nil
func (m *Model) ColumnCompoundFilter(field string) *models.CompoundFilter {
	return filter.FindOwningComposite(m.Filter(), field)
}

// Clear removes all field and compound filters, keeping function filters
func (m *Model) Clear() {
	m.setFilter(filter.WithFilterByKinds(m.Filter(), nil, models.KindField, models.KindCompound))
}

// ToDisplayValue shows nil and empty values as the blank marker
func (m *Model) ToDisplayValue(v any) any {
	if v == nil || v == "" {
		return fieldspec.BlankText
	}
	return v
}

// FromDisplayValue reverses ToDisplayValue
func (m *Model) FromDisplayValue(v any) any {
	if v == fieldspec.BlankText {
		return nil
	}
	return v
}

func (m *Model) setFilter(f models.Filter) {
	m.pending = f
	m.hasPending = true
	if m.commitOnChange {
		m.Commit()
	}
}

// Commit writes pending edits to the source on the next tick
func (m *Model) Commit() {
	if !m.hasPending {
		return
	}
	m.filterTask.Link(m.loop.Go(m.ctx, m.writeKey, m.write))
}

// Discard drops pending edits
func (m *Model) Discard() {
	m.pending = nil
	m.hasPending = false
}

func (m *Model) write(ctx context.Context) error {
	if !m.hasPending {
		return nil
	}
	f := m.pending
	m.Discard()

	if err := m.bind.SetFilter(ctx, f); err != nil {
		level.Error(m.logger).Log("msg", "failed to apply column filters", "err", err)
		return fmt.Errorf("failed to apply column filters: %w", err)
	}
	level.Debug(m.logger).Log("msg", "applied column filters", "filter", fmt.Sprint(f))
	return nil
}
