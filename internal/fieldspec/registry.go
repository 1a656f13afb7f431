// Package fieldspec holds the per-field metadata consulted by validation, the
// suggestion engine and the chooser UI.
package fieldspec

import (
	"slices"

	"github.com/rebelice/lazyfilter/internal/models"
)

// FieldSource describes the fields of a bound source
type FieldSource interface {
	Fields() []models.FieldInfo
}

// Options configures a Registry.
//
// Specs and Names list the filterable fields, in order. Names are bare field
// names and need a Source to resolve their types. With neither, every field of
// Source is registered.
type Options struct {
	Specs    []Config
	Names    []string
	Defaults Config
	Source   FieldSource
}

// Registry is an ordered, immutable set of field specs
type Registry struct {
	specs []*FieldSpec
	index map[string]*FieldSpec
}

// NewRegistry builds the field specs
func NewRegistry(opts Options) (*Registry, error) {
	if opts.Source == nil && (len(opts.Names) > 0 || len(opts.Specs) == 0) {
		return nil, models.ConfigErrorf("a field source is required when field specs are omitted or given as names")
	}

	var infos map[string]models.FieldInfo
	var sourceOrder []string
	if opts.Source != nil {
		infos = make(map[string]models.FieldInfo)
		for _, fi := range opts.Source.Fields() {
			infos[fi.Name] = fi
			sourceOrder = append(sourceOrder, fi.Name)
		}
	}

	configs := slices.Clone(opts.Specs)
	for _, name := range opts.Names {
		configs = append(configs, Config{Field: name})
	}
	if len(configs) == 0 {
		for _, name := range sourceOrder {
			configs = append(configs, Config{Field: name})
		}
	}

	r := &Registry{index: make(map[string]*FieldSpec)}
	for _, cfg := range configs {
		cfg = withDefaults(cfg, opts.Defaults)

		var info *models.FieldInfo
		if infos != nil {
			fi, ok := infos[cfg.Field]
			if !ok {
				return nil, models.ConfigErrorf("field %s not found in source", cfg.Field)
			}
			info = &fi
		}

		spec, err := newFieldSpec(cfg, info)
		if err != nil {
			return nil, err
		}
		if _, dup := r.index[spec.Field]; dup {
			return nil, models.ConfigErrorf("duplicate field spec %s", spec.Field)
		}
		r.specs = append(r.specs, spec)
		r.index[spec.Field] = spec
	}
	return r, nil
}

func withDefaults(cfg, defaults Config) Config {
	if cfg.ValueType == "" {
		cfg.ValueType = defaults.ValueType
	}
	if len(cfg.Ops) == 0 {
		cfg.Ops = defaults.Ops
	}
	if cfg.EnableValues == nil {
		cfg.EnableValues = defaults.EnableValues
	}
	if !cfg.ForceSelection {
		cfg.ForceSelection = defaults.ForceSelection
	}
	if cfg.Example == "" {
		cfg.Example = defaults.Example
	}
	if cfg.ValueRenderer == nil {
		cfg.ValueRenderer = defaults.ValueRenderer
	}
	if cfg.ValueParser == nil {
		cfg.ValueParser = defaults.ValueParser
	}
	return cfg
}

// Get returns the spec for field, or nil
func (r *Registry) Get(field string) *FieldSpec {
	return r.index[field]
}

// All returns the specs in registry order
func (r *Registry) All() []*FieldSpec {
	return slices.Clone(r.specs)
}

// Len returns the number of specs
func (r *Registry) Len() int {
	return len(r.specs)
}

// Lookup returns the operators allowed for field
func (r *Registry) Lookup(field string) ([]models.FilterOperator, bool) {
	spec, ok := r.index[field]
	if !ok {
		return nil, false
	}
	return spec.Ops, true
}
