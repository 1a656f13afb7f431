// Package query turns partial chooser input into field and value suggestions.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/models"
)

// SuggestionKind distinguishes field suggestions from value suggestions
type SuggestionKind int

const (
	FieldSuggestion SuggestionKind = iota
	ValueSuggestion
)

// Suggestion is one entry offered while the user types
type Suggestion struct {
	Kind  SuggestionKind
	Spec  *fieldspec.FieldSpec
	Field string
	Op    models.FilterOperator // value suggestions only
	Value any                   // value suggestions only
	Label string
}

// Filter builds the filter a value suggestion stands for
func (s Suggestion) Filter() (*models.FieldFilter, error) {
	if s.Kind != ValueSuggestion {
		return nil, models.Unsupportedf("field suggestion %s has no filter", s.Field)
	}
	if s.Op.IsArray() {
		return models.NewFieldFilter(s.Field, s.Op, []any{s.Value})
	}
	return models.NewFieldFilter(s.Field, s.Op, s.Value)
}

type fieldKey struct {
	Field       string `json:"field"`
	DisplayName string `json:"displayName"`
}

// Key returns the JSON tag key of the suggestion. Value suggestions use the
// key of their filter; field suggestions have no op.
func (s Suggestion) Key() (string, error) {
	if s.Kind == ValueSuggestion {
		f, err := s.Filter()
		if err != nil {
			return "", err
		}
		return models.FilterKey(f)
	}
	name := s.Label
	if s.Spec != nil {
		name = s.Spec.DisplayName
	}
	b, err := json.Marshal(fieldKey{Field: s.Field, DisplayName: name})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Options configures an Engine
type Options struct {
	Registry               *fieldspec.Registry
	Values                 ValueProvider // may be nil; only static values are suggested then
	SuggestFieldsWhenEmpty bool
	SortFieldSuggestions   bool
	MaxResults             int
	CacheSize              int
	Logger                 log.Logger
}

// Engine produces suggestions for chooser input
type Engine struct {
	registry               *fieldspec.Registry
	values                 *ValueCache
	suggestFieldsWhenEmpty bool
	sortFieldSuggestions   bool
	maxResults             int
	logger                 log.Logger
}

// NewEngine creates an engine
func NewEngine(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, models.ConfigErrorf("query engine requires a field registry")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}

	e := &Engine{
		registry:               opts.Registry,
		suggestFieldsWhenEmpty: opts.SuggestFieldsWhenEmpty,
		sortFieldSuggestions:   opts.SortFieldSuggestions,
		maxResults:             opts.MaxResults,
		logger:                 opts.Logger,
	}
	if opts.Values != nil {
		cache, err := NewValueCache(opts.Values, opts.CacheSize, opts.Logger)
		if err != nil {
			return nil, err
		}
		e.values = cache
	}
	return e, nil
}

// Invalidate forgets cached source values
func (e *Engine) Invalidate() {
	if e.values != nil {
		e.values.Invalidate()
	}
}

// Query returns suggestions for text. Empty or unmatched input yields an empty
// slice. Value enumeration failures are returned along with partial results.
func (e *Engine) Query(ctx context.Context, text string) ([]Suggestion, error) {
	q := ParseQuery(text, e.registry)

	var (
		out []Suggestion
		err error
	)
	switch {
	case q.Text == "":
		if e.suggestFieldsWhenEmpty {
			out = e.fieldSuggestions("")
		}
	case q.Spec != nil && q.HasOp:
		out, err = e.valueSuggestionsFor(ctx, q)
	default:
		out = e.fieldSuggestions(q.Text)
		var values []Suggestion
		values, err = e.valueSuggestionsAll(ctx, q.Text)
		out = append(out, values...)
	}

	if err != nil {
		level.Warn(e.logger).Log("msg", "failed to load suggestion values", "query", q.Text, "err", err)
	}
	if out == nil {
		out = []Suggestion{}
	}
	return e.truncate(out), err
}

func (e *Engine) truncate(s []Suggestion) []Suggestion {
	if e.maxResults > 0 && len(s) > e.maxResults {
		return s[:e.maxResults]
	}
	return s
}

// fieldSuggestions returns the fields whose display name or field name
// contains text, sorted by label when configured and in registry order
// otherwise
func (e *Engine) fieldSuggestions(text string) []Suggestion {
	needle := strings.ToLower(text)

	var out []Suggestion
	for _, spec := range e.registry.All() {
		if !strings.Contains(strings.ToLower(spec.DisplayName), needle) &&
			!strings.Contains(strings.ToLower(spec.Field), needle) {
			continue
		}
		out = append(out, Suggestion{Kind: FieldSuggestion, Spec: spec, Field: spec.Field, Label: spec.DisplayName})
	}

	if e.sortFieldSuggestions {
		sortByLabel(out)
	}
	return out
}

func sortByLabel(s []Suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		li, lj := strings.ToLower(s[i].Label), strings.ToLower(s[j].Label)
		if li != lj {
			return li < lj
		}
		return s[i].Label < s[j].Label
	})
}

// candidateValues returns the static or source values of spec
func (e *Engine) candidateValues(ctx context.Context, spec *fieldspec.FieldSpec) ([]any, error) {
	if len(spec.Values) > 0 {
		return spec.Values, nil
	}
	if e.values == nil {
		return nil, nil
	}
	return e.values.Get(ctx, spec.Field)
}

// matchValues builds the value suggestions of spec whose label contains text
func matchValues(spec *fieldspec.FieldSpec, op models.FilterOperator, values []any, text string) []Suggestion {
	needle := strings.ToLower(text)
	seen := make(map[string]bool)

	var out []Suggestion
	for _, v := range values {
		formatted := spec.FormatValue(v)
		if needle != "" && !strings.Contains(strings.ToLower(formatted), needle) {
			continue
		}
		key := models.ValueKey(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, valueSuggestion(spec, op, v))
	}
	sortByLabel(out)
	return out
}

func valueSuggestion(spec *fieldspec.FieldSpec, op models.FilterOperator, v any) Suggestion {
	return Suggestion{
		Kind:  ValueSuggestion,
		Spec:  spec,
		Field: spec.Field,
		Op:    op,
		Value: v,
		Label: spec.DisplayName + " " + string(op) + " " + spec.FormatValue(v),
	}
}

func (e *Engine) valueSuggestionsFor(ctx context.Context, q ParsedQuery) ([]Suggestion, error) {
	spec := q.Spec

	var (
		listed []Suggestion
		err    error
	)
	if spec.SupportsSuggestions(q.Op) {
		var values []any
		values, err = e.candidateValues(ctx, spec)
		listed = matchValues(spec, q.Op, values, q.Value)
	}

	var out []Suggestion
	if q.Value != "" && !spec.ForceSelection {
		if literal, perr := spec.ParseValue(q.Value, q.Op); perr == nil {
			out = append(out, valueSuggestion(spec, q.Op, literal))
			filtered := listed[:0:0]
			for _, s := range listed {
				if !models.ValuesEqual(s.Value, literal) {
					filtered = append(filtered, s)
				}
			}
			listed = filtered
		}
	}
	return append(out, listed...), err
}

func (e *Engine) valueSuggestionsAll(ctx context.Context, text string) ([]Suggestion, error) {
	var specs []*fieldspec.FieldSpec
	var remote []string
	for _, spec := range e.registry.All() {
		if !spec.SupportsSuggestions(models.OpEqual) {
			continue
		}
		specs = append(specs, spec)
		if len(spec.Values) == 0 && e.values != nil {
			remote = append(remote, spec.Field)
		}
	}

	var loaded map[string][]any
	var errs []error
	if len(remote) > 0 {
		var err error
		loaded, err = e.values.GetMany(ctx, remote)
		if err != nil {
			errs = append(errs, err)
		}
	}

	var out []Suggestion
	for _, spec := range specs {
		values := spec.Values
		if len(values) == 0 {
			values = loaded[spec.Field]
		}
		out = append(out, matchValues(spec, models.OpEqual, values, text)...)
	}
	return out, errors.Join(errs...)
}
