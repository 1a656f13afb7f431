// Package chooser implements the tag-style filter chooser: it owns a canonical
// filter value, derives the flat tag list edited by the UI, and keeps the value
// in sync with favorites, persisted state and a bound source.
package chooser

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/persist"
	"github.com/rebelice/lazyfilter/internal/query"
	"github.com/rebelice/lazyfilter/internal/source"
	"github.com/rebelice/lazyfilter/internal/tick"
)

// DefaultIntroHelpText is shown above field suggestions before anything is typed
const DefaultIntroHelpText = "Select or enter a field name (below) or begin typing to match available field values."

// PersistOptions enables persistence of the chooser state
type PersistOptions struct {
	Provider  persist.Provider
	Value     bool // persist the current value
	Favorites bool // persist favorites
}

// Options configures a Model
type Options struct {
	// Registry, when set, is used as is. Otherwise one is built from
	// FieldSpecs, FieldNames and FieldSpecDefaults against ValueSource.
	Registry          *fieldspec.Registry
	FieldSpecs        []fieldspec.Config
	FieldNames        []string
	FieldSpecDefaults fieldspec.Config

	// Bind is filtered as the value changes. ValueSource supplies field
	// metadata and suggested values and defaults to Bind.
	Bind        source.Source
	ValueSource source.Source

	InitialValue     any
	InitialFavorites []any

	SuggestFieldsWhenEmpty bool
	SortFieldSuggestions   bool
	MaxTags                int // 0 disables the limit
	MaxResults             int // 0 disables the limit
	ValueCacheSize         int
	IntroHelpText          *string // nil uses DefaultIntroHelpText

	Persist *PersistOptions

	// OnAutoComplete receives the text re-entered into the input when a bare
	// field suggestion is selected
	OnAutoComplete func(text string)

	Loop    *tick.Loop
	Context context.Context
	Logger  log.Logger
}

// Model is the chooser state. It is not safe for concurrent use; drive it from
// the goroutine that flushes its loop.
type Model struct {
	registry       *fieldspec.Registry
	engine         *query.Engine
	bind           source.Source
	loop           *tick.Loop
	filterTask     *tick.Observer
	ctx            context.Context
	logger         log.Logger
	id             string // scopes loop keys to this model
	maxTags        int
	introHelpText  string
	onAutoComplete func(string)

	provider         persist.Provider
	persistValue     bool
	persistFavorites bool
	lastPersisted    string
	ready            bool

	value         models.Filter
	favorites     []models.Filter
	selectOptions []Option
	selectValue   []string
	unsupported   bool
	inputValue    string

	listeners       []func()
	unsubscribeBind func()
}

// New creates a chooser
func New(opts Options) (*Model, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	if opts.Loop == nil {
		opts.Loop = tick.NewLoop(opts.Logger)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.ValueSource == nil {
		opts.ValueSource = opts.Bind
	}

	registry := opts.Registry
	if registry == nil {
		var fields fieldspec.FieldSource
		if opts.ValueSource != nil {
			fields = opts.ValueSource
		}
		var err error
		registry, err = fieldspec.NewRegistry(fieldspec.Options{
			Specs:    opts.FieldSpecs,
			Names:    opts.FieldNames,
			Defaults: opts.FieldSpecDefaults,
			Source:   fields,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build field specs: %w", err)
		}
	}

	var values query.ValueProvider
	if opts.ValueSource != nil {
		values = opts.ValueSource
	}
	engine, err := query.NewEngine(query.Options{
		Registry:               registry,
		Values:                 values,
		SuggestFieldsWhenEmpty: opts.SuggestFieldsWhenEmpty,
		SortFieldSuggestions:   opts.SortFieldSuggestions,
		MaxResults:             opts.MaxResults,
		CacheSize:              opts.ValueCacheSize,
		Logger:                 opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	m := &Model{
		id:             id,
		registry:       registry,
		engine:         engine,
		bind:           opts.Bind,
		loop:           opts.Loop,
		filterTask:     tick.NewObserver(),
		ctx:            opts.Context,
		logger:         log.With(opts.Logger, "component", "chooser"),
		maxTags:        opts.MaxTags,
		introHelpText:  DefaultIntroHelpText,
		onAutoComplete: opts.OnAutoComplete,
	}
	if opts.IntroHelpText != nil {
		m.introHelpText = *opts.IntroHelpText
	}

	value := opts.InitialValue
	favorites := m.parseFavorites(opts.InitialFavorites)

	// Read state from provider, fail gently
	if p := opts.Persist; p != nil && p.Provider != nil {
		m.provider = p.Provider
		m.persistValue = p.Value
		m.persistFavorites = p.Favorites

		state, err := m.readState()
		if err != nil {
			level.Error(m.logger).Log("msg", "failed to read persisted state, persistence disabled", "err", err)
			m.provider = nil
		} else if state != nil {
			if state.value != nil {
				value = state.value
			}
			if state.favorites != nil {
				favorites = state.favorites
			}
		}
	}

	if value == nil && m.bind != nil {
		value = filter.WithFilterByKinds(m.bind.Filter(), nil, models.KindFunction)
	}

	m.SetValue(value)
	m.SetFavorites(favorites)

	if m.bind != nil {
		m.unsubscribeBind = m.bind.Subscribe(func(f models.Filter) {
			m.SetValue(filter.WithFilterByKinds(f, nil, models.KindFunction))
		})
	}

	m.lastPersisted, _ = m.persistKey()
	m.ready = true
	return m, nil
}

func (m *Model) parseFavorites(items []any) []models.Filter {
	var out []models.Filter
	for _, item := range items {
		f, err := filter.Parse(item)
		if err != nil {
			level.Warn(m.logger).Log("msg", "ignoring invalid favorite", "err", err)
			continue
		}
		out = append(out, f)
	}
	return out
}

// Close stops mirroring the bound source and cancels pending writes
func (m *Model) Close() {
	if m.unsubscribeBind != nil {
		m.unsubscribeBind()
		m.unsubscribeBind = nil
	}
	m.filterTask.CancelAll()
}

// Value returns the current filter, or nil
func (m *Model) Value() models.Filter { return m.value }

// Favorites returns the favorite filters
func (m *Model) Favorites() []models.Filter { return slices.Clone(m.favorites) }

// SelectOptions returns the tags available to render
func (m *Model) SelectOptions() []Option { return slices.Clone(m.selectOptions) }

// SelectValue returns the keys of the selected tags, in display order
func (m *Model) SelectValue() []string { return slices.Clone(m.selectValue) }

// UnsupportedFilter reports whether the last value could not be shown
func (m *Model) UnsupportedFilter() bool { return m.unsupported }

// InputValue returns the text re-entered by auto-completion
func (m *Model) InputValue() string { return m.inputValue }

// SetInputValue records the text currently typed in the input
func (m *Model) SetInputValue(s string) { m.inputValue = s }

// IntroHelpText returns the blurb shown before a query is typed
func (m *Model) IntroHelpText() string { return m.introHelpText }

// Registry returns the field specs
func (m *Model) Registry() *fieldspec.Registry { return m.registry }

// FieldSpec returns the spec of field, or nil
func (m *Model) FieldSpec(field string) *fieldspec.FieldSpec { return m.registry.Get(field) }

// FilterTask tracks writes to the bound source
func (m *Model) FilterTask() *tick.Observer { return m.filterTask }

// Subscribe registers fn to run after every state change
func (m *Model) Subscribe(fn func()) (unsubscribe func()) {
	m.listeners = append(m.listeners, fn)
	idx := len(m.listeners) - 1
	return func() {
		if idx < len(m.listeners) {
			m.listeners[idx] = nil
		}
	}
}

func (m *Model) changed() {
	if !m.ready {
		return
	}
	m.writeState()
	for _, fn := range m.listeners {
		if fn != nil {
			fn()
		}
	}
}

// SetValue replaces the chooser value. Anything Parse accepts may be passed.
// A value that cannot be shown as tags clears the chooser and sets
// UnsupportedFilter instead of returning an error.
func (m *Model) SetValue(candidate any) {
	f, err := filter.Parse(candidate)
	if err != nil {
		m.fail(err)
		return
	}
	if m.value != nil && models.Equal(m.value, f) {
		return
	}

	if err := filter.Check(f, m.registry); err != nil {
		m.fail(err)
		return
	}
	display, err := filter.ToDisplayFilters(f)
	if err != nil {
		m.fail(err)
		return
	}
	if m.maxTags > 0 && len(display) > m.maxTags {
		m.fail(models.Unsupportedf("filter has %d tags, more than the limit of %d", len(display), m.maxTags))
		return
	}

	// Keep previously rendered options so tags being removed still render
	options := make([]Option, 0, len(display)+len(m.selectOptions))
	seen := make(map[string]bool)
	for _, d := range display {
		opt, err := m.createOption(d)
		if err != nil {
			m.fail(err)
			return
		}
		if !seen[opt.Value] {
			seen[opt.Value] = true
			options = append(options, opt)
		}
	}
	for _, opt := range m.selectOptions {
		if !seen[opt.Value] {
			seen[opt.Value] = true
			options = append(options, opt)
		}
	}

	level.Debug(m.logger).Log("msg", "setting chooser value", "value", fmt.Sprint(f))
	m.value = f
	m.unsupported = false
	m.selectOptions = nil
	if len(options) > 0 {
		m.selectOptions = options
	}

	m.loop.DeferOnce("chooser/"+m.id+"/selectValue", m.syncSelectValue)
	if m.bind != nil {
		m.filterTask.Link(m.loop.Go(m.ctx, "chooser/"+m.id+"/bindWrite", m.writeBind))
	}
	m.changed()
}

func (m *Model) fail(err error) {
	level.Warn(m.logger).Log("msg", "unsupported filter for chooser", "err", err)
	m.value = nil
	m.selectOptions = nil
	m.selectValue = nil
	m.unsupported = true
	m.changed()
}

// syncSelectValue mirrors the current value into SelectValue, keeping the
// order of tags that were already selected
func (m *Model) syncSelectValue() {
	display, err := filter.ToDisplayFilters(m.value)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to rebuild tags", "err", err)
		return
	}

	keys := make([]string, 0, len(display))
	for _, d := range display {
		key, err := models.FilterKey(d)
		if err != nil {
			level.Error(m.logger).Log("msg", "failed to rebuild tags", "err", err)
			return
		}
		keys = append(keys, key)
	}

	rank := func(key string) int {
		if idx := slices.Index(m.selectValue, key); idx >= 0 {
			return idx
		}
		return len(keys)
	}
	sort.SliceStable(keys, func(i, j int) bool { return rank(keys[i]) < rank(keys[j]) })

	m.selectValue = nil
	if len(keys) > 0 {
		m.selectValue = keys
	}
	m.changed()
}

// writeBind replaces the field and compound filters of the bound source with
// the current value, leaving function filters in place
func (m *Model) writeBind(ctx context.Context) error {
	next := filter.WithFilterByKinds(m.bind.Filter(), m.value, models.KindField, models.KindCompound)
	if err := m.bind.SetFilter(ctx, next); err != nil {
		level.Error(m.logger).Log("msg", "failed to filter bound source", "err", err)
		return fmt.Errorf("failed to filter bound source: %w", err)
	}
	return nil
}

type selectTag struct {
	models.FilterData
	DisplayName string `json:"displayName,omitempty"`
}

// SetSelectValue applies the tag keys chosen in the UI. Keys of filters are
// recombined into the value; a single bare field suggestion is re-entered as
// input text.
func (m *Model) SetSelectValue(raw []string) {
	var filters []models.Filter
	var suggestions []selectTag

	for _, r := range raw {
		if strings.TrimSpace(r) == "" {
			continue
		}
		var tag selectTag
		if err := json.Unmarshal([]byte(r), &tag); err != nil {
			m.fail(models.Unsupportedf("invalid tag %q: %v", r, err))
			return
		}
		if tag.Op == "" {
			suggestions = append(suggestions, tag)
			continue
		}
		f, err := filter.Parse(tag.FilterData)
		if err != nil {
			m.fail(err)
			return
		}
		filters = append(filters, f)
	}

	combined, err := filter.CombineValueFilters(filters)
	if err != nil {
		m.fail(err)
		return
	}
	m.SetValue(combined)

	if len(suggestions) == 1 {
		m.autoComplete(suggestions[0])
	}
}

func (m *Model) autoComplete(tag selectTag) {
	name := tag.DisplayName
	if name == "" {
		name = m.displayName(tag.Field)
	}
	if len(name) > len(m.inputValue) {
		m.inputValue = name
	}
	if m.onAutoComplete != nil {
		m.onAutoComplete(m.inputValue)
	}
	m.changed()
}

// Query returns suggestions for the text typed in the input
func (m *Model) Query(ctx context.Context, text string) ([]query.Suggestion, error) {
	return m.engine.Query(ctx, text)
}

// InvalidateValues drops cached suggestion values, e.g. after the source
// data changed
func (m *Model) InvalidateValues() {
	m.engine.Invalidate()
}
