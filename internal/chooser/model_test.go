package chooser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/persist"
	"github.com/rebelice/lazyfilter/internal/source"
	"github.com/rebelice/lazyfilter/internal/tick"
)

var ff = models.MustFieldFilter

func and(filters ...models.Filter) *models.CompoundFilter {
	return models.MustCompoundFilter(models.OpAnd, "", filters...)
}

func key(t *testing.T, f models.Filter) string {
	t.Helper()
	k, err := models.FilterKey(f)
	require.NoError(t, err)
	return k
}

func newSource() *source.MemorySource {
	return source.NewMemorySource(
		[]models.FieldInfo{
			{Name: "name", Type: models.TypeString},
			{Name: "status", Type: models.TypeString},
			{Name: "qty", Type: models.TypeInt},
		},
		[]models.Record{
			{"name": "Apple", "status": "A", "qty": 10},
			{"name": "Banana", "status": "B", "qty": 3},
		},
	)
}

type fixture struct {
	loop  *tick.Loop
	bind  *source.MemorySource
	model *Model
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	fx := &fixture{loop: tick.NewLoop(nil), bind: newSource()}
	opts.Loop = fx.loop
	if opts.Bind == nil && opts.ValueSource == nil {
		opts.Bind = fx.bind
	}
	m, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	fx.model = m
	return fx
}

func TestNewRequiresFieldSource(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, models.ErrConfig)

	_, err = New(Options{FieldNames: []string{"status"}})
	assert.ErrorIs(t, err, models.ErrConfig)
}

func TestSetValue(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	v := and(ff("status", models.OpIn, []any{"A", "B"}), ff("qty", models.OpGreaterThan, 1))
	m.SetValue(v)

	assert.False(t, m.UnsupportedFilter())
	assert.True(t, models.Equal(v, m.Value()))
	require.Len(t, m.SelectOptions(), 3)
	assert.Equal(t, "Status in A", m.SelectOptions()[0].Label)
	assert.Equal(t, "Qty > 1", m.SelectOptions()[2].Label)
	assert.Nil(t, m.SelectValue(), "select value is mirrored on the next tick")
	assert.Nil(t, fx.bind.Filter())

	fx.loop.Flush()
	assert.Equal(t, []string{
		key(t, ff("status", models.OpIn, "A")),
		key(t, ff("status", models.OpIn, "B")),
		key(t, ff("qty", models.OpGreaterThan, 1)),
	}, m.SelectValue())
	assert.True(t, models.Equal(v, fx.bind.Filter()))
	assert.False(t, m.FilterTask().IsPending())
	assert.NoError(t, m.FilterTask().LastError())
}

func TestSetValueIdempotent(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	changes := 0
	m.Subscribe(func() { changes++ })

	m.SetValue(ff("status", models.OpEqual, "A"))
	fx.loop.Flush()
	value, unsupported, n := m.Value(), m.UnsupportedFilter(), changes

	m.SetValue(map[string]any{"field": "status", "op": "=", "value": "A"})
	fx.loop.Flush()
	assert.Same(t, value, m.Value())
	assert.Equal(t, unsupported, m.UnsupportedFilter())
	assert.Equal(t, n, changes)
}

func TestSetValueUnsupported(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	m.SetValue(ff("status", models.OpEqual, "A"))
	fx.loop.Flush()
	require.NotNil(t, m.Value())

	cases := map[string]any{
		"unknown field":      ff("ghost", models.OpEqual, 1),
		"operator":           ff("qty", models.OpLike, "1"),
		"function":           &models.FunctionFilter{Key: "fn"},
		"repeated array ops": and(ff("status", models.OpIn, "A"), ff("status", models.OpIn, "B")),
		"bad data":           `{"field":"status","op":"~","value":1}`,
	}
	for name, candidate := range cases {
		t.Run(name, func(t *testing.T) {
			m.SetValue(ff("status", models.OpEqual, "A"))
			m.SetValue(candidate)
			assert.True(t, m.UnsupportedFilter())
			assert.Nil(t, m.Value())
			assert.Nil(t, m.SelectOptions())
			assert.Nil(t, m.SelectValue())
		})
	}

	m.SetValue(nil)
	assert.False(t, m.UnsupportedFilter())
}

func TestMaxTags(t *testing.T) {
	fx := newFixture(t, Options{MaxTags: 2})
	m := fx.model

	m.SetValue(ff("status", models.OpIn, []any{"A", "B", "C"}))
	assert.True(t, m.UnsupportedFilter())
	assert.Nil(t, m.Value())

	m.SetValue(ff("status", models.OpIn, []any{"A", "B"}))
	assert.False(t, m.UnsupportedFilter())
	assert.NotNil(t, m.Value())
}

func TestOptionsMergedWithPrevious(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	m.SetValue(ff("status", models.OpIn, []any{"A", "B"}))
	m.SetValue(ff("status", models.OpIn, []any{"A"}))

	var values []string
	for _, o := range m.SelectOptions() {
		values = append(values, o.Value)
	}
	assert.Equal(t, []string{
		key(t, ff("status", models.OpIn, "A")),
		key(t, ff("status", models.OpIn, "B")),
	}, values)

	fx.loop.Flush()
	assert.Equal(t, []string{key(t, ff("status", models.OpIn, "A"))}, m.SelectValue())
}

func TestSelectValueKeepsOrder(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	status := ff("status", models.OpEqual, "A")
	qty := ff("qty", models.OpGreaterThan, 1)
	name := ff("name", models.OpLike, "an")

	m.SetValue(and(status, qty))
	fx.loop.Flush()
	m.SetValue(and(name, qty, status))
	fx.loop.Flush()

	assert.Equal(t, []string{key(t, status), key(t, qty), key(t, name)}, m.SelectValue())
}

func TestSetSelectValue(t *testing.T) {
	var completed []string
	fx := newFixture(t, Options{OnAutoComplete: func(s string) { completed = append(completed, s) }})
	m := fx.model

	a := key(t, ff("status", models.OpIn, "A"))
	b := key(t, ff("status", models.OpIn, "B"))
	c := key(t, ff("status", models.OpIn, "C"))

	m.SetSelectValue([]string{a, b})
	assert.True(t, models.Equal(ff("status", models.OpIn, []any{"A", "B"}), m.Value()))

	m.SetSelectValue([]string{a})
	assert.True(t, models.Equal(ff("status", models.OpIn, "A"), m.Value()))

	m.SetSelectValue([]string{a, c, ""})
	assert.True(t, models.Equal(ff("status", models.OpIn, []any{"A", "C"}), m.Value()))

	m.SetSelectValue([]string{a, c, `{"field":"name","displayName":"Name"}`})
	assert.True(t, models.Equal(ff("status", models.OpIn, []any{"A", "C"}), m.Value()))
	assert.Equal(t, "Name", m.InputValue())
	assert.Equal(t, []string{"Name"}, completed)

	m.SetSelectValue(nil)
	assert.Nil(t, m.Value())
	assert.False(t, m.UnsupportedFilter())

	m.SetSelectValue([]string{"not json"})
	assert.True(t, m.UnsupportedFilter())
}

func TestDisplayRoundTrip(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	v := and(
		ff("status", models.OpIn, []any{"A", "B"}),
		ff("qty", models.OpGreaterThan, 1),
		ff("name", models.OpNotIn, []any{"x"}),
	)
	m.SetValue(v)
	fx.loop.Flush()

	keys := m.SelectValue()
	m.SetValue(nil)
	m.SetSelectValue(keys)
	assert.True(t, models.Equal(v, m.Value()), "got %v", m.Value())
}

func TestFavorites(t *testing.T) {
	fx := newFixture(t, Options{InitialFavorites: []any{
		map[string]any{"field": "status", "op": "=", "value": "A"},
		map[string]any{"field": "ghost", "op": "=", "value": "A"},
		"{not json",
	}})
	m := fx.model
	require.Len(t, m.Favorites(), 1)

	f := ff("qty", models.OpGreaterThan, 1)
	m.AddFavorite(f)
	m.AddFavorite(ff("qty", models.OpGreaterThan, 1))
	m.AddFavorite(nil)
	m.AddFavorite(ff("ghost", models.OpEqual, 1))
	require.Len(t, m.Favorites(), 2)
	assert.True(t, m.IsFavorite(ff("qty", models.OpGreaterThan, 1)))

	m.RemoveFavorite(ff("qty", models.OpGreaterThan, 1))
	assert.Len(t, m.Favorites(), 1)
	assert.False(t, m.IsFavorite(f))

	m.SetFavorites([]models.Filter{
		ff("status", models.OpIn, []any{"A", "B"}),
		ff("status", models.OpIn, []any{"B", "A"}),
		nil,
		&models.FunctionFilter{Key: "fn"},
	})
	require.Len(t, m.Favorites(), 1)

	opts := m.FavoritesOptions()
	require.Len(t, opts, 1)
	assert.Equal(t, "Status in A, B", opts[0].Label)
	require.Len(t, opts[0].Options, 2)
	assert.Equal(t, "Status in B", opts[0].Options[1].Label)
}

func TestToggleFavorite(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	m.ToggleFavorite()
	assert.Empty(t, m.Favorites())

	m.SetValue(ff("status", models.OpEqual, "A"))
	m.ToggleFavorite()
	assert.True(t, m.IsFavorite(ff("status", models.OpEqual, "A")))
	m.ToggleFavorite()
	assert.Empty(t, m.Favorites())
}

func TestBindSync(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model
	ctx := context.Background()
	fn := &models.FunctionFilter{Key: "recent", Test: func(models.Record) bool { return true }}

	require.NoError(t, fx.bind.SetFilter(ctx, and(fn, ff("status", models.OpEqual, "B"))))
	assert.True(t, models.Equal(ff("status", models.OpEqual, "B"), m.Value()))
	fx.loop.Flush()
	assert.True(t, models.Equal(and(fn, ff("status", models.OpEqual, "B")), fx.bind.Filter()))

	m.SetValue(ff("status", models.OpEqual, "A"))
	fx.loop.Flush()
	assert.True(t, models.Equal(and(fn, ff("status", models.OpEqual, "A")), fx.bind.Filter()))

	m.SetValue(nil)
	fx.loop.Flush()
	assert.True(t, models.Equal(fn, fx.bind.Filter()))
}

func TestBindWritesCoalesce(t *testing.T) {
	fx := newFixture(t, Options{})
	m := fx.model

	writes := 0
	fx.bind.Subscribe(func(models.Filter) { writes++ })

	m.SetValue(ff("status", models.OpEqual, "A"))
	m.SetValue(ff("status", models.OpEqual, "B"))
	assert.True(t, m.FilterTask().IsPending())
	fx.loop.Flush()

	assert.Equal(t, 1, writes)
	assert.True(t, models.Equal(ff("status", models.OpEqual, "B"), fx.bind.Filter()))
}

func TestModelsShareLoop(t *testing.T) {
	loop := tick.NewLoop(nil)
	b1, b2 := newSource(), newSource()

	m1, err := New(Options{Bind: b1, Loop: loop})
	require.NoError(t, err)
	t.Cleanup(m1.Close)
	m2, err := New(Options{Bind: b2, Loop: loop})
	require.NoError(t, err)
	t.Cleanup(m2.Close)

	m1.SetValue(ff("status", models.OpEqual, "A"))
	m2.SetValue(ff("name", models.OpEqual, "Apple"))
	loop.Flush()

	assert.True(t, models.Equal(ff("status", models.OpEqual, "A"), b1.Filter()), "got %v", b1.Filter())
	assert.True(t, models.Equal(ff("name", models.OpEqual, "Apple"), b2.Filter()), "got %v", b2.Filter())
	assert.Len(t, m1.SelectValue(), 1)
	assert.Len(t, m2.SelectValue(), 1)
}

func TestWriteAfterClosedModel(t *testing.T) {
	loop := tick.NewLoop(nil)
	b1, b2 := newSource(), newSource()

	m1, err := New(Options{Bind: b1, Loop: loop})
	require.NoError(t, err)
	m1.SetValue(ff("status", models.OpEqual, "A"))
	m1.Close()

	m2, err := New(Options{Bind: b2, Loop: loop})
	require.NoError(t, err)
	t.Cleanup(m2.Close)
	m2.SetValue(ff("status", models.OpEqual, "B"))
	loop.Flush()

	assert.Nil(t, b1.Filter())
	assert.True(t, models.Equal(ff("status", models.OpEqual, "B"), b2.Filter()), "got %v", b2.Filter())
}

func TestSeedFromBind(t *testing.T) {
	bind := newSource()
	require.NoError(t, bind.SetFilter(context.Background(), ff("status", models.OpEqual, "A")))

	fx := newFixture(t, Options{Bind: bind})
	assert.True(t, models.Equal(ff("status", models.OpEqual, "A"), fx.model.Value()))
}

type readOnlySource struct {
	*source.MemorySource
}

func (readOnlySource) SetFilter(context.Context, models.Filter) error {
	return errors.New("read only")
}

func TestBindWriteFailure(t *testing.T) {
	fx := newFixture(t, Options{Bind: readOnlySource{newSource()}})
	m := fx.model

	m.SetValue(ff("status", models.OpEqual, "A"))
	fx.loop.Flush()
	assert.ErrorContains(t, m.FilterTask().LastError(), "read only")
	assert.NotNil(t, m.Value())
}

func TestValueSourceWithoutBind(t *testing.T) {
	fx := newFixture(t, Options{ValueSource: newSource(), FieldNames: []string{"status"}})
	m := fx.model

	assert.Equal(t, 1, m.Registry().Len())
	m.SetValue(ff("status", models.OpEqual, "A"))
	fx.loop.Flush()
	assert.False(t, m.FilterTask().IsPending())
	assert.Nil(t, fx.bind.Filter())
}

func TestPersistence(t *testing.T) {
	p := persist.NewMemoryProvider()
	opts := Options{Persist: &PersistOptions{Provider: p, Value: true, Favorites: true}}

	fx := newFixture(t, opts)
	m := fx.model
	assert.Equal(t, 0, p.Writes())

	m.SetValue(ff("status", models.OpIn, []any{"A", "B"}))
	assert.Equal(t, 1, p.Writes())
	fx.loop.Flush()
	assert.Equal(t, 1, p.Writes(), "unchanged state is not rewritten")

	m.AddFavorite(ff("qty", models.OpLessThan, 5))
	assert.Equal(t, 2, p.Writes())

	restored := newFixture(t, opts).model
	assert.True(t, models.Equal(ff("status", models.OpIn, []any{"A", "B"}), restored.Value()))
	require.Len(t, restored.Favorites(), 1)
	assert.True(t, restored.IsFavorite(ff("qty", models.OpLessThan, 5.0)))
}

func TestPersistFavoritesOnly(t *testing.T) {
	p := persist.NewMemoryProvider()
	opts := Options{Persist: &PersistOptions{Provider: p, Favorites: true}}

	m := newFixture(t, opts).model
	m.SetValue(ff("status", models.OpEqual, "A"))
	assert.Equal(t, 0, p.Writes())
	m.AddFavorite(ff("status", models.OpEqual, "A"))
	assert.Equal(t, 1, p.Writes())

	state, err := p.Read()
	require.NoError(t, err)
	assert.Nil(t, state.Value)
	assert.Len(t, state.Favorites, 1)
}

func TestPersistenceDisabledOnReadFailure(t *testing.T) {
	p := persist.NewMemoryProvider()
	p.ReadErr = errors.New("disk on fire")

	m := newFixture(t, Options{Persist: &PersistOptions{Provider: p, Value: true, Favorites: true}}).model
	m.SetValue(ff("status", models.OpEqual, "A"))
	m.AddFavorite(ff("status", models.OpEqual, "A"))
	assert.Equal(t, 0, p.Writes())
}

func TestPersistenceDisabledOnParseFailure(t *testing.T) {
	p := persist.NewMemoryProvider()
	require.NoError(t, p.Write(persist.State{Value: &models.FilterData{Field: "status", Op: "bogus", Value: "x"}}))

	m := newFixture(t, Options{
		InitialValue: ff("status", models.OpEqual, "B"),
		Persist:      &PersistOptions{Provider: p, Value: true, Favorites: true},
	}).model
	assert.True(t, models.Equal(ff("status", models.OpEqual, "B"), m.Value()))

	m.SetValue(ff("status", models.OpEqual, "A"))
	assert.Equal(t, 1, p.Writes())
}

func TestPersistenceWriteFailureIsLogged(t *testing.T) {
	p := persist.NewMemoryProvider()
	m := newFixture(t, Options{Persist: &PersistOptions{Provider: p, Value: true}}).model

	p.WriteErr = errors.New("full")
	m.SetValue(ff("status", models.OpEqual, "A"))
	assert.NotNil(t, m.Value())

	p.WriteErr = nil
	m.SetValue(ff("status", models.OpEqual, "B"))
	assert.Equal(t, 1, p.Writes())
}

func TestQueryAndHelpText(t *testing.T) {
	fx := newFixture(t, Options{SuggestFieldsWhenEmpty: true})
	m := fx.model
	assert.Equal(t, DefaultIntroHelpText, m.IntroHelpText())

	got, err := m.Query(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = m.Query(context.Background(), "status = b")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Status = b", got[0].Label)
	assert.Equal(t, "Status = B", got[1].Label)

	empty := ""
	m2 := newFixture(t, Options{IntroHelpText: &empty}).model
	assert.Empty(t, m2.IntroHelpText())
}
