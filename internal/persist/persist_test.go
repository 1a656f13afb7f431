package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyfilter/internal/filter"
	"github.com/rebelice/lazyfilter/internal/models"
)

func sampleState() State {
	return State{
		Value: &models.FilterData{Op: "AND", Filters: []models.FilterData{
			{Field: "status", Op: "in", Value: []any{"A", "B"}},
			{Field: "qty", Op: ">", Value: int64(5)},
		}},
		Favorites: []models.FilterData{
			{Field: "name", Op: "like", Value: "an"},
			{Field: "qty", Op: "=", Value: 2.5},
		},
	}
}

// assertSameState compares states by the filters they describe
func assertSameState(t *testing.T, want State, got *State) {
	t.Helper()
	require.NotNil(t, got)

	wantValue, err := filter.Parse(want.Value)
	require.NoError(t, err)
	gotValue, err := filter.Parse(got.Value)
	require.NoError(t, err)
	assert.True(t, models.Equal(wantValue, gotValue), "value: want %v, got %v", wantValue, gotValue)

	require.Len(t, got.Favorites, len(want.Favorites))
	for i := range want.Favorites {
		w, err := filter.Parse(want.Favorites[i])
		require.NoError(t, err)
		g, err := filter.Parse(got.Favorites[i])
		require.NoError(t, err)
		assert.True(t, models.Equal(w, g), "favorite %d: want %v, got %v", i, w, g)
	}
}

func exerciseProvider(t *testing.T, p Provider) {
	t.Helper()
	defer func() { require.NoError(t, p.Close()) }()

	s, err := p.Read()
	require.NoError(t, err)
	assert.Nil(t, s)

	require.NoError(t, p.Write(sampleState()))
	s, err = p.Read()
	require.NoError(t, err)
	assertSameState(t, sampleState(), s)

	require.NoError(t, p.Write(State{}))
	s, err = p.Read()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Nil(t, s.Value)
	assert.Empty(t, s.Favorites)
}

func TestProviders(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		exerciseProvider(t, NewMemoryProvider())
	})
	t.Run("file", func(t *testing.T) {
		exerciseProvider(t, NewFileProvider(filepath.Join(t.TempDir(), "nested", "state.yaml"), DefaultKey))
	})
	t.Run("sqlite", func(t *testing.T) {
		p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "state.db"), DefaultKey)
		require.NoError(t, err)
		exerciseProvider(t, p)
	})
	t.Run("bolt", func(t *testing.T) {
		p, err := NewBoltProvider(filepath.Join(t.TempDir(), "state.bolt"), DefaultKey)
		require.NoError(t, err)
		exerciseProvider(t, p)
	})
}

func TestSQLiteProviderReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	p, err := NewSQLiteProvider(path, "grid")
	require.NoError(t, err)
	require.NoError(t, p.Write(sampleState()))
	require.NoError(t, p.Close())

	p, err = NewSQLiteProvider(path, "grid")
	require.NoError(t, err)
	defer p.Close()
	s, err := p.Read()
	require.NoError(t, err)
	assertSameState(t, sampleState(), s)
}

func TestFileProviderReplacesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	p := NewFileProvider(path, DefaultKey)

	require.NoError(t, p.Write(sampleState()))
	require.NoError(t, p.Write(State{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.yaml", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestFileProviderKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	a := NewFileProvider(path, "a")
	b := NewFileProvider(path, "b")

	require.NoError(t, a.Write(sampleState()))
	require.NoError(t, b.Write(State{Favorites: []models.FilterData{{Field: "x", Op: "=", Value: "y"}}}))

	s, err := a.Read()
	require.NoError(t, err)
	assertSameState(t, sampleState(), s)

	s, err = b.Read()
	require.NoError(t, err)
	require.Len(t, s.Favorites, 1)
	assert.Equal(t, "x", s.Favorites[0].Field)
}

func TestFileProviderCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, os.WriteFile(path, []byte("filterChooser: [not, a, state"), 0644))

	_, err := NewFileProvider(path, DefaultKey).Read()
	assert.Error(t, err)
}

func TestCodec(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)
	defer c.Close()

	blob, err := c.Encode(sampleState())
	require.NoError(t, err)
	s, err := c.Decode(blob)
	require.NoError(t, err)
	assertSameState(t, sampleState(), s)
	assert.Equal(t, int64(5), s.Value.Filters[1].Value)

	_, err = c.Decode(nil)
	assert.Error(t, err)
	_, err = c.Decode([]byte("garbage"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	p, err := Open(Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = Open(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryProvider{}, p)

	p, err = Open(Config{Dir: dir})
	require.NoError(t, err)
	require.IsType(t, &FileProvider{}, p)
	assert.Equal(t, filepath.Join(dir, "state.yaml"), p.(*FileProvider).Path())

	p, err = Open(Config{Backend: "BOLT", Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &BoltProvider{}, p)
	require.NoError(t, p.Close())

	_, err = Open(Config{Backend: BackendSQLite})
	assert.Error(t, err)

	_, err = Open(Config{Backend: "redis", Dir: dir})
	assert.Error(t, err)
}
