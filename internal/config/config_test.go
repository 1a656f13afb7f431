package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: catppuccin\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	want := GetDefaults()
	want.UI.Theme = "catppuccin"
	assert.Equal(t, want, cfg)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chooser:
  max_tags: 5
  persist_favorites: false
persist:
  backend: bolt
source:
  driver: postgres
  table: public.orders
  fields: [status, total]
log:
  level: debug
`), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Chooser.MaxTags)
	assert.False(t, cfg.Chooser.PersistFavorites)
	assert.True(t, cfg.Chooser.PersistValue)
	assert.Equal(t, "bolt", cfg.Persist.Backend)
	assert.Equal(t, "filterChooser", cfg.Persist.Key)
	assert.Equal(t, "postgres", cfg.Source.Driver)
	assert.Equal(t, "public.orders", cfg.Source.Table)
	assert.Equal(t, []string{"status", "total"}, cfg.Source.Fields)
	assert.Equal(t, 256, cfg.Source.ValueCacheSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestResolvePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.db")
	got, err := ResolvePath(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	got, err = ResolvePath("")
	require.NoError(t, err)
	assert.Empty(t, got)
}
