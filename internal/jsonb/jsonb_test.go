package jsonb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompact(t *testing.T) {
	s, err := Compact("{\n  \"a\": 1,\n  \"b\": [1, 2]\n}")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":[1,2]}`, s)

	s, err = Compact([]byte(`[ true , null ]`))
	require.NoError(t, err)
	assert.Equal(t, `[true,null]`, s)

	s, err = Compact(map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, s)

	s, err = Compact(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", s)

	_, err = Compact("{not json")
	assert.Error(t, err)
}

func TestIsJSON(t *testing.T) {
	assert.True(t, IsJSON(` {"a": 1}`))
	assert.True(t, IsJSON(`[]`))
	assert.False(t, IsJSON(`42`))
	assert.False(t, IsJSON(`{broken`))
	assert.False(t, IsJSON(""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, `{"a":1}`, Truncate(`{"a":1}`, 20))

	long := `{"alpha":"one","beta":"two","gamma":"three"}`
	out := Truncate(long, 24)
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len([]rune(out)), 24)
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(out, "...")))
}
