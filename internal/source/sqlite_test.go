package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyfilter/internal/models"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE products (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			price REAL,
			tags TEXT[]
		);
		INSERT INTO products (name, price, tags) VALUES
			('Apple', 1.5, 'red,fruit'),
			('Banana', 0.5, 'yellow,fruit'),
			('Carrot', 0.2, 'orange'),
			('Durian', NULL, NULL);
	`)
	require.NoError(t, err)
	return path
}

func TestSQLSource(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, newTestDB(t), "products")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []string{"id", "name", "price", "tags"}, s.FieldNames())
	fields := s.Fields()
	assert.Equal(t, models.TypeInt, fields[0].Type)
	assert.False(t, fields[1].Nullable)
	assert.Equal(t, models.TypeNumber, fields[2].Type)
	assert.Equal(t, models.TypeTags, fields[3].Type)

	values, err := s.DistinctValues(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"Apple", "Banana", "Carrot", "Durian"}, values)

	values, err = s.DistinctValues(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"fruit", "orange", "red", "yellow"}, values)

	notified := 0
	s.Subscribe(func(models.Filter) { notified++ })

	require.NoError(t, s.SetFilter(ctx, and(
		ff("tags", models.OpIncludes, "fruit"),
		ff("price", models.OpGreaterThan, 1),
	)))
	assert.Equal(t, 1, notified)

	rows, err := s.Rows(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple"}, names(rows))

	require.NoError(t, s.SetFilter(ctx, and(
		&models.FunctionFilter{Key: "short", Test: func(r models.Record) bool { return len(r["name"].(string)) == 6 }},
		ff("name", models.OpNotIn, "Apple"),
	)))
	rows, err = s.Rows(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana", "Carrot", "Durian"}, names(rows))

	rows, err = s.Rows(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Banana", "Carrot"}, names(rows))
}

func TestSQLSourceMissingTable(t *testing.T) {
	_, err := OpenSQLite(context.Background(), newTestDB(t), "ghost")
	assert.Error(t, err)
}

func TestSQLSourceRejectsNestedFunction(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, newTestDB(t), "products")
	require.NoError(t, err)
	defer s.Close()

	err = s.SetFilter(ctx, models.MustCompoundFilter(models.OpOr, "",
		&models.FunctionFilter{Key: "fn"},
		ff("name", models.OpEqual, "Apple"),
	))
	assert.ErrorIs(t, err, models.ErrUnsupported)
	assert.Nil(t, s.Filter())
}
