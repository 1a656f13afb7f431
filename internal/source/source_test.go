package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rebelice/lazyfilter/internal/models"
)

var ff = models.MustFieldFilter

func and(filters ...models.Filter) *models.CompoundFilter {
	return models.MustCompoundFilter(models.OpAnd, "", filters...)
}

var testFields = []models.FieldInfo{
	{Name: "name", Type: models.TypeString},
	{Name: "qty", Type: models.TypeInt},
	{Name: "status", Type: models.TypeString},
	{Name: "tags", Type: models.TypeTags},
}

func testRows() []models.Record {
	return []models.Record{
		{"name": "Apple", "qty": 10, "status": "A", "tags": "red,fruit"},
		{"name": "Banana", "qty": 3, "status": "B", "tags": []string{"yellow", "fruit"}},
		{"name": "Carrot", "qty": 7, "status": "A", "tags": "orange"},
		{"name": "Durian", "qty": nil, "status": "", "tags": nil},
	}
}

func names(rows []models.Record) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestMatch(t *testing.T) {
	rows := testRows()
	cases := map[string]struct {
		filter models.Filter
		want   []string
	}{
		"nil":          {filter: nil, want: []string{"Apple", "Banana", "Carrot", "Durian"}},
		"equal":        {filter: ff("status", models.OpEqual, "A"), want: []string{"Apple", "Carrot"}},
		"blank equal":  {filter: ff("status", models.OpEqual, nil), want: []string{"Durian"}},
		"greater":      {filter: ff("qty", models.OpGreaterThan, 5), want: []string{"Apple", "Carrot"}},
		"like":         {filter: ff("name", models.OpLike, "AN"), want: []string{"Banana", "Durian"}},
		"begins":       {filter: ff("name", models.OpBegins, "c"), want: []string{"Carrot"}},
		"ends":         {filter: ff("name", models.OpEnds, "E"), want: []string{"Apple"}},
		"not like":     {filter: ff("name", models.OpNotLike, "a"), want: []string{}},
		"in":           {filter: ff("status", models.OpIn, []any{"B", nil}), want: []string{"Banana", "Durian"}},
		"not in":       {filter: ff("status", models.OpNotIn, "A"), want: []string{"Banana", "Durian"}},
		"includes":     {filter: ff("tags", models.OpIncludes, "fruit"), want: []string{"Apple", "Banana"}},
		"excludes":     {filter: ff("tags", models.OpExcludes, []any{"fruit", "orange"}), want: []string{"Durian"}},
		"and":          {filter: and(ff("status", models.OpEqual, "A"), ff("qty", models.OpLessThan, 8)), want: []string{"Carrot"}},
		"or":           {filter: models.MustCompoundFilter(models.OpOr, "", ff("qty", models.OpEqual, 3), ff("name", models.OpEqual, "Apple")), want: []string{"Apple", "Banana"}},
		"function":     {filter: &models.FunctionFilter{Key: "even", Test: func(r models.Record) bool { return r["qty"] == 10 }}, want: []string{"Apple"}},
		"float vs int": {filter: ff("qty", models.OpEqual, 7.0), want: []string{"Carrot"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var got []models.Record
			for _, r := range rows {
				if Match(tc.filter, r, ",") {
					got = append(got, r)
				}
			}
			assert.Equal(t, tc.want, names(got))
		})
	}
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySource(testFields, testRows())
	assert.Equal(t, []string{"name", "qty", "status", "tags"}, s.FieldNames())

	var seen []models.Filter
	unsubscribe := s.Subscribe(func(f models.Filter) { seen = append(seen, f) })

	f := ff("status", models.OpEqual, "A")
	require.NoError(t, s.SetFilter(ctx, f))
	require.NoError(t, s.SetFilter(ctx, ff("status", models.OpEqual, "A")))
	assert.Len(t, seen, 1)
	assert.Same(t, f, s.Filter())

	rows, err := s.Rows(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Carrot"}, names(rows))

	rows, err = s.Rows(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple"}, names(rows))

	unsubscribe()
	require.NoError(t, s.SetFilter(ctx, nil))
	assert.Len(t, seen, 1)
}

func TestMemorySourceDistinctValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySource(testFields, testRows())

	values, err := s.DistinctValues(ctx, "qty")
	require.NoError(t, err)
	assert.Equal(t, []any{3, 7, 10}, values)

	values, err = s.DistinctValues(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []any{"fruit", "orange", "red", "yellow"}, values)

	values, err = s.DistinctValues(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, []any{"", "A", "B"}, values)

	_, err = s.DistinctValues(ctx, "ghost")
	assert.Error(t, err)
}

func TestNotifierOrder(t *testing.T) {
	var n Notifier
	var got []int
	n.Subscribe(func(models.Filter) { got = append(got, 1) })
	n.Subscribe(func(models.Filter) { got = append(got, 2) })
	n.Notify(nil)
	assert.Equal(t, []int{1, 2}, got)
}
