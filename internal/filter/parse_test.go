package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rebelice/lazyfilter/internal/models"
)

func TestParse(t *testing.T) {
	leaf := ff("a", models.OpEqual, 1)

	cases := map[string]struct {
		input any
		want  models.Filter
	}{
		"nil":            {input: nil, want: nil},
		"typed nil":      {input: (*models.FieldFilter)(nil), want: nil},
		"filter":         {input: leaf, want: leaf},
		"empty string":   {input: "  ", want: nil},
		"leaf json":      {input: `{"field":"a","op":"=","value":1}`, want: leaf},
		"operator case":  {input: `{"field":"s","op":"NOT IN","value":"x"}`, want: ff("s", models.OpNotIn, "x")},
		"array as and":   {input: `[{"field":"a","op":"=","value":1},{"field":"b","op":"=","value":2}]`, want: and(leaf, ff("b", models.OpEqual, 2))},
		"single in list": {input: []any{map[string]any{"field": "a", "op": "=", "value": 1}}, want: leaf},
		"compound": {
			input: `{"op":"or","field":"b","filters":[{"field":"b","op":"=","value":1},{"field":"b","op":"=","value":2}]}`,
			want:  orField("b", ff("b", models.OpEqual, 1), ff("b", models.OpEqual, 2)),
		},
		"empty compound": {input: `{"op":"AND","filters":[]}`, want: nil},
		"filter data": {
			input: models.FilterData{Op: "AND", Filters: []models.FilterData{{Field: "a", Op: "=", Value: 1}}},
			want:  leaf,
		},
		"filter slice": {input: []models.Filter{leaf, nil}, want: leaf},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := Parse(tc.input)
			require.NoError(t, err)
			assert.True(t, models.Equal(tc.want, got), "want %v, got %v", tc.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	inputs := map[string]any{
		"bad json":          `{"field":`,
		"unknown op":        `{"field":"a","op":"~","value":1}`,
		"scalar op list":    `{"field":"a","op":"=","value":[1,2]}`,
		"missing field":     `{"op":"=","value":1}`,
		"mixed tagged":      `{"op":"OR","field":"a","filters":[{"field":"b","op":"=","value":1}]}`,
		"unsupported type":  42,
		"json scalar":       `"text"`,
		"non-string op":     map[string]any{"field": "a", "op": 3.5, "value": 1},
		"bad child in list": []any{"nope"},
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(input)
			assert.ErrorIs(t, err, models.ErrUnsupported)
		})
	}
}

func TestParseRoundTripThroughData(t *testing.T) {
	original := and(
		ff("s", models.OpIn, []any{"A", "B"}),
		orField("n", ff("n", models.OpLessThan, 1), ff("n", models.OpGreaterThan, 9)),
	)
	data, err := models.ToData(original)
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		got, err := Parse(b)
		require.NoError(t, err)
		assert.True(t, models.Equal(original, got))
	})

	t.Run("yaml", func(t *testing.T) {
		b, err := yaml.Marshal(data)
		require.NoError(t, err)
		var decoded models.FilterData
		require.NoError(t, yaml.Unmarshal(b, &decoded))
		got, err := Parse(decoded)
		require.NoError(t, err)
		assert.True(t, models.Equal(original, got))
	})
}
