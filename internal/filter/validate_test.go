package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rebelice/lazyfilter/internal/models"
)

type fieldTable map[string][]models.FilterOperator

func (t fieldTable) Lookup(field string) ([]models.FilterOperator, bool) {
	ops, ok := t[field]
	return ops, ok
}

func TestCheck(t *testing.T) {
	fields := fieldTable{
		"name":   {models.OpEqual, models.OpLike},
		"status": {models.OpIn, models.OpNotIn},
		"any":    nil,
	}

	assert.NoError(t, Check(nil, fields))
	assert.NoError(t, Check(ff("name", models.OpLike, "x"), fields))
	assert.NoError(t, Check(ff("any", models.OpGreaterThan, 1), fields))
	assert.NoError(t, Check(and(ff("name", models.OpEqual, "x"), ff("status", models.OpIn, "A")), fields))

	assert.ErrorIs(t, Check(ff("ghost", models.OpEqual, 1), fields), models.ErrInvalidField)
	assert.ErrorIs(t, Check(and(ff("name", models.OpEqual, "x"), ff("ghost", models.OpEqual, 1)), fields), models.ErrInvalidField)
	assert.ErrorIs(t, Check(ff("name", models.OpGreaterThan, "x"), fields), models.ErrUnsupported)
	assert.ErrorIs(t, Check(&models.FunctionFilter{Key: "fn"}, fields), models.ErrUnsupported)

	assert.False(t, Validate(ff("ghost", models.OpEqual, 1), fields))
	assert.True(t, Validate(ff("name", models.OpEqual, "x"), fields))
}
