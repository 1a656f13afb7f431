package metadata

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/db/connection"
	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/models"
)

// Querier runs a query and returns rows keyed by column name
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

var _ Querier = (*connection.Pool)(nil)

// GetTableColumns retrieves the filterable fields of a table
func GetTableColumns(ctx context.Context, q Querier, schema, table string) ([]models.FieldInfo, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			is_nullable = 'YES' AS nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := q.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s.%s has no columns or does not exist", schema, table)
	}

	columns := make([]models.FieldInfo, 0, len(rows))
	for _, row := range rows {
		dataType := cast.ToString(row["data_type"])
		if udt := cast.ToString(row["udt_name"]); udt == "jsonb" || udt == "json" {
			dataType = udt
		}

		columns = append(columns, models.FieldInfo{
			Name:     cast.ToString(row["column_name"]),
			DataType: dataType,
			Type:     fieldspec.ValueTypeFromDataType(dataType),
			Nullable: cast.ToBool(row["nullable"]),
		})
	}

	return columns, nil
}
