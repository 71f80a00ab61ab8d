package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// SchemaIntrospector reads the live table layout from
// information_schema, scoped to the public schema and excluding the
// pipeline's own bookkeeping tables.
type SchemaIntrospector struct {
	db       *sql.DB
	excluded map[string]bool
}

func NewSchemaIntrospector(db *sql.DB, excludedTables ...string) *SchemaIntrospector {
	excluded := make(map[string]bool, len(excludedTables))
	for _, t := range excludedTables {
		excluded[t] = true
	}
	return &SchemaIntrospector{db: db, excluded: excluded}
}

func (s *SchemaIntrospector) Describe(ctx context.Context) (domain.SchemaDescription, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position
`)
	if err != nil {
		return domain.SchemaDescription{}, fmt.Errorf("query information_schema: %w", err)
	}
	defer rows.Close()

	var schema domain.SchemaDescription
	index := make(map[string]int)

	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return domain.SchemaDescription{}, fmt.Errorf("scan schema row: %w", err)
		}
		if s.excluded[tableName] {
			continue
		}
		i, ok := index[tableName]
		if !ok {
			i = len(schema.Tables)
			index[tableName] = i
			schema.Tables = append(schema.Tables, domain.TableSchema{Name: tableName})
		}
		schema.Tables[i].Columns = append(schema.Tables[i].Columns, domain.ColumnSchema{
			Name: columnName,
			Type: dataType,
		})
	}
	if err := rows.Err(); err != nil {
		return domain.SchemaDescription{}, fmt.Errorf("iterate schema rows: %w", err)
	}
	return schema, nil
}
