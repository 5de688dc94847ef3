package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tvcatalog/internal/db"
	"tvcatalog/internal/query"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Introspect reads the columns currently defined on table. It is not
// cached: the table may change between deployments.
func Introspect(ctx context.Context, q Querier, d db.Dialect, table string) (query.Schema, error) {
	rows, err := q.QueryContext(ctx, d.ColumnsQuery, table)
	if err != nil {
		return query.Schema{}, fmt.Errorf("%w: %s: %w", ErrSchemaUnavailable, table, err)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var name string
		var typ sql.NullString
		if err := rows.Scan(&name, &typ); err != nil {
			return query.Schema{}, fmt.Errorf("%w: %s: %w", ErrSchemaUnavailable, table, err)
		}
		columns[name] = typ.String
	}
	if err := rows.Err(); err != nil {
		return query.Schema{}, fmt.Errorf("%w: %s: %w", ErrSchemaUnavailable, table, err)
	}
	if len(columns) == 0 {
		return query.Schema{}, fmt.Errorf("%w: table %s not found", ErrSchemaUnavailable, table)
	}
	return query.NewSchema(columns), nil
}
