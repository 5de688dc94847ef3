package repository

import (
	"database/sql"

	"tvcatalog/internal/model"
	"tvcatalog/internal/normalize"
)

// scanRows reads every row into a column-keyed map, whatever the columns
// are, and closes rows.
func scanRows(rows *sql.Rows) ([]model.RawRow, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []model.RawRow
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(model.RawRow, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func normalizeRows(raw []model.RawRow) []model.Product {
	items := make([]model.Product, 0, len(raw))
	for _, r := range raw {
		items = append(items, normalize.Product(r))
	}
	return items
}
