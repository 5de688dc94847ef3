package db

import (
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect carries the SQL differences between the supported stores.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	// ColumnsQuery returns (name, declared type) for every column of the
	// table bound to its single parameter.
	ColumnsQuery string
	// SnapshotTx are the options for the read-only transaction that keeps
	// count and page queries on the same data.
	SnapshotTx *sql.TxOptions
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		Placeholder: sq.Dollar,
		ColumnsQuery: `SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1
			ORDER BY ordinal_position`,
		SnapshotTx: &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
	}

	SQLite = Dialect{
		Name:         "sqlite",
		Placeholder:  sq.Question,
		ColumnsQuery: `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`,
		// a deferred sqlite transaction already reads from one snapshot
		SnapshotTx: nil,
	}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "pgx", "postgres":
		return Postgres, nil
	case "sqlite":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("db: unsupported driver %q", driver)
}

// QuoteIdent quotes a table or column name for both postgres and sqlite.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
