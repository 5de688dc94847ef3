package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open opens the catalog store with the given driver ("pgx", "postgres" or
// "sqlite") and verifies it is reachable.
func Open(ctx context.Context, driver, url string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	if dialect.Name == "sqlite" {
		// sqlite would silently create a new empty file
		path := strings.TrimPrefix(strings.SplitN(url, "?", 2)[0], "file:")
		if _, err := os.Stat(path); err != nil {
			return nil, Dialect{}, fmt.Errorf("db: database not found: %s: %w", path, err)
		}
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("db: open %s: %w", driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, Dialect{}, fmt.Errorf("db: ping %s: %w", driver, err)
	}
	return conn, dialect, nil
}
