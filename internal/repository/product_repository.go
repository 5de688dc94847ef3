package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tvcatalog/internal/db"
	"tvcatalog/internal/model"
	"tvcatalog/internal/normalize"
	"tvcatalog/internal/observability"
	"tvcatalog/internal/query"
)

const (
	defaultPageSize = 24
	maxPageSize     = 200
)

// ListRequest is one catalog page request as parsed by the transport.
type ListRequest struct {
	Criteria model.Criteria
	SortBy   string
	SortDir  string
	Page     int
	PageSize int
}

// ProductRepository serves read-only queries over the products table,
// adapting every statement to the columns the table has right now.
type ProductRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
	Table   string

	DefaultPageSize int
	MaxPageSize     int

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// List returns one page of normalized products matching req.
func (r *ProductRepository) List(ctx context.Context, req ListRequest) (page model.Page, err error) {
	start := time.Now()
	defer func() { r.Metrics.ObserveQuery("list", start, err) }()

	conn, err := r.conn(ctx)
	if err != nil {
		return model.Page{}, err
	}
	defer conn.Close()

	schema, err := Introspect(ctx, conn, r.Dialect, r.Table)
	if err != nil {
		return model.Page{}, err
	}

	filter := query.BuildFilter(req.Criteria, schema)
	if len(filter.Dropped) > 0 {
		r.log().Debug("ignoring filters", slog.Any("criteria", filter.Dropped))
		r.Metrics.DroppedCriteria(filter.Dropped)
	}
	order := query.ResolveSort(req.SortBy, req.SortDir, schema)
	pageNum, size := r.bounds(req.Page, req.PageSize)

	// count and page must see the same rows
	tx, err := conn.BeginTx(ctx, r.Dialect.SnapshotTx)
	if err != nil {
		return model.Page{}, fmt.Errorf("%w: begin: %w", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	countSQL, countArgs, err := filter.Apply(r.builder().Select("COUNT(*)").From(r.table())).ToSql()
	if err != nil {
		return model.Page{}, fmt.Errorf("repository: build count: %w", err)
	}
	var total int
	if err := tx.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return model.Page{}, fmt.Errorf("repository: count: %w", err)
	}

	// pages past the end are empty; checked before multiplying so huge page
	// numbers cannot overflow the offset
	if pageNum-1 > total/size || (pageNum-1)*size >= total {
		return model.Page{Total: total, Page: pageNum, PageSize: size, Items: []model.Product{}}, nil
	}
	offset := (pageNum - 1) * size

	sel := filter.Apply(r.selectRows())
	if !order.None() {
		sel = sel.OrderBy(order.String())
	}
	pageSQL, pageArgs, err := sel.Suffix("LIMIT ? OFFSET ?", size, offset).ToSql()
	if err != nil {
		return model.Page{}, fmt.Errorf("repository: build page: %w", err)
	}
	rows, err := tx.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return model.Page{}, fmt.Errorf("repository: page: %w", err)
	}
	raw, err := scanRows(rows)
	if err != nil {
		return model.Page{}, fmt.Errorf("repository: scan page: %w", err)
	}

	return model.Page{
		Total:    total,
		Page:     pageNum,
		PageSize: size,
		Items:    normalizeRows(raw),
	}, nil
}

// FindByURL looks a product up by its product_url: exact match first, then
// the first row whose product_url contains value.
func (r *ProductRepository) FindByURL(ctx context.Context, value string) (p model.Product, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			r.Metrics.ObserveQuery("lookup", start, nil)
			return
		}
		r.Metrics.ObserveQuery("lookup", start, err)
	}()

	if value == "" {
		return model.Product{}, ErrNotFound
	}

	conn, err := r.conn(ctx)
	if err != nil {
		return model.Product{}, err
	}
	defer conn.Close()

	schema, err := Introspect(ctx, conn, r.Dialect, r.Table)
	if err != nil {
		return model.Product{}, err
	}
	if !schema.Has("product_url") {
		return model.Product{}, ErrNotFound
	}

	order := query.ResolveSort("", "", schema)
	for _, pred := range []sq.Sqlizer{
		sq.Eq{"product_url": value},
		query.Contains("product_url", value),
	} {
		sel := r.selectRows().Where(pred)
		if !order.None() {
			sel = sel.OrderBy(order.String())
		}
		stmt, args, err := sel.Suffix("LIMIT 1").ToSql()
		if err != nil {
			return model.Product{}, fmt.Errorf("repository: build lookup: %w", err)
		}
		rows, err := conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return model.Product{}, fmt.Errorf("repository: lookup: %w", err)
		}
		raw, err := scanRows(rows)
		if err != nil {
			return model.Product{}, fmt.Errorf("repository: scan lookup: %w", err)
		}
		if len(raw) > 0 {
			return normalize.Product(raw[0]), nil
		}
	}
	return model.Product{}, ErrNotFound
}

// Ping reports whether the store can hand out a connection.
func (r *ProductRepository) Ping(ctx context.Context) error {
	if err := r.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// conn takes a dedicated connection for one request. Callers must Close it.
func (r *ProductRepository) conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return conn, nil
}

func (r *ProductRepository) bounds(page, size int) (int, int) {
	def, limit := r.DefaultPageSize, r.MaxPageSize
	if limit <= 0 {
		limit = maxPageSize
	}
	if def <= 0 {
		def = defaultPageSize
	}
	if def > limit {
		def = limit
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = def
	}
	if size > limit {
		size = limit
	}
	return page, size
}

func (r *ProductRepository) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(r.Dialect.Placeholder)
}

// selectRows selects whole rows; on sqlite the implicit rowid is added so
// rows without an id column still get one.
func (r *ProductRepository) selectRows() sq.SelectBuilder {
	cols := []string{"*"}
	if r.Dialect.Name == db.SQLite.Name {
		cols = []string{"rowid AS rowid", "*"}
	}
	return r.builder().Select(cols...).From(r.table())
}

func (r *ProductRepository) table() string {
	return db.QuoteIdent(r.Table)
}

func (r *ProductRepository) log() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
