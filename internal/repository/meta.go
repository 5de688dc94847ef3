package repository

import (
	"context"
	"fmt"
	"time"

	"tvcatalog/internal/model"
	"tvcatalog/internal/normalize"
	"tvcatalog/internal/query"
)

var panelTypes = []struct {
	criterion string
	label     string
	column    string
}{
	{"led", "LED", "panel_led"},
	{"qled", "QLED", "panel_qled"},
	{"oled", "OLED", "panel_oled"},
}

const topRatedLimit = 5

// Brands lists brands by number of products, most common first. A table
// without a brand column has no brands.
func (r *ProductRepository) Brands(ctx context.Context, limit int) (out []model.BrandCount, err error) {
	start := time.Now()
	defer func() { r.Metrics.ObserveQuery("brands", start, err) }()

	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	schema, err := Introspect(ctx, conn, r.Dialect, r.Table)
	if err != nil {
		return nil, err
	}
	out = []model.BrandCount{}
	if !schema.Has("brand") {
		return out, nil
	}

	stmt, args, err := r.builder().
		Select("brand", "COUNT(*) AS cnt").
		From(r.table()).
		GroupBy("brand").
		OrderBy("cnt DESC").
		Suffix("LIMIT ?", limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("repository: build brands: %w", err)
	}
	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: brands: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var brand any
		var count int
		if err := rows.Scan(&brand, &count); err != nil {
			return nil, fmt.Errorf("repository: scan brands: %w", err)
		}
		out = append(out, model.BrandCount{Brand: normalize.Text(brand), Count: count})
	}
	return out, rows.Err()
}

// Panels counts products flagged with each panel type the table knows.
func (r *ProductRepository) Panels(ctx context.Context) (out []model.PanelCount, err error) {
	start := time.Now()
	defer func() { r.Metrics.ObserveQuery("panels", start, err) }()

	conn, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	schema, err := Introspect(ctx, conn, r.Dialect, r.Table)
	if err != nil {
		return nil, err
	}

	out = []model.PanelCount{}
	for _, p := range panelTypes {
		if !schema.Has(p.column) {
			continue
		}
		filter := query.BuildFilter(model.Criteria{Panel: p.criterion}, schema)
		stmt, args, err := filter.Apply(r.builder().Select("COUNT(*)").From(r.table())).ToSql()
		if err != nil {
			return nil, fmt.Errorf("repository: build panels: %w", err)
		}
		var count int
		if err := conn.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
			return nil, fmt.Errorf("repository: panels: %w", err)
		}
		out = append(out, model.PanelCount{Type: p.label, Count: count})
	}
	return out, nil
}

// Stats summarises the catalog, optionally for one brand: product count,
// average price and the best rated products when those columns exist.
func (r *ProductRepository) Stats(ctx context.Context, brand string) (st model.Stats, err error) {
	start := time.Now()
	defer func() { r.Metrics.ObserveQuery("stats", start, err) }()

	conn, err := r.conn(ctx)
	if err != nil {
		return model.Stats{}, err
	}
	defer conn.Close()

	schema, err := Introspect(ctx, conn, r.Dialect, r.Table)
	if err != nil {
		return model.Stats{}, err
	}
	filter := query.BuildFilter(model.Criteria{Brand: brand}, schema)
	st.TopByRating = []model.RatedProduct{}

	stmt, args, err := filter.Apply(r.builder().Select("COUNT(*)").From(r.table())).ToSql()
	if err != nil {
		return model.Stats{}, fmt.Errorf("repository: build stats count: %w", err)
	}
	if err := conn.QueryRowContext(ctx, stmt, args...).Scan(&st.Count); err != nil {
		return model.Stats{}, fmt.Errorf("repository: stats count: %w", err)
	}

	if schema.Has("price") {
		stmt, args, err := filter.Apply(r.builder().Select("AVG(price)").From(r.table())).ToSql()
		if err != nil {
			return model.Stats{}, fmt.Errorf("repository: build stats price: %w", err)
		}
		var avg any
		if err := conn.QueryRowContext(ctx, stmt, args...).Scan(&avg); err != nil {
			return model.Stats{}, fmt.Errorf("repository: stats price: %w", err)
		}
		st.AvgPrice = normalize.Number(avg)
	}

	if schema.Has("rating") {
		order := query.Order{Column: "rating", Desc: true}
		stmt, args, err := filter.Apply(r.selectRows()).
			OrderBy(order.String()).
			Suffix("LIMIT ?", topRatedLimit).
			ToSql()
		if err != nil {
			return model.Stats{}, fmt.Errorf("repository: build stats rating: %w", err)
		}
		rows, err := conn.QueryContext(ctx, stmt, args...)
		if err != nil {
			return model.Stats{}, fmt.Errorf("repository: stats rating: %w", err)
		}
		raw, err := scanRows(rows)
		if err != nil {
			return model.Stats{}, fmt.Errorf("repository: scan stats rating: %w", err)
		}
		for _, p := range normalizeRows(raw) {
			st.TopByRating = append(st.TopByRating, model.RatedProduct{Name: p.Name, Price: p.Price, Rating: p.Rating})
		}
	}
	return st, nil
}
