package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tvcatalog/internal/model"
	"tvcatalog/internal/repository"
)

// Header is the CSV column order.
var Header = []string{
	"id", "name", "product_url", "price", "catalog_rank",
	"is_smart_tv", "is_4k", "panel_led", "panel_qled", "panel_oled", "rating",
}

type Lister interface {
	List(ctx context.Context, req repository.ListRequest) (model.Page, error)
}

// Collect pages through the catalog until limit products are read or the
// catalog runs out.
func Collect(ctx context.Context, l Lister, limit, pageSize int, sortBy, sortDir string) ([]model.Product, error) {
	if limit < 0 {
		limit = 0
	}
	out := make([]model.Product, 0, limit)
	for page := 1; len(out) < limit; page++ {
		p, err := l.List(ctx, repository.ListRequest{
			SortBy:   sortBy,
			SortDir:  sortDir,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("export: page %d: %w", page, err)
		}
		for _, item := range p.Items {
			if len(out) == limit {
				break
			}
			out = append(out, item)
		}
		if len(p.Items) == 0 || page*p.PageSize >= p.Total {
			break
		}
	}
	return out, nil
}

// WriteCSV writes products as CSV with a header row. Unknown values are
// empty cells.
func WriteCSV(w io.Writer, products []model.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range products {
		record := []string{
			str(p.ID), str(p.Name), str(p.ProductURL), float(p.Price), integer(p.CatalogRank),
			boolean(p.IsSmartTV), boolean(p.Is4K), boolean(p.PanelLED), boolean(p.PanelQLED), boolean(p.PanelOLED),
			float(p.Rating),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func float(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func integer(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}

func boolean(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "1"
	}
	return "0"
}
