package query

import "strings"

// Order is a resolved ORDER BY. The zero value means no ordering.
type Order struct {
	Column string
	Desc   bool
}

var sortColumns = map[string]string{
	"price":  "price",
	"rank":   "catalog_rank",
	"rating": "rating",
	"name":   "name",
}

// fallbackSort is used, ascending, when the requested key is unknown or its
// column is missing.
var fallbackSort = []string{"catalog_rank", "price"}

// ResolveSort maps a requested sort key and direction onto s. Any direction
// other than "desc" sorts ascending.
func ResolveSort(key, dir string, s Schema) Order {
	col, ok := sortColumns[strings.ToLower(strings.TrimSpace(key))]
	if !ok || !s.Has(col) {
		for _, fb := range fallbackSort {
			if s.Has(fb) {
				return Order{Column: fb}
			}
		}
		return Order{}
	}
	return Order{Column: col, Desc: strings.EqualFold(strings.TrimSpace(dir), "desc")}
}

func (o Order) None() bool {
	return o.Column == ""
}

// String renders the ORDER BY term, e.g. "price DESC NULLS LAST". Rows
// with unknown values sort last in both directions on every store.
func (o Order) String() string {
	if o.None() {
		return ""
	}
	if o.Desc {
		return o.Column + " DESC NULLS LAST"
	}
	return o.Column + " ASC NULLS LAST"
}
