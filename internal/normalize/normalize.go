// Package normalize turns raw product rows, whatever their column spelling,
// into canonical model.Product records. Nothing here returns an error: a value
// that cannot be read becomes nil.
package normalize

import (
	"strings"

	"tvcatalog/internal/model"
)

// Column aliases per canonical field, highest priority first.
var (
	idColumns       = []string{"rowid", "id"}
	nameColumns     = []string{"name", "product-title"}
	priceColumns    = []string{"price", "amount", "amount 2"}
	imageColumns    = []string{"plp_product_tile src", "plp_product_tile_src", "plp_product_tile"}
	deliveryColumns = []string{"delivery-pincode-text", "delivery_pincode_text"}

	ratingTextColumns    = []string{"rating-text", "rating_text"}
	ratingDisplayColumns = []string{"rating-text", "rating_text", "rating-text-icon", "cp-rating href"}
)

// ratingStrategies are tried in order; the first non-nil rating wins.
var ratingStrategies = []func(model.RawRow) *float64{
	func(row model.RawRow) *float64 { return Number(first(row, "rating")) },
	func(row model.RawRow) *float64 { return RatingFromText(first(row, ratingDisplayColumns...)) },
}

// Product builds the canonical record for row.
func Product(row model.RawRow) model.Product {
	p := model.Product{
		ID:          Text(first(row, idColumns...)),
		ProductURL:  Text(first(row, "product_url")),
		Name:        Text(first(row, nameColumns...)),
		Price:       Price(first(row, priceColumns...)),
		CatalogRank: Int(first(row, "catalog_rank")),

		IsSmartTV: Bool(row["is_smart_tv"]),
		Is4K:      Bool(row["is_4k"]),
		PanelLED:  Bool(row["panel_led"]),
		PanelQLED: Bool(row["panel_qled"]),
		PanelOLED: Bool(row["panel_oled"]),
		InStock:   Bool(row["in_stock"]),

		RatingTextRaw: Text(first(row, ratingTextColumns...)),

		ImageURL:            Text(first(row, imageColumns...)),
		Brand:               Text(first(row, "brand")),
		Discount:            Text(first(row, "discount")),
		DeliveryPincodeText: Text(first(row, deliveryColumns...)),
	}
	for _, strategy := range ratingStrategies {
		if r := strategy(row); r != nil {
			p.Rating = r
			break
		}
	}
	return p
}

// first returns the value of the first listed column that holds something
// other than NULL or blank text.
func first(row model.RawRow, columns ...string) any {
	for _, c := range columns {
		v, ok := row[c]
		if !ok || v == nil {
			continue
		}
		if s, isText := asString(v); isText && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}
