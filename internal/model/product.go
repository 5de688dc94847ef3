package model

// RawRow is one row of the products table keyed by its column names as they
// exist in the store, legacy spellings included.
type RawRow map[string]any

// Product is the canonical record returned to callers. Nil means the value
// is unknown for that row.
type Product struct {
	ID          *string  `json:"id"`
	ProductURL  *string  `json:"product_url"`
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	CatalogRank *int64   `json:"catalog_rank"`

	IsSmartTV *bool `json:"is_smart_tv"`
	Is4K      *bool `json:"is_4k"`
	PanelLED  *bool `json:"panel_led"`
	PanelQLED *bool `json:"panel_qled"`
	PanelOLED *bool `json:"panel_oled"`
	InStock   *bool `json:"in_stock"`

	Rating        *float64 `json:"rating"`
	RatingTextRaw *string  `json:"rating_text_raw"`

	ImageURL            *string `json:"plp_product_tile_src"`
	Brand               *string `json:"brand"`
	Discount            *string `json:"discount"`
	DeliveryPincodeText *string `json:"delivery_pincode_text"`
}

type Page struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Items    []Product `json:"items"`
}

// Criteria are the filters a caller may ask for. Nil pointers and empty
// strings mean "not requested".
type Criteria struct {
	Query string

	MinPrice *float64
	MaxPrice *float64

	Panel   string
	SmartTV *bool
	Is4K    *bool
	Brand   string

	MinRating *float64
	MaxRating *float64

	MinScreen *float64
	MaxScreen *float64

	MinHDMI           *int
	MinUSB            *int
	MinWarrantyMonths *int

	InStock *bool
}

type BrandCount struct {
	Brand *string `json:"brand"`
	Count int     `json:"count"`
}

type PanelCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type RatedProduct struct {
	Name   *string  `json:"name"`
	Price  *float64 `json:"price"`
	Rating *float64 `json:"rating"`
}

type Stats struct {
	Count       int            `json:"count"`
	AvgPrice    *float64       `json:"avg_price"`
	TopByRating []RatedProduct `json:"top_by_rating"`
}
