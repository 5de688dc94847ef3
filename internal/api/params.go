package api

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"tvcatalog/internal/model"
	"tvcatalog/internal/normalize"
	"tvcatalog/internal/repository"
)

const defaultBrandLimit = 100

type listParams struct {
	Query     string
	MinPrice  *float64 `query:"min_price" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `query:"max_price" validate:"omitempty,gte=0"`
	MinRating *float64 `query:"min_rating" validate:"omitempty,gte=0"`
	MaxRating *float64 `query:"max_rating" validate:"omitempty,gte=0"`
	MinScreen *float64 `query:"min_screen" validate:"omitempty,gte=0"`
	MaxScreen *float64 `query:"max_screen" validate:"omitempty,gte=0"`
	MinHDMI   *int     `query:"hdmi_min" validate:"omitempty,gte=0"`
	MinUSB    *int     `query:"usb_min" validate:"omitempty,gte=0"`
	MinWarr   *int     `query:"warranty_min" validate:"omitempty,gte=0"`
	Page      int      `query:"page" validate:"gte=1"`
	PageSize  int      `query:"page_size" validate:"gte=0"`
}

type brandParams struct {
	Limit int `query:"limit" validate:"gte=1,lte=1000"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	return v
}

// queryReader parses typed query parameters, collecting every malformed
// value instead of stopping at the first.
type queryReader struct {
	values url.Values
	errs   []string
}

func (q *queryReader) float(name string) *float64 {
	raw := strings.TrimSpace(q.values.Get(name))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		q.errs = append(q.errs, name+" must be a number")
		return nil
	}
	return &f
}

func (q *queryReader) integer(name string) *int {
	raw := strings.TrimSpace(q.values.Get(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.errs = append(q.errs, name+" must be an integer")
		return nil
	}
	return &n
}

func (q *queryReader) intOr(name string, def int) int {
	if n := q.integer(name); n != nil {
		return *n
	}
	return def
}

// boolean accepts the same tokens the normalizer does; anything else is
// treated as not requested.
func (q *queryReader) boolean(name string) *bool {
	return normalize.ParseBool(q.values.Get(name))
}

func (q *queryReader) text(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *queryReader) err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errValidation, strings.Join(q.errs, "; "))
}

// parseList reads a product listing request. page_size 0 means the
// configured default.
func parseList(values url.Values, v *validator.Validate, maxPageSize int) (repository.ListRequest, error) {
	q := &queryReader{values: values}
	p := listParams{
		Query:     q.text("q"),
		MinPrice:  q.float("min_price"),
		MaxPrice:  q.float("max_price"),
		MinRating: q.float("min_rating"),
		MaxRating: q.float("max_rating"),
		MinScreen: q.float("min_screen"),
		MaxScreen: q.float("max_screen"),
		MinHDMI:   q.integer("hdmi_min"),
		MinUSB:    q.integer("usb_min"),
		MinWarr:   q.integer("warranty_min"),
		Page:      q.intOr("page", 1),
		PageSize:  q.intOr("page_size", 0),
	}
	if err := q.err(); err != nil {
		return repository.ListRequest{}, err
	}
	if err := validate(v, p); err != nil {
		return repository.ListRequest{}, err
	}
	if values.Has("page_size") && (p.PageSize < 1 || p.PageSize > maxPageSize) {
		return repository.ListRequest{}, fmt.Errorf("%w: page_size must be between 1 and %d", errValidation, maxPageSize)
	}

	return repository.ListRequest{
		Criteria: model.Criteria{
			Query:             p.Query,
			MinPrice:          p.MinPrice,
			MaxPrice:          p.MaxPrice,
			Panel:             q.text("panel"),
			SmartTV:           q.boolean("is_smart_tv"),
			Is4K:              q.boolean("is_4k"),
			Brand:             q.text("brand"),
			MinRating:         p.MinRating,
			MaxRating:         p.MaxRating,
			MinScreen:         p.MinScreen,
			MaxScreen:         p.MaxScreen,
			MinHDMI:           p.MinHDMI,
			MinUSB:            p.MinUSB,
			MinWarrantyMonths: p.MinWarr,
			InStock:           q.boolean("in_stock"),
		},
		SortBy:   q.text("sort_by"),
		SortDir:  q.text("sort_dir"),
		Page:     p.Page,
		PageSize: p.PageSize,
	}, nil
}

func parseBrandLimit(values url.Values, v *validator.Validate) (int, error) {
	q := &queryReader{values: values}
	p := brandParams{Limit: q.intOr("limit", defaultBrandLimit)}
	if err := q.err(); err != nil {
		return 0, err
	}
	if err := validate(v, p); err != nil {
		return 0, err
	}
	return p.Limit, nil
}

func validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", errValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+" must be "+bound(fe.Tag())+" "+fe.Param())
	}
	return fmt.Errorf("%w: %s", errValidation, strings.Join(msgs, "; "))
}

func bound(tag string) string {
	switch tag {
	case "gte":
		return ">="
	case "lte":
		return "<="
	}
	return tag
}
