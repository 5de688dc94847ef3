package query

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"tvcatalog/internal/model"
)

// Filter is the WHERE predicate built for one request. It renders with "?"
// placeholders; the statement builder rewrites them for the store.
type Filter struct {
	conjuncts sq.And
	// Dropped lists requested criteria whose backing column is missing
	// or whose value is not recognised. They are ignored, not errors.
	Dropped []string
}

// rule ties one criterion to the columns it needs. It applies when the
// criterion is set and at least one of its columns exists.
type rule struct {
	criterion string
	columns   func(model.Criteria) []string
	value     func(model.Criteria) (any, bool)
	build     func(present []string, v any, s Schema) sq.Sqlizer
}

var panelColumns = map[string]string{
	"led":  "panel_led",
	"qled": "panel_qled",
	"oled": "panel_oled",
}

var rules = []rule{
	{"q", columns("name", "product_url"), textValue, likeAny},
	{"min_price", columns("price"), floatValue(func(c model.Criteria) *float64 { return c.MinPrice }), gte},
	{"max_price", columns("price"), floatValue(func(c model.Criteria) *float64 { return c.MaxPrice }), lte},
	{"panel", panelColumn, panelValue, flag},
	{"is_smart_tv", columns("is_smart_tv"), boolValue(func(c model.Criteria) *bool { return c.SmartTV }), flag},
	{"is_4k", columns("is_4k"), boolValue(func(c model.Criteria) *bool { return c.Is4K }), flag},
	{"brand", columns("brand"), brandValue, eq},
	{"min_rating", columns("rating"), floatValue(func(c model.Criteria) *float64 { return c.MinRating }), gte},
	{"max_rating", columns("rating"), floatValue(func(c model.Criteria) *float64 { return c.MaxRating }), lte},
	{"min_screen", columns("screen_size_inch"), floatValue(func(c model.Criteria) *float64 { return c.MinScreen }), gte},
	{"max_screen", columns("screen_size_inch"), floatValue(func(c model.Criteria) *float64 { return c.MaxScreen }), lte},
	{"hdmi_min", columns("hdmi_ports"), intValue(func(c model.Criteria) *int { return c.MinHDMI }), gte},
	{"usb_min", columns("usb_ports"), intValue(func(c model.Criteria) *int { return c.MinUSB }), gte},
	{"warranty_min", columns("warranty_months"), intValue(func(c model.Criteria) *int { return c.MinWarrantyMonths }), gte},
	{"in_stock", columns("in_stock"), boolValue(func(c model.Criteria) *bool { return c.InStock }), flag},
}

// BuildFilter turns the requested criteria into a predicate over the
// columns present in s.
func BuildFilter(c model.Criteria, s Schema) Filter {
	var f Filter
	for _, r := range rules {
		v, ok := r.value(c)
		if !ok {
			continue
		}
		var present []string
		for _, col := range r.columns(c) {
			if s.Has(col) {
				present = append(present, col)
			}
		}
		if len(present) == 0 {
			f.Dropped = append(f.Dropped, r.criterion)
			continue
		}
		f.conjuncts = append(f.conjuncts, r.build(present, v, s))
	}
	return f
}

func (f Filter) Empty() bool {
	return len(f.conjuncts) == 0
}

// ToSql renders the predicate and its bound values. An empty filter
// renders as "" with no values.
func (f Filter) ToSql() (string, []any, error) {
	if f.Empty() {
		return "", nil, nil
	}
	return f.conjuncts.ToSql()
}

// Apply adds the predicate to b, leaving b untouched when empty.
func (f Filter) Apply(b sq.SelectBuilder) sq.SelectBuilder {
	if f.Empty() {
		return b
	}
	return b.Where(f.conjuncts)
}

func columns(names ...string) func(model.Criteria) []string {
	return func(model.Criteria) []string { return names }
}

func panelColumn(c model.Criteria) []string {
	col, ok := panelColumns[strings.ToLower(strings.TrimSpace(c.Panel))]
	if !ok {
		return nil
	}
	return []string{col}
}

func textValue(c model.Criteria) (any, bool) {
	if c.Query == "" {
		return nil, false
	}
	return "%" + escapeLike(strings.ToLower(c.Query)) + "%", true
}

func panelValue(c model.Criteria) (any, bool) {
	return true, c.Panel != ""
}

func brandValue(c model.Criteria) (any, bool) {
	return c.Brand, c.Brand != ""
}

func floatValue(get func(model.Criteria) *float64) func(model.Criteria) (any, bool) {
	return func(c model.Criteria) (any, bool) {
		if v := get(c); v != nil {
			return *v, true
		}
		return nil, false
	}
}

func intValue(get func(model.Criteria) *int) func(model.Criteria) (any, bool) {
	return func(c model.Criteria) (any, bool) {
		if v := get(c); v != nil {
			return *v, true
		}
		return nil, false
	}
}

func boolValue(get func(model.Criteria) *bool) func(model.Criteria) (any, bool) {
	return func(c model.Criteria) (any, bool) {
		if v := get(c); v != nil {
			return *v, true
		}
		return nil, false
	}
}

func likeAny(present []string, v any, _ Schema) sq.Sqlizer {
	or := make(sq.Or, 0, len(present))
	for _, col := range present {
		or = append(or, sq.Expr("LOWER("+col+") LIKE ? ESCAPE '\\'", v))
	}
	return or
}

func gte(present []string, v any, _ Schema) sq.Sqlizer {
	return sq.GtOrEq{present[0]: v}
}

func lte(present []string, v any, _ Schema) sq.Sqlizer {
	return sq.LtOrEq{present[0]: v}
}

func eq(present []string, v any, _ Schema) sq.Sqlizer {
	return sq.Eq{present[0]: v}
}

func flag(present []string, v any, s Schema) sq.Sqlizer {
	return sq.Eq{present[0]: s.BoolArg(present[0], v.(bool))}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Contains matches rows whose column holds s as a literal substring.
func Contains(column, s string) sq.Sqlizer {
	return sq.Expr(column+" LIKE ? ESCAPE '\\'", "%"+escapeLike(s)+"%")
}
