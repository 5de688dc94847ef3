package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	nonPrice     = regexp.MustCompile(`[^\d.]`)
	numericToken = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Price reads a price from a number or from display text such as
// "₹1,23,456.00". Thousands separators, currency marks and any other
// character except digits and the decimal point are discarded.
func Price(v any) *float64 {
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	s = nonPrice.ReplaceAllString(strings.ReplaceAll(s, ",", ""), "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

// Number reads a plain numeric value. Text must be a complete number.
func Number(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int64:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int32:
		f := float64(n)
		return &f
	}
	s, ok := asString(v)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

// Int reads an integer. Floats are accepted only when they hold a whole
// number.
func Int(v any) *int64 {
	switch n := v.(type) {
	case int64:
		return &n
	case int:
		i := int64(n)
		return &i
	case int32:
		i := int64(n)
		return &i
	}
	if s, ok := asString(v); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return &i
		}
	}
	f := Number(v)
	if f == nil || *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt64 {
		return nil
	}
	i := int64(*f)
	return &i
}

// Bool reads a tri-state flag. Numbers are true when non-zero; text must be
// one of the known tokens. Everything else is unknown (nil), never false.
func Bool(v any) *bool {
	switch b := v.(type) {
	case nil:
		return nil
	case bool:
		return &b
	case int64, int, int32, float64, float32:
		f := Number(b)
		if f == nil {
			return nil
		}
		t := *f != 0
		return &t
	}
	s, ok := asString(v)
	if !ok {
		return nil
	}
	return ParseBool(s)
}

// ParseBool maps 1/true/yes/y/t and 0/false/no/n/f, case-insensitively, to a
// flag and anything else to nil.
func ParseBool(s string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "t":
		b = true
	case "0", "false", "no", "n", "f":
		b = false
	default:
		return nil
	}
	return &b
}

// Text renders any stored value as text without altering it.
func Text(v any) *string {
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	return &s
}

// RatingFromText extracts the first number of a rating display such as
// "4.2 stars" or "<span>4.5</span> (120 reviews)".
func RatingFromText(v any) *float64 {
	s, ok := stringify(v)
	if !ok {
		return nil
	}
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	token := numericToken.FindString(s)
	if token == "" {
		return nil
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return nil
	}
	return finite(f)
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case float64:
		if finite(x) == nil {
			return "", false
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.RFC3339), true
	}
	return "", false
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
