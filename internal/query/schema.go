package query

import "strings"

// Schema is the set of columns observed on the products table for one
// request, with their declared types.
type Schema struct {
	columns map[string]string
}

// NewSchema builds a snapshot from column name to declared type.
func NewSchema(columns map[string]string) Schema {
	cp := make(map[string]string, len(columns))
	for name, typ := range columns {
		cp[name] = strings.ToLower(strings.TrimSpace(typ))
	}
	return Schema{columns: cp}
}

// SchemaOf builds a snapshot from column names only.
func SchemaOf(names ...string) Schema {
	m := make(map[string]string, len(names))
	for _, n := range names {
		m[n] = ""
	}
	return NewSchema(m)
}

func (s Schema) Has(column string) bool {
	_, ok := s.columns[column]
	return ok
}

func (s Schema) Len() int {
	return len(s.columns)
}

// IsBoolean reports whether the column is declared with a native boolean
// type. Flags stored as integers or text are not.
func (s Schema) IsBoolean(column string) bool {
	switch s.columns[column] {
	case "boolean", "bool":
		return true
	}
	return false
}

// BoolArg is the bound value that compares equal to b in column.
func (s Schema) BoolArg(column string, b bool) any {
	if s.IsBoolean(column) {
		return b
	}
	if b {
		return 1
	}
	return 0
}
