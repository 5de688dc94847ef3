package repository

import "errors"

var (
	// ErrStoreUnavailable means no connection to the catalog store could be
	// obtained. Nothing partial is returned.
	ErrStoreUnavailable = errors.New("catalog store unavailable")
	// ErrSchemaUnavailable means the products table could not be
	// introspected, usually because it does not exist.
	ErrSchemaUnavailable = errors.New("catalog schema unavailable")
	// ErrNotFound is the absent outcome of a lookup.
	ErrNotFound = errors.New("product not found")
)
