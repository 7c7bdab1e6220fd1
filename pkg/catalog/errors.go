package catalog

import "errors"

// Sentinel errors reported by the catalog service. Callers match them with
// errors.Is; wrapped messages carry the offending title or value.
var (
	ErrDuplicateTitle      = errors.New("title already exists")
	ErrNotFound            = errors.New("title not found")
	ErrBadProviderData     = errors.New("unparseable provider data")
	ErrBadQuery            = errors.New("malformed query")
	ErrInvalidField        = errors.New("invalid field")
	ErrInvalidValue        = errors.New("invalid field value")
	ErrProviderUnavailable = errors.New("metadata provider unavailable")
)
