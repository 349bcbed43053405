package category

import "errors"

// Table validation errors.
var (
	ErrEmptyTable      = errors.New("category table is empty")
	ErrMissingVersion  = errors.New("category table has no version")
	ErrInvalidBand     = errors.New("category band is invalid")
	ErrBandGap         = errors.New("category bands are not contiguous")
	ErrInvalidCategory = errors.New("category is invalid")
	ErrUnknownCode     = errors.New("unknown category code")
)
