package catalog

import "errors"

// ErrDuplicateNaturalKey is returned when a product for the same supplier and
// natural key was inserted concurrently.
var ErrDuplicateNaturalKey = errors.New("catalog: duplicate natural key")
