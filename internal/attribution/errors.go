package attribution

import "errors"

// Sentinel errors for the attribution store.
var (
	ErrNotFound = errors.New("attribution snapshot not found")
)
