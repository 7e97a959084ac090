package ranking

import "errors"

// Sentinel errors for the ranking engine.
var (
	ErrNegativeCount = errors.New("selection size must not be negative")
)
