package catalog

import "errors"

// Sentinel errors for the catalog service layer.
var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrUnknownNiche  = errors.New("unknown niche")
)
