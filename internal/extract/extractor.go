// Package extract converts raw listing pages into structured product
// records. The core treats extraction as opaque and replaceable; everything
// in here may change with the retailer's markup without affecting the
// engine's contract.
package extract

import (
	"context"
	"errors"

	domain "stockwatch/pkg/types"
)

// ErrNoListing is returned when the listing page could not be fetched.
var ErrNoListing = errors.New("listing page unavailable")

// Extractor produces the products observed in one pass over the source.
// An error means the pass failed and the cycle must not mutate the store.
type Extractor interface {
	FetchListing(ctx context.Context) ([]domain.Product, error)
}
