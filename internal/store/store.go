// Package store defines the record store abstraction for stockwatch.
// Business logic depends on the Store interface, never on the concrete
// Postgres implementation, so the engine is testable with in-memory fakes.
package store

import (
	"context"
	"errors"

	domain "stockwatch/pkg/types"
)

// ErrNotFound is returned by GetProduct when no row exists for the id.
var ErrNotFound = errors.New("product not found")

// Store defines all data access operations for stockwatch.
//
// The store is the single source of truth for "has this product been seen
// before". It assumes single-writer usage: one poll cycle at a time mutates
// it, and Classify for a record is always called before UpsertProduct for
// that same record within a cycle.
type Store interface {
	// GetProduct returns the stored snapshot for id, or ErrNotFound.
	GetProduct(ctx context.Context, id string) (*domain.StoredProduct, error)

	// Classify compares an observed product against the stored state
	// without mutating it. Absent id yields ClassificationNew; a stored
	// stock level of zero with a positive incoming level yields
	// ClassificationRestocked; anything else is ClassificationUnchanged.
	Classify(ctx context.Context, p *domain.Product) (domain.Classification, error)

	// UpsertProduct inserts or updates the snapshot and stamps
	// last_seen_at. Alerting classifications additionally bump the alert
	// bookkeeping and append a row to the alert log.
	UpsertProduct(ctx context.Context, p *domain.Product, c domain.Classification) error

	// DeactivateMissing marks every stored product whose id is not in
	// activeIDs as inactive, and returns how many rows flipped. Callers
	// must pass the complete id set of a full extraction pass.
	DeactivateMissing(ctx context.Context, activeIDs []string) (int, error)

	// ListActiveProducts returns active products, most recently seen first.
	ListActiveProducts(ctx context.Context, limit int) ([]domain.StoredProduct, error)

	// RecordCheck appends one row to the per-cycle check log.
	RecordCheck(ctx context.Context, found, alertsSent int) error

	// Stats aggregates counts for summaries and the stats API. The
	// "today" figures are bounded by the local wall-clock midnight of the
	// running process.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Migrate applies pending SQL schema migrations.
	Migrate(ctx context.Context) error

	// Ping verifies the backing database is reachable.
	Ping(ctx context.Context) error
}
