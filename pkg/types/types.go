// Package domain defines the core business types for stockwatch.
package domain

import "time"

// Classification is the per-cycle outcome for one observed product.
type Classification string

// Classification constants. The three outcomes are mutually exclusive for a
// given product within a single cycle.
const (
	ClassificationNew       Classification = "new"
	ClassificationRestocked Classification = "restock"
	ClassificationUnchanged Classification = "unchanged"
)

// Alerting reports whether this classification triggers a notification.
func (c Classification) Alerting() bool {
	return c == ClassificationNew || c == ClassificationRestocked
}

// Product is one item observed on the listing page during a cycle. It is
// ephemeral; the persisted counterpart is StoredProduct.
type Product struct {
	// ID is the retailer's stable identifier for the product. An empty ID
	// means the extractor could not determine one; such records are dropped
	// before classification.
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	ImageURL string `json:"image_url,omitempty"`
	URL      string `json:"url"`

	// Sizes maps a size label to the quantity believed available.
	Sizes map[string]int `json:"sizes,omitempty"`

	// StockLevel is the total quantity across sizes. Zero means "not
	// confirmed in stock", never "confirmed out of stock".
	StockLevel int `json:"stock_level"`

	Category string `json:"category"`
}

// StoredProduct is the persisted snapshot of a product, one row per ID.
type StoredProduct struct {
	ID       string `json:"id"                  db:"id"`
	Name     string `json:"name"                db:"name"`
	Price    string `json:"price"               db:"price"`
	ImageURL string `json:"image_url,omitempty" db:"image_url"`
	URL      string `json:"url"                 db:"url"`

	Sizes      map[string]int `json:"sizes,omitempty" db:"sizes"`
	StockLevel int            `json:"stock_level"     db:"stock_level"`
	Category   string         `json:"category"        db:"category"`

	FirstSeenAt time.Time  `json:"first_seen_at"           db:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"            db:"last_seen_at"`
	LastAlertAt *time.Time `json:"last_alert_at,omitempty" db:"last_alert_at"`
	AlertCount  int        `json:"alert_count"             db:"alert_count"`

	// IsActive is false once the ID was absent from a full extraction pass.
	// Rows are never hard-deleted here; retention is an operational concern.
	IsActive bool `json:"is_active" db:"is_active"`
}

// Stats is an aggregate snapshot used for summary notifications and the
// stats API. The *Today figures use the local wall-clock day boundary of
// the running process, not UTC.
type Stats struct {
	TotalActiveProducts int        `json:"total_active_products"`
	NewToday            int        `json:"new_today"`
	RestocksToday       int        `json:"restocks_today"`
	TotalAlertsSent     int        `json:"total_alerts_sent"`
	LastCheckAt         *time.Time `json:"last_check_at,omitempty"`
}

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	// Found is the number of products the extractor produced, including
	// records later dropped for a missing ID.
	Found int `json:"found"`
	// AlertsSent counts notifications actually handed to the notifier
	// without error.
	AlertsSent int `json:"alerts_sent"`
	// Failed marks cycles that must not be interpreted as "zero products
	// exist": extractor errors, empty extractions, and store I/O failures.
	Failed bool `json:"failed"`
}
