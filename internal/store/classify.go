package store

import domain "stockwatch/pkg/types"

// Decide computes the classification of an observed product against its
// stored predecessor. prev == nil means the id has never been seen.
//
// A restock is strictly the stored-zero to positive stock transition.
// Reappearance after deactivation is not a restock; the observation merely
// reactivates the row on upsert.
func Decide(prev *domain.StoredProduct, incoming *domain.Product) domain.Classification {
	if prev == nil {
		return domain.ClassificationNew
	}
	if prev.StockLevel == 0 && incoming.StockLevel > 0 {
		return domain.ClassificationRestocked
	}
	return domain.ClassificationUnchanged
}
