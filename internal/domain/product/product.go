// Package product contains the catalog item shape shared across layers.
package product

// Rating is the aggregate customer rating of a product.
type Rating struct {
	Rate  float64 `json:"rate"`  // 0..5
	Count int     `json:"count"` // number of ratings
}

// Product represents a catalog item as served by the remote catalog API.
// Fields mirror the upstream JSON schema.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// IDs returns the identifiers of items in order.
func IDs(items []Product) []int {
	ids := make([]int, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	return ids
}

// Clone returns a shallow copy of items so callers can reorder freely.
func Clone(items []Product) []Product {
	if items == nil {
		return nil
	}
	out := make([]Product, len(items))
	copy(out, items)
	return out
}
