// Package catalog filters, searches and orders product listings.
//
// Functions never modify the caller's slice; results are fresh slices.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/storefront/internal/domain/product"
)

// SortOrder selects how a listing is ordered.
type SortOrder string

// Supported sort orders.
const (
	SortDefault   SortOrder = "default"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortRating    SortOrder = "rating"
)

// ParseSortOrder maps a query value to a SortOrder. Empty means SortDefault.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", SortDefault:
		return SortDefault, nil
	case SortPriceAsc, SortPriceDesc, SortRating:
		return o, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSort, s)
	}
}

// Filter narrows a listing. Zero values disable the corresponding check.
type Filter struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

// Validate reports inconsistent price bounds.
func (f Filter) Validate() error {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return fmt.Errorf("%w: min %v above max %v", ErrInvalidFilter, *f.MinPrice, *f.MaxPrice)
	}
	return nil
}

// Search returns items whose title, description or category contains the
// query, case-insensitively. A blank query matches everything.
func Search(items []product.Product, query string) []product.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return product.Clone(items)
	}
	out := make([]product.Product, 0, len(items))
	for i := range items {
		if contains(items[i].Title, q) || contains(items[i].Description, q) || contains(items[i].Category, q) {
			out = append(out, items[i])
		}
	}
	return out
}

// Apply returns the items that pass every set field of f. The search term
// is matched against title and description only; category is exact.
func Apply(items []product.Product, f Filter) []product.Product {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]product.Product, 0, len(items))
	for i := range items {
		p := &items[i]
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if q != "" && !contains(p.Title, q) && !contains(p.Description, q) {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Sort returns an ordered copy of items. The sort is stable: equal prices
// or ratings keep listing order.
func Sort(items []product.Product, order SortOrder) ([]product.Product, error) {
	out := product.Clone(items)
	switch order {
	case "", SortDefault:
	case SortPriceAsc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Rating.Rate > out[j].Rating.Rate })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSort, order)
	}
	return out, nil
}

// Categories returns the distinct categories in first-seen order.
func Categories(items []product.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range items {
		c := items[i].Category
		if _, ok := seen[c]; ok || c == "" {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Find returns the product with the given id.
func Find(items []product.Product, id int) (product.Product, bool) {
	for i := range items {
		if items[i].ID == id {
			return items[i], true
		}
	}
	return product.Product{}, false
}

func contains(field, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(field), lowerQuery)
}
