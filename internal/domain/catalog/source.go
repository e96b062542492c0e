package catalog

import (
	"context"

	"github.com/okian/storefront/internal/domain/product"
)

// Source is where product data comes from: the remote catalog or a cache in
// front of it.
type Source interface {
	Products(ctx context.Context) ([]product.Product, error)
	Product(ctx context.Context, id int) (product.Product, error)
	Categories(ctx context.Context) ([]string, error)
	ProductsByCategory(ctx context.Context, category string) ([]product.Product, error)
}
