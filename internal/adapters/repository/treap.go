package repository

import (
	"math/rand/v2"

	"github.com/okian/storefront/internal/domain/product"
)

// Treap keyed by (price ASC, listing position ASC) with random heap
// priorities. In-order traversal yields the catalog from cheapest to most
// expensive, equal prices in listing order.

type node struct {
	id    int
	price float64
	pos   int
	prio  uint64
	left  *node
	right *node
}

// less reports whether (aPrice, aPos) sorts before (bPrice, bPos).
func less(aPrice float64, aPos int, bPrice float64, bPos int) bool {
	if aPrice != bPrice {
		return aPrice < bPrice
	}
	return aPos < bPos
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n *node, id int, price float64, pos int) *node {
	if n == nil {
		return &node{id: id, price: price, pos: pos, prio: rand.Uint64()} //nolint:gosec // balancing only
	}
	if less(price, pos, n.price, n.pos) {
		n.left = insert(n.left, id, price, pos)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, price, pos)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

func deleteNode(n *node, price float64, pos int) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.pos == pos && n.price == price:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, price, pos)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, price, pos)
		}
	case less(price, pos, n.price, n.pos):
		n.left = deleteNode(n.left, price, pos)
	default:
		n.right = deleteNode(n.right, price, pos)
	}
	return n
}

// collectRange appends products priced within [lo, hi] in key order,
// pruning subtrees that cannot intersect the range.
func collectRange(n *node, lo, hi float64, byID map[int]product.Product, out *[]product.Product) {
	if n == nil {
		return
	}
	if n.price >= lo {
		collectRange(n.left, lo, hi, byID, out)
	}
	if n.price >= lo && n.price <= hi {
		if p, ok := byID[n.id]; ok {
			*out = append(*out, p)
		}
	}
	if n.price <= hi {
		collectRange(n.right, lo, hi, byID, out)
	}
}
