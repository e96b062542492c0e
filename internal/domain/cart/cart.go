// Package cart models a shopping cart and the operations that change it.
package cart

import (
	"fmt"

	"github.com/okian/storefront/internal/domain/product"
)

// Item is a product in the cart with its quantity.
type Item struct {
	product.Product
	Quantity int `json:"quantity"`
}

// Cart holds line items and their derived totals.
// Totals are recomputed after every mutation.
type Cart struct {
	Items      []Item  `json:"items"`
	TotalItems int     `json:"totalItems"`
	TotalPrice float64 `json:"totalPrice"`
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{Items: []Item{}}
}

// Add puts quantity units of p in the cart, merging with an existing line.
func (c *Cart) Add(p product.Product, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if i := c.indexOf(p.ID); i >= 0 {
		c.Items[i].Quantity += quantity
	} else {
		c.Items = append(c.Items, Item{Product: p, Quantity: quantity})
	}
	c.recalculate()
	return nil
}

// Remove drops the line for productID. Returns false if it was not present.
func (c *Cart) Remove(productID int) bool {
	i := c.indexOf(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.recalculate()
	return true
}

// UpdateQuantity sets the quantity for productID; zero or less removes the line.
func (c *Cart) UpdateQuantity(productID, quantity int) error {
	if quantity <= 0 {
		if !c.Remove(productID) {
			return fmt.Errorf("%w: %d", ErrItemNotFound, productID)
		}
		return nil
	}
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrItemNotFound, productID)
	}
	c.Items[i].Quantity = quantity
	c.recalculate()
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.recalculate()
}

// Contains reports whether productID is in the cart.
func (c *Cart) Contains(productID int) bool {
	return c.indexOf(productID) >= 0
}

// Quantity returns the quantity of productID, zero if absent.
func (c *Cart) Quantity(productID int) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// Clone returns a deep copy safe to hand out of a store.
func (c *Cart) Clone() *Cart {
	out := &Cart{
		Items:      make([]Item, len(c.Items)),
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPrice,
	}
	copy(out.Items, c.Items)
	return out
}

func (c *Cart) indexOf(productID int) int {
	for i := range c.Items {
		if c.Items[i].ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recalculate() {
	c.TotalItems = 0
	c.TotalPrice = 0
	for i := range c.Items {
		c.TotalItems += c.Items[i].Quantity
		c.TotalPrice += c.Items[i].Price * float64(c.Items[i].Quantity)
	}
}
