package domain

import (
	"fmt"
	"iter"
)

// OrderCatalog is the order history of an account in the order the broker
// reported it.
type OrderCatalog struct {
	orders []Order
}

// NewOrderCatalog builds every raw record into an Order. The first
// malformed record aborts the build.
func NewOrderCatalog(raw []RawOrder) (*OrderCatalog, error) {
	c := &OrderCatalog{orders: make([]Order, 0, len(raw))}
	for i, r := range raw {
		o, err := NewOrder(r)
		if err != nil {
			return nil, fmt.Errorf("order record %d: %w", i, err)
		}
		c.orders = append(c.orders, o)
	}
	return c, nil
}

// Len returns the number of orders in the catalog.
func (c *OrderCatalog) Len() int { return len(c.orders) }

// All iterates over every order in broker order.
func (c *OrderCatalog) All() iter.Seq[Order] {
	return func(yield func(Order) bool) {
		for _, o := range c.orders {
			if !yield(o) {
				return
			}
		}
	}
}

// ActiveOnly iterates over the orders that are still active. The filter is
// evaluated on every iteration.
func (c *OrderCatalog) ActiveOnly() iter.Seq[Order] {
	return func(yield func(Order) bool) {
		for _, o := range c.orders {
			if !o.IsActive() {
				continue
			}
			if !yield(o) {
				return
			}
		}
	}
}

// FindByID returns the top-level order with the given id.
func (c *OrderCatalog) FindByID(id OrderID) (Order, bool) {
	for _, o := range c.orders {
		if o.ID() == id {
			return o, true
		}
	}
	return nil, false
}
