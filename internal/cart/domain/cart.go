package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the flat rate applied to every cart.
var DefaultTaxRate = decimal.NewFromFloat(0.08)

// Line is one product-keyed entry of a cart. Name, price and image are
// snapshots taken when the product was added, not live references.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Cart holds lines ordered by insertion, at most one per product id.
// Quantity is always >= 1: absence is represented by removal, never zero.
type Cart struct {
	lines []Line
}

// Add merges quantity onto an existing line for the same product, or
// appends a new line. Quantities <= 0 are treated as 1.
func (c *Cart) Add(line Line, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	for i := range c.lines {
		if c.lines[i].ProductID == line.ProductID {
			c.lines[i].Quantity += quantity
			return
		}
	}
	line.Quantity = quantity
	c.lines = append(c.lines, line)
}

// SetQuantity replaces a line's quantity in place, preserving order. A
// quantity <= 0 removes the line instead.
func (c *Cart) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity = quantity
			return
		}
	}
}

// Remove deletes the matching line; no-op when absent.
func (c *Cart) Remove(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Empty() bool { return len(c.lines) == 0 }

// Derived figures are recomputed on every call, never cached.

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

func (c *Cart) Tax(rate decimal.Decimal) decimal.Decimal {
	return c.Subtotal().Mul(rate)
}

func (c *Cart) Total(rate decimal.Decimal) decimal.Decimal {
	return c.Subtotal().Add(c.Tax(rate))
}

// MarshalSlot renders the durable representation: a JSON mapping keyed by
// product id. There is no version field; readers that cannot make sense
// of a stored value treat it as absent.
func (c *Cart) MarshalSlot() ([]byte, error) {
	m := make(map[string]Line, len(c.lines))
	for _, l := range c.lines {
		m[l.ProductID] = l
	}
	return json.Marshal(m)
}

// UnmarshalSlot restores a cart from its durable representation. The
// mapping carries no ordering, so restored lines are keyed-set equal to
// what was saved but may iterate in a different insertion order.
func UnmarshalSlot(data []byte) (Cart, error) {
	var m map[string]Line
	if err := json.Unmarshal(data, &m); err != nil {
		return Cart{}, err
	}
	var c Cart
	for id, l := range m {
		if l.ProductID == "" {
			l.ProductID = id
		}
		if l.Quantity < 1 {
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c, nil
}
