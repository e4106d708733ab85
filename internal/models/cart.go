package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 10000

// CartLine is one product entry in a cart. Title and Price are captured when
// the product is first added.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal returns price * quantity for the line.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the single basket row of a user. Lines are stored as a JSON list.
type Cart struct {
	ID        uint       `json:"cart_id" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36);not null"`
	Items     []CartLine `json:"items" gorm:"serializer:json;type:jsonb"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Find returns the index of the line holding productID, or -1.
func (c *Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add increments the line for p by qty, appending a new line when the product
// is not in the cart yet. The line quantity saturates at MaxLineQuantity.
func (c *Cart) Add(p *Product, qty int) {
	if i := c.Find(p.ID); i >= 0 {
		c.Items[i].Quantity = clampQuantity(c.Items[i].Quantity, qty)
		return
	}
	qty = clampQuantity(0, qty)
	c.Items = append(c.Items, CartLine{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Quantity:  qty,
	})
}

// Remove drops the line for productID. It reports whether a line was removed.
func (c *Cart) Remove(productID string) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}

// Adjust applies delta to the line quantity, clamping to
// [0, MaxLineQuantity].
func (c *Cart) Adjust(productID string, delta int) bool {
	i := c.Find(productID)
	if i < 0 {
		return false
	}
	c.Items[i].Quantity = clampQuantity(c.Items[i].Quantity, delta)
	return true
}

// clampQuantity returns q+delta bounded to [0, MaxLineQuantity] without
// overflowing.
func clampQuantity(q, delta int) int {
	switch {
	case delta > MaxLineQuantity:
		delta = MaxLineQuantity
	case delta < -MaxLineQuantity:
		delta = -MaxLineQuantity
	}
	q = min(max(q, 0), MaxLineQuantity) + delta
	return min(max(q, 0), MaxLineQuantity)
}

// Billable returns the lines with a positive quantity.
func (c *Cart) Billable() []CartLine {
	lines := make([]CartLine, 0, len(c.Items))
	for _, l := range c.Items {
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	return lines
}

// Total is the sum of price * quantity over the billable lines, rounded to
// cents.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Billable() {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}
