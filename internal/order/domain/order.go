package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the persisted header of one customer order. Status is the only
// field mutated after creation; everything else is frozen at checkout time.
type Order struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	Total        decimal.Decimal `json:"total"`
	Status       Status          `json:"status"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Lines        []OrderLine     `json:"lines,omitempty"`
}

// OrderLine is immutable once persisted. UnitPrice is a snapshot taken at
// checkout; later product price changes never touch it.
type OrderLine struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CheckoutItem is one requested line of a checkout, as supplied by the
// client. Prices arrive as snapshots from the client's cart and are
// validated against the claimed total, never re-fetched from products.
type CheckoutItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewOrder builds an order header in its initial state. The caller must
// have validated the total against the items first.
func NewOrder(userID string, total decimal.Decimal, notes string) Order {
	now := time.Now().UTC()
	return Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Total:     total,
		Status:    StatusNew,
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewOrderLines materializes checkout items as lines of the given order.
func NewOrderLines(orderID string, items []CheckoutItem) []OrderLine {
	now := time.Now().UTC()
	lines := make([]OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, OrderLine{
			ID:        uuid.NewString(),
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			CreatedAt: now,
		})
	}
	return lines
}

// ValidateCheckout enforces the checkout input contract: a non-empty item
// list, positive quantities and prices, and a total equal to the sum of
// unit_price times quantity over the list.
func ValidateCheckout(items []CheckoutItem, total decimal.Decimal) error {
	if len(items) == 0 {
		return &ValidationError{Reason: "Order must contain at least one item"}
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return &ValidationError{Reason: "Invalid order total"}
	}
	sum := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 {
			return &ValidationError{Reason: "Item quantity must be positive"}
		}
		if it.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return &ValidationError{Reason: "Item unit price must be positive"}
		}
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Equal(total) {
		return &ValidationError{Reason: "Order total does not match line items"}
	}
	return nil
}
