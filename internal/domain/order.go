package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus validates a status supplied by a caller.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", ErrInvalidStatus
}

// CanTransitionTo reports whether a status change is allowed.
// CANCELLED is terminal; CONFIRMED can only be cancelled.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return to == OrderStatusConfirmed || to == OrderStatusCancelled
	case OrderStatusConfirmed:
		return to == OrderStatusCancelled
	default:
		return false
	}
}

// Order is a purchase aggregate. Prices and names on its items are snapshots
// taken at availability-check time; the total is computed once at build time
// and never recomputed from live catalog prices.
type Order struct {
	ID          string
	UserID      string
	Username    string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	OrderDate   time.Time
	Items       []OrderItem
}

// OrderItem is an immutable line of its parent order.
type OrderItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewOrderItem builds a line item from a stock snapshot, computing the
// subtotal from the snapshotted unit price.
func NewOrderItem(snapshot StockSnapshot, quantity int) OrderItem {
	return OrderItem{
		ProductID:   snapshot.ProductID,
		ProductName: snapshot.ProductName,
		Quantity:    quantity,
		UnitPrice:   snapshot.UnitPrice,
		Subtotal:    snapshot.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Total sums the item subtotals.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}
