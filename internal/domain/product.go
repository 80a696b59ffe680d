package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the stock ledger record for a sellable item. Quantity is only
// ever mutated through the conditional decrement / increment repository
// operations, never by read-modify-write from a caller.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CreatedBy     string
	UpdatedBy     string
}

// StockSnapshot is a point-in-time availability answer. It is not a
// reservation: stock may be drained between the check and a later decrement.
type StockSnapshot struct {
	ProductID         int64
	ProductName       string
	UnitPrice         decimal.Decimal
	AvailableQuantity int
	RequestedQuantity int
	Available         bool
	Message           string
}
