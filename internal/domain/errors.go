package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrEmptyOrder          = errors.New("order must contain at least one item")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrProductNameRequired = errors.New("product name is required")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrInvalidStock        = errors.New("stock quantity must not be negative")
	ErrInvalidID           = errors.New("invalid id")
)

// InsufficientStockError reports a failed availability check or reservation
// with the product context callers need to act on it.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Available   int
	Requested   int

	// Message carries the detail reported by a remote stock check when the
	// rejection happened downstream; it takes precedence over the local fields.
	Message string
}

func (e *InsufficientStockError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("id %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product '%s': available %d, requested %d",
		name, e.Available, e.Requested)
}

// UpstreamError wraps a failed call to a downstream service, preserving the
// HTTP status when one was received (0 means the call never completed).
type UpstreamError struct {
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream call failed with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
