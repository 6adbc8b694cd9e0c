// Package order turns a cart into an order snapshot and keeps those
// snapshots in the session's key/value scope under order_<orderId>.
package order

import (
	"errors"
	"slices"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
)

var (
	ErrNotFound         = errors.New("order: not found")
	ErrAlreadyCompleted = errors.New("order: payment already completed")
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
)

// PickupLocal is the only fulfillment method the storefront offers.
const PickupLocal = "local"

type CustomerInfo struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	PickupMethod string `json:"pickupMethod"`
}

// Snapshot is the order record. Items and amounts are frozen at creation;
// completing payment only adds the status, transaction id and customer info.
type Snapshot struct {
	OrderID       string          `json:"orderId"`
	Items         []cart.LineItem `json:"items"`
	Subtotal      int64           `json:"subtotal"`
	DeliveryFee   int64           `json:"deliveryFee"`
	Total         int64           `json:"total"`
	CreatedAt     time.Time       `json:"timestamp"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	TransactionID string          `json:"transactionId,omitempty"`
	CustomerInfo  *CustomerInfo   `json:"customerInfo,omitempty"`
}

// IsCompleted reports whether payment has settled.
func (s *Snapshot) IsCompleted() bool {
	return s.PaymentStatus == StatusCompleted
}

// Complete marks the snapshot paid. It fails on an already completed
// snapshot so a settled order can never be rewritten.
func (s *Snapshot) Complete(transactionID string, customer CustomerInfo) error {
	if s.IsCompleted() {
		return ErrAlreadyCompleted
	}
	if customer.PickupMethod == "" {
		customer.PickupMethod = PickupLocal
	}
	s.PaymentStatus = StatusCompleted
	s.TransactionID = transactionID
	s.CustomerInfo = &customer
	return nil
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Items = slices.Clone(s.Items)
	if s.CustomerInfo != nil {
		info := *s.CustomerInfo
		out.CustomerInfo = &info
	}
	return &out
}

// Totals returns the frozen amounts in cart form.
func (s *Snapshot) Totals() cart.Totals {
	return cart.Totals{Subtotal: s.Subtotal, DeliveryFee: s.DeliveryFee, Total: s.Total}
}
