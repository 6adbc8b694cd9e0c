package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/pizzeria-storefront/internal/order"
)

// Charger settles and voids payments.
type Charger interface {
	Charge(ctx context.Context, orderID string, amount int64) (string, error)
	Void(ctx context.Context, transactionID string) error
}

// OrderStore is the snapshot storage the finalize step writes to.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*order.Snapshot, error)
	Save(ctx context.Context, s *order.Snapshot) error
}

// --- SettlePaymentStep ---

type SettlePaymentStep struct {
	charger       Charger
	orderID       string
	amount        int64
	transactionID string
}

func NewSettlePaymentStep(charger Charger, orderID string, amount int64) *SettlePaymentStep {
	return &SettlePaymentStep{
		charger: charger,
		orderID: orderID,
		amount:  amount,
	}
}

func (s *SettlePaymentStep) Name() string { return "Settle_Payment_Step" }

func (s *SettlePaymentStep) Execute(ctx context.Context) error {
	txnID, err := s.charger.Charge(ctx, s.orderID, s.amount)
	if err != nil {
		return fmt.Errorf("settlement failed for order %s: %w", s.orderID, err)
	}
	s.transactionID = txnID
	return nil
}

func (s *SettlePaymentStep) Compensate(ctx context.Context) error {
	if s.transactionID == "" {
		return nil
	}
	return s.charger.Void(ctx, s.transactionID)
}

// TransactionID is set once Execute succeeds.
func (s *SettlePaymentStep) TransactionID() string { return s.transactionID }

// --- FinalizeOrderStep ---

type FinalizeOrderStep struct {
	orders   OrderStore
	orderID  string
	customer order.CustomerInfo
	txnID    func() string
	previous *order.Snapshot
	final    *order.Snapshot
}

// NewFinalizeOrderStep re-reads the snapshot and marks it completed with the
// transaction id reported by txnID.
func NewFinalizeOrderStep(orders OrderStore, orderID string, customer order.CustomerInfo, txnID func() string) *FinalizeOrderStep {
	return &FinalizeOrderStep{
		orders:   orders,
		orderID:  orderID,
		customer: customer,
		txnID:    txnID,
	}
}

func (s *FinalizeOrderStep) Name() string { return "Finalize_Order_Step" }

func (s *FinalizeOrderStep) Execute(ctx context.Context) error {
	snap, err := s.orders.Get(ctx, s.orderID)
	if err != nil {
		return fmt.Errorf("reload order %s: %w", s.orderID, err)
	}
	previous := snap.Clone()

	if err := snap.Complete(s.txnID(), s.customer); err != nil {
		return err
	}
	if err := s.orders.Save(ctx, snap); err != nil {
		return fmt.Errorf("write completed order %s: %w", s.orderID, err)
	}

	s.previous = previous
	s.final = snap
	return nil
}

func (s *FinalizeOrderStep) Compensate(ctx context.Context) error {
	if s.previous == nil {
		return nil
	}
	return s.orders.Save(ctx, s.previous)
}

// Snapshot returns the completed snapshot once Execute succeeds.
func (s *FinalizeOrderStep) Snapshot() *order.Snapshot { return s.final }

// --- ClearCartStep ---

type ClearCartStep struct {
	clear func(ctx context.Context) error
}

// NewClearCartStep removes whatever cart is still persisted for the session.
// Placing the order already emptied it; this covers a cart written back
// between placement and payment.
func NewClearCartStep(clear func(ctx context.Context) error) *ClearCartStep {
	return &ClearCartStep{clear: clear}
}

func (s *ClearCartStep) Name() string { return "Clear_Cart_Step" }

// Execute never fails the saga: the order is already paid, so a storage
// error here is only logged.
func (s *ClearCartStep) Execute(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		slog.WarnContext(ctx, "failed to clear persisted cart after payment", "error", err)
	}
	return nil
}

func (s *ClearCartStep) Compensate(ctx context.Context) error {
	// Usually empty as it's the last step.
	return nil
}
