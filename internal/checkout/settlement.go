package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator"
)

// DefaultSettlementDelay is how long a simulated charge takes.
const DefaultSettlementDelay = 2 * time.Second

// ErrDeclined is returned when the settler refuses a charge.
var ErrDeclined = errors.New("payment declined")

// Settler is the payment processor the checkout charges against.
type Settler = coordinator.Charger

// SimulatedSettler approves every charge after a fixed delay. It keeps the
// charges it made so they can be voided when a later settlement step fails.
type SimulatedSettler struct {
	mu      sync.Mutex
	charges map[string]int64 // transaction id -> amount
	delay   time.Duration
	now     func() time.Time
	decline func(orderID string, amount int64) bool
}

var _ Settler = (*SimulatedSettler)(nil)

type SettlerOption func(*SimulatedSettler)

// WithDelay overrides DefaultSettlementDelay. Zero settles immediately.
func WithDelay(d time.Duration) SettlerOption {
	return func(s *SimulatedSettler) { s.delay = d }
}

// WithDecline makes the settler refuse charges for which fn returns true.
func WithDecline(fn func(orderID string, amount int64) bool) SettlerOption {
	return func(s *SimulatedSettler) { s.decline = fn }
}

func NewSimulatedSettler(opts ...SettlerOption) *SimulatedSettler {
	s := &SimulatedSettler{
		charges: make(map[string]int64),
		delay:   DefaultSettlementDelay,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Charge waits out the settlement delay and returns a transaction id.
// Cancelling ctx abandons the charge without recording it.
func (s *SimulatedSettler) Charge(ctx context.Context, orderID string, amount int64) (string, error) {
	slog.InfoContext(ctx, "processing charge", "order_id", orderID, "amount", amount)

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "charge abandoned", "order_id", orderID, "error", ctx.Err())
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	if s.decline != nil && s.decline(orderID, amount) {
		slog.WarnContext(ctx, "charge declined", "order_id", orderID, "amount", amount)
		return "", fmt.Errorf("%w: order %s", ErrDeclined, orderID)
	}

	txnID := s.transactionID()

	s.mu.Lock()
	s.charges[txnID] = amount
	s.mu.Unlock()

	slog.InfoContext(ctx, "charge successful", "order_id", orderID, "transaction_id", txnID)
	return txnID, nil
}

// Void refunds a previous charge. Unknown ids are ignored.
func (s *SimulatedSettler) Void(ctx context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, exists := s.charges[transactionID]
	if !exists {
		slog.WarnContext(ctx, "no charge found to void", "transaction_id", transactionID)
		return nil
	}

	slog.InfoContext(ctx, "voiding charge", "transaction_id", transactionID, "amount", amount)
	delete(s.charges, transactionID)
	return nil
}

// Charged reports whether transactionID is a live, unvoided charge.
func (s *SimulatedSettler) Charged(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.charges[transactionID]
	return ok
}

// transactionID returns "TXN-<unix ms>-<suffix>".
func (s *SimulatedSettler) transactionID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TXN-%d-%s", s.now().UnixMilli(), suffix)
}
