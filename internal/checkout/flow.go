// Package checkout validates the payment form and settles a placed order.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator"
	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog"
	"github.com/jcmexdev/pizzeria-storefront/internal/order"
)

var (
	ErrOrderNotFound     = errors.New("checkout: order not found")
	ErrInProgress        = errors.New("checkout: payment already in progress")
	ErrRetryRequired     = errors.New("checkout: previous attempt failed, retry first")
	ErrInvalidTransition = errors.New("checkout: invalid state transition")
)

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "checkout: invalid payment form: " + strings.Join(e.Fields.Fields(), ", ")
}

type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// CartClearer empties the session cart once payment settles.
type CartClearer interface {
	Clear(ctx context.Context) error
}

// Flow drives the payment of one order through
// idle -> processing -> success | error. Error goes back to idle through
// Retry; success is final.
type Flow struct {
	mu       sync.Mutex
	orderID  string
	state    State
	lastErr  error
	snapshot *order.Snapshot

	orders  coordinator.OrderStore
	cart    CartClearer
	settler Settler
	sagaLog sagalog.Repository
}

// NewFlow loads orderID and starts in success when it is already paid,
// idle otherwise. cart and sagaLog may be nil.
func NewFlow(ctx context.Context, orderID string, orders coordinator.OrderStore, cart CartClearer, settler Settler, sagaLog sagalog.Repository) (*Flow, error) {
	snap, err := orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	state := StateIdle
	if snap.IsCompleted() {
		state = StateSuccess
	}
	return &Flow{
		orderID:  orderID,
		state:    state,
		snapshot: snap,
		orders:   orders,
		cart:     cart,
		settler:  settler,
		sagaLog:  sagaLog,
	}, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the failure that moved the flow into StateError.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Snapshot is the order as last read or written by the flow.
func (f *Flow) Snapshot() *order.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.Clone()
}

// Retry moves a failed flow back to idle.
func (f *Flow) Retry() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateError {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, f.state)
	}
	f.state = StateIdle
	f.lastErr = nil
	return nil
}

// Submit validates form and, when valid, settles the order. An invalid form
// returns a *ValidationError and leaves the flow idle without charging.
// Settlement is bound to ctx: cancelling it abandons the charge and rolls
// back whatever already ran.
func (f *Flow) Submit(ctx context.Context, form PaymentForm) (*order.Snapshot, error) {
	f.mu.Lock()
	switch f.state {
	case StateProcessing:
		f.mu.Unlock()
		return nil, ErrInProgress
	case StateSuccess:
		f.mu.Unlock()
		return nil, order.ErrAlreadyCompleted
	case StateError:
		f.mu.Unlock()
		return nil, ErrRetryRequired
	}

	form = form.Normalize()
	if fields := form.Validate(); fields != nil {
		f.mu.Unlock()
		return nil, &ValidationError{Fields: fields}
	}
	f.state = StateProcessing
	amount := f.snapshot.Total
	f.mu.Unlock()

	snap, err := f.settle(ctx, form, amount)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateError
		f.lastErr = err
		return nil, err
	}
	f.state = StateSuccess
	f.snapshot = snap
	return snap.Clone(), nil
}

func (f *Flow) settle(ctx context.Context, form PaymentForm, amount int64) (*order.Snapshot, error) {
	ctx, span := otel.Tracer("storefront/checkout").Start(ctx, "checkout.Settle")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", f.orderID),
		attribute.Int64("order.total", amount),
	)

	customer := order.CustomerInfo{
		Email:        strings.TrimSpace(form.Email),
		Phone:        form.Phone,
		PickupMethod: order.PickupLocal,
	}

	settle := coordinator.NewSettlePaymentStep(f.settler, f.orderID, amount)
	finalize := coordinator.NewFinalizeOrderStep(f.orders, f.orderID, customer, settle.TransactionID)
	steps := []coordinator.Step{settle, finalize}
	if f.cart != nil {
		steps = append(steps, coordinator.NewClearCartStep(f.cart.Clear))
	}

	payload, _ := json.Marshal(map[string]any{
		"order_id": f.orderID,
		"amount":   amount,
		"email":    customer.Email,
	})

	err := coordinator.NewOrchestrator(f.orderID, steps, f.sagaLog).
		WithPayload(string(payload)).
		Start(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		if errors.Is(err, order.ErrNotFound) {
			err = fmt.Errorf("%w: %q", ErrOrderNotFound, f.orderID)
		}
		slog.WarnContext(ctx, "payment failed", "order_id", f.orderID, "error", err)
		return nil, err
	}

	snap := finalize.Snapshot()
	slog.InfoContext(ctx, "payment completed", "order_id", f.orderID, "transaction_id", snap.TransactionID)
	return snap, nil
}
