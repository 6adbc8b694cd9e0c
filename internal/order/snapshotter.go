package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
)

// Ledger is the part of the cart the snapshotter needs.
type Ledger interface {
	Checkout(ctx context.Context, fn func(items []cart.LineItem, totals cart.Totals) error) error
}

type Snapshotter struct {
	repo  *Repository
	now   func() time.Time
	newID func(time.Time) string
}

func NewSnapshotter(repo *Repository) *Snapshotter {
	return &Snapshotter{
		repo:  repo,
		now:   time.Now,
		newID: NewID,
	}
}

// PlaceOrder freezes the ledger into a pending snapshot, stores it and only
// then clears the ledger. If the snapshot cannot be stored the cart is left
// untouched and the error is returned. An empty ledger still produces a
// valid zero-total order.
func (s *Snapshotter) PlaceOrder(ctx context.Context, ledger Ledger) (string, error) {
	ctx, span := otel.Tracer("storefront/order").Start(ctx, "order.PlaceOrder")
	defer span.End()

	now := s.now().UTC()
	snap := &Snapshot{
		OrderID:       s.newID(now),
		CreatedAt:     now,
		PaymentStatus: StatusPending,
	}

	saved := false
	err := ledger.Checkout(ctx, func(items []cart.LineItem, totals cart.Totals) error {
		snap.Items = items
		snap.Subtotal = totals.Subtotal
		snap.DeliveryFee = totals.DeliveryFee
		snap.Total = totals.Total
		if err := s.repo.Save(ctx, snap); err != nil {
			return err
		}
		saved = true
		return nil
	})
	span.SetAttributes(
		attribute.String("order.id", snap.OrderID),
		attribute.Int64("order.total", snap.Total),
		attribute.Int("order.lines", len(snap.Items)),
	)
	switch {
	case !saved:
		span.RecordError(err)
		return "", fmt.Errorf("place order: %w", err)
	case errors.Is(err, cart.ErrPersist):
		// The order exists; a stale persisted cart is the lesser problem.
		slog.WarnContext(ctx, "order placed but cart could not be cleared in storage", "order_id", snap.OrderID, "error", err)
	}

	slog.InfoContext(ctx, "order placed", "order_id", snap.OrderID, "total", snap.Total, "lines", len(snap.Items))
	return snap.OrderID, nil
}
