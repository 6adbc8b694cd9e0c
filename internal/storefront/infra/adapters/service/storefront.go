package service

import (
	"context"
	"time"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
	"github.com/jcmexdev/pizzeria-storefront/internal/checkout"
	"github.com/jcmexdev/pizzeria-storefront/internal/order"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
	"github.com/jcmexdev/pizzeria-storefront/internal/preferences"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/core/ports"
)

// Ensure Storefront implements the ports at compile time.
var (
	_ ports.CartProvider      = (*Storefront)(nil)
	_ ports.OrderService      = (*Storefront)(nil)
	_ ports.CheckoutService   = (*Storefront)(nil)
	_ ports.PreferenceService = (*Storefront)(nil)
	_ ports.CartService       = (*cart.Ledger)(nil)
)

// SessionScope gives every session a private namespace of base, the server
// side stand-in for the browser's local storage.
func SessionScope(base kvstore.Store) func(sessionID string) kvstore.Store {
	return func(sessionID string) kvstore.Store {
		return kvstore.Scope(base, "session:"+sessionID)
	}
}

// Storefront binds the cart, order, checkout and preference packages to a
// session id.
type Storefront struct {
	scopes    func(sessionID string) kvstore.Store
	carts     *cart.Sessions
	checkout  *checkout.Service
	retention time.Duration
}

func NewStorefront(scopes func(sessionID string) kvstore.Store, carts *cart.Sessions, checkout *checkout.Service, retention time.Duration) *Storefront {
	return &Storefront{
		scopes:    scopes,
		carts:     carts,
		checkout:  checkout,
		retention: retention,
	}
}

func (s *Storefront) Cart(ctx context.Context, sessionID string) ports.CartService {
	return s.carts.Ledger(ctx, sessionID)
}

func (s *Storefront) PlaceOrder(ctx context.Context, sessionID string) (string, error) {
	return order.NewSnapshotter(s.orders(sessionID)).PlaceOrder(ctx, s.carts.Ledger(ctx, sessionID))
}

func (s *Storefront) GetOrder(ctx context.Context, sessionID, orderID string) (*order.Snapshot, error) {
	return s.orders(sessionID).Get(ctx, orderID)
}

func (s *Storefront) PaymentView(ctx context.Context, sessionID, orderID string) (*checkout.Flow, error) {
	return s.checkout.Load(ctx, s.orders(sessionID), orderID)
}

func (s *Storefront) Pay(ctx context.Context, sessionID, orderID string, form checkout.PaymentForm) (*order.Snapshot, error) {
	return s.checkout.Pay(ctx, s.orders(sessionID), s.carts.Ledger(ctx, sessionID), orderID, form)
}

func (s *Storefront) Theme(ctx context.Context, sessionID string) (preferences.Theme, error) {
	return preferences.LoadTheme(ctx, s.scopes(sessionID))
}

func (s *Storefront) SetTheme(ctx context.Context, sessionID string, theme preferences.Theme) error {
	return preferences.SaveTheme(ctx, s.scopes(sessionID), theme)
}

func (s *Storefront) orders(sessionID string) *order.Repository {
	return order.NewRepository(s.scopes(sessionID), s.retention)
}
