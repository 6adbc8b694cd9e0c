package ports

import (
	"context"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
	"github.com/jcmexdev/pizzeria-storefront/internal/checkout"
	"github.com/jcmexdev/pizzeria-storefront/internal/order"
	"github.com/jcmexdev/pizzeria-storefront/internal/preferences"
)

// CartService is the capability set the HTTP layer needs from a session cart.
type CartService interface {
	Items() []cart.LineItem
	Totals() cart.Totals
	AddItem(ctx context.Context, item cart.LineItem) (cart.LineItem, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	RemoveItem(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type CartProvider interface {
	Cart(ctx context.Context, sessionID string) CartService
}

type OrderService interface {
	PlaceOrder(ctx context.Context, sessionID string) (string, error)
	GetOrder(ctx context.Context, sessionID, orderID string) (*order.Snapshot, error)
}

type CheckoutService interface {
	// PaymentView loads the flow for an order without charging anything.
	PaymentView(ctx context.Context, sessionID, orderID string) (*checkout.Flow, error)
	Pay(ctx context.Context, sessionID, orderID string, form checkout.PaymentForm) (*order.Snapshot, error)
}

type PreferenceService interface {
	Theme(ctx context.Context, sessionID string) (preferences.Theme, error)
	SetTheme(ctx context.Context, sessionID string, theme preferences.Theme) error
}
