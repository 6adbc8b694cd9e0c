package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
	"github.com/jcmexdev/pizzeria-storefront/internal/checkout"
	"github.com/jcmexdev/pizzeria-storefront/internal/menu"
	"github.com/jcmexdev/pizzeria-storefront/internal/order"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/requestctx"
	"github.com/jcmexdev/pizzeria-storefront/internal/preferences"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/core/ports"
)

// MenuPath is where unknown orders send the customer back to.
const MenuPath = "/menu"

// Handler serves the storefront API. Every cart, order and preference
// operation is scoped to the session resolved by the session middleware.
type Handler struct {
	carts    ports.CartProvider
	orders   ports.OrderService
	checkout ports.CheckoutService
	prefs    ports.PreferenceService
	ping     func(ctx context.Context) error
}

// NewHandler initializes the handler with its required services.
func NewHandler(
	carts ports.CartProvider,
	orders ports.OrderService,
	checkout ports.CheckoutService,
	prefs ports.PreferenceService,
) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		checkout: checkout,
		prefs:    prefs,
	}
}

// WithHealthCheck makes /healthz report fn's result, usually a storage ping.
func (h *Handler) WithHealthCheck(fn func(ctx context.Context) error) *Handler {
	h.ping = fn
	return h
}

// --- menu & designer ---

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menu.Catalog())
}

func (h *Handler) GetPizza(w http.ResponseWriter, r *http.Request) {
	pizza, ok := menu.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product_not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, pizza)
}

func (h *Handler) DesignerOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, menu.DesignerOptions())
}

// QuoteDesign prices a design without adding it to the cart.
func (h *Handler) QuoteDesign(w http.ResponseWriter, r *http.Request) {
	var design menu.Design
	if err := json.NewDecoder(r.Body).Decode(&design); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := design.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_design", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, QuoteResponse{
		Price:     design.Price(),
		Slices:    design.Slices(),
		Signature: design.Signature(),
	})
}

// --- cart ---

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mapCartToResponse(h.cart(r), nil))
}

// AddItem adds a house pizza in the requested size.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	quantity, ok := defaultQuantity(req.Quantity)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	}

	pizza, ok := menu.Lookup(req.ProductID)
	if !ok {
		writeError(w, http.StatusNotFound, "product_not_found", "")
		return
	}
	size := req.Size
	if size == "" {
		size = "medium"
	}
	line, err := pizza.LineItem(size, quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_size", err.Error())
		return
	}

	h.addLine(w, r, line)
}

// AddDesign adds a custom pizza from the designer.
func (h *Handler) AddDesign(w http.ResponseWriter, r *http.Request) {
	var req AddDesignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	quantity, ok := defaultQuantity(req.Quantity)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1")
		return
	}
	if err := req.Design.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_design", err.Error())
		return
	}

	h.addLine(w, r, req.Design.LineItem(quantity))
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request, line cart.LineItem) {
	c := h.cart(r)
	_, err := c.AddItem(r.Context(), line)
	if errors.Is(err, cart.ErrInvalidItem) {
		writeError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, mapCartToResponse(c, err))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	c := h.cart(r)
	err := c.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	writeJSON(w, http.StatusOK, mapCartToResponse(c, err))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c := h.cart(r)
	err := c.RemoveItem(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, mapCartToResponse(c, err))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := h.cart(r)
	err := c.Clear(r.Context())
	writeJSON(w, http.StatusOK, mapCartToResponse(c, err))
}

// --- orders ---

// PlaceOrder snapshots the cart and points the client at the payment view.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orders.PlaceOrder(r.Context(), sessionID(r))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to place order", "error", err)
		writeError(w, http.StatusInternalServerError, "order_not_saved", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, PlaceOrderResponse{
		OrderID:    orderID,
		PaymentURL: paymentURL(orderID),
	})
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	snap, err := h.orders.GetOrder(r.Context(), sessionID(r), chi.URLParam(r, "id"))
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "order_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapOrderToResponse(snap))
}

// --- payment ---

func (h *Handler) PaymentView(w http.ResponseWriter, r *http.Request) {
	flow, err := h.checkout.PaymentView(r.Context(), sessionID(r), r.URL.Query().Get("id"))
	if errors.Is(err, checkout.ErrOrderNotFound) {
		http.Redirect(w, r, MenuPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "order_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PaymentViewResponse{
		State: string(flow.State()),
		Order: mapOrderToResponse(flow.Snapshot()),
	})
}

// Pay validates the form and settles the order. Settlement runs on the
// request context, so a client that disconnects abandons the charge.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var form checkout.PaymentForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	snap, err := h.checkout.Pay(r.Context(), sessionID(r), r.URL.Query().Get("id"), form)
	if err != nil {
		h.writePaymentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentResponse{
		State:         string(checkout.StateSuccess),
		TransactionID: snap.TransactionID,
		Order:         mapOrderToResponse(snap),
	})
}

func (h *Handler) writePaymentError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_payment_form",
			Message: "Por favor, corrige los errores en el formulario",
			Fields:  verr.Fields,
		})
	case errors.Is(err, checkout.ErrOrderNotFound):
		http.Redirect(w, r, MenuPath, http.StatusSeeOther)
	case errors.Is(err, checkout.ErrInProgress):
		writeError(w, http.StatusConflict, "payment_in_progress", "")
	case errors.Is(err, order.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "already_paid", "")
	case r.Context().Err() != nil:
		// The client is gone; nobody reads the response.
		slog.InfoContext(r.Context(), "payment abandoned by client", "error", err)
	default:
		writeError(w, http.StatusBadGateway, "settlement_failed", "Error al procesar el pago. Por favor, intenta de nuevo.")
	}
}

// --- preferences ---

func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.prefs.Theme(r.Context(), sessionID(r))
	if err != nil {
		slog.WarnContext(r.Context(), "failed to load theme, using default", "error", err)
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(theme)})
}

func (h *Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	theme, err := preferences.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_theme", err.Error())
		return
	}
	if err := h.prefs.SetTheme(r.Context(), sessionID(r), theme); err != nil {
		writeError(w, http.StatusInternalServerError, "theme_not_saved", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(theme)})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) cart(r *http.Request) ports.CartService {
	return h.carts.Cart(r.Context(), sessionID(r))
}

func sessionID(r *http.Request) string {
	return requestctx.SessionID(r.Context())
}

func paymentURL(orderID string) string {
	return "/payment?id=" + url.QueryEscape(orderID)
}

// defaultQuantity treats a missing quantity as one.
func defaultQuantity(q int) (int, bool) {
	if q == 0 {
		return 1, true
	}
	return q, q > 0
}

// mapCartToResponse renders the cart after a mutation. A persistence error
// does not fail the request: the change is live in memory and the response
// says it was not saved.
func mapCartToResponse(c ports.CartService, mutationErr error) CartResponse {
	items := c.Items()
	totals := c.Totals()

	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	return CartResponse{
		Items:       mapItems(items),
		Count:       count,
		Subtotal:    totals.Subtotal,
		DeliveryFee: totals.DeliveryFee,
		Total:       totals.Total,
		Persisted:   !errors.Is(mutationErr, cart.ErrPersist),
	}
}

// mapOrderToResponse converts the stored snapshot to the HTTP response format.
func mapOrderToResponse(snap *order.Snapshot) OrderResponse {
	resp := OrderResponse{
		ID:            snap.OrderID,
		Status:        string(snap.PaymentStatus),
		Items:         mapItems(snap.Items),
		Subtotal:      snap.Subtotal,
		DeliveryFee:   snap.DeliveryFee,
		Total:         snap.Total,
		TransactionID: snap.TransactionID,
		CreatedAt:     snap.CreatedAt.UTC().Format(time.RFC3339),
	}
	if snap.CustomerInfo != nil {
		resp.Customer = &CustomerResponse{
			Email:        snap.CustomerInfo.Email,
			Phone:        snap.CustomerInfo.Phone,
			PickupMethod: snap.CustomerInfo.PickupMethod,
		}
	}
	return resp
}

func mapItems(items []cart.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, it := range items {
		out[i] = LineItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Price:     it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
			Image:     it.Image,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
