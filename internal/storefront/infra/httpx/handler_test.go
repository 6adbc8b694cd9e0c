package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/pizzeria-storefront/internal/cart"
	"github.com/jcmexdev/pizzeria-storefront/internal/checkout"
	"github.com/jcmexdev/pizzeria-storefront/internal/pkg/kvstore"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/infra/adapters/service"
	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/infra/httpx/middlewares"
)

// flakyStore rejects writes while failWrites is set.
type flakyStore struct {
	kvstore.Store
	failWrites bool
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failWrites {
		return errors.New("quota exceeded")
	}
	return f.Store.Set(ctx, key, value, ttl)
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
	store   *flakyStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := &flakyStore{Store: kvstore.NewMemory()}
	scopes := service.SessionScope(store)
	carts := cart.NewSessions(scopes)
	svc := checkout.NewService(checkout.NewSimulatedSettler(checkout.WithDelay(0)), nil)
	sf := service.NewStorefront(scopes, carts, svc, 0)

	return &testServer{
		t:       t,
		handler: NewRouter(NewHandler(sf, sf, sf, sf)),
		store:   store,
	}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == middlewares.SessionCookie {
			s.cookie = c
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func validPayment() checkout.PaymentForm {
	return checkout.PaymentForm{
		CardName:   "Ana Gómez",
		CardNumber: "4111111111111111",
		CardExpiry: "12/27",
		CardCVC:    "123",
		Email:      "ana@example.com",
		Phone:      "3001234567",
	}
}

func TestCheckoutJourney(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "2", Size: "medium", Quantity: 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	c := decode[CartResponse](t, rec)
	assert.Equal(t, int64(29980), c.Subtotal)
	assert.Equal(t, int64(12000), c.DeliveryFee)
	assert.Equal(t, int64(41980), c.Total)
	assert.Equal(t, 2, c.Count)
	assert.True(t, c.Persisted)

	rec = s.do(http.MethodPost, "/orders", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	placed := decode[PlaceOrderResponse](t, rec)
	assert.True(t, strings.HasPrefix(placed.OrderID, "ORD-"))
	assert.Equal(t, "/payment?id="+placed.OrderID, placed.PaymentURL)

	cartAfter := decode[CartResponse](t, s.do(http.MethodGet, "/cart", nil))
	assert.Empty(t, cartAfter.Items)
	assert.Zero(t, cartAfter.Total)

	rec = s.do(http.MethodGet, placed.PaymentURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[PaymentViewResponse](t, rec)
	assert.Equal(t, "idle", view.State)
	assert.Equal(t, int64(41980), view.Order.Total)

	bad := validPayment()
	bad.CardNumber = "4111"
	rec = s.do(http.MethodPost, placed.PaymentURL, bad)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[ErrorResponse](t, rec)
	assert.Contains(t, verr.Fields, checkout.FieldCardNumber)

	rec = s.do(http.MethodPost, placed.PaymentURL, validPayment())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decode[PaymentResponse](t, rec)
	assert.Equal(t, "success", paid.State)
	assert.True(t, strings.HasPrefix(paid.TransactionID, "TXN-"))
	assert.Equal(t, "completed", paid.Order.Status)
	require.NotNil(t, paid.Order.Customer)
	assert.Equal(t, "local", paid.Order.Customer.PickupMethod)

	rec = s.do(http.MethodPost, placed.PaymentURL, validPayment())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/orders/"+placed.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[OrderResponse](t, rec)
	assert.Equal(t, paid.TransactionID, stored.TransactionID)
	assert.Len(t, stored.Items, 1)

	view = decode[PaymentViewResponse](t, s.do(http.MethodGet, placed.PaymentURL, nil))
	assert.Equal(t, "success", view.State)
}

func TestPaymentUnknownOrderRedirectsToMenu(t *testing.T) {
	s := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := s.do(method, "/payment?id=ORD-404", validPayment())
		assert.Equal(t, http.StatusSeeOther, rec.Code, method)
		assert.Equal(t, MenuPath, rec.Header().Get("Location"), method)
	}

	rec := s.do(http.MethodGet, "/payment", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestOrdersAreSessionScoped(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "1"})
	placed := decode[PlaceOrderResponse](t, s.do(http.MethodPost, "/orders", nil))

	s.cookie = nil
	rec := s.do(http.MethodGet, "/orders/"+placed.OrderID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartMutations(t *testing.T) {
	s := newTestServer(t)

	c := decode[CartResponse](t, s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "1", Size: "small"}))
	require.Len(t, c.Items, 1)
	lineID := c.Items[0].ID
	assert.Equal(t, int64(10392), c.Items[0].Price)

	c = decode[CartResponse](t, s.do(http.MethodPatch, "/cart/items/"+lineID, UpdateQuantityRequest{Quantity: 3}))
	assert.Equal(t, 3, c.Items[0].Quantity)

	c = decode[CartResponse](t, s.do(http.MethodPatch, "/cart/items/"+lineID, UpdateQuantityRequest{Quantity: 0}))
	assert.Equal(t, 3, c.Items[0].Quantity)

	c = decode[CartResponse](t, s.do(http.MethodDelete, "/cart/items/"+lineID, nil))
	assert.Empty(t, c.Items)
	assert.Zero(t, c.DeliveryFee)

	s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "3"})
	c = decode[CartResponse](t, s.do(http.MethodDelete, "/cart", nil))
	assert.Empty(t, c.Items)
}

func TestAddItemRejections(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "99"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "1", Size: "family"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "1", Quantity: -2}).Code)
}

func TestCartReportsUnpersistedChanges(t *testing.T) {
	s := newTestServer(t)
	s.store.failWrites = true

	rec := s.do(http.MethodPost, "/cart/items", AddItemRequest{ProductID: "4"})
	require.Equal(t, http.StatusCreated, rec.Code)
	c := decode[CartResponse](t, rec)
	assert.False(t, c.Persisted)
	assert.Len(t, c.Items, 1)
}

func TestAddDesignMergesIdenticalDesigns(t *testing.T) {
	s := newTestServer(t)
	design := map[string]any{
		"size":        "large",
		"crust":       "stuffed",
		"toppings":    []string{"ham", "pineapple"},
		"twoFlavors":  false,
		"bakeMinutes": 12,
		"cutStyle":    "square",
	}

	s.do(http.MethodPost, "/cart/designs", map[string]any{"design": design, "quantity": 1})
	rec := s.do(http.MethodPost, "/cart/designs", map[string]any{"design": design, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	c := decode[CartResponse](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, int64(12000+3000+4000+1500), c.Items[0].Price)

	design["bakeMinutes"] = 30
	rec = s.do(http.MethodPost, "/cart/designs", map[string]any{"design": design})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestQuoteDesign(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/designer/quote", map[string]any{
		"size": "medium", "crust": "traditional", "bakeMinutes": 12, "cutStyle": "traditional",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[QuoteResponse](t, rec)
	assert.Equal(t, int64(10000), q.Price)
	assert.Equal(t, 8, q.Slices)

	rec = s.do(http.MethodPost, "/designer/quote", map[string]any{"size": "giant"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMenu(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/menu", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 4)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/menu/3", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/menu/9", nil).Code)
}

func TestThemePreference(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, "dark", decode[ThemeResponse](t, s.do(http.MethodGet, "/preferences/theme", nil)).Theme)

	rec := s.do(http.MethodPut, "/preferences/theme", ThemeRequest{Theme: "light"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "light", decode[ThemeResponse](t, s.do(http.MethodGet, "/preferences/theme", nil)).Theme)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPut, "/preferences/theme", ThemeRequest{Theme: "sepia"}).Code)
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/cart", nil)
	require.NotNil(t, s.cookie)
	first := s.cookie.Value
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))

	rec = s.do(http.MethodGet, "/cart", nil)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
	assert.Equal(t, first, s.cookie.Value)

	s.cookie = &http.Cookie{Name: middlewares.SessionCookie, Value: "../../etc"}
	s.do(http.MethodGet, "/cart", nil)
	assert.NotEqual(t, "../../etc", s.cookie.Value)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	h := NewHandler(nil, nil, nil, nil).WithHealthCheck(func(context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
