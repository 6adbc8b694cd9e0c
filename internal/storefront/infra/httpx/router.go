package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/pizzeria-storefront/internal/storefront/infra/httpx/middlewares"
)

type RouterOption func(*routerConfig)

type routerConfig struct {
	secureCookies bool
}

// WithSecureCookies marks the session cookie Secure, for TLS deployments.
func WithSecureCookies(secure bool) RouterOption {
	return func(c *routerConfig) { c.secureCookies = secure }
}

func NewRouter(handler *Handler, opts ...RouterOption) http.Handler {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.AttachRequestContext)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Healthz)

	r.Get("/menu", handler.ListMenu)
	r.Get("/menu/{id}", handler.GetPizza)
	r.Get("/designer/options", handler.DesignerOptions)
	r.Post("/designer/quote", handler.QuoteDesign)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.Session(cfg.secureCookies))

		r.Get("/cart", handler.GetCart)
		r.Post("/cart/items", handler.AddItem)
		r.Post("/cart/designs", handler.AddDesign)
		r.Patch("/cart/items/{id}", handler.UpdateItem)
		r.Delete("/cart/items/{id}", handler.RemoveItem)
		r.Delete("/cart", handler.ClearCart)

		r.Post("/orders", handler.PlaceOrder)
		r.Get("/orders/{id}", handler.GetOrderByID)

		r.Get("/payment", handler.PaymentView)
		r.Post("/payment", handler.Pay)

		r.Get("/preferences/theme", handler.GetTheme)
		r.Put("/preferences/theme", handler.PutTheme)
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
