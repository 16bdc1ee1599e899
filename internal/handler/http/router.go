package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/schoolwear/pkg/health"
	"github.com/utafrali/schoolwear/pkg/middleware"
)

// serviceName labels HTTP metrics and server spans.
const serviceName = "storefront"

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Cart    *CartHandler
	Orders  *OrderHandler
	Session *SessionHandler
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(h Handlers, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/products/{id}", h.Cart.GetProduct)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.Cart.GetCart)
			r.Delete("/", h.Cart.ClearCart)

			r.Post("/items", h.Cart.AddItem)
			r.Put("/items/{productId}", h.Cart.UpdateItemQuantity)
			r.Delete("/items/{productId}", h.Cart.RemoveItem)
		})

		r.Post("/checkout", h.Orders.Checkout)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.Orders.ListOrders)
			r.Get("/{id}", h.Orders.GetOrder)
			r.Post("/{id}/cancel", h.Orders.CancelOrder)
		})

		r.Get("/admin/orders/summary", h.Orders.Summary)

		r.Put("/session", h.Session.Save)
		r.Delete("/session", h.Session.Clear)
	})

	return r
}
