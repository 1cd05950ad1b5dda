package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ElenaBezro/go-shop-api/internal/auth"
)

// NewRouter wires all handlers under /api/v1. Product reads are public,
// cart and order endpoints need a valid token, and product writes plus
// order status changes are admin only.
func NewRouter(
	log *zap.Logger,
	tokens *auth.TokenManager,
	authHandler *AuthHandler,
	productHandler *ProductHandler,
	cartHandler *CartHandler,
	orderHandler *OrderHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(Metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/registration", authHandler.Register)
		r.Post("/auth", authHandler.Login)

		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(tokens))
			r.Use(RequireAdmin)

			r.Post("/products", productHandler.Create)
			r.Put("/products/{id}", productHandler.Update)
			r.Delete("/products/{id}", productHandler.Delete)

			r.Patch("/orders/{id}", orderHandler.Advance)
			r.Put("/orders/{id}", orderHandler.SetStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(tokens))

			r.Get("/cart", cartHandler.List)
			r.Post("/cart", cartHandler.Add)
			r.Put("/cart/{id}", cartHandler.Update)
			r.Delete("/cart/{id}", cartHandler.Remove)

			r.Post("/orders", orderHandler.Place)
			r.Get("/orders", orderHandler.List)
		})
	})

	return r
}
