package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Cart           *CartHandler
	Checkout       *CheckoutHandler
	Metrics        http.Handler
	RequestTimeout time.Duration
}

func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Use(AuthMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetPage)
			r.Delete("/", cfg.Cart.ClearCart)
			r.Get("/sidebar", cfg.Cart.GetSidebar)
			r.Get("/summary", cfg.Cart.GetSummary)
			r.Get("/badge", cfg.Cart.GetBadge)

			r.Post("/items", cfg.Cart.AddItem)
			r.Put("/items/{id}", cfg.Cart.UpdateQuantity)
			r.Delete("/items/{id}", cfg.Cart.RemoveItem)
			r.Post("/items/{id}/increment", cfg.Cart.Increment)
			r.Post("/items/{id}/decrement", cfg.Cart.Decrement)

			r.Post("/panel/open", cfg.Cart.OpenPanel)
			r.Post("/panel/close", cfg.Cart.ClosePanel)
			r.Put("/panel", cfg.Cart.SetPanel)
		})
		r.Post("/checkout", cfg.Checkout.InitiateCheckout)
	})

	return r
}
