/**
 * @description
 * This file sets up the HTTP router for the ai-billing-server using the
 * go-chi/chi router. The webhook endpoint is public (authenticated by its
 * HMAC signature); the quota read endpoint requires a Clerk JWT.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the service routes.
func NewRouter(h *Handler, jwksURL string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", razorpaySignatureHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})

	// Razorpay authenticates itself via the signature header, not a JWT.
	r.Post("/webhook/razorpay", h.handleRazorpayWebhook)

	// Protected routes that require authentication
	r.Group(func(r chi.Router) {
		r.Use(ClerkAuthMiddleware(jwksURL))

		r.Get("/quota", h.handleGetQuota)
	})

	return r
}
