package http

import (
	"context"
	"net/http"

	"github.com/go-api-careauth/internal/config"
	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/transport/http/handler"
	appmiddleware "github.com/go-api-careauth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// rate limiter's background cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, svcs *Services) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst,
		appmiddleware.TrustProxyHeaders(cfg.TrustProxy))
	authMw := appmiddleware.Authenticate(svcs.Gate)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(svcs.Auth)
	userH := handler.NewUserHandler(svcs.Users)
	predH := handler.NewPredictionHandler(svcs.Prediction)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/auth/register", authH.Register)
			r.Post("/auth/otp", authH.RequestOTP)
			r.Post("/auth/otp/verify", authH.VerifyOTP)
			r.Post("/auth/login", authH.Login)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/auth/me", authH.Me)
			r.Post("/predictions", predH.Predict)
			r.Get("/predictions/history", predH.History)

			r.With(appmiddleware.RequireRole(domain.RoleDoctor, domain.RoleAdmin)).
				Get("/doctor/patients", predH.DoctorPatients)

			// Admin-only routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Put("/users/{id}/role", userH.UpdateRole)
				r.Delete("/users/{id}", userH.Delete)
				r.Get("/analytics", predH.Analytics)
				r.Get("/predictions", predH.All)
			})
		})
	})

	return r
}
