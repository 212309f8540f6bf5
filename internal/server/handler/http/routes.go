package http

import (
	"net/http"

	"github.com/atinyakov/GophLedger/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves
// the ledger API.
//
// Routes:
//
//	POST   /api/register        → authHandler.Register (rate limited)
//	POST   /api/login           → authHandler.Login (rate limited)
//	GET    /api/expenses        → ledgerHandler.List
//	POST   /api/expenses        → ledgerHandler.Add
//	PATCH  /api/expenses/{id}   → ledgerHandler.Update
//	DELETE /api/expenses/{id}   → ledgerHandler.Delete
//	GET    /api/summary         → ledgerHandler.Summary
//	GET    /api/export          → ledgerHandler.Export
//
// Everything except register and login goes through userAuth. The limiter
// covers register, login and requests authenticated with Basic credentials.
func NewRouter(
	authHandler *AuthHandler,
	ledgerHandler *LedgerHandler,
	userAuth func(http.Handler) http.Handler,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	// Only allow request bodies with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Handler)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		// Protected group
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.BasicAuth)
			}
			r.Use(userAuth)
			r.Get("/expenses", ledgerHandler.List)
			r.Post("/expenses", ledgerHandler.Add)
			r.Patch("/expenses/{id}", ledgerHandler.Update)
			r.Delete("/expenses/{id}", ledgerHandler.Delete)
			r.Get("/summary", ledgerHandler.Summary)
			r.Get("/export", ledgerHandler.Export)
		})
	})

	return r
}
