package app

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"payment-gateway/internal/guard"
	"payment-gateway/internal/middleware"
)

// RouteGroups are the subrouters the business handlers (payments, refunds,
// webhooks, merchant auth) mount onto. Each arrives with its admission
// chain already applied.
type RouteGroups struct {
	// Auth covers /api/auth/*: global limiting plus the failures-only
	// login limiter.
	Auth *mux.Router
	// Payments covers /api/payments/*: signed-request authentication,
	// payment and tier limiters, and the cost budget.
	Payments *mux.Router
	// Webhooks covers /api/webhooks/*: the high-volume delivery limiter
	// and the cost budget.
	Webhooks *mux.Router
}

// SetupRoutes builds the full router: logging, DDoS guard, the global
// limiter, the service's own endpoints, and the protected route groups.
func (app *App) SetupRoutes(router *mux.Router) *RouteGroups {
	clientKey := func(r *http.Request) string { return guard.ClientKey(r) }

	router.Use(middleware.Logging)
	router.Use(middleware.DDoSGuard(app.Guard, "/health", "/swagger/"))
	router.Use(mux.MiddlewareFunc(app.Global.Middleware(clientKey)))

	// Service endpoints. Health stays reachable through every outage;
	// the admin surface requires an operator session.
	router.HandleFunc("/health", app.Handlers.HealthCheck).Methods("GET")
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(app.Bearer.Middleware))
	admin.HandleFunc("/stats", app.Handlers.GetStats).Methods("GET")
	admin.HandleFunc("/unblock", app.Handlers.HandleUnblock).Methods("POST")

	// Attach points for the business handlers.
	authGroup := router.PathPrefix("/api/auth").Subrouter()
	authGroup.Use(mux.MiddlewareFunc(app.Auth.Middleware(clientKey)))

	payments := router.PathPrefix("/api/payments").Subrouter()
	payments.Use(mux.MiddlewareFunc(app.APIKeys.Middleware))
	payments.Use(mux.MiddlewareFunc(app.Payment.Middleware(clientKey)))
	payments.Use(mux.MiddlewareFunc(app.Dynamic.Middleware(clientKey)))
	payments.Use(mux.MiddlewareFunc(app.Cost.Middleware(clientKey)))

	webhooks := router.PathPrefix("/api/webhooks").Subrouter()
	webhooks.Use(mux.MiddlewareFunc(app.Webhook.Middleware(clientKey)))
	webhooks.Use(mux.MiddlewareFunc(app.Cost.Middleware(clientKey)))

	return &RouteGroups{Auth: authGroup, Payments: payments, Webhooks: webhooks}
}
