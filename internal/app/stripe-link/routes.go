// Package stripelink предоставляет маршруты приложения.
package stripelink

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	cardregister "github.com/magabrotheeeer/stripe-link/internal/http/handlers/card/register"
	cardremove "github.com/magabrotheeeer/stripe-link/internal/http/handlers/card/remove"
	cardreplace "github.com/magabrotheeeer/stripe-link/internal/http/handlers/card/replace"
	cardupdate "github.com/magabrotheeeer/stripe-link/internal/http/handlers/card/update"
	customerget "github.com/magabrotheeeer/stripe-link/internal/http/handlers/customer/get"
	"github.com/magabrotheeeer/stripe-link/internal/http/handlers/health"
	invoiceupcoming "github.com/magabrotheeeer/stripe-link/internal/http/handlers/invoice/upcoming"
	linkattach "github.com/magabrotheeeer/stripe-link/internal/http/handlers/link/attach"
	linkcreate "github.com/magabrotheeeer/stripe-link/internal/http/handlers/link/create"
	linkfind "github.com/magabrotheeeer/stripe-link/internal/http/handlers/link/find"
	linklist "github.com/magabrotheeeer/stripe-link/internal/http/handlers/link/list"
	linkremove "github.com/magabrotheeeer/stripe-link/internal/http/handlers/link/remove"
	paymentmethodlist "github.com/magabrotheeeer/stripe-link/internal/http/handlers/paymentmethod/list"
	setupintentcreate "github.com/magabrotheeeer/stripe-link/internal/http/handlers/setupintent/create"
	setupintentget "github.com/magabrotheeeer/stripe-link/internal/http/handlers/setupintent/get"
	setupintentremove "github.com/magabrotheeeer/stripe-link/internal/http/handlers/setupintent/remove"
	subscriptioncancel "github.com/magabrotheeeer/stripe-link/internal/http/handlers/subscription/cancel"
	subscriptioncoupon "github.com/magabrotheeeer/stripe-link/internal/http/handlers/subscription/coupon"
	subscriptioncreate "github.com/magabrotheeeer/stripe-link/internal/http/handlers/subscription/create"
	subscriptionupdate "github.com/magabrotheeeer/stripe-link/internal/http/handlers/subscription/update"
	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	cardservice "github.com/magabrotheeeer/stripe-link/internal/services/card"
	customerservice "github.com/magabrotheeeer/stripe-link/internal/services/customer"
	invoiceservice "github.com/magabrotheeeer/stripe-link/internal/services/invoice"
	linkservice "github.com/magabrotheeeer/stripe-link/internal/services/link"
	paymentmethodservice "github.com/magabrotheeeer/stripe-link/internal/services/paymentmethod"
	subscriptionservice "github.com/magabrotheeeer/stripe-link/internal/services/subscription"
)

// Services — сервисы, на которые маршрутизируются запросы.
type Services struct {
	Link          *linkservice.Service
	Customer      *customerservice.Service
	PaymentMethod *paymentmethodservice.Service
	Card          *cardservice.Service
	Subscription  *subscriptionservice.Service
	Invoice       *invoiceservice.Service
	DBReady       func() error
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, services *Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger, services.DBReady).ServeHTTP)

		// Группа с идентификацией владельца
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.OwnerMiddleware(logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, rate.NewLimiter(50, 100)))

			r.Post("/links", linkcreate.New(logger, services.Link).ServeHTTP)
			r.Get("/links/primary", linkfind.New(logger, services.Link).ServeHTTP)
			r.Get("/links", linklist.New(logger, services.Link).ServeHTTP)
			r.Delete("/links", linkremove.New(logger, services.Link).ServeHTTP)
			r.Post("/links/attach", linkattach.New(logger, services.Link).ServeHTTP)

			r.Get("/customer", customerget.New(logger, services.Customer).ServeHTTP)

			r.Post("/setup-intents", setupintentcreate.New(logger, services.PaymentMethod).ServeHTTP)
			r.Get("/setup-intents/{id}", setupintentget.New(logger, services.PaymentMethod).ServeHTTP)
			r.Delete("/setup-intents/{id}", setupintentremove.New(logger, services.PaymentMethod).ServeHTTP)
			r.Get("/payment-methods", paymentmethodlist.New(logger, services.PaymentMethod).ServeHTTP)

			r.Post("/cards", cardregister.New(logger, services.Card).ServeHTTP)
			r.Delete("/cards/{id}", cardremove.New(logger, services.Card).ServeHTTP)
			r.Patch("/cards/{id}", cardupdate.New(logger, services.Card).ServeHTTP)
			r.Put("/cards/{id}", cardreplace.New(logger, services.Card).ServeHTTP)

			r.Post("/subscriptions", subscriptioncreate.New(logger, services.Subscription).ServeHTTP)
			r.Patch("/subscriptions/{id}", subscriptionupdate.New(logger, services.Subscription).ServeHTTP)
			r.Post("/subscriptions/{id}/coupon", subscriptioncoupon.New(logger, services.Subscription).ServeHTTP)
			r.Delete("/subscriptions/{id}", subscriptioncancel.New(logger, services.Subscription).ServeHTTP)

			r.Get("/invoices/upcoming", invoiceupcoming.New(logger, services.Invoice).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
}
