// Package stripelink собирает приложение: хранилище, миграции, шлюз
// Stripe, опциональные Redis и RabbitMQ, сервисы и HTTP-сервер.
package stripelink

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/stripe-link/internal/config"
	"github.com/magabrotheeeer/stripe-link/internal/events"
	"github.com/magabrotheeeer/stripe-link/internal/lock"
	"github.com/magabrotheeeer/stripe-link/internal/migrations"
	cardservice "github.com/magabrotheeeer/stripe-link/internal/services/card"
	customerservice "github.com/magabrotheeeer/stripe-link/internal/services/customer"
	invoiceservice "github.com/magabrotheeeer/stripe-link/internal/services/invoice"
	linkservice "github.com/magabrotheeeer/stripe-link/internal/services/link"
	paymentmethodservice "github.com/magabrotheeeer/stripe-link/internal/services/paymentmethod"
	subscriptionservice "github.com/magabrotheeeer/stripe-link/internal/services/subscription"
	"github.com/magabrotheeeer/stripe-link/internal/storage/repository"
	"github.com/magabrotheeeer/stripe-link/internal/stripeapi"
)

// App — собранное приложение с HTTP-сервером и ресурсами для остановки.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *repository.Storage
	publisher events.Publisher
	closeFns  []func()
}

// New собирает приложение из конфигурации.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	ownerCol := repository.ParseColumnType(cfg.UserIDSQLType, logger)
	db, err := repository.New(cfg.StorageConnectionString, ownerCol)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	stripeapi.SetKey(cfg.Stripe.APIKey)
	gateway := stripeapi.NewClient(cfg.Stripe.Timeout)

	var closeFns []func()

	var dlock linkservice.DistributedLock
	if cfg.RedisLock.Enabled {
		redisLock, err := lock.InitServer(ctx, cfg.RedisLock)
		if err != nil {
			return nil, err
		}
		dlock = redisLock
		closeFns = append(closeFns, func() { _ = redisLock.Db.Close() })
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		conn, err := events.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		amqpPublisher, err := events.NewAMQPPublisher(conn, cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		publisher = amqpPublisher
		closeFns = append(closeFns, amqpPublisher.Close)
	}

	linkSvc := linkservice.New(db, gateway, dlock, publisher, logger)
	customerSvc := customerservice.New(linkSvc, gateway, logger)
	paymentMethodSvc := paymentmethodservice.New(linkSvc, db, gateway, logger)
	cardSvc := cardservice.New(linkSvc, gateway, logger)
	subscriptionSvc := subscriptionservice.New(linkSvc, gateway, logger)
	invoiceSvc := invoiceservice.New(linkSvc, gateway, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Link:          linkSvc,
		Customer:      customerSvc,
		PaymentMethod: paymentMethodSvc,
		Card:          cardSvc,
		Subscription:  subscriptionSvc,
		Invoice:       invoiceSvc,
		DBReady:       func() error { return repository.CheckDatabaseReady(db) },
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		publisher: publisher,
		closeFns:  closeFns,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		for _, closeFn := range a.closeFns {
			closeFn()
		}
		_ = a.db.DB.Close()
		return err
	}
}
