// Package stripeapi оборачивает официальный SDK Stripe. Интерфейс Gateway
// абстрагирует вызовы API от сервисного слоя, ошибки переводятся в доменные
// типы, вызовы считаются в метриках Prometheus.
package stripeapi

import (
	"context"

	stripe "github.com/stripe/stripe-go"
)

// Gateway описывает операции Stripe API, используемые сервисным слоем.
// Все методы блокирующие, время ожидания ограничивается контекстом
// и таймаутом клиента.
type Gateway interface {
	// CreateCustomer создает клиента Stripe с читаемым именем и описанием.
	CreateCustomer(ctx context.Context, name, description string) (*stripe.Customer, error)
	// GetCustomer возвращает клиента Stripe по идентификатору.
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	// DeleteCustomer удаляет клиента Stripe. Используется как компенсация,
	// когда запись связи не удалось сохранить.
	DeleteCustomer(ctx context.Context, id string) error
	// CreateSetupIntent создает SetupIntent для сохранения платёжного метода.
	CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error)
	// GetSetupIntent возвращает SetupIntent по идентификатору.
	GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
	// CancelSetupIntent отменяет незавершённый SetupIntent.
	CancelSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
	// CreatePaymentMethodFromToken создает карточный платёжный метод из токена.
	CreatePaymentMethodFromToken(ctx context.Context, cardToken string) (*stripe.PaymentMethod, error)
	// GetPaymentMethod возвращает платёжный метод по идентификатору.
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	// AttachPaymentMethod привязывает платёжный метод к клиенту.
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	// DetachPaymentMethod отвязывает платёжный метод.
	DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	// UpdateCardExpiry обновляет срок действия карты платёжного метода.
	UpdateCardExpiry(ctx context.Context, id string, expMonth, expYear int64) (*stripe.PaymentMethod, error)
	// ListCardPaymentMethods возвращает карточные платёжные методы клиента.
	ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	// CreateSubscription создает подписку на план с платёжным методом по умолчанию.
	CreateSubscription(ctx context.Context, customerID, planID, paymentMethodID string, quantity int64) (*stripe.Subscription, error)
	// GetSubscription возвращает подписку по идентификатору.
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	// UpdateSubscriptionPaymentMethod меняет платёжный метод подписки по умолчанию.
	UpdateSubscriptionPaymentMethod(ctx context.Context, id, paymentMethodID string) (*stripe.Subscription, error)
	// ApplySubscriptionCoupon применяет купон к подписке.
	ApplySubscriptionCoupon(ctx context.Context, id, couponCode string) (*stripe.Subscription, error)
	// CancelSubscription отменяет подписку сразу или в конце периода.
	CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*stripe.Subscription, error)
	// UpcomingInvoice возвращает ближайший счёт клиента.
	UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error)
}
