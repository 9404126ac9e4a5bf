package stripeapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	stripe "github.com/stripe/stripe-go"
	"github.com/stripe/stripe-go/customer"
	"github.com/stripe/stripe-go/invoice"
	"github.com/stripe/stripe-go/paymentmethod"
	"github.com/stripe/stripe-go/setupintent"
	"github.com/stripe/stripe-go/sub"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
)

var apiCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "stripe_api_requests_total",
	Help: "Количество вызовов Stripe API по операциям и результату.",
}, []string{"operation", "outcome"})

// SetKey задаёт ключ Stripe API один раз при старте приложения.
func SetKey(key string) { stripe.Key = key }

// Client — реализация Gateway поверх официального SDK.
type Client struct {
	timeout time.Duration
}

// NewClient создает клиента Stripe API с таймаутом на каждый вызов.
func NewClient(timeout time.Duration) *Client {
	return &Client{timeout: timeout}
}

// callCtx ограничивает вызов таймаутом клиента поверх контекста вызывающего.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// done пишет метрику вызова и переводит ошибки SDK в доменные типы.
func done(op string, err error) error {
	if err == nil {
		apiCalls.WithLabelValues(op, "ok").Inc()
		return nil
	}
	apiCalls.WithLabelValues(op, "error").Inc()

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, errs.ErrTimeout, err)
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%s: %w", op, &errs.APIError{
			Code: string(stripeErr.Code),
			Type: string(stripeErr.Type),
			Msg:  stripeErr.Msg,
		})
	}
	return fmt.Errorf("%s: %w: %w", op, errs.ErrExternalAPI, err)
}

// CreateCustomer создает клиента Stripe.
func (c *Client) CreateCustomer(ctx context.Context, name, description string) (*stripe.Customer, error) {
	const op = "stripeapi.CreateCustomer"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.CustomerParams{
		Name:        stripe.String(name),
		Description: stripe.String(description),
	}
	params.Context = ctx

	cus, err := customer.New(params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return cus, nil
}

// GetCustomer возвращает клиента Stripe.
func (c *Client) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	const op = "stripeapi.GetCustomer"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.CustomerParams{}
	params.Context = ctx

	cus, err := customer.Get(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return cus, nil
}

// DeleteCustomer удаляет клиента Stripe.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	const op = "stripeapi.DeleteCustomer"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.CustomerParams{}
	params.Context = ctx

	_, err := customer.Del(id, params)
	return done(op, err)
}

// CreateSetupIntent создает SetupIntent для клиента.
func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error) {
	const op = "stripeapi.CreateSetupIntent"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	intent, err := setupintent.New(params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return intent, nil
}

// GetSetupIntent возвращает SetupIntent.
func (c *Client) GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	const op = "stripeapi.GetSetupIntent"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SetupIntentParams{}
	params.Context = ctx

	intent, err := setupintent.Get(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return intent, nil
}

// CancelSetupIntent отменяет незавершённый SetupIntent.
func (c *Client) CancelSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error) {
	const op = "stripeapi.CancelSetupIntent"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SetupIntentCancelParams{}
	params.Context = ctx

	intent, err := setupintent.Cancel(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return intent, nil
}

// CreatePaymentMethodFromToken создает карточный платёжный метод из токена.
func (c *Client) CreatePaymentMethodFromToken(ctx context.Context, cardToken string) (*stripe.PaymentMethod, error) {
	const op = "stripeapi.CreatePaymentMethodFromToken"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodParams{
		Type: stripe.String("card"),
		Card: &stripe.PaymentMethodCardParams{
			Token: stripe.String(cardToken),
		},
	}
	params.Context = ctx

	pm, err := paymentmethod.New(params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return pm, nil
}

// GetPaymentMethod возвращает платёжный метод.
func (c *Client) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	const op = "stripeapi.GetPaymentMethod"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return pm, nil
}

// AttachPaymentMethod привязывает платёжный метод к клиенту.
func (c *Client) AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	const op = "stripeapi.AttachPaymentMethod"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	pm, err := paymentmethod.Attach(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return pm, nil
}

// DetachPaymentMethod отвязывает платёжный метод.
func (c *Client) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	const op = "stripeapi.DetachPaymentMethod"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	pm, err := paymentmethod.Detach(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return pm, nil
}

// UpdateCardExpiry обновляет срок действия карты платёжного метода.
func (c *Client) UpdateCardExpiry(ctx context.Context, id string, expMonth, expYear int64) (*stripe.PaymentMethod, error) {
	const op = "stripeapi.UpdateCardExpiry"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodParams{
		Card: &stripe.PaymentMethodCardParams{
			ExpMonth: stripe.String(strconv.FormatInt(expMonth, 10)),
			ExpYear:  stripe.String(strconv.FormatInt(expYear, 10)),
		},
	}
	params.Context = ctx

	pm, err := paymentmethod.Update(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return pm, nil
}

// ListCardPaymentMethods возвращает карточные платёжные методы клиента.
func (c *Client) ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	const op = "stripeapi.ListCardPaymentMethods"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String("card"),
	}
	params.Context = ctx

	var result []*stripe.PaymentMethod
	iter := paymentmethod.List(params)
	for iter.Next() {
		result = append(result, iter.PaymentMethod())
	}
	if err := done(op, iter.Err()); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSubscription создает подписку клиента на план.
func (c *Client) CreateSubscription(ctx context.Context, customerID, planID, paymentMethodID string, quantity int64) (*stripe.Subscription, error) {
	const op = "stripeapi.CreateSubscription"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				Plan:     stripe.String(planID),
				Quantity: stripe.Int64(quantity),
			},
		},
		DefaultPaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	subscription, err := sub.New(params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return subscription, nil
}

// GetSubscription возвращает подписку по идентификатору.
func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	const op = "stripeapi.GetSubscription"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	subscription, err := sub.Get(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return subscription, nil
}

// UpdateSubscriptionPaymentMethod меняет платёжный метод подписки по умолчанию.
func (c *Client) UpdateSubscriptionPaymentMethod(ctx context.Context, id, paymentMethodID string) (*stripe.Subscription, error) {
	const op = "stripeapi.UpdateSubscriptionPaymentMethod"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		DefaultPaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	subscription, err := sub.Update(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return subscription, nil
}

// ApplySubscriptionCoupon применяет купон к подписке.
func (c *Client) ApplySubscriptionCoupon(ctx context.Context, id, couponCode string) (*stripe.Subscription, error) {
	const op = "stripeapi.ApplySubscriptionCoupon"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{
		Coupon: stripe.String(couponCode),
	}
	params.Context = ctx

	subscription, err := sub.Update(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return subscription, nil
}

// CancelSubscription отменяет подписку: сразу либо в конце оплаченного периода.
func (c *Client) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*stripe.Subscription, error) {
	const op = "stripeapi.CancelSubscription"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	if atPeriodEnd {
		params := &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		params.Context = ctx
		subscription, err := sub.Update(id, params)
		if err := done(op, err); err != nil {
			return nil, err
		}
		return subscription, nil
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	subscription, err := sub.Cancel(id, params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return subscription, nil
}

// UpcomingInvoice возвращает ближайший счёт клиента.
func (c *Client) UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error) {
	const op = "stripeapi.UpcomingInvoice"
	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	params := &stripe.InvoiceParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	inv, err := invoice.GetNext(params)
	if err := done(op, err); err != nil {
		return nil, err
	}
	return inv, nil
}
