// Package subscription — тонкая обёртка над подписками Stripe.
// Логика биллинга остаётся на стороне Stripe, сервис лишь подставляет
// клиента из связи владельца и отклоняет операции над чужими подписками.
package subscription

import (
	"context"
	"fmt"
	"log/slog"

	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Linker — операции сервиса связей.
type Linker interface {
	GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error)
	FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
}

// Gateway — подмножество Stripe API для подписок.
type Gateway interface {
	CreateSubscription(ctx context.Context, customerID, planID, paymentMethodID string, quantity int64) (*stripe.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	UpdateSubscriptionPaymentMethod(ctx context.Context, id, paymentMethodID string) (*stripe.Subscription, error)
	ApplySubscriptionCoupon(ctx context.Context, id, couponCode string) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*stripe.Subscription, error)
}

// Service создает и обслуживает подписки владельца.
type Service struct {
	linker  Linker
	gateway Gateway
	log     *slog.Logger
}

func New(linker Linker, gateway Gateway, log *slog.Logger) *Service {
	return &Service{
		linker:  linker,
		gateway: gateway,
		log:     log,
	}
}

// CreateSubscription подписывает клиента владельца на план.
func (s *Service) CreateSubscription(ctx context.Context, owner models.UserID, planID, paymentMethodID string, quantity int64) (*stripe.Subscription, error) {
	const op = "services.subscription.CreateSubscription"
	if planID == "" {
		return nil, fmt.Errorf("%s: %w: empty plan id", op, errs.ErrInvalidArgument)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w: quantity must be positive", op, errs.ErrInvalidArgument)
	}

	link, err := s.linker.GetOrCreateLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.gateway.CreateSubscription(ctx, link.StripeCustomerID, planID, paymentMethodID, quantity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateSubscriptionPaymentMethod привязывает новый платёжный метод
// к клиенту владельца и делает его методом подписки по умолчанию.
func (s *Service) UpdateSubscriptionPaymentMethod(ctx context.Context, owner models.UserID, subscriptionID, paymentMethodID string) (*stripe.Subscription, error) {
	const op = "services.subscription.UpdateSubscriptionPaymentMethod"
	if paymentMethodID == "" {
		return nil, fmt.Errorf("%s: %w: empty payment method id", op, errs.ErrInvalidArgument)
	}

	_, link, err := s.ownedSubscription(ctx, owner, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, link.StripeCustomerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.gateway.UpdateSubscriptionPaymentMethod(ctx, subscriptionID, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ApplyCoupon применяет купон к подписке владельца.
func (s *Service) ApplyCoupon(ctx context.Context, owner models.UserID, subscriptionID, couponCode string) (*stripe.Subscription, error) {
	const op = "services.subscription.ApplyCoupon"
	if couponCode == "" {
		return nil, fmt.Errorf("%s: %w: empty coupon code", op, errs.ErrInvalidArgument)
	}

	if _, _, err := s.ownedSubscription(ctx, owner, subscriptionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.gateway.ApplySubscriptionCoupon(ctx, subscriptionID, couponCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CancelSubscription отменяет подписку владельца сразу или в конце
// оплаченного периода.
func (s *Service) CancelSubscription(ctx context.Context, owner models.UserID, subscriptionID string, atPeriodEnd bool) (*stripe.Subscription, error) {
	const op = "services.subscription.CancelSubscription"
	if _, _, err := s.ownedSubscription(ctx, owner, subscriptionID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.gateway.CancelSubscription(ctx, subscriptionID, atPeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ownedSubscription проверяет, что подписка принадлежит клиенту владельца.
// Чужая подписка — ErrInvariantViolation.
func (s *Service) ownedSubscription(ctx context.Context, owner models.UserID, subscriptionID string) (*stripe.Subscription, *models.UserLink, error) {
	if subscriptionID == "" {
		return nil, nil, fmt.Errorf("%w: empty subscription id", errs.ErrInvalidArgument)
	}

	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: owner has no linked customer", errs.ErrInvalidArgument)
	}

	subscription, err := s.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if subscription.Customer == nil || subscription.Customer.ID != link.StripeCustomerID {
		return nil, nil, fmt.Errorf("%w: subscription %s belongs to another customer",
			errs.ErrInvariantViolation, subscriptionID)
	}
	return subscription, link, nil
}
