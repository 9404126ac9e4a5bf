// Package card регистрирует и обслуживает карты владельца.
// Карта всегда привязывается к клиенту Stripe из связи владельца,
// операции над чужими картами отклоняются.
package card

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

// Gateway — подмножество Stripe API для карт.
type Gateway interface {
	CreatePaymentMethodFromToken(ctx context.Context, cardToken string) (*stripe.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	UpdateCardExpiry(ctx context.Context, id string, expMonth, expYear int64) (*stripe.PaymentMethod, error)
}

// Service регистрирует и обслуживает карты владельца.
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

// RegisterCardToken создает платёжный метод из карточного токена и
// привязывает его к клиенту владельца.
func (s *Service) RegisterCardToken(ctx context.Context, owner models.UserID, cardToken string) (*stripe.PaymentMethod, error) {
	const op = "services.card.RegisterCardToken"
	if cardToken == "" {
		return nil, fmt.Errorf("%s: %w: empty card token", op, errs.ErrInvalidArgument)
	}

	link, err := s.linker.GetOrCreateLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pm, err := s.gateway.CreatePaymentMethodFromToken(ctx, cardToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	attached, err := s.gateway.AttachPaymentMethod(ctx, pm.ID, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attached, nil
}

// RegisterPaymentMethod привязывает уже созданный платёжный метод
// к клиенту владельца.
func (s *Service) RegisterPaymentMethod(ctx context.Context, owner models.UserID, paymentMethodID string) (*stripe.PaymentMethod, error) {
	const op = "services.card.RegisterPaymentMethod"
	if paymentMethodID == "" {
		return nil, fmt.Errorf("%s: %w: empty payment method id", op, errs.ErrInvalidArgument)
	}

	link, err := s.linker.GetOrCreateLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	attached, err := s.gateway.AttachPaymentMethod(ctx, paymentMethodID, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attached, nil
}

// DeleteCard отвязывает карту владельца от его клиента Stripe.
func (s *Service) DeleteCard(ctx context.Context, owner models.UserID, paymentMethodID string) error {
	const op = "services.card.DeleteCard"
	if _, _, err := s.ownedPaymentMethod(ctx, owner, paymentMethodID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.gateway.DetachPaymentMethod(ctx, paymentMethodID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateCard заменяет карту владельца: старый платёжный метод отвязывается,
// из токена создается и привязывается новый.
func (s *Service) UpdateCard(ctx context.Context, owner models.UserID, oldPaymentMethodID, newCardToken string) (*stripe.PaymentMethod, error) {
	const op = "services.card.UpdateCard"
	if newCardToken == "" {
		return nil, fmt.Errorf("%s: %w: empty card token", op, errs.ErrInvalidArgument)
	}

	_, link, err := s.ownedPaymentMethod(ctx, owner, oldPaymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.gateway.DetachPaymentMethod(ctx, oldPaymentMethodID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newCard, err := s.gateway.CreatePaymentMethodFromToken(ctx, newCardToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	attached, err := s.gateway.AttachPaymentMethod(ctx, newCard.ID, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attached, nil
}

// UpdateCardExpiry обновляет срок действия карты владельца.
func (s *Service) UpdateCardExpiry(ctx context.Context, owner models.UserID, paymentMethodID string, expMonth, expYear int64) (*stripe.PaymentMethod, error) {
	const op = "services.card.UpdateCardExpiry"
	if _, _, err := s.ownedPaymentMethod(ctx, owner, paymentMethodID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	updated, err := s.gateway.UpdateCardExpiry(ctx, paymentMethodID, expMonth, expYear)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// ownedPaymentMethod проверяет, что платёжный метод привязан к клиенту
// владельца. Чужой метод — ErrInvariantViolation.
func (s *Service) ownedPaymentMethod(ctx context.Context, owner models.UserID, paymentMethodID string) (*stripe.PaymentMethod, *models.UserLink, error) {
	if paymentMethodID == "" {
		return nil, nil, fmt.Errorf("%w: empty payment method id", errs.ErrInvalidArgument)
	}

	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: owner has no linked customer", errs.ErrInvalidArgument)
	}

	pm, err := s.gateway.GetPaymentMethod(ctx, paymentMethodID)
	if err != nil {
		return nil, nil, err
	}
	if pm.Customer == nil || pm.Customer.ID != link.StripeCustomerID {
		return nil, nil, fmt.Errorf("%w: payment method %s belongs to another customer",
			errs.ErrInvariantViolation, paymentMethodID)
	}
	return pm, link, nil
}
