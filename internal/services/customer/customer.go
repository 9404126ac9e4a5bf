// Package customer отдаёт клиентов Stripe по владельцу.
package customer

import (
	"context"
	"fmt"
	"log/slog"

	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Linker — операции сервиса связей, нужные для получения клиента.
type Linker interface {
	GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error)
	FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
}

// Gateway — подмножество Stripe API для чтения клиентов.
type Gateway interface {
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
}

// Service отдаёт клиентов Stripe по владельцу.
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

// GetOrCreateCustomer возвращает клиента Stripe владельца, создавая связь
// и клиента при первом обращении.
func (s *Service) GetOrCreateCustomer(ctx context.Context, owner models.UserID) (*stripe.Customer, error) {
	const op = "services.customer.GetOrCreateCustomer"
	link, err := s.linker.GetOrCreateLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.gateway.GetCustomer(ctx, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetCustomer возвращает клиента Stripe владельца без создания связи.
// Отсутствие связи — ErrInvalidArgument.
func (s *Service) GetCustomer(ctx context.Context, owner models.UserID) (*stripe.Customer, error) {
	const op = "services.customer.GetCustomer"
	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w: owner has no linked customer", op, errs.ErrInvalidArgument)
	}
	result, err := s.gateway.GetCustomer(ctx, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
