// Package invoice отдаёт ближайший счёт клиента владельца.
package invoice

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
	FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
}

// Gateway — подмножество Stripe API для счетов.
type Gateway interface {
	UpcomingInvoice(ctx context.Context, customerID string) (*stripe.Invoice, error)
}

// Service отдаёт ближайшие счета владельцев.
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

// UpcomingInvoice возвращает ближайший счёт клиента владельца.
// Отсутствие связи — ErrInvalidArgument: счёт без клиента невозможен.
func (s *Service) UpcomingInvoice(ctx context.Context, owner models.UserID) (*stripe.Invoice, error) {
	const op = "services.invoice.UpcomingInvoice"
	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w: owner has no linked customer", op, errs.ErrInvalidArgument)
	}

	result, err := s.gateway.UpcomingInvoice(ctx, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
