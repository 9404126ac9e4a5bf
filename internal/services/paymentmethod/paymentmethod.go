// Package paymentmethod управляет SetupIntent и списком платёжных методов
// владельца. Созданные SetupIntent дублируются в локальной таблице, чтобы
// статус можно было сверять без перебора Stripe API.
package paymentmethod

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Linker — операции сервиса связей.
type Linker interface {
	GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error)
	FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
}

// IntentRepository хранит локальные записи SetupIntent.
type IntentRepository interface {
	InsertSetupIntent(ctx context.Context, intent *models.SetupIntent) error
	UpdateSetupIntent(ctx context.Context, intent *models.SetupIntent) (int, error)
	FindSetupIntentByID(ctx context.Context, id string) (*models.SetupIntent, bool, error)
}

// Gateway — подмножество Stripe API для платёжных методов.
type Gateway interface {
	CreateSetupIntent(ctx context.Context, customerID string) (*stripe.SetupIntent, error)
	GetSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
	CancelSetupIntent(ctx context.Context, id string) (*stripe.SetupIntent, error)
	ListCardPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
}

// Service управляет SetupIntent и платёжными методами владельца.
type Service struct {
	linker  Linker
	repo    IntentRepository
	gateway Gateway
	log     *slog.Logger
}

func New(linker Linker, repo IntentRepository, gateway Gateway, log *slog.Logger) *Service {
	return &Service{
		linker:  linker,
		repo:    repo,
		gateway: gateway,
		log:     log,
	}
}

// CreateSetupIntent создает SetupIntent для клиента владельца и сохраняет
// локальную запись со статусом.
func (s *Service) CreateSetupIntent(ctx context.Context, owner models.UserID) (*stripe.SetupIntent, error) {
	const op = "services.paymentmethod.CreateSetupIntent"
	link, err := s.linker.GetOrCreateLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	intent, err := s.gateway.CreateSetupIntent(ctx, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	record := &models.SetupIntent{
		ID:         intent.ID,
		UserLinkID: link.ID,
		Status:     string(intent.Status),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertSetupIntent(ctx, record); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return intent, nil
}

// GetSetupIntent возвращает SetupIntent владельца и освежает локальный
// статус. Чужой или неизвестный интент — ErrInvariantViolation.
func (s *Service) GetSetupIntent(ctx context.Context, owner models.UserID, intentID string) (*stripe.SetupIntent, error) {
	const op = "services.paymentmethod.GetSetupIntent"
	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w: owner has no linked customer", op, errs.ErrInvalidArgument)
	}

	record, found, err := s.repo.FindSetupIntentByID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found || record.Deleted || record.UserLinkID != link.ID {
		return nil, fmt.Errorf("%s: %w: setup intent %s does not belong to owner", op, errs.ErrInvariantViolation, intentID)
	}

	intent, err := s.gateway.GetSetupIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if string(intent.Status) != record.Status {
		record.Status = string(intent.Status)
		if _, err := s.repo.UpdateSetupIntent(ctx, record); err != nil {
			s.log.Warn("failed to refresh setup intent status",
				slog.String("setup_intent_id", intentID),
				slog.String("error", err.Error()))
		}
	}
	return intent, nil
}

// DeleteSetupIntent отменяет незавершённый SetupIntent владельца и помечает
// локальную запись удалённой. Чужой или неизвестный интент — ErrInvariantViolation.
func (s *Service) DeleteSetupIntent(ctx context.Context, owner models.UserID, intentID string) (*stripe.SetupIntent, error) {
	const op = "services.paymentmethod.DeleteSetupIntent"
	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w: owner has no linked customer", op, errs.ErrInvalidArgument)
	}

	record, found, err := s.repo.FindSetupIntentByID(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found || record.Deleted || record.UserLinkID != link.ID {
		return nil, fmt.Errorf("%s: %w: setup intent %s does not belong to owner", op, errs.ErrInvariantViolation, intentID)
	}

	intent, err := s.gateway.CancelSetupIntent(ctx, intentID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	record.Status = string(intent.Status)
	record.Deleted = true
	if _, err := s.repo.UpdateSetupIntent(ctx, record); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return intent, nil
}

// ListPaymentMethods возвращает карточные платёжные методы владельца.
// Отсутствие связи — пустой список, а не ошибка.
func (s *Service) ListPaymentMethods(ctx context.Context, owner models.UserID) ([]*stripe.PaymentMethod, error) {
	const op = "services.paymentmethod.ListPaymentMethods"
	link, found, err := s.linker.FindLink(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, nil
	}
	result, err := s.gateway.ListCardPaymentMethods(ctx, link.StripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
