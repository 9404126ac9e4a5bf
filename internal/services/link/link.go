// Package link реализует идемпотентную привязку владельца к клиенту Stripe.
// Один владелец — одна активная первичная связь.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/events"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/lock"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// LinkRepository описывает операции хранилища связей.
type LinkRepository interface {
	FindPrimaryLinkByOwner(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
	ListLinksByOwner(ctx context.Context, owner models.UserID) ([]*models.UserLink, error)
	FindLinkByID(ctx context.Context, id string) (*models.UserLink, bool, error)
	InsertLink(ctx context.Context, link *models.UserLink) error
	UpdateLink(ctx context.Context, link *models.UserLink) (int, error)
	SoftDeleteLink(ctx context.Context, link *models.UserLink) (int, error)
}

// CustomerGateway — используемое сервисом подмножество Stripe API.
type CustomerGateway interface {
	CreateCustomer(ctx context.Context, name, description string) (*stripe.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// DistributedLock сериализует владельца между экземплярами сервиса.
type DistributedLock interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Service — сервис связей владельцев и клиентов Stripe.
type Service struct {
	repo    LinkRepository
	gateway CustomerGateway
	keyed   *lock.KeyedMutex
	dlock   DistributedLock
	events  events.Publisher
	log     *slog.Logger
}

// New создает сервис связей. dlock может быть nil, тогда гонка между
// экземплярами закрывается только уникальным индексом хранилища.
func New(repo LinkRepository, gateway CustomerGateway, dlock DistributedLock,
	publisher events.Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		keyed:   lock.NewKeyedMutex(),
		dlock:   dlock,
		events:  publisher,
		log:     log,
	}
}

// GetOrCreateLink возвращает активную первичную связь владельца, создавая
// клиента Stripe и запись связи при первом обращении. Повторные вызовы
// возвращают ту же связь без обращений к Stripe.
//
// Гонка параллельных вызовов закрывается трижды: мьютекс владельца внутри
// процесса, опциональная блокировка в Redis между экземплярами и частичный
// уникальный индекс в хранилище. Нарушение индекса превращается в повторный
// поиск, созданный впустую клиент Stripe удаляется компенсацией.
func (s *Service) GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error) {
	const op = "services.link.GetOrCreateLink"
	if owner.IsZero() {
		return nil, fmt.Errorf("%s: %w: empty owner id", op, errs.ErrInvalidArgument)
	}

	found, foundLink, err := s.lookupPrimary(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return foundLink, nil
	}

	unlock := s.keyed.Lock(owner.String())
	defer unlock()

	if s.dlock != nil {
		release, err := s.dlock.Acquire(ctx, "stripe-link:owner:"+owner.String())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		defer release()
	}

	// Под блокировкой связь могла появиться.
	found, foundLink, err = s.lookupPrimary(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		return foundLink, nil
	}

	customer, err := s.gateway.CreateCustomer(ctx, owner.String(), "owner "+owner.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	newLink, err := models.NewUserLink(owner, customer.ID)
	if err != nil {
		s.compensateCustomer(ctx, customer.ID)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.InsertLink(ctx, newLink); err != nil {
		s.compensateCustomer(ctx, customer.ID)

		// Конкурент успел вставить первичную связь: его запись и есть ответ.
		if errors.Is(err, errs.ErrConstraintViolation) {
			found, foundLink, lookupErr := s.lookupPrimary(ctx, owner)
			if lookupErr == nil && found {
				return foundLink, nil
			}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.ActionLinkCreated, newLink)
	return newLink, nil
}

// FindLink возвращает активную первичную связь владельца без создания.
func (s *Service) FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	const op = "services.link.FindLink"
	if owner.IsZero() {
		return nil, false, fmt.Errorf("%s: %w: empty owner id", op, errs.ErrInvalidArgument)
	}
	link, found, err := s.repo.FindPrimaryLinkByOwner(ctx, owner)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return link, found, nil
}

// ListLinks возвращает все активные связи владельца.
func (s *Service) ListLinks(ctx context.Context, owner models.UserID) ([]*models.UserLink, error) {
	const op = "services.link.ListLinks"
	if owner.IsZero() {
		return nil, fmt.Errorf("%s: %w: empty owner id", op, errs.ErrInvalidArgument)
	}
	result, err := s.repo.ListLinksByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// LinkCustomer привязывает владельца к уже существующему клиенту Stripe.
// Прежняя первичная связь разжалуется, новая запись становится первичной.
func (s *Service) LinkCustomer(ctx context.Context, owner models.UserID, stripeCustomerID string) (*models.UserLink, error) {
	const op = "services.link.LinkCustomer"
	if owner.IsZero() || stripeCustomerID == "" {
		return nil, fmt.Errorf("%s: %w: empty owner id or customer id", op, errs.ErrInvalidArgument)
	}

	unlock := s.keyed.Lock(owner.String())
	defer unlock()

	current, found, err := s.repo.FindPrimaryLinkByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		if current.StripeCustomerID == stripeCustomerID {
			s.publish(ctx, events.ActionCustomerReuse, current)
			return current, nil
		}
		current.IsPrimary = false
		if _, err := s.repo.UpdateLink(ctx, current); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	newLink, err := models.NewUserLink(owner, stripeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.InsertLink(ctx, newLink); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.ActionPrimaryMoved, newLink)
	return newLink, nil
}

// Unlink мягко удаляет первичную связь владельца. Отсутствие связи —
// не ошибка, возвращается found=false.
func (s *Service) Unlink(ctx context.Context, owner models.UserID) (bool, error) {
	const op = "services.link.Unlink"
	if owner.IsZero() {
		return false, fmt.Errorf("%s: %w: empty owner id", op, errs.ErrInvalidArgument)
	}

	unlock := s.keyed.Lock(owner.String())
	defer unlock()

	current, found, err := s.repo.FindPrimaryLinkByOwner(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return false, nil
	}
	if _, err := s.repo.SoftDeleteLink(ctx, current); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, events.ActionLinkDeleted, current)
	return true, nil
}

// VerifyOwnership проверяет, что связь существует, активна и принадлежит
// владельцу. Несовпадение — ErrInvariantViolation.
func (s *Service) VerifyOwnership(ctx context.Context, owner models.UserID, linkID string) (*models.UserLink, error) {
	const op = "services.link.VerifyOwnership"
	link, found, err := s.repo.FindLinkByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found || link.Deleted {
		return nil, fmt.Errorf("%s: %w: link %s not found", op, errs.ErrInvariantViolation, linkID)
	}
	if !link.OwnerID.Equal(owner) {
		return nil, fmt.Errorf("%s: %w: link %s belongs to another owner", op, errs.ErrInvariantViolation, linkID)
	}
	return link, nil
}

// lookupPrimary ищет первичную связь и переводит ошибку хранилища в ответ.
func (s *Service) lookupPrimary(ctx context.Context, owner models.UserID) (bool, *models.UserLink, error) {
	link, found, err := s.repo.FindPrimaryLinkByOwner(ctx, owner)
	if err != nil {
		return false, nil, err
	}
	return found, link, nil
}

// compensateCustomer удаляет клиента Stripe, оставшегося без записи связи.
// Ошибка удаления только логируется.
func (s *Service) compensateCustomer(ctx context.Context, customerID string) {
	if err := s.gateway.DeleteCustomer(ctx, customerID); err != nil {
		s.log.Error("failed to delete orphan stripe customer",
			slog.String("stripe_customer_id", customerID), sl.Err(err))
	}
}

func (s *Service) publish(ctx context.Context, action string, link *models.UserLink) {
	event := events.LinkEvent{
		EventID:          uuid.NewString(),
		Action:           action,
		LinkID:           link.ID,
		OwnerID:          link.OwnerID.String(),
		StripeCustomerID: link.StripeCustomerID,
		OccurredAt:       time.Now().UTC(),
	}
	if err := s.events.PublishLinkEvent(ctx, event); err != nil {
		s.log.Error("failed to publish link event",
			slog.String("action", action), sl.Err(err))
	}
}
