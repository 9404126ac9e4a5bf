package models

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/lib/ulid"
)

// UserLink связывает пользователя приложения с клиентом Stripe.
// Запись никогда не удаляется физически: история сохраняется через
// мягкое удаление, у владельца активна максимум одна первичная связь.
type UserLink struct {
	ID               string    // ULID, неизменяемый после создания
	OwnerID          UserID    // Идентификатор пользователя приложения
	StripeCustomerID string    // Идентификатор клиента Stripe, неизменяемый
	IsPrimary        bool      // Первичная связь владельца
	Deleted          bool      // Флаг мягкого удаления
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUserLink создает новую первичную связь с сгенерированным ULID.
func NewUserLink(owner UserID, stripeCustomerID string) (*UserLink, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("owner id is not set: %w", errs.ErrInvalidArgument)
	}
	if stripeCustomerID == "" {
		return nil, fmt.Errorf("stripe customer id is empty: %w", errs.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	return &UserLink{
		ID:               ulid.New(),
		OwnerID:          owner,
		StripeCustomerID: stripeCustomerID,
		IsPrimary:        true,
		Deleted:          false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// SetupIntent — локальная запись о SetupIntent Stripe, созданном для связи.
// Статус синхронизируется с ответами Stripe; успешно завершённые интенты
// помечаются удалёнными.
type SetupIntent struct {
	ID         string // Идентификатор SetupIntent, присвоенный Stripe
	UserLinkID string // Ссылка на UserLink.ID
	Status     string
	Deleted    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
