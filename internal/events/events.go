// Package events публикует аудит-события жизненного цикла связей
// в RabbitMQ. Потребители — внешние системы учёта и сверки.
package events

import (
	"context"
	"time"
)

// Действия над связью, попадающие в аудит.
const (
	ActionLinkCreated   = "link.created"
	ActionLinkDeleted   = "link.deleted"
	ActionPrimaryMoved  = "link.primary_moved"
	ActionCustomerReuse = "link.customer_reuse"
)

// LinkEvent — запись аудита об изменении связи владельца и клиента Stripe.
// EventID уникален для каждой публикации и служит ключом дедупликации
// на стороне потребителя.
type LinkEvent struct {
	EventID          string    `json:"event_id"`
	Action           string    `json:"action"`
	LinkID           string    `json:"link_id"`
	OwnerID          string    `json:"owner_id"`
	StripeCustomerID string    `json:"stripe_customer_id"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Publisher отправляет события аудита. Ошибка публикации не должна
// прерывать основную операцию — вызывающие логируют и продолжают.
type Publisher interface {
	PublishLinkEvent(ctx context.Context, event LinkEvent) error
}

// NopPublisher используется при выключенном RabbitMQ.
type NopPublisher struct{}

func (NopPublisher) PublishLinkEvent(context.Context, LinkEvent) error { return nil }
