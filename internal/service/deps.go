package service

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/paymob"

	"github.com/google/uuid"
)

// PaymentGateway starts online payments.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req paymob.IntentRequest) (*paymob.Intent, error)
}

// SignatureValidator authenticates gateway callbacks.
type SignatureValidator interface {
	Validate(t paymob.Transaction, received string) bool
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// Pusher delivers a payload to a user's live connections.
type Pusher interface {
	Push(userID uuid.UUID, payload interface{})
}

// IdempotencyStore remembers keys that were already handled.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}
