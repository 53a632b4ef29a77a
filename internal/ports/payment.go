package ports

import (
	"context"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

type BillingGateway interface {
	CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	// ParseWebhook verifies the signature and converts the payload into a
	// domain event. Unhandled event types return domain.ErrUnknownEvent.
	ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error)
}
