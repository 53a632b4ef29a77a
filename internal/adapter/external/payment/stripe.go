package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/infrastructure/circuitbreaker"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const phoneMetadataKey = "phoneNumber"

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	PriceID       string
	BaseURL       string
	// Backends overrides the API endpoint, used by tests.
	Backends *stripe.Backends
}

type StripeService struct {
	api           *client.API
	webhookSecret string
	priceID       string
	baseURL       string
	breaker       *gobreaker.CircuitBreaker
	log           *zap.Logger
}

func NewStripeService(cfg StripeConfig, breaker *gobreaker.CircuitBreaker, log *zap.Logger) ports.BillingGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)
	return &StripeService{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		priceID:       cfg.PriceID,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		breaker:       breaker,
		log:           log,
	}
}

// CreateCheckoutSession creates a customer tagged with the phone number, then a
// subscription checkout session for it.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	if req.PhoneNumber == "" {
		return nil, errors.New("stripe: phone number is required")
	}
	if s.baseURL == "" {
		return nil, errors.New("stripe: base URL is not configured")
	}

	s.log.Info("Creating checkout session",
		zap.String("phone_number", req.PhoneNumber),
		zap.String("promo_code", req.PromoCode),
	)

	defer telemetry.ObserveExternalCall("stripe", "checkout_session", time.Now())

	custParams := &stripe.CustomerParams{}
	custParams.Context = ctx
	custParams.AddMetadata(phoneMetadataKey, req.PhoneNumber)
	if req.IdempotencyKey != "" {
		custParams.SetIdempotencyKey("customer-" + req.IdempotencyKey)
	}

	cust, err := circuitbreaker.Execute(s.breaker, func() (*stripe.Customer, error) {
		return s.api.Customers.New(custParams)
	})
	if err != nil {
		s.log.Error("Failed to create customer", zap.String("phone_number", req.PhoneNumber), zap.Error(err))
		return nil, fmt.Errorf("stripe: create customer: %w", err)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(cust.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.baseURL + "/success"),
		CancelURL:  stripe.String(s.baseURL + "/cancel"),
	}
	params.Context = ctx
	params.AddMetadata(phoneMetadataKey, req.PhoneNumber)
	if req.PromoCode != "" {
		params.AddMetadata("promoCode", req.PromoCode)
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(req.PromoCode)},
		}
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey("checkout-" + req.IdempotencyKey)
	}

	sess, err := circuitbreaker.Execute(s.breaker, func() (*stripe.CheckoutSession, error) {
		return s.api.CheckoutSessions.New(params)
	})
	if err != nil {
		s.log.Error("Failed to create checkout session", zap.String("phone_number", req.PhoneNumber), zap.Error(err))
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	s.log.Info("Checkout session created",
		zap.String("phone_number", req.PhoneNumber),
		zap.String("session_id", sess.ID),
	)

	return &domain.CheckoutSession{
		ID:         sess.ID,
		URL:        sess.URL,
		CustomerID: cust.ID,
	}, nil
}

func (s *StripeService) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("stripe: subscription ID is required")
	}

	s.log.Info("Scheduling subscription cancellation", zap.String("subscription_id", subscriptionID))

	defer telemetry.ObserveExternalCall("stripe", "cancel_subscription", time.Now())

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	_, err := circuitbreaker.Execute(s.breaker, func() (*stripe.Subscription, error) {
		return s.api.Subscriptions.Update(subscriptionID, params)
	})
	if err != nil {
		s.log.Error("Failed to cancel subscription", zap.String("subscription_id", subscriptionID), zap.Error(err))
		return fmt.Errorf("stripe: cancel subscription: %w", err)
	}
	return nil
}

// ParseWebhook validates the Stripe-Signature header and maps the handled
// event types onto domain.BillingEvent.
func (s *StripeService) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return decodeEvent(event)
}

func decodeEvent(event stripe.Event) (*domain.BillingEvent, error) {
	ev := &domain.BillingEvent{
		ID:   event.ID,
		Type: domain.BillingEventType(event.Type),
	}
	if event.Data == nil {
		return nil, fmt.Errorf("stripe: event %s has no data", event.ID)
	}

	switch ev.Type {
	case domain.BillingEventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
		}
		ev.PhoneNumber = sess.Metadata[phoneMetadataKey]
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		if sess.Subscription != nil {
			ev.SubscriptionID = sess.Subscription.ID
		}

	case domain.BillingEventSubscriptionDeleted, domain.BillingEventSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode subscription: %w", err)
		}
		ev.SubscriptionID = sub.ID
		ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}

	case domain.BillingEventPaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("stripe: decode invoice: %w", err)
		}
		if inv.Subscription != nil {
			ev.SubscriptionID = inv.Subscription.ID
		}
		if inv.Customer != nil {
			ev.CustomerID = inv.Customer.ID
		}
		ev.AttemptCount = inv.AttemptCount

	default:
		return ev, domain.ErrUnknownEvent
	}

	return ev, nil
}
