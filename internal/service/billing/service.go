// Package billing applies verified billing-provider events to user records.
package billing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const (
	msgSubscriptionEnded = "Your subscription has ended. We hope you achieved your goals! Text START anytime to set new goals and resubscribe."
)

// Service implements ports.BillingEventService. Every mutation is an
// unconditional overwrite, so redelivered events converge on the same state.
type Service struct {
	users    ports.UserRepository
	notifier ports.Notifier
	baseURL  string
	log      *zap.Logger
}

func NewService(users ports.UserRepository, notifier ports.Notifier, baseURL string, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      log,
	}
}

func (s *Service) Apply(ctx context.Context, ev *domain.BillingEvent) error {
	log := s.log.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
		zap.String("subscription_id", ev.SubscriptionID),
	)

	var err error
	switch ev.Type {
	case domain.BillingEventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, ev, log)
	case domain.BillingEventSubscriptionDeleted:
		err = s.subscriptionDeleted(ctx, ev, log)
	case domain.BillingEventSubscriptionUpdated:
		err = s.subscriptionUpdated(ctx, ev, log)
	case domain.BillingEventPaymentFailed:
		err = s.paymentFailed(ctx, ev, log)
	default:
		log.Debug("Ignoring billing event")
		telemetry.BillingEventsTotal.WithLabelValues(string(ev.Type), "ignored").Inc()
		return nil
	}

	if err != nil {
		telemetry.BillingEventsTotal.WithLabelValues(string(ev.Type), "error").Inc()
		log.Error("Failed to apply billing event", zap.Error(err))
		return err
	}
	telemetry.BillingEventsTotal.WithLabelValues(string(ev.Type), "ok").Inc()
	return nil
}

func (s *Service) checkoutCompleted(ctx context.Context, ev *domain.BillingEvent, log *zap.Logger) error {
	if ev.PhoneNumber == "" {
		return fmt.Errorf("billing: no phone number in session metadata")
	}
	phone := domain.CanonicalPhone(ev.PhoneNumber)

	fields := map[string]interface{}{
		domain.FieldSubscriptionStatus: domain.SubscriptionStatusActive,
	}
	if ev.SubscriptionID != "" {
		fields[domain.FieldStripeSubscriptionID] = ev.SubscriptionID
	}
	if ev.CustomerID != "" {
		fields[domain.FieldStripeCustomerID] = ev.CustomerID
	}
	if err := s.users.Update(ctx, phone, fields); err != nil {
		return fmt.Errorf("billing: activate %s: %w", phone, err)
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("billing: load %s: %w", phone, err)
	}
	if user == nil {
		return fmt.Errorf("billing: activate %s: %w", phone, domain.ErrUserNotFound)
	}

	log.Info("Subscription activated", zap.String("phone_number", phone))
	return s.notify(ctx, phone, subscribedMessage(user.DisplayName()))
}

func (s *Service) subscriptionDeleted(ctx context.Context, ev *domain.BillingEvent, log *zap.Logger) error {
	user, err := s.users.FindBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: load subscription: %w", err)
	}
	if user == nil {
		log.Warn("No user for deleted subscription")
		return nil
	}

	err = s.users.UpdateBySubscriptionID(ctx, ev.SubscriptionID, map[string]interface{}{
		domain.FieldSubscriptionStatus: domain.SubscriptionStatusCanceled,
	})
	if err != nil {
		return fmt.Errorf("billing: cancel subscription: %w", err)
	}

	log.Info("Subscription ended", zap.String("phone_number", user.PhoneNumber))
	return s.notify(ctx, user.PhoneNumber, msgSubscriptionEnded)
}

func (s *Service) subscriptionUpdated(ctx context.Context, ev *domain.BillingEvent, log *zap.Logger) error {
	if !ev.CancelAtPeriodEnd {
		return nil
	}
	user, err := s.users.FindBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: load subscription: %w", err)
	}
	if user == nil {
		log.Warn("No user for updated subscription")
		return nil
	}

	err = s.users.UpdateBySubscriptionID(ctx, ev.SubscriptionID, map[string]interface{}{
		domain.FieldSubscriptionStatus: domain.SubscriptionStatusCanceling,
	})
	if err != nil {
		return fmt.Errorf("billing: mark canceling: %w", err)
	}

	log.Info("Subscription cancellation scheduled", zap.String("phone_number", user.PhoneNumber))
	return nil
}

func (s *Service) paymentFailed(ctx context.Context, ev *domain.BillingEvent, log *zap.Logger) error {
	user, err := s.users.FindBySubscriptionID(ctx, ev.SubscriptionID)
	if err != nil {
		return fmt.Errorf("billing: load subscription: %w", err)
	}
	if user == nil {
		log.Warn("No user for failed invoice")
		return nil
	}

	log.Info("Payment failed",
		zap.String("phone_number", user.PhoneNumber),
		zap.Int64("attempt_count", ev.AttemptCount),
	)
	return s.notify(ctx, user.PhoneNumber, paymentFailedMessage(s.baseURL, user.PhoneNumber))
}

func (s *Service) notify(ctx context.Context, phone, body string) error {
	if _, err := s.notifier.Send(ctx, phone, body); err != nil {
		return fmt.Errorf("billing: notify %s: %w", phone, err)
	}
	return nil
}

func subscribedMessage(name string) string {
	if name == "" {
		return "You're all set! 🎉 Each day at 7 AM, we'll send your goal reminder. Let's crush it together! 💪"
	}
	return fmt.Sprintf("You're all set, %s! 🎉 Each day at 7 AM, we'll send your goal reminder. Let's crush it together! 💪", name)
}

func paymentFailedMessage(baseURL, phone string) string {
	return fmt.Sprintf("We couldn't process your payment for Goal Reminder. Please update your payment method to keep receiving daily reminders: %s/billing?phone=%s", baseURL, phone)
}
