// Package onboarding drives the SMS conversation that collects a user's name,
// goal, motivation and timezone. The current step is always derived from the
// stored record, never persisted.
package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const (
	cmdStart   = "start"
	cmdHelp    = "help"
	cmdSupport = "support"
	cmdCancel  = "cancel"
	cmdRestart = "restart"

	purposeTrialStart = "trial_start"
)

type Config struct {
	SupportEmail string
}

type Service struct {
	users        ports.UserRepository
	resolver     ports.TimezoneResolver
	billing      ports.BillingGateway
	text         ports.TextGenerator
	supportEmail string
	now          func() time.Time
	log          *zap.Logger
}

func NewService(
	users ports.UserRepository,
	resolver ports.TimezoneResolver,
	billing ports.BillingGateway,
	text ports.TextGenerator,
	cfg Config,
	log *zap.Logger,
) *Service {
	email := cfg.SupportEmail
	if email == "" {
		email = "support@goalreminder.xyz"
	}
	return &Service{
		users:        users,
		resolver:     resolver,
		billing:      billing,
		text:         text,
		supportEmail: email,
		now:          time.Now,
		log:          log,
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// HandleMessage returns the single reply for one inbound message. Errors and
// panics never escape: they are logged and answered with the
// technical-difficulties message.
func (s *Service) HandleMessage(ctx context.Context, from, body string) (reply string) {
	phone := domain.CanonicalPhone(from)
	body = strings.TrimSpace(body)
	step := domain.StepStart

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "onboarding.HandleMessage")
	span.SetAttributes(attribute.String("phone_number", phone))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Panic while handling inbound message",
				zap.String("phone_number", phone),
				zap.String("step", string(step)),
				zap.Any("panic", r),
			)
			span.SetStatus(codes.Error, "panic")
			telemetry.InboundMessagesTotal.WithLabelValues(string(step), "panic").Inc()
			reply = MsgTechnicalDifficulties
		}
	}()

	var err error
	reply, step, err = s.handle(ctx, phone, body)
	span.SetAttributes(attribute.String("step", string(step)))
	if err != nil {
		s.log.Error("Failed to handle inbound message",
			zap.String("phone_number", phone),
			zap.String("step", string(step)),
			zap.Error(err),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.InboundMessagesTotal.WithLabelValues(string(step), "error").Inc()
		return MsgTechnicalDifficulties
	}

	telemetry.InboundMessagesTotal.WithLabelValues(string(step), "ok").Inc()
	return reply
}

func (s *Service) handle(ctx context.Context, phone, body string) (string, domain.Step, error) {
	command := strings.ToLower(body)

	if command == cmdHelp || command == cmdSupport {
		return helpMenu(s.supportEmail), domain.StepStart, nil
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return "", domain.StepStart, fmt.Errorf("load user: %w", err)
	}
	step := domain.DeriveStep(user)

	s.log.Debug("Inbound message",
		zap.String("phone_number", phone),
		zap.String("step", string(step)),
	)

	if command == cmdCancel && step != domain.StepComplete {
		reply, err := s.cancelSubscription(ctx, user)
		return reply, step, err
	}

	var reply string
	switch step {
	case domain.StepStart:
		reply, err = s.start(ctx, phone, command)
	case domain.StepName:
		reply, err = s.saveName(ctx, phone, body)
	case domain.StepGoal:
		reply, err = s.saveGoal(ctx, user, body)
	case domain.StepWhy:
		reply, err = s.saveMotivation(ctx, user, body)
	case domain.StepTimezone:
		reply, err = s.saveTimezone(ctx, user, body)
	case domain.StepComplete:
		reply, err = s.complete(ctx, user, command)
	default:
		err = fmt.Errorf("unknown step %q", step)
	}
	return reply, step, err
}

func (s *Service) start(ctx context.Context, phone, command string) (string, error) {
	if command != cmdStart {
		return msgTextStart, nil
	}

	now := s.now()
	user := &domain.User{
		PhoneNumber:        phone,
		SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusTrial),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}

	s.log.Info("User started onboarding", zap.String("phone_number", phone))
	return msgWelcome, nil
}

func (s *Service) saveName(ctx context.Context, phone, body string) (string, error) {
	if body == "" {
		return msgAskName, nil
	}
	if err := s.users.Update(ctx, phone, map[string]interface{}{domain.FieldName: body}); err != nil {
		return "", fmt.Errorf("store name: %w", err)
	}
	return nameReply(body), nil
}

func (s *Service) saveGoal(ctx context.Context, user *domain.User, body string) (string, error) {
	if body == "" {
		return msgAskGoal, nil
	}
	goal, err := s.text.Reformat(ctx, body, domain.TextKindGoal)
	if err != nil || strings.TrimSpace(goal) == "" {
		goal = body
	}
	if err := s.users.Update(ctx, user.PhoneNumber, map[string]interface{}{domain.FieldGoal: goal}); err != nil {
		return "", fmt.Errorf("store goal: %w", err)
	}
	return goalReply(user.DisplayName()), nil
}

func (s *Service) saveMotivation(ctx context.Context, user *domain.User, body string) (string, error) {
	if body == "" {
		return msgAskMotivation, nil
	}
	motivation, err := s.text.Reformat(ctx, body, domain.TextKindMotivation)
	if err != nil || strings.TrimSpace(motivation) == "" {
		motivation = body
	}
	if err := s.users.Update(ctx, user.PhoneNumber, map[string]interface{}{domain.FieldMotivation: motivation}); err != nil {
		return "", fmt.Errorf("store motivation: %w", err)
	}
	return motivationReply(user.DisplayName()), nil
}

// saveTimezone issues the trial checkout session before persisting the zone,
// so a billing failure leaves the user on the TIMEZONE step to retry.
func (s *Service) saveTimezone(ctx context.Context, user *domain.User, body string) (string, error) {
	zone, ok := s.resolver.Resolve(ctx, body)
	if !ok {
		if suggestions := s.resolver.Suggest(body); len(suggestions) > 0 {
			return timezoneSuggestions(suggestions), nil
		}
		return msgTimezoneUnknown, nil
	}

	now := s.now()
	session, err := s.billing.CreateCheckoutSession(ctx, domain.CheckoutRequest{
		PhoneNumber:    user.PhoneNumber,
		IdempotencyKey: fmt.Sprintf("%s:%s:%s", user.PhoneNumber, purposeTrialStart, now.UTC().Format("2006-01-02")),
	})
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	telemetry.CheckoutSessionsTotal.WithLabelValues(purposeTrialStart).Inc()

	fields := map[string]interface{}{domain.FieldTimeZone: zone}
	if user.SubscriptionStatus == nil {
		fields[domain.FieldSubscriptionStatus] = domain.SubscriptionStatusTrial
	}
	if err := s.users.Update(ctx, user.PhoneNumber, fields); err != nil {
		return "", fmt.Errorf("store timezone: %w", err)
	}

	telemetry.OnboardingCompletedTotal.Inc()
	s.log.Info("Onboarding completed",
		zap.String("phone_number", user.PhoneNumber),
		zap.String("time_zone", zone),
		zap.String("session_id", session.ID),
	)
	return trialStarted(session.URL), nil
}

func (s *Service) complete(ctx context.Context, user *domain.User, command string) (string, error) {
	switch command {
	case cmdCancel:
		if user.SubscriptionID() != "" {
			return s.cancelSubscription(ctx, user)
		}
		err := s.users.Update(ctx, user.PhoneNumber, map[string]interface{}{
			domain.FieldSubscriptionStatus: domain.SubscriptionStatusCanceled,
		})
		if err != nil {
			return "", fmt.Errorf("cancel: %w", err)
		}
		s.log.Info("Trial canceled", zap.String("phone_number", user.PhoneNumber))
		return msgCanceledLocally, nil

	case cmdRestart:
		err := s.users.Update(ctx, user.PhoneNumber, map[string]interface{}{
			domain.FieldName:               nil,
			domain.FieldGoal:               nil,
			domain.FieldMotivation:         nil,
			domain.FieldTimeZone:           nil,
			domain.FieldSubscriptionStatus: nil,
		})
		if err != nil {
			return "", fmt.Errorf("restart: %w", err)
		}
		s.log.Info("User restarted onboarding", zap.String("phone_number", user.PhoneNumber))
		return msgRestart, nil
	}
	return msgAllSet, nil
}

// cancelSubscription schedules cancellation at period end. The stored status
// only changes once the billing provider has accepted the request.
func (s *Service) cancelSubscription(ctx context.Context, user *domain.User) (string, error) {
	subID := user.SubscriptionID()
	if subID == "" {
		return msgNoSubscription, nil
	}

	if err := s.billing.CancelAtPeriodEnd(ctx, subID); err != nil {
		s.log.Error("Billing cancellation failed",
			zap.String("phone_number", user.PhoneNumber),
			zap.String("subscription_id", subID),
			zap.String("system", "stripe"),
			zap.Error(err),
		)
		return msgCancelFailed, nil
	}

	err := s.users.Update(ctx, user.PhoneNumber, map[string]interface{}{
		domain.FieldSubscriptionStatus: domain.SubscriptionStatusCanceling,
	})
	if err != nil {
		return "", fmt.Errorf("mark canceling: %w", err)
	}

	s.log.Info("Subscription set to cancel at period end",
		zap.String("phone_number", user.PhoneNumber),
		zap.String("subscription_id", subID),
	)
	return msgCancelScheduled, nil
}
