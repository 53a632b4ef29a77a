// Package reminder implements the periodic sweep that sends morning
// reminders and trial lifecycle messages.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/observability/telemetry"
	"github.com/goalreminder/goal-reminder/internal/ports"
	"github.com/goalreminder/goal-reminder/internal/service/textgen"
	"github.com/goalreminder/goal-reminder/internal/service/timezone"
)

const (
	DefaultConcurrency = 10
	DefaultPromoCode   = "GOALGETTER50"
	DefaultMarkerTTL   = 36 * time.Hour

	releaseTimeout = 3 * time.Second
)

type Config struct {
	Concurrency int
	PromoCode   string
	MarkerTTL   time.Duration
}

type SweepResult struct {
	RunID          string        `json:"runId"`
	UsersProcessed int           `json:"usersProcessed"`
	EligibleUsers  int           `json:"eligibleUsers"`
	Sent           int64         `json:"sent"`
	Duplicates     int64         `json:"duplicates"`
	FailedUsers    int64         `json:"failedUsers"`
	Duration       time.Duration `json:"duration"`
}

// Scheduler runs one sweep per call to Sweep. The marker store is optional;
// without it duplicate suppression relies on the 15-minute window alone.
type Scheduler struct {
	users    ports.UserRepository
	notifier ports.Notifier
	billing  ports.BillingGateway
	text     ports.TextGenerator
	markers  ports.MarkerStore
	cfg      Config
	log      *zap.Logger
}

func NewScheduler(
	users ports.UserRepository,
	notifier ports.Notifier,
	billing ports.BillingGateway,
	text ports.TextGenerator,
	markers ports.MarkerStore,
	cfg Config,
	log *zap.Logger,
) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PromoCode == "" {
		cfg.PromoCode = DefaultPromoCode
	}
	if cfg.MarkerTTL <= 0 {
		cfg.MarkerTTL = DefaultMarkerTTL
	}
	return &Scheduler{
		users:    users,
		notifier: notifier,
		billing:  billing,
		text:     text,
		markers:  markers,
		cfg:      cfg,
		log:      log,
	}
}

// Sweep evaluates every trial or active user at instant now. Only a failure to
// list users is returned; per-user failures are logged and counted.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	start := time.Now()
	result := &SweepResult{RunID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", result.RunID))

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "reminder.Sweep")
	defer span.End()

	users, err := s.users.ListByStatus(ctx, domain.SubscriptionStatusTrial, domain.SubscriptionStatusActive)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	result.UsersProcessed = len(users)

	eligible := make([]domain.User, 0, len(users))
	for _, u := range users {
		if Eligible(&u) {
			eligible = append(eligible, u)
		}
	}
	result.EligibleUsers = len(eligible)

	var sent, duplicates, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(s.cfg.Concurrency)
	for i := range eligible {
		u := eligible[i]
		p.Go(func() {
			n, d, err := s.processUser(ctx, &u, now)
			sent.Add(int64(n))
			duplicates.Add(int64(d))
			if err != nil {
				failed.Add(1)
				log.Error("Failed to process user",
					zap.String("phone_number", u.PhoneNumber),
					zap.Error(err),
				)
			}
		})
	}
	p.Wait()

	result.Sent = sent.Load()
	result.Duplicates = duplicates.Load()
	result.FailedUsers = failed.Load()
	result.Duration = time.Since(start)

	telemetry.SweepDuration.Observe(result.Duration.Seconds())
	telemetry.SweepEligibleUsers.Set(float64(result.EligibleUsers))
	span.SetAttributes(
		attribute.Int("users_processed", result.UsersProcessed),
		attribute.Int("eligible_users", result.EligibleUsers),
		attribute.Int64("sent", result.Sent),
	)

	log.Info("Reminder sweep finished",
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("eligible_users", result.EligibleUsers),
		zap.Int64("sent", result.Sent),
		zap.Int64("duplicates", result.Duplicates),
		zap.Int64("failed_users", result.FailedUsers),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Eligible reports whether the user has everything the sweep needs: goal,
// motivation and a loadable zone.
func Eligible(u *domain.User) bool {
	return domain.Deref(u.Goal) != "" &&
		domain.Deref(u.Motivation) != "" &&
		timezone.IsValidZone(domain.Deref(u.TimeZone))
}

// processUser is the failure boundary for one user: a panic is turned into an
// error, and one failing kind does not stop the others.
func (s *Scheduler) processUser(ctx context.Context, u *domain.User, now time.Time) (sent, duplicates int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	loc, err := time.LoadLocation(domain.Deref(u.TimeZone))
	if err != nil {
		return 0, 0, fmt.Errorf("load zone: %w", err)
	}
	local := now.In(loc)
	days := u.DaysSinceSignup(now)

	var errs []error
	for _, kind := range DueKinds(u, local, days) {
		delivered, err := s.deliver(ctx, u, kind, local, days)
		switch {
		case err != nil:
			telemetry.RemindersTotal.WithLabelValues(string(kind), "failed").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		case delivered:
			telemetry.RemindersTotal.WithLabelValues(string(kind), "sent").Inc()
			sent++
		default:
			telemetry.RemindersTotal.WithLabelValues(string(kind), "duplicate").Inc()
			duplicates++
		}
	}
	return sent, duplicates, errors.Join(errs...)
}

// deliver claims the per-day marker, builds the message and sends it. It
// returns false without error when the marker was already claimed.
func (s *Scheduler) deliver(ctx context.Context, u *domain.User, kind Kind, local time.Time, days int) (bool, error) {
	key := MarkerKey(u.PhoneNumber, kind, local)
	if !s.claim(ctx, key) {
		s.log.Debug("Reminder already sent",
			zap.String("phone_number", u.PhoneNumber),
			zap.String("kind", string(kind)),
		)
		return false, nil
	}

	body, err := s.compose(ctx, u, kind, days)
	if err == nil {
		_, err = s.notifier.Send(ctx, u.PhoneNumber, body)
	}
	if err != nil {
		s.release(ctx, key)
		return false, err
	}

	s.log.Info("Reminder sent",
		zap.String("phone_number", u.PhoneNumber),
		zap.String("kind", string(kind)),
		zap.Int("days_since_signup", days),
	)
	return true, nil
}

func (s *Scheduler) compose(ctx context.Context, u *domain.User, kind Kind, days int) (string, error) {
	name, goal, motivation := u.DisplayName(), domain.Deref(u.Goal), domain.Deref(u.Motivation)

	if kind == KindMorning {
		msg, err := s.text.MorningReminder(ctx, name, goal, motivation)
		if err != nil || msg == "" {
			return textgen.MorningFallback(name, goal, motivation), nil
		}
		return msg, nil
	}

	rule, ok := ruleFor(kind)
	if !ok {
		return "", fmt.Errorf("no rule for kind %q", kind)
	}
	req := domain.CheckoutRequest{
		PhoneNumber:    u.PhoneNumber,
		IdempotencyKey: fmt.Sprintf("%s:%s:%d", u.PhoneNumber, kind, days),
	}
	if rule.promo {
		req.PromoCode = s.cfg.PromoCode
	}
	session, err := s.billing.CreateCheckoutSession(ctx, req)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	telemetry.CheckoutSessionsTotal.WithLabelValues(string(kind)).Inc()
	return rule.message(name, session.URL), nil
}

// MarkerKey identifies one kind of message for one user on one local day.
func MarkerKey(phone string, kind Kind, local time.Time) string {
	return fmt.Sprintf("reminder:%s:%s:%s", phone, kind, local.Format("2006-01-02"))
}

// claim reports whether this tick owns the send. Store errors fall through to
// sending.
func (s *Scheduler) claim(ctx context.Context, key string) bool {
	if s.markers == nil {
		return true
	}
	ok, err := s.markers.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.cfg.MarkerTTL)
	if err != nil {
		s.log.Warn("Marker store unavailable, sending without dedup", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// release frees a claimed marker after a failed send. It outlives the sweep's
// deadline so the next tick can retry.
func (s *Scheduler) release(ctx context.Context, key string) {
	if s.markers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.markers.Delete(ctx, key); err != nil {
		s.log.Warn("Failed to release reminder marker", zap.String("key", key), zap.Error(err))
	}
}
