package reminder

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/mocks"
)

// 2026-01-14 18:05 UTC is 12:05 in America/Chicago (CST, UTC-6).
var noonChicago = time.Date(2026, 1, 14, 18, 5, 0, 0, time.UTC)

type fixture struct {
	sched    *Scheduler
	users    *mocks.MemoryUserRepository
	notifier *mocks.MockNotifier
	billing  *mocks.MockBillingGateway
	text     *mocks.MockTextGenerator
	markers  *mocks.MockMarkerStore
}

func newFixture() *fixture {
	f := &fixture{
		users:    mocks.NewMemoryUserRepository(),
		notifier: &mocks.MockNotifier{},
		billing:  &mocks.MockBillingGateway{},
		text:     &mocks.MockTextGenerator{},
		markers:  mocks.NewMockMarkerStore(),
	}
	f.sched = NewScheduler(f.users, f.notifier, f.billing, f.text, f.markers, Config{}, zap.NewNop())
	return f
}

func trialUser(phone string, createdAt time.Time) domain.User {
	return domain.User{
		PhoneNumber:        phone,
		Name:               domain.String("Sam"),
		Goal:               domain.String("Run a marathon"),
		Motivation:         domain.String("Stay healthy"),
		TimeZone:           domain.String("America/Chicago"),
		SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusTrial),
		CreatedAt:          createdAt,
	}
}

func TestDueKinds(t *testing.T) {
	chicago, _ := time.LoadLocation("America/Chicago")
	at := func(h, m int) time.Time { return time.Date(2026, 1, 14, h, m, 0, 0, chicago) }
	trial := &domain.User{SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusTrial)}
	active := &domain.User{SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusActive)}
	canceling := &domain.User{SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusCanceling)}

	tests := []struct {
		name  string
		user  *domain.User
		local time.Time
		days  int
		want  []Kind
	}{
		{"trial morning", trial, at(7, 0), 2, []Kind{KindMorning}},
		{"trial morning last day", trial, at(7, 14), 7, []Kind{KindMorning}},
		{"trial morning after trial", trial, at(7, 5), 8, nil},
		{"morning outside window", trial, at(7, 15), 2, nil},
		{"active morning any tenure", active, at(7, 5), 400, []Kind{KindMorning}},
		{"canceling gets nothing", canceling, at(7, 5), 3, nil},
		{"day 4 upsell", trial, at(12, 5), 4, []Kind{KindTrialUpsell}},
		{"day 6 ending", trial, at(12, 0), 6, []Kind{KindTrialEnding}},
		{"day 7 ended", trial, at(12, 14), 7, []Kind{KindTrialEnded}},
		{"day 10 win back", trial, at(12, 1), 10, []Kind{KindWinBack}},
		{"day 5 nothing", trial, at(12, 5), 5, nil},
		{"active never gets lifecycle", active, at(12, 5), 4, nil},
		{"lifecycle outside window", trial, at(12, 20), 4, nil},
		{"wrong hour", trial, at(11, 5), 4, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DueKinds(tc.user, tc.local, tc.days)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("DueKinds = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestEligible(t *testing.T) {
	u := trialUser("1", noonChicago)
	if !Eligible(&u) {
		t.Error("expected eligible")
	}

	noGoal := trialUser("1", noonChicago)
	noGoal.Goal = nil
	badZone := trialUser("1", noonChicago)
	badZone.TimeZone = domain.String("Mars/Base")
	noZone := trialUser("1", noonChicago)
	noZone.TimeZone = nil

	for name, u := range map[string]domain.User{"no goal": noGoal, "bad zone": badZone, "no zone": noZone} {
		if Eligible(&u) {
			t.Errorf("%s: expected ineligible", name)
		}
	}
}

func TestSweep_Day4UpsellSentOnce(t *testing.T) {
	f := newFixture()
	phone := "16502530000"
	f.users.Put(trialUser(phone, noonChicago.Add(-4*24*time.Hour-time.Hour)))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UsersProcessed != 1 || res.EligibleUsers != 1 || res.Sent != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.RunID == "" {
		t.Error("expected run id")
	}

	reqs := f.billing.CheckoutRequests()
	if len(reqs) != 1 {
		t.Fatalf("expected one checkout session, got %d", len(reqs))
	}
	if reqs[0].IdempotencyKey != phone+":trial_upsell:4" || reqs[0].PromoCode != "" {
		t.Errorf("unexpected checkout request %+v", reqs[0])
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	want := "Feeling motivated to reach your goal? For just 5 cents per day, you can keep these texts coming for the next year. Sign up here: https://checkout.test/" + phone
	if msgs[0].To != phone || msgs[0].Body != want {
		t.Errorf("unexpected message %+v", msgs[0])
	}
	if !f.markers.Has("reminder:" + phone + ":trial_upsell:2026-01-14") {
		t.Error("expected marker to be set")
	}

	// A second tick five minutes later is still inside the window.
	res, err = f.sched.Sweep(context.Background(), noonChicago.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Duplicates != 1 {
		t.Errorf("expected duplicate suppression, got %+v", res)
	}
	if len(f.notifier.Messages()) != 1 {
		t.Errorf("expected no resend, got %d messages", len(f.notifier.Messages()))
	}
}

func TestSweep_MorningReminder(t *testing.T) {
	f := newFixture()
	f.text.MorningReminderFunc = func(ctx context.Context, name, goal, motivation string) (string, error) {
		return fmt.Sprintf("Go %s! %s because %s", name, goal, motivation), nil
	}
	// 13:05 UTC is 07:05 in Chicago.
	now := time.Date(2026, 1, 14, 13, 5, 0, 0, time.UTC)
	f.users.Put(trialUser("16502530000", now.Add(-2*24*time.Hour)))

	res, err := f.sched.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 {
		t.Fatalf("expected one send, got %+v", res)
	}
	if got := f.notifier.Messages()[0].Body; got != "Go Sam! Run a marathon because Stay healthy" {
		t.Errorf("unexpected body %q", got)
	}
	if len(f.billing.CheckoutRequests()) != 0 {
		t.Error("morning reminders must not issue checkout sessions")
	}
}

func TestSweep_MorningFallsBackToTemplate(t *testing.T) {
	f := newFixture()
	f.text.MorningReminderFunc = func(ctx context.Context, name, goal, motivation string) (string, error) {
		return "", errors.New("openai down")
	}
	now := time.Date(2026, 1, 14, 13, 5, 0, 0, time.UTC)
	f.users.Put(trialUser("16502530000", now.Add(-24*time.Hour)))

	if _, err := f.sched.Sweep(context.Background(), now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs := f.notifier.Messages()
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0].Body, "Morning, Sam! 🌅") {
		t.Errorf("expected template reminder, got %+v", msgs)
	}
}

func TestSweep_WinBackCarriesPromo(t *testing.T) {
	f := newFixture()
	f.users.Put(trialUser("16502530000", noonChicago.Add(-10*24*time.Hour)))

	if _, err := f.sched.Sweep(context.Background(), noonChicago); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reqs := f.billing.CheckoutRequests()
	if len(reqs) != 1 || reqs[0].PromoCode != DefaultPromoCode {
		t.Errorf("expected promo checkout, got %+v", reqs)
	}
	if !strings.HasPrefix(f.notifier.Messages()[0].Body, "Hey Sam! Ready to continue your journey?") {
		t.Errorf("unexpected body %q", f.notifier.Messages()[0].Body)
	}
}

func TestSweep_SkipsIneligibleUsers(t *testing.T) {
	f := newFixture()
	created := noonChicago.Add(-4 * 24 * time.Hour)

	noMotivation := trialUser("1", created)
	noMotivation.Motivation = nil
	badZone := trialUser("2", created)
	badZone.TimeZone = domain.String("Pacific Time")
	f.users.Put(noMotivation)
	f.users.Put(badZone)
	f.users.Put(trialUser("3", created))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UsersProcessed != 3 || res.EligibleUsers != 1 || res.FailedUsers != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if msgs := f.notifier.Messages(); len(msgs) != 1 || msgs[0].To != "3" {
		t.Errorf("expected only user 3 to be messaged, got %+v", msgs)
	}
}

func TestSweep_FailureIsolatedPerUser(t *testing.T) {
	f := newFixture()
	f.notifier.SendFunc = func(ctx context.Context, to, body string) (string, error) {
		if to == "bad" {
			return "", errors.New("twilio 21211")
		}
		return "SM1", nil
	}
	created := noonChicago.Add(-6 * 24 * time.Hour)
	f.users.Put(trialUser("bad", created))
	f.users.Put(trialUser("good", created))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.FailedUsers != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if f.markers.Has("reminder:bad:trial_ending:2026-01-14") {
		t.Error("failed send must release its marker")
	}
	if !f.markers.Has("reminder:good:trial_ending:2026-01-14") {
		t.Error("successful send must keep its marker")
	}
}

func TestSweep_ReleaseSurvivesExpiredDeadline(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.notifier.SendFunc = func(ctx context.Context, to, body string) (string, error) {
		cancel()
		return "", ctx.Err()
	}
	var released []string
	f.markers.DeleteFunc = func(ctx context.Context, key string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		released = append(released, key)
		return nil
	}
	f.users.Put(trialUser("16502530000", noonChicago.Add(-6*24*time.Hour)))

	res, err := f.sched.Sweep(ctx, noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FailedUsers != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	want := []string{"reminder:16502530000:trial_ending:2026-01-14"}
	if !reflect.DeepEqual(released, want) {
		t.Errorf("expected marker released after cancellation, got %v", released)
	}
}

func TestSweep_CheckoutFailureCountsAsFailure(t *testing.T) {
	f := newFixture()
	f.billing.CreateCheckoutSessionFunc = func(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
		return nil, errors.New("stripe down")
	}
	f.users.Put(trialUser("16502530000", noonChicago.Add(-7*24*time.Hour)))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FailedUsers != 1 || len(f.notifier.Messages()) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSweep_PanicIsContained(t *testing.T) {
	f := newFixture()
	f.notifier.SendFunc = func(ctx context.Context, to, body string) (string, error) {
		if to == "boom" {
			panic("nil map")
		}
		return "SM1", nil
	}
	created := noonChicago.Add(-4 * 24 * time.Hour)
	f.users.Put(trialUser("boom", created))
	f.users.Put(trialUser("ok", created))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.FailedUsers != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSweep_MarkerStoreErrorStillSends(t *testing.T) {
	f := newFixture()
	f.markers.SetNXFunc = func(ctx context.Context, key, value string, expiration time.Duration) (bool, error) {
		return false, errors.New("redis: connection refused")
	}
	f.users.Put(trialUser("16502530000", noonChicago.Add(-4*24*time.Hour)))

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 {
		t.Errorf("expected send despite marker failure, got %+v", res)
	}
}

func TestSweep_WithoutMarkerStore(t *testing.T) {
	f := newFixture()
	sched := NewScheduler(f.users, f.notifier, f.billing, f.text, nil, Config{}, zap.NewNop())
	f.users.Put(trialUser("16502530000", noonChicago.Add(-4*24*time.Hour)))

	res, err := sched.Sweep(context.Background(), noonChicago)
	if err != nil || res.Sent != 1 {
		t.Errorf("unexpected result %+v, %v", res, err)
	}
}

func TestSweep_ListFailureAborts(t *testing.T) {
	users := &mocks.MockUserRepository{
		ListByStatusFunc: func(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error) {
			return nil, errors.New("connection reset")
		},
	}
	sched := NewScheduler(users, &mocks.MockNotifier{}, &mocks.MockBillingGateway{}, &mocks.MockTextGenerator{}, nil, Config{}, zap.NewNop())

	if _, err := sched.Sweep(context.Background(), noonChicago); err == nil {
		t.Fatal("expected error")
	}
}

func TestSweep_OnlyTrialAndActiveListed(t *testing.T) {
	var got []domain.SubscriptionStatus
	users := &mocks.MockUserRepository{
		ListByStatusFunc: func(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error) {
			got = statuses
			return nil, nil
		},
	}
	sched := NewScheduler(users, &mocks.MockNotifier{}, &mocks.MockBillingGateway{}, &mocks.MockTextGenerator{}, nil, Config{}, zap.NewNop())

	res, err := sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.SubscriptionStatus{domain.SubscriptionStatusTrial, domain.SubscriptionStatusActive}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("listed %v; want %v", got, want)
	}
	if res.UsersProcessed != 0 || res.EligibleUsers != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSweep_ManyUsersConcurrently(t *testing.T) {
	f := newFixture()
	created := noonChicago.Add(-4 * 24 * time.Hour)
	for i := 0; i < 50; i++ {
		f.users.Put(trialUser(fmt.Sprintf("1650253%04d", i), created))
	}

	res, err := f.sched.Sweep(context.Background(), noonChicago)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 50 || len(f.notifier.Messages()) != 50 {
		t.Errorf("expected 50 sends, got %+v", res)
	}
}

func TestNewRunner_RejectsBadSchedule(t *testing.T) {
	f := newFixture()
	if _, err := NewRunner(f.sched, "not a schedule", time.Minute, zap.NewNop()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	r, err := NewRunner(f.sched, "", time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Start()
	if err := r.Stop(context.Background()); err != nil {
		t.Errorf("unexpected stop error: %v", err)
	}
}
