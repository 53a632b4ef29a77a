package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

// SentMessage is one recorded notifier call.
type SentMessage struct {
	To   string
	Body string
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	SendFunc func(ctx context.Context, to, body string) (string, error)

	mu   sync.Mutex
	Sent []SentMessage
}

func (m *MockNotifier) Send(ctx context.Context, to, body string) (string, error) {
	if m.SendFunc != nil {
		sid, err := m.SendFunc(ctx, to, body)
		if err != nil {
			return "", err
		}
		m.record(to, body)
		return sid, nil
	}
	m.record(to, body)
	return "SM" + to, nil
}

func (m *MockNotifier) record(to, body string) {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	m.mu.Unlock()
}

func (m *MockNotifier) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// MockBillingGateway is a mock implementation of BillingGateway
type MockBillingGateway struct {
	CreateCheckoutSessionFunc func(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error)
	CancelAtPeriodEndFunc     func(ctx context.Context, subscriptionID string) error
	ParseWebhookFunc          func(payload []byte, signature string) (*domain.BillingEvent, error)

	mu       sync.Mutex
	Requests []domain.CheckoutRequest
	Canceled []string
}

func (m *MockBillingGateway) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, req)
	}
	return &domain.CheckoutSession{
		ID:  "cs_test",
		URL: "https://checkout.test/" + req.PhoneNumber,
	}, nil
}

func (m *MockBillingGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	m.mu.Lock()
	m.Canceled = append(m.Canceled, subscriptionID)
	m.mu.Unlock()
	if m.CancelAtPeriodEndFunc != nil {
		return m.CancelAtPeriodEndFunc(ctx, subscriptionID)
	}
	return nil
}

func (m *MockBillingGateway) ParseWebhook(payload []byte, signature string) (*domain.BillingEvent, error) {
	if m.ParseWebhookFunc != nil {
		return m.ParseWebhookFunc(payload, signature)
	}
	return nil, errors.New("mock: ParseWebhook not configured")
}

func (m *MockBillingGateway) CheckoutRequests() []domain.CheckoutRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CheckoutRequest, len(m.Requests))
	copy(out, m.Requests)
	return out
}

// MockTextGenerator is a mock implementation of TextGenerator
type MockTextGenerator struct {
	ReformatFunc        func(ctx context.Context, text string, kind domain.TextKind) (string, error)
	MorningReminderFunc func(ctx context.Context, name, goal, motivation string) (string, error)
}

func (m *MockTextGenerator) Reformat(ctx context.Context, text string, kind domain.TextKind) (string, error) {
	if m.ReformatFunc != nil {
		return m.ReformatFunc(ctx, text, kind)
	}
	return text, nil
}

func (m *MockTextGenerator) MorningReminder(ctx context.Context, name, goal, motivation string) (string, error) {
	if m.MorningReminderFunc != nil {
		return m.MorningReminderFunc(ctx, name, goal, motivation)
	}
	return "Good morning " + name, nil
}

// MockZoneInterpreter is a mock implementation of ZoneInterpreter
type MockZoneInterpreter struct {
	InterpretTimezoneFunc func(ctx context.Context, input string) (string, error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockZoneInterpreter) InterpretTimezone(ctx context.Context, input string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, input)
	m.mu.Unlock()
	if m.InterpretTimezoneFunc != nil {
		return m.InterpretTimezoneFunc(ctx, input)
	}
	return "UNKNOWN", nil
}

// MockTimezoneResolver is a mock implementation of TimezoneResolver
type MockTimezoneResolver struct {
	ResolveFunc func(ctx context.Context, input string) (string, bool)
	SuggestFunc func(input string) []string
}

func (m *MockTimezoneResolver) Resolve(ctx context.Context, input string) (string, bool) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, input)
	}
	return "", false
}

func (m *MockTimezoneResolver) Suggest(input string) []string {
	if m.SuggestFunc != nil {
		return m.SuggestFunc(input)
	}
	return nil
}

// MockOnboardingService is a mock implementation of OnboardingService
type MockOnboardingService struct {
	HandleMessageFunc func(ctx context.Context, from, body string) string
}

func (m *MockOnboardingService) HandleMessage(ctx context.Context, from, body string) string {
	if m.HandleMessageFunc != nil {
		return m.HandleMessageFunc(ctx, from, body)
	}
	return ""
}

// MockBillingEventService is a mock implementation of BillingEventService
type MockBillingEventService struct {
	ApplyFunc func(ctx context.Context, event *domain.BillingEvent) error

	mu      sync.Mutex
	Applied []domain.BillingEvent
}

func (m *MockBillingEventService) Apply(ctx context.Context, event *domain.BillingEvent) error {
	m.mu.Lock()
	m.Applied = append(m.Applied, *event)
	m.mu.Unlock()
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, event)
	}
	return nil
}

// MockSignupService is a mock implementation of SignupService
type MockSignupService struct {
	RegisterFunc func(ctx context.Context, rawPhone string) (*domain.User, error)
}

func (m *MockSignupService) Register(ctx context.Context, rawPhone string) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, rawPhone)
	}
	return &domain.User{PhoneNumber: rawPhone}, nil
}
