package ports

import (
	"context"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

// Notifier delivers one text message and returns the provider receipt id.
type Notifier interface {
	Send(ctx context.Context, to, body string) (string, error)
}

type TextGenerator interface {
	Reformat(ctx context.Context, text string, kind domain.TextKind) (string, error)
	MorningReminder(ctx context.Context, name, goal, motivation string) (string, error)
}

// ZoneInterpreter turns free text into an IANA zone name, or "UNKNOWN".
type ZoneInterpreter interface {
	InterpretTimezone(ctx context.Context, input string) (string, error)
}

type TimezoneResolver interface {
	Resolve(ctx context.Context, input string) (string, bool)
	Suggest(input string) []string
}

type OnboardingService interface {
	HandleMessage(ctx context.Context, from, body string) string
}

type BillingEventService interface {
	Apply(ctx context.Context, event *domain.BillingEvent) error
}

type SignupService interface {
	Register(ctx context.Context, rawPhone string) (*domain.User, error)
}

// EventPublisher hands a serialized event to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// BillingEventDispatcher hands a verified billing event to whoever applies it.
type BillingEventDispatcher interface {
	Dispatch(ctx context.Context, event *domain.BillingEvent) error
}
