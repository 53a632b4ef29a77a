package ports

import (
	"context"
	"time"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

type UserRepository interface {
	// FindByPhone returns (nil, nil) when no record exists.
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	// FindBySubscriptionID returns (nil, nil) when no record exists.
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error)
	// Upsert inserts the user or, on a phone conflict, leaves the stored
	// onboarding fields untouched.
	Upsert(ctx context.Context, user *domain.User) error
	// Create inserts the user and fails with domain.ErrDuplicatePhone on conflict.
	Create(ctx context.Context, user *domain.User) error
	// Update overwrites the given columns. A nil value clears the column.
	Update(ctx context.Context, phone string, fields map[string]interface{}) error
	UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]interface{}) error
	ListByStatus(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error)
}

// MarkerStore records which reminders already went out. SetNX reports false
// when the key already exists.
type MarkerStore interface {
	SetNX(ctx context.Context, key string, value string, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}
