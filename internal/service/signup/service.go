// Package signup registers a phone number submitted from the web form.
package signup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

const msgWelcome = "Welcome to Goal Reminder! Each day at 7 AM, we'll remind you of your goal. What's your first name?"

type Service struct {
	users    ports.UserRepository
	notifier ports.Notifier
	region   string
	now      func() time.Time
	log      *zap.Logger
}

func NewService(users ports.UserRepository, notifier ports.Notifier, region string, log *zap.Logger) *Service {
	return &Service{
		users:    users,
		notifier: notifier,
		region:   region,
		now:      time.Now,
		log:      log,
	}
}

// Register validates the number, inserts a trial user and sends the welcome
// text. It returns domain.ErrInvalidPhone or domain.ErrDuplicatePhone for the
// two recoverable cases.
func (s *Service) Register(ctx context.Context, rawPhone string) (*domain.User, error) {
	phone, err := domain.NormalizePhone(rawPhone, s.region)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		PhoneNumber:        phone,
		SubscriptionStatus: domain.StatusPtr(domain.SubscriptionStatusTrial),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicatePhone) {
			s.log.Info("Duplicate signup", zap.String("phone_number", phone))
			return nil, err
		}
		return nil, fmt.Errorf("signup: create user: %w", err)
	}

	s.log.Info("User signed up", zap.String("phone_number", phone))

	if _, err := s.notifier.Send(ctx, phone, msgWelcome); err != nil {
		return nil, fmt.Errorf("signup: send welcome: %w", err)
	}
	return user, nil
}
