package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/goalreminder/goal-reminder/internal/domain"
	"github.com/goalreminder/goal-reminder/internal/ports"
)

type UserRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUserRepository(db *gorm.DB, log *zap.Logger) ports.UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
	}
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.first(ctx, "phone_number = ?", phone)
}

func (r *UserRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	return r.first(ctx, "stripe_subscription_id = ?", subscriptionID)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where(query, arg).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find user: %w", err)
	}
	return &user, nil
}

// Upsert only refreshes updated_at on conflict so a replayed START never
// clobbers answers that were already stored.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("store: upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicatePhone
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func (r *UserRepository) Update(ctx context.Context, phone string, fields map[string]interface{}) error {
	return r.update(ctx, "phone_number = ?", phone, fields)
}

func (r *UserRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]interface{}) error {
	return r.update(ctx, "stripe_subscription_id = ?", subscriptionID, fields)
}

func (r *UserRepository) update(ctx context.Context, query string, arg interface{}, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	// Updates with a map writes nil values as NULL, which RESTART relies on.
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where(query, arg).Updates(fields).Error
	if err != nil {
		return fmt.Errorf("store: update user: %w", err)
	}
	return nil
}

func (r *UserRepository) ListByStatus(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("subscription_status IN ?", statuses).
		Order("created_at").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	return users, nil
}
