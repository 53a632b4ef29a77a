package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/goalreminder/goal-reminder/internal/domain"
)

// UpdateCall records one Update or UpdateBySubscriptionID invocation.
type UpdateCall struct {
	Key    string
	Fields map[string]interface{}
}

// MockUserRepository is a mock implementation of UserRepository. Calls are
// recorded so tests can assert on mutations.
type MockUserRepository struct {
	FindByPhoneFunc            func(ctx context.Context, phone string) (*domain.User, error)
	FindBySubscriptionIDFunc   func(ctx context.Context, subscriptionID string) (*domain.User, error)
	UpsertFunc                 func(ctx context.Context, user *domain.User) error
	CreateFunc                 func(ctx context.Context, user *domain.User) error
	UpdateFunc                 func(ctx context.Context, phone string, fields map[string]interface{}) error
	UpdateBySubscriptionIDFunc func(ctx context.Context, subscriptionID string, fields map[string]interface{}) error
	ListByStatusFunc           func(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error)

	mu         sync.Mutex
	Upserted   []domain.User
	Created    []domain.User
	Updates    []UpdateCall
	SubUpdates []UpdateCall
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	if m.FindByPhoneFunc != nil {
		return m.FindByPhoneFunc(ctx, phone)
	}
	return nil, nil
}

func (m *MockUserRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.User, error) {
	if m.FindBySubscriptionIDFunc != nil {
		return m.FindBySubscriptionIDFunc(ctx, subscriptionID)
	}
	return nil, nil
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	m.Upserted = append(m.Upserted, *user)
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	m.Created = append(m.Created, *user)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *MockUserRepository) Update(ctx context.Context, phone string, fields map[string]interface{}) error {
	m.mu.Lock()
	m.Updates = append(m.Updates, UpdateCall{Key: phone, Fields: fields})
	m.mu.Unlock()
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, phone, fields)
	}
	return nil
}

func (m *MockUserRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID string, fields map[string]interface{}) error {
	m.mu.Lock()
	m.SubUpdates = append(m.SubUpdates, UpdateCall{Key: subscriptionID, Fields: fields})
	m.mu.Unlock()
	if m.UpdateBySubscriptionIDFunc != nil {
		return m.UpdateBySubscriptionIDFunc(ctx, subscriptionID, fields)
	}
	return nil
}

func (m *MockUserRepository) ListByStatus(ctx context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error) {
	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, statuses...)
	}
	return []domain.User{}, nil
}

// MemoryUserRepository keeps users in a map and honours the repository
// contract closely enough for service tests that replay message sequences.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
	Now   func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*domain.User), Now: time.Now}
}

func (r *MemoryUserRepository) Put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := user
	r.users[u.PhoneNumber] = &u
}

func (r *MemoryUserRepository) Get(phone string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (r *MemoryUserRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *MemoryUserRepository) FindByPhone(_ context.Context, phone string) (*domain.User, error) {
	return r.Get(phone), nil
}

func (r *MemoryUserRepository) FindBySubscriptionID(_ context.Context, subscriptionID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.SubscriptionID() == subscriptionID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) Upsert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[user.PhoneNumber]; ok {
		existing.UpdatedAt = r.Now()
		return nil
	}
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.Now()
	}
	u.UpdatedAt = r.Now()
	r.users[u.PhoneNumber] = &u
	return nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.PhoneNumber]; ok {
		return domain.ErrDuplicatePhone
	}
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.Now()
	}
	u.UpdatedAt = r.Now()
	r.users[u.PhoneNumber] = &u
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, phone string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[phone]
	if !ok {
		return nil
	}
	applyFields(u, fields)
	u.UpdatedAt = r.Now()
	return nil
}

func (r *MemoryUserRepository) UpdateBySubscriptionID(_ context.Context, subscriptionID string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.SubscriptionID() == subscriptionID {
			applyFields(u, fields)
			u.UpdatedAt = r.Now()
		}
	}
	return nil
}

func (r *MemoryUserRepository) ListByStatus(_ context.Context, statuses ...domain.SubscriptionStatus) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.HasStatus(statuses...) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func applyFields(u *domain.User, fields map[string]interface{}) {
	for k, v := range fields {
		switch k {
		case domain.FieldName:
			u.Name = stringField(v)
		case domain.FieldGoal:
			u.Goal = stringField(v)
		case domain.FieldMotivation:
			u.Motivation = stringField(v)
		case domain.FieldTimeZone:
			u.TimeZone = stringField(v)
		case domain.FieldStripeCustomerID:
			u.StripeCustomerID = stringField(v)
		case domain.FieldStripeSubscriptionID:
			u.StripeSubscriptionID = stringField(v)
		case domain.FieldSubscriptionStatus:
			switch s := v.(type) {
			case domain.SubscriptionStatus:
				u.SubscriptionStatus = domain.StatusPtr(s)
			case string:
				u.SubscriptionStatus = domain.StatusPtr(domain.SubscriptionStatus(s))
			default:
				u.SubscriptionStatus = nil
			}
		}
	}
}

func stringField(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return domain.String(s)
	case *string:
		return s
	default:
		return nil
	}
}
