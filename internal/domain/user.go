package domain

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCanceling SubscriptionStatus = "canceling"
	SubscriptionStatusCanceled  SubscriptionStatus = "canceled"
)

// Column names accepted by UserRepository.Update.
const (
	FieldName                 = "name"
	FieldGoal                 = "goal"
	FieldMotivation           = "motivation"
	FieldTimeZone             = "time_zone"
	FieldSubscriptionStatus   = "subscription_status"
	FieldStripeCustomerID     = "stripe_customer_id"
	FieldStripeSubscriptionID = "stripe_subscription_id"
)

// User is keyed by the canonical phone number. Nullable onboarding fields are
// the progression signal: no step value is ever persisted.
type User struct {
	PhoneNumber          string              `json:"phone_number" gorm:"primaryKey;column:phone_number"`
	Name                 *string             `json:"name"`
	Goal                 *string             `json:"goal"`
	Motivation           *string             `json:"motivation"`
	TimeZone             *string             `json:"time_zone" gorm:"column:time_zone"`
	SubscriptionStatus   *SubscriptionStatus `json:"subscription_status" gorm:"index"`
	StripeCustomerID     *string             `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string             `json:"stripe_subscription_id,omitempty" gorm:"index"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Status returns the subscription status, or "" when unset.
func (u *User) Status() SubscriptionStatus {
	if u == nil || u.SubscriptionStatus == nil {
		return ""
	}
	return *u.SubscriptionStatus
}

func (u *User) HasStatus(statuses ...SubscriptionStatus) bool {
	s := u.Status()
	if s == "" {
		return false
	}
	for _, want := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

// DisplayName returns the stored first name or "" if onboarding has not
// reached it yet.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return Deref(u.Name)
}

// SubscriptionID returns the stored billing subscription id, or "" for a
// nil user or one that never subscribed.
func (u *User) SubscriptionID() string {
	if u == nil {
		return ""
	}
	return Deref(u.StripeSubscriptionID)
}

// DaysSinceSignup is the number of whole 24h periods elapsed between
// CreatedAt and now.
func (u *User) DaysSinceSignup(now time.Time) int {
	if u == nil {
		return 0
	}
	elapsed := now.Sub(u.CreatedAt)
	if elapsed < 0 {
		return -1 - int((-elapsed-1)/(24*time.Hour))
	}
	return int(elapsed / (24 * time.Hour))
}

// String returns a pointer to s, for populating nullable fields.
func String(s string) *string {
	return &s
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StatusPtr(s SubscriptionStatus) *SubscriptionStatus {
	return &s
}

func isSet(s *string) bool {
	return s != nil && *s != ""
}
