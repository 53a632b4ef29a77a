package domain

type BillingEventType string

const (
	BillingEventCheckoutCompleted   BillingEventType = "checkout.session.completed"
	BillingEventSubscriptionDeleted BillingEventType = "customer.subscription.deleted"
	BillingEventSubscriptionUpdated BillingEventType = "customer.subscription.updated"
	BillingEventPaymentFailed       BillingEventType = "invoice.payment_failed"
)

// CheckoutRequest describes a subscription checkout for one phone number.
// IdempotencyKey, when set, is forwarded to the billing provider so that a
// replayed trigger returns the session created the first time.
type CheckoutRequest struct {
	PhoneNumber    string
	PromoCode      string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer_id"`
}

// BillingEvent is the provider-neutral form of a verified billing callback.
type BillingEvent struct {
	ID                string           `json:"id"`
	Type              BillingEventType `json:"type"`
	PhoneNumber       string           `json:"phone_number,omitempty"`
	CustomerID        string           `json:"customer_id,omitempty"`
	SubscriptionID    string           `json:"subscription_id,omitempty"`
	CancelAtPeriodEnd bool             `json:"cancel_at_period_end,omitempty"`
	AttemptCount      int64            `json:"attempt_count,omitempty"`
}
