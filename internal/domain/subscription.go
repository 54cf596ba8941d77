package domain

import "github.com/google/uuid"

// SubscriptionStatus values as reported by the billing provider.
const (
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Subscription is the billing record for a user. It is owned by the billing
// integration; this module only reads it.
type Subscription struct {
	UserID uuid.UUID
	Plan   string
	Status string
}

// GetUserPlan resolves the effective plan for a subscription.
// Only an active pro subscription grants pro; anything else, including a nil
// subscription or a pro plan that is past due, resolves to free.
func GetUserPlan(sub *Subscription) Plan {
	if sub == nil {
		return PlanFree
	}
	if sub.Plan == string(PlanPro) && sub.Status == SubscriptionStatusActive {
		return PlanPro
	}
	return PlanFree
}
