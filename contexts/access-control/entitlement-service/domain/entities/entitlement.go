package entities

import (
	"strings"
	"time"
)

// SubscriptionStatus tracks the billing lifecycle reported by the payment
// processor. Only "active" contributes to access.
type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// EntitlementRecord is the authoritative per-user entitlement state. There is
// at most one record per user; it is upserted lazily on the first grant or
// payment event and never hard-deleted here.
type EntitlementRecord struct {
	UserID                string             `json:"user_id"`
	Email                 string             `json:"email"`
	EmailVerified         bool               `json:"email_verified"`
	TemporaryAccessUntil  *time.Time         `json:"temporary_access_until,omitempty"`
	TemporaryAccessReason string             `json:"temporary_access_reason,omitempty"`
	PaymentVerified       bool               `json:"payment_verified"`
	SubscriptionStatus    SubscriptionStatus `json:"subscription_status"`
	SubscriptionPlan      string             `json:"subscription_plan,omitempty"`
	ManualOverride        bool               `json:"manual_override"`
	LastPaymentDate       *time.Time         `json:"last_payment_date,omitempty"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// PaymentBackstopReason marks the long-lived temporary window written
// alongside a verified payment so access survives a delayed or lost
// subscription webhook.
const PaymentBackstopReason = "payment_backstop"

// AccessReason explains an access decision. Reasons only affect reporting:
// the email gate always runs first and the remaining allow-conditions are ORed.
type AccessReason string

const (
	ReasonEmailNotVerified     AccessReason = "email_not_verified"
	ReasonTemporaryGrant       AccessReason = "temporary_grant"
	ReasonPermanentEntitlement AccessReason = "permanent_entitlement"
	ReasonNoEntitlement        AccessReason = "no_entitlement"
)

// AccessDecision is the result of evaluating one user's entitlement record.
type AccessDecision struct {
	UserID    string       `json:"user_id"`
	HasAccess bool         `json:"has_access"`
	Reason    AccessReason `json:"reason"`
	CheckedAt time.Time    `json:"checked_at"`
}

// StatusSnapshot is the read-optimized projection of an entitlement record.
// It is recomputed asynchronously and may lag the authoritative record; it is
// never consulted for access decisions, only for status display.
type StatusSnapshot struct {
	Record      EntitlementRecord `json:"record"`
	ProjectedAt time.Time         `json:"projected_at"`
}

var knownPlans = map[string]struct{}{
	"base":     {},
	"premium":  {},
	"pro":      {},
	"lifetime": {},
}

// IsKnownPlan reports whether plan is a recognized subscription plan
// identifier. Matching is case-insensitive.
func IsKnownPlan(plan string) bool {
	_, ok := knownPlans[strings.ToLower(strings.TrimSpace(plan))]
	return ok
}
