package services

import (
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
)

// EvaluateAccess maps an entitlement record to an access decision. It is pure:
// it reads only the record and the supplied instant, so expiry correctness
// never depends on the sweeper having run.
//
// Email verification is a non-overridable AND-gate in front of every grant
// type, including manual overrides. A missing record evaluates as the zero
// record and is denied at the email gate.
func EvaluateAccess(record entities.EntitlementRecord, now time.Time) (bool, entities.AccessReason) {
	if !record.EmailVerified {
		return false, entities.ReasonEmailNotVerified
	}
	if record.TemporaryAccessUntil != nil && record.TemporaryAccessUntil.After(now) {
		return true, entities.ReasonTemporaryGrant
	}
	if record.PaymentVerified ||
		record.SubscriptionStatus == entities.SubscriptionActive ||
		record.ManualOverride {
		return true, entities.ReasonPermanentEntitlement
	}
	return false, entities.ReasonNoEntitlement
}
