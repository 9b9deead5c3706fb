package queries

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/domain/services"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// CheckAccessUseCase evaluates live entitlement state. It always reads the
// authoritative record, never the snapshot, so expiry is re-checked against
// the current clock on every call.
type CheckAccessUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u CheckAccessUseCase) Execute(ctx context.Context, userID string) (entities.AccessDecision, error) {
	decision, _, err := u.ExecuteWithRecord(ctx, userID)
	return decision, err
}

// ExecuteWithRecord also returns the evaluated record for callers that render
// the status alongside the decision.
func (u CheckAccessUseCase) ExecuteWithRecord(ctx context.Context, userID string) (entities.AccessDecision, entities.EntitlementRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return entities.AccessDecision{}, entities.EntitlementRecord{}, domainerrors.ErrInvalidUserID
	}

	logger := application.ResolveLogger(u.Logger)
	now := u.now()

	record, found, err := u.Repository.GetEntitlement(ctx, userID)
	if err != nil {
		logger.Error("check access record lookup failed",
			"event", "entitlement_check_lookup_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return entities.AccessDecision{}, entities.EntitlementRecord{}, fmt.Errorf("%w: entitlement lookup: %v", domainerrors.ErrBackendUnavailable, err)
	}
	if !found {
		record = entities.EntitlementRecord{UserID: userID}
	}

	allowed, reason := services.EvaluateAccess(record, now)
	if allowed {
		logger.Debug("check access allowed",
			"event", "entitlement_check_allowed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", userID,
			"reason", reason,
		)
	} else {
		logger.Debug("check access denied",
			"event", "entitlement_check_denied",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", userID,
			"reason", reason,
		)
	}

	return entities.AccessDecision{
		UserID:    userID,
		HasAccess: allowed,
		Reason:    reason,
		CheckedAt: now,
	}, record, nil
}

func (u CheckAccessUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
