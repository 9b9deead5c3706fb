package commands

import (
	"context"
	"log/slog"
	"time"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// ExpireStaleGrantsResult reports how many temporary grants were cleared.
type ExpireStaleGrantsResult struct {
	ClearedCount int64 `json:"cleared_count"`
}

// ExpireStaleGrantsUseCase clears expired temporary grants in one bulk
// conditional update. Because the filter is evaluated at query time, a grant
// issued concurrently still has a future expiry and cannot be clobbered.
// Immediate re-runs clear nothing.
type ExpireStaleGrantsUseCase struct {
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u ExpireStaleGrantsUseCase) Execute(ctx context.Context) (ExpireStaleGrantsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	now := u.now()

	cleared, err := u.Repository.ClearExpiredTemporaryGrants(ctx, now)
	if err != nil {
		logger.Error("expire stale grants failed",
			"event", "entitlement_expiry_sweep_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"error", err.Error(),
		)
		return ExpireStaleGrantsResult{}, err
	}

	if cleared > 0 {
		logger.Info("expire stale grants completed",
			"event", "entitlement_expiry_sweep_completed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"cleared_count", cleared,
		)
	}
	return ExpireStaleGrantsResult{ClearedCount: cleared}, nil
}

func (u ExpireStaleGrantsUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
