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
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// UserStatusResult is the full-detail status view. FromSnapshot reports which
// tier served the read; the shape is identical either way.
type UserStatusResult struct {
	Record       entities.EntitlementRecord
	ProjectedAt  *time.Time
	FromSnapshot bool
	RetrievedAt  time.Time
}

// UserStatusUseCase serves the detail view snapshot-first. The snapshot is a
// performance tier only: when it is absent or errors, the read falls back
// transparently to the authoritative record. A stale or missing snapshot is
// never an error to the caller.
type UserStatusUseCase struct {
	Snapshots  ports.SnapshotStore
	Repository ports.Repository
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (u UserStatusUseCase) Execute(ctx context.Context, userID string) (UserStatusResult, error) {
	if strings.TrimSpace(userID) == "" {
		return UserStatusResult{}, domainerrors.ErrInvalidUserID
	}

	logger := application.ResolveLogger(u.Logger)
	now := u.now()

	if u.Snapshots != nil {
		snapshot, hit, err := u.Snapshots.GetSnapshot(ctx, userID)
		if err != nil {
			logger.Warn("status snapshot read failed, falling back to record",
				"event", "entitlement_snapshot_read_failed",
				"module", "access-control/entitlement-service",
				"layer", "application",
				"user_id", userID,
				"error", err.Error(),
			)
		} else if hit {
			projectedAt := snapshot.ProjectedAt
			return UserStatusResult{
				Record:       snapshot.Record,
				ProjectedAt:  &projectedAt,
				FromSnapshot: true,
				RetrievedAt:  now,
			}, nil
		} else {
			logger.Debug("status snapshot absent, falling back to record",
				"event", "entitlement_snapshot_fallback",
				"module", "access-control/entitlement-service",
				"layer", "application",
				"user_id", userID,
			)
		}
	}

	record, found, err := u.Repository.GetEntitlement(ctx, userID)
	if err != nil {
		logger.Error("status record lookup failed",
			"event", "entitlement_status_lookup_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", userID,
			"error", err.Error(),
		)
		return UserStatusResult{}, fmt.Errorf("%w: entitlement lookup: %v", domainerrors.ErrBackendUnavailable, err)
	}
	if !found {
		record = entities.EntitlementRecord{UserID: userID}
	}

	return UserStatusResult{
		Record:      record,
		RetrievedAt: now,
	}, nil
}

func (u UserStatusUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
