package workers

import (
	"context"
	"log/slog"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/application/commands"
)

// ExpirySweeper runs the expiry sweep on a schedule. The same use case backs
// the on-demand cleanup endpoint; the sweep is only hygiene, access decisions
// never depend on it having run.
type ExpirySweeper struct {
	Expire commands.ExpireStaleGrantsUseCase
	Logger *slog.Logger
}

func (s ExpirySweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)

	result, err := s.Expire.Execute(ctx)
	if err != nil {
		logger.Error("expiry sweep cycle failed",
			"event", "entitlement_sweeper_cycle_failed",
			"module", "access-control/entitlement-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if result.ClearedCount > 0 {
		logger.Info("expiry sweep cycle completed",
			"event", "entitlement_sweeper_cycle_completed",
			"module", "access-control/entitlement-service",
			"layer", "worker",
			"cleared_count", result.ClearedCount,
		)
	}
	return nil
}
