package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// GrantTemporaryAccessCommand contains transport-agnostic input for a
// time-boxed grant.
type GrantTemporaryAccessCommand struct {
	UserID string
	Hours  int
	Reason string
}

// GrantTemporaryAccessResult captures the upserted record and its expiry.
type GrantTemporaryAccessResult struct {
	Record    entities.EntitlementRecord `json:"record"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// GrantTemporaryAccessUseCase upserts a temporary grant through the
// primary/fallback write strategy. Re-issuing a grant replaces the expiry.
type GrantTemporaryAccessUseCase struct {
	Identity    ports.IdentityProvider
	Primary     ports.EntitlementWriter
	Fallback    ports.EntitlementWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func (u GrantTemporaryAccessUseCase) Execute(ctx context.Context, cmd GrantTemporaryAccessCommand) (GrantTemporaryAccessResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.UserID) == "" {
		return GrantTemporaryAccessResult{}, domainerrors.ErrInvalidUserID
	}
	if cmd.Hours <= 0 {
		return GrantTemporaryAccessResult{}, domainerrors.ErrInvalidDuration
	}

	logger.Info("grant temporary access started",
		"event", "entitlement_grant_temporary_started",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"user_id", cmd.UserID,
		"hours", cmd.Hours,
		"reason", cmd.Reason,
	)

	user, err := resolveUser(ctx, u.Identity, cmd.UserID)
	if err != nil {
		logger.Warn("grant temporary access identity lookup failed",
			"event", "entitlement_grant_temporary_identity_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", cmd.UserID,
			"error", err.Error(),
		)
		return GrantTemporaryAccessResult{}, err
	}

	now := u.now()
	expiresAt := now.Add(time.Duration(cmd.Hours) * time.Hour)
	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return GrantTemporaryAccessResult{}, err
	}

	record, err := applyWithFallback(ctx, logger, u.Primary, u.Fallback, "grant_temporary_access", cmd.UserID,
		func(ctx context.Context, writer ports.EntitlementWriter) (entities.EntitlementRecord, error) {
			return writer.ApplyTemporaryGrant(ctx, ports.TemporaryGrant{
				UserID:        user.ID,
				Email:         user.Email,
				EmailVerified: user.EmailVerified,
				ExpiresAt:     expiresAt,
				Reason:        strings.TrimSpace(cmd.Reason),
				GrantedAt:     now,
				OutboxID:      outboxID,
			})
		})
	if err != nil {
		return GrantTemporaryAccessResult{}, err
	}

	logger.Info("grant temporary access completed",
		"event", "entitlement_grant_temporary_completed",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"user_id", cmd.UserID,
		"expires_at", expiresAt,
	)
	return GrantTemporaryAccessResult{Record: record, ExpiresAt: expiresAt}, nil
}

func (u GrantTemporaryAccessUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
