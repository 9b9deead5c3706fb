package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

type grantApplier func(ctx context.Context, writer ports.EntitlementWriter) (entities.EntitlementRecord, error)

// applyWithFallback runs the same grant against the primary writer and, on
// error, against the fallback writer. Each fallback engagement is logged as
// its own event so operators can see primary-path degradation; the grant is
// never left partially applied (each writer upserts atomically or not at all).
func applyWithFallback(
	ctx context.Context,
	logger *slog.Logger,
	primary ports.EntitlementWriter,
	fallback ports.EntitlementWriter,
	operation string,
	userID string,
	apply grantApplier,
) (entities.EntitlementRecord, error) {
	record, primaryErr := apply(ctx, primary)
	if primaryErr == nil {
		return record, nil
	}

	logger.Warn("primary entitlement write failed, engaging fallback",
		"event", "entitlement_fallback_write_engaged",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"operation", operation,
		"user_id", userID,
		"primary", primary.Name(),
		"fallback", fallback.Name(),
		"error", primaryErr.Error(),
	)

	record, fallbackErr := apply(ctx, fallback)
	if fallbackErr != nil {
		logger.Error("fallback entitlement write failed",
			"event", "entitlement_fallback_write_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"operation", operation,
			"user_id", userID,
			"fallback", fallback.Name(),
			"error", fallbackErr.Error(),
		)
		return entities.EntitlementRecord{}, fmt.Errorf(
			"%w: primary: %v; fallback: %v",
			domainerrors.ErrAllPathsFailed, primaryErr, fallbackErr,
		)
	}

	logger.Info("fallback entitlement write succeeded",
		"event", "entitlement_fallback_write_succeeded",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"operation", operation,
		"user_id", userID,
		"fallback", fallback.Name(),
	)
	return record, nil
}

// resolveUser looks the user up with the identity provider, retrying once on
// transient failures. Unknown users never trigger a write.
func resolveUser(ctx context.Context, identity ports.IdentityProvider, userID string) (ports.User, error) {
	user, err := identity.ResolveUser(ctx, userID)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, domainerrors.ErrUserNotFound) {
		return ports.User{}, err
	}

	user, retryErr := identity.ResolveUser(ctx, userID)
	if retryErr == nil {
		return user, nil
	}
	if errors.Is(retryErr, domainerrors.ErrUserNotFound) {
		return ports.User{}, retryErr
	}
	return ports.User{}, fmt.Errorf("%w: identity lookup: %v", domainerrors.ErrBackendUnavailable, retryErr)
}

func hashRequest(payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
