package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

// paymentAccessWindow is the long-lived temporary-access backstop written on
// payment success, so a paying user keeps access even if subscription state
// elsewhere drifts out of sync.
const paymentAccessWindow = 365 * 24 * time.Hour

// RecordPaymentSuccessCommand contains transport-agnostic payment webhook
// input. IdempotencyKey is optional; when present, retried webhooks replay
// the stored response instead of re-applying.
type RecordPaymentSuccessCommand struct {
	IdempotencyKey string
	UserID         string
	Plan           string
	ExternalRef    string
}

// RecordPaymentSuccessResult captures the upserted record and replay status.
type RecordPaymentSuccessResult struct {
	Record   entities.EntitlementRecord `json:"record"`
	Plan     string                     `json:"plan"`
	Replayed bool                       `json:"replayed"`
}

// RecordPaymentSuccessUseCase marks a user as paid: payment_verified,
// subscription_status=active, the plan, last_payment_date, and the
// temporary-access backstop, all in one upsert through the primary/fallback
// write strategy.
type RecordPaymentSuccessUseCase struct {
	Identity       ports.IdentityProvider
	Primary        ports.EntitlementWriter
	Fallback       ports.EntitlementWriter
	Idempotency    ports.IdempotencyStore
	Clock          ports.Clock
	IDGenerator    ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (u RecordPaymentSuccessUseCase) Execute(ctx context.Context, cmd RecordPaymentSuccessCommand) (RecordPaymentSuccessResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.UserID) == "" {
		return RecordPaymentSuccessResult{}, domainerrors.ErrInvalidUserID
	}
	plan := strings.ToLower(strings.TrimSpace(cmd.Plan))
	if !entities.IsKnownPlan(plan) {
		return RecordPaymentSuccessResult{}, domainerrors.ErrUnknownPlan
	}

	logger.Info("record payment success started",
		"event", "entitlement_payment_started",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"user_id", cmd.UserID,
		"plan", plan,
		"external_ref", cmd.ExternalRef,
	)

	now := u.now()
	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	var requestHash string
	if idempotencyKey != "" {
		var err error
		requestHash, err = hashRequest(struct {
			UserID      string `json:"user_id"`
			Plan        string `json:"plan"`
			ExternalRef string `json:"external_ref"`
		}{UserID: cmd.UserID, Plan: plan, ExternalRef: cmd.ExternalRef})
		if err != nil {
			return RecordPaymentSuccessResult{}, err
		}

		idempotencyKey = "entitlement_payment:" + idempotencyKey
		existing, found, err := u.Idempotency.GetRecord(ctx, idempotencyKey, now)
		if err != nil {
			return RecordPaymentSuccessResult{}, err
		}
		if found {
			if existing.RequestHash != requestHash {
				return RecordPaymentSuccessResult{}, domainerrors.ErrIdempotencyConflict
			}
			var replay RecordPaymentSuccessResult
			if err := json.Unmarshal(existing.ResponsePayload, &replay); err != nil {
				return RecordPaymentSuccessResult{}, err
			}
			replay.Replayed = true
			logger.Info("record payment success replayed",
				"event", "entitlement_payment_replayed",
				"module", "access-control/entitlement-service",
				"layer", "application",
				"user_id", cmd.UserID,
				"plan", plan,
			)
			return replay, nil
		}
	}

	user, err := resolveUser(ctx, u.Identity, cmd.UserID)
	if err != nil {
		logger.Warn("record payment success identity lookup failed",
			"event", "entitlement_payment_identity_failed",
			"module", "access-control/entitlement-service",
			"layer", "application",
			"user_id", cmd.UserID,
			"error", err.Error(),
		)
		return RecordPaymentSuccessResult{}, err
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return RecordPaymentSuccessResult{}, err
	}

	record, err := applyWithFallback(ctx, logger, u.Primary, u.Fallback, "record_payment_success", cmd.UserID,
		func(ctx context.Context, writer ports.EntitlementWriter) (entities.EntitlementRecord, error) {
			return writer.ApplyPaymentGrant(ctx, ports.PaymentGrant{
				UserID:        user.ID,
				Email:         user.Email,
				EmailVerified: user.EmailVerified,
				Plan:          plan,
				ExternalRef:   cmd.ExternalRef,
				AccessUntil:   now.Add(paymentAccessWindow),
				PaidAt:        now,
				OutboxID:      outboxID,
			})
		})
	if err != nil {
		return RecordPaymentSuccessResult{}, err
	}

	result := RecordPaymentSuccessResult{Record: record, Plan: plan}
	if idempotencyKey != "" {
		responsePayload, err := json.Marshal(result)
		if err != nil {
			return RecordPaymentSuccessResult{}, err
		}
		if err := u.Idempotency.PutRecord(ctx, ports.IdempotencyRecord{
			Key:             idempotencyKey,
			Operation:       "record_payment_success",
			RequestHash:     requestHash,
			ResponsePayload: responsePayload,
			ExpiresAt:       now.Add(u.idempotencyTTL()),
		}); err != nil {
			return RecordPaymentSuccessResult{}, err
		}
	}

	logger.Info("record payment success completed",
		"event", "entitlement_payment_completed",
		"module", "access-control/entitlement-service",
		"layer", "application",
		"user_id", cmd.UserID,
		"plan", plan,
	)
	return result, nil
}

func (u RecordPaymentSuccessUseCase) idempotencyTTL() time.Duration {
	if u.IdempotencyTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return u.IdempotencyTTL
}

func (u RecordPaymentSuccessUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
