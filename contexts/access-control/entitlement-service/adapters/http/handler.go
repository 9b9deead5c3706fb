package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/application/commands"
	"gatehouse/contexts/access-control/entitlement-service/application/queries"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	httptransport "gatehouse/contexts/access-control/entitlement-service/transport/http"
)

const (
	defaultGrantHours  = 24
	defaultGrantReason = "Manual grant"
)

type Handler struct {
	GrantTemporaryAccess commands.GrantTemporaryAccessUseCase
	RecordPaymentSuccess commands.RecordPaymentSuccessUseCase
	ExpireStaleGrants    commands.ExpireStaleGrantsUseCase
	CheckAccess          queries.CheckAccessUseCase
	UserStatus           queries.UserStatusUseCase
	Logger               *slog.Logger
}

// GrantTemporaryAccessHandler godoc
// @Summary Grant temporary access
// @Description Upserts a time-boxed entitlement grant. Re-issuing replaces the expiry.
// @Tags entitlement-service
// @Accept json
// @Produce json
// @Param request body httptransport.GrantTemporaryAccessRequest true "Grant request"
// @Success 200 {object} httptransport.GrantTemporaryAccessResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/access/v1/grant-temporary-access [post]
func (h Handler) GrantTemporaryAccessHandler(
	ctx context.Context,
	req httptransport.GrantTemporaryAccessRequest,
) (httptransport.GrantTemporaryAccessResponse, error) {
	hours := defaultGrantHours
	if req.Hours != nil {
		hours = *req.Hours
	}
	reason := req.Reason
	if reason == "" {
		reason = defaultGrantReason
	}
	result, err := h.GrantTemporaryAccess.Execute(ctx, commands.GrantTemporaryAccessCommand{
		UserID: req.UserID,
		Hours:  hours,
		Reason: reason,
	})
	if err != nil {
		return httptransport.GrantTemporaryAccessResponse{}, err
	}
	return httptransport.GrantTemporaryAccessResponse{
		Success:   true,
		Message:   fmt.Sprintf("Temporary access granted for %d hours", hours),
		ExpiresAt: result.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// CheckAccessHandler godoc
// @Summary Check live access
// @Description Evaluates the authoritative record against the current clock.
// @Tags entitlement-service
// @Accept json
// @Produce json
// @Param request body httptransport.CheckAccessRequest true "Check request"
// @Success 200 {object} httptransport.CheckAccessResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/access/v1/check-access [post]
func (h Handler) CheckAccessHandler(
	ctx context.Context,
	req httptransport.CheckAccessRequest,
) (httptransport.CheckAccessResponse, error) {
	decision, record, err := h.CheckAccess.ExecuteWithRecord(ctx, req.UserID)
	if err != nil {
		return httptransport.CheckAccessResponse{}, err
	}
	return httptransport.CheckAccessResponse{
		HasAccess:  decision.HasAccess,
		Reason:     string(decision.Reason),
		UserStatus: mapRecord(record),
		CheckedAt:  decision.CheckedAt.Format(time.RFC3339),
	}, nil
}

// ProcessPaymentSuccessHandler godoc
// @Summary Record a successful payment
// @Description Marks the user paid and writes the long-lived access backstop.
// @Tags entitlement-service
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Webhook retry deduplication key"
// @Param request body httptransport.ProcessPaymentSuccessRequest true "Payment request"
// @Success 200 {object} httptransport.ProcessPaymentSuccessResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/access/v1/process-payment-success [post]
func (h Handler) ProcessPaymentSuccessHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.ProcessPaymentSuccessRequest,
) (httptransport.ProcessPaymentSuccessResponse, error) {
	result, err := h.RecordPaymentSuccess.Execute(ctx, commands.RecordPaymentSuccessCommand{
		IdempotencyKey: idempotencyKey,
		UserID:         req.UserID,
		Plan:           req.PlanType,
		ExternalRef:    req.SessionID,
	})
	if err != nil {
		return httptransport.ProcessPaymentSuccessResponse{}, err
	}
	message := "Payment recorded and entitlement activated"
	if result.Replayed {
		message = "Payment already recorded"
	}
	return httptransport.ProcessPaymentSuccessResponse{
		Success:  true,
		Message:  message,
		PlanType: result.Plan,
	}, nil
}

// CleanupExpiredHandler godoc
// @Summary Clear expired temporary grants
// @Description Runs the bulk expiry sweep. Immediate re-runs clear nothing.
// @Tags entitlement-service
// @Accept json
// @Produce json
// @Success 200 {object} httptransport.CleanupExpiredResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/access/v1/cleanup-expired [post]
func (h Handler) CleanupExpiredHandler(ctx context.Context) (httptransport.CleanupExpiredResponse, error) {
	result, err := h.ExpireStaleGrants.Execute(ctx)
	if err != nil {
		return httptransport.CleanupExpiredResponse{}, err
	}
	return httptransport.CleanupExpiredResponse{
		Success:        true,
		Message:        fmt.Sprintf("Cleared %d expired temporary grants", result.ClearedCount),
		CleanedUpCount: result.ClearedCount,
	}, nil
}

// UserStatusHandler godoc
// @Summary Get detailed entitlement status
// @Description Serves the snapshot tier when present, falling back to the raw record.
// @Tags entitlement-service
// @Accept json
// @Produce json
// @Param request body httptransport.UserStatusRequest true "Status request"
// @Success 200 {object} httptransport.UserStatusResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /api/access/v1/user-status [post]
func (h Handler) UserStatusHandler(
	ctx context.Context,
	req httptransport.UserStatusRequest,
) (httptransport.UserStatusResponse, error) {
	result, err := h.UserStatus.Execute(ctx, req.UserID)
	if err != nil {
		return httptransport.UserStatusResponse{}, err
	}
	status := httptransport.AccessStatusDTO{
		UserStatusDTO: mapRecord(result.Record),
		FromSnapshot:  result.FromSnapshot,
	}
	if result.ProjectedAt != nil {
		status.ProjectedAt = result.ProjectedAt.UTC().Format(time.RFC3339)
	}
	return httptransport.UserStatusResponse{
		AccessStatus: status,
		RetrievedAt:  result.RetrievedAt.Format(time.RFC3339),
	}, nil
}

func mapRecord(record entities.EntitlementRecord) httptransport.UserStatusDTO {
	result := httptransport.UserStatusDTO{
		UserID:                record.UserID,
		Email:                 record.Email,
		EmailVerified:         record.EmailVerified,
		TemporaryAccessReason: record.TemporaryAccessReason,
		PaymentVerified:       record.PaymentVerified,
		SubscriptionStatus:    string(record.SubscriptionStatus),
		SubscriptionPlan:      record.SubscriptionPlan,
		ManualOverride:        record.ManualOverride,
	}
	if result.SubscriptionStatus == "" {
		result.SubscriptionStatus = string(entities.SubscriptionNone)
	}
	if record.TemporaryAccessUntil != nil {
		result.TemporaryAccessUntil = record.TemporaryAccessUntil.UTC().Format(time.RFC3339)
	}
	if record.LastPaymentDate != nil {
		result.LastPaymentDate = record.LastPaymentDate.UTC().Format(time.RFC3339)
	}
	if !record.UpdatedAt.IsZero() {
		result.UpdatedAt = record.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return result
}
