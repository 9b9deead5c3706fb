package unit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	entitlementservice "gatehouse/contexts/access-control/entitlement-service"
	"gatehouse/contexts/access-control/entitlement-service/adapters/memory"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
	httptransport "gatehouse/contexts/access-control/entitlement-service/transport/http"
)

type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedModule(clock *movableClock) (entitlementservice.Module, *memory.IdentityDirectory) {
	store := memory.NewStore()
	identity := memory.NewIdentityDirectory()
	identity.Put(ports.User{ID: "user-verified", Email: "verified@example.com", EmailVerified: true})
	identity.Put(ports.User{ID: "user-unverified", Email: "unverified@example.com", EmailVerified: false})

	module := entitlementservice.NewModule(entitlementservice.Dependencies{
		Identity:       identity,
		Primary:        memory.NewPrimaryWriter(store),
		Fallback:       memory.NewFallbackWriter(store),
		Repository:     store,
		Snapshots:      store,
		Idempotency:    store,
		Clock:          clock,
		IDGenerator:    store,
		IdempotencyTTL: 7 * 24 * time.Hour,
	})
	return module, identity
}

func intPtr(v int) *int { return &v }

func TestTemporaryGrantLifecycle(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)}
	module, _ := newClockedModule(clock)
	ctx := context.Background()

	grant, err := module.Handler.GrantTemporaryAccessHandler(ctx, httptransport.GrantTemporaryAccessRequest{
		UserID: "user-verified",
		Hours:  intPtr(24),
		Reason: "promo",
	})
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if !grant.Success {
		t.Fatalf("expected successful grant, got %+v", grant)
	}

	check, err := module.Handler.CheckAccessHandler(ctx, httptransport.CheckAccessRequest{UserID: "user-verified"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.HasAccess || check.Reason != "temporary_grant" {
		t.Fatalf("expected temporary grant access, got %+v", check)
	}

	// Past the expiry the denial holds even before any sweep has run.
	clock.Advance(25 * time.Hour)
	check, err = module.Handler.CheckAccessHandler(ctx, httptransport.CheckAccessRequest{UserID: "user-verified"})
	if err != nil {
		t.Fatalf("check after expiry failed: %v", err)
	}
	if check.HasAccess {
		t.Fatalf("expected denial after expiry, got %+v", check)
	}
	if check.Reason != "no_entitlement" {
		t.Fatalf("expected no_entitlement, got %q", check.Reason)
	}

	cleanup, err := module.Handler.CleanupExpiredHandler(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if cleanup.CleanedUpCount != 1 {
		t.Fatalf("expected one cleared grant, got %d", cleanup.CleanedUpCount)
	}

	cleanup, err = module.Handler.CleanupExpiredHandler(ctx)
	if err != nil {
		t.Fatalf("second cleanup failed: %v", err)
	}
	if cleanup.CleanedUpCount != 0 {
		t.Fatalf("expected second sweep to clear nothing, got %d", cleanup.CleanedUpCount)
	}
}

func TestUnverifiedEmailGatesEveryEntitlement(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)}
	module, _ := newClockedModule(clock)
	ctx := context.Background()

	if _, err := module.Handler.GrantTemporaryAccessHandler(ctx, httptransport.GrantTemporaryAccessRequest{
		UserID: "user-unverified",
		Hours:  intPtr(24),
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if _, err := module.Handler.ProcessPaymentSuccessHandler(ctx, "", httptransport.ProcessPaymentSuccessRequest{
		UserID:   "user-unverified",
		PlanType: "premium",
	}); err != nil {
		t.Fatalf("payment failed: %v", err)
	}

	check, err := module.Handler.CheckAccessHandler(ctx, httptransport.CheckAccessRequest{UserID: "user-unverified"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if check.HasAccess {
		t.Fatalf("verification gate must deny, got %+v", check)
	}
	if check.Reason != "email_not_verified" {
		t.Fatalf("expected email_not_verified, got %q", check.Reason)
	}
}

func TestPaymentSurvivesExpirySweep(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)}
	module, _ := newClockedModule(clock)
	ctx := context.Background()

	payment, err := module.Handler.ProcessPaymentSuccessHandler(ctx, "", httptransport.ProcessPaymentSuccessRequest{
		UserID:    "user-verified",
		PlanType:  "Premium",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if payment.PlanType != "premium" {
		t.Fatalf("expected plan normalized to premium, got %q", payment.PlanType)
	}

	// The payment backstop window is long-lived, so a day later the sweep
	// clears nothing and access is still granted through the subscription.
	clock.Advance(25 * time.Hour)
	cleanup, err := module.Handler.CleanupExpiredHandler(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if cleanup.CleanedUpCount != 0 {
		t.Fatalf("payment backstop must survive the sweep, got %d cleared", cleanup.CleanedUpCount)
	}

	check, err := module.Handler.CheckAccessHandler(ctx, httptransport.CheckAccessRequest{UserID: "user-verified"})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.HasAccess {
		t.Fatalf("expected paid access, got %+v", check)
	}
}

func TestPaymentIdempotencyReplayAndConflict(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)}
	module, _ := newClockedModule(clock)
	ctx := context.Background()

	first, err := module.Handler.ProcessPaymentSuccessHandler(ctx, "pay-1", httptransport.ProcessPaymentSuccessRequest{
		UserID:    "user-verified",
		PlanType:  "pro",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}
	replay, err := module.Handler.ProcessPaymentSuccessHandler(ctx, "pay-1", httptransport.ProcessPaymentSuccessRequest{
		UserID:    "user-verified",
		PlanType:  "pro",
		SessionID: "sess-1",
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if first.PlanType != replay.PlanType {
		t.Fatalf("replay must echo the recorded result")
	}

	_, err = module.Handler.ProcessPaymentSuccessHandler(ctx, "pay-1", httptransport.ProcessPaymentSuccessRequest{
		UserID:    "user-verified",
		PlanType:  "lifetime",
		SessionID: "sess-2",
	})
	if !errors.Is(err, domainerrors.ErrIdempotencyConflict) {
		t.Fatalf("expected idempotency conflict, got %v", err)
	}
}

func TestUserStatusSnapshotFirstWithFallback(t *testing.T) {
	clock := &movableClock{now: time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)}
	module, _ := newClockedModule(clock)
	ctx := context.Background()

	if _, err := module.Handler.GrantTemporaryAccessHandler(ctx, httptransport.GrantTemporaryAccessRequest{
		UserID: "user-verified",
		Hours:  intPtr(24),
		Reason: "promo",
	}); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	// No projector is wired here, so the read falls back transparently.
	status, err := module.Handler.UserStatusHandler(ctx, httptransport.UserStatusRequest{UserID: "user-verified"})
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.AccessStatus.FromSnapshot {
		t.Fatalf("expected fallback read, got %+v", status.AccessStatus)
	}
	if status.AccessStatus.TemporaryAccessReason != "promo" {
		t.Fatalf("expected promo grant visible, got %+v", status.AccessStatus)
	}

	// A user with no record still gets a well-formed zero status.
	status, err = module.Handler.UserStatusHandler(ctx, httptransport.UserStatusRequest{UserID: "user-unverified"})
	if err != nil {
		t.Fatalf("status for empty record failed: %v", err)
	}
	if status.AccessStatus.UserID != "user-unverified" {
		t.Fatalf("expected zero-shape status, got %+v", status.AccessStatus)
	}
	if status.AccessStatus.SubscriptionStatus != "none" {
		t.Fatalf("expected none subscription status, got %q", status.AccessStatus.SubscriptionStatus)
	}
}
