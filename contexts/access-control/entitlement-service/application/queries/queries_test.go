package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/adapters/memory"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }

type brokenSnapshots struct{}

func (brokenSnapshots) GetSnapshot(context.Context, string) (entities.StatusSnapshot, bool, error) {
	return entities.StatusSnapshot{}, false, errors.New("snapshot tier down")
}

func (brokenSnapshots) PutSnapshot(context.Context, entities.StatusSnapshot) error {
	return errors.New("snapshot tier down")
}

func seedTemporaryGrant(t *testing.T, store *memory.Store, userID string, expiresAt time.Time, now time.Time) {
	t.Helper()
	writer := memory.NewFallbackWriter(store)
	if _, err := writer.ApplyTemporaryGrant(context.Background(), ports.TemporaryGrant{
		UserID:        userID,
		Email:         userID + "@example.com",
		EmailVerified: true,
		ExpiresAt:     expiresAt,
		Reason:        "promo",
		GrantedAt:     now,
	}); err != nil {
		t.Fatalf("seed grant failed: %v", err)
	}
}

func TestCheckAccessReadsLiveRecord(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedTemporaryGrant(t, store, "u1", now.Add(24*time.Hour), now)

	useCase := CheckAccessUseCase{Repository: store, Clock: fixedClock{now: now}}
	decision, err := useCase.Execute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !decision.HasAccess || decision.Reason != entities.ReasonTemporaryGrant {
		t.Fatalf("expected temporary grant access, got %+v", decision)
	}
	if !decision.CheckedAt.Equal(now) {
		t.Fatalf("expected checked_at %v, got %v", now, decision.CheckedAt)
	}
}

func TestCheckAccessExpiryWithoutSweep(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedTemporaryGrant(t, store, "u1", now.Add(time.Hour), now)

	later := CheckAccessUseCase{Repository: store, Clock: fixedClock{now: now.Add(2 * time.Hour)}}
	decision, err := later.Execute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if decision.HasAccess {
		t.Fatalf("expired grant must deny even before the sweep runs")
	}
	if decision.Reason != entities.ReasonNoEntitlement {
		t.Fatalf("expected no_entitlement, got %s", decision.Reason)
	}
}

func TestCheckAccessMissingRecordDeniesOnEmailGate(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()

	useCase := CheckAccessUseCase{Repository: store, Clock: fixedClock{now: now}}
	decision, err := useCase.Execute(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if decision.HasAccess {
		t.Fatalf("missing record must deny")
	}
	if decision.Reason != entities.ReasonEmailNotVerified {
		t.Fatalf("expected email_not_verified, got %s", decision.Reason)
	}
}

func TestCheckAccessValidatesUserID(t *testing.T) {
	useCase := CheckAccessUseCase{Repository: memory.NewStore()}
	if _, err := useCase.Execute(context.Background(), "  "); !errors.Is(err, domainerrors.ErrInvalidUserID) {
		t.Fatalf("expected invalid user id, got %v", err)
	}
}

func TestUserStatusPrefersSnapshotEvenWhenStale(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedTemporaryGrant(t, store, "u1", now.Add(48*time.Hour), now)

	projectedAt := now.Add(-time.Hour)
	staleExpiry := now.Add(24 * time.Hour)
	if err := store.PutSnapshot(context.Background(), entities.StatusSnapshot{
		Record: entities.EntitlementRecord{
			UserID:               "u1",
			Email:                "u1@example.com",
			EmailVerified:        true,
			TemporaryAccessUntil: &staleExpiry,
			UpdatedAt:            projectedAt,
		},
		ProjectedAt: projectedAt,
	}); err != nil {
		t.Fatalf("put snapshot failed: %v", err)
	}

	useCase := UserStatusUseCase{Snapshots: store, Repository: store, Clock: fixedClock{now: now}}
	result, err := useCase.Execute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !result.FromSnapshot {
		t.Fatalf("expected snapshot tier to serve the read")
	}
	if result.Record.TemporaryAccessUntil == nil || !result.Record.TemporaryAccessUntil.Equal(staleExpiry) {
		t.Fatalf("snapshot staleness must be visible to the status view, got %v", result.Record.TemporaryAccessUntil)
	}
	if result.ProjectedAt == nil || !result.ProjectedAt.Equal(projectedAt) {
		t.Fatalf("expected projected_at %v, got %v", projectedAt, result.ProjectedAt)
	}
}

func TestUserStatusFallsBackWhenSnapshotAbsent(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedTemporaryGrant(t, store, "u1", now.Add(24*time.Hour), now)

	useCase := UserStatusUseCase{Snapshots: store, Repository: store, Clock: fixedClock{now: now}}
	result, err := useCase.Execute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.FromSnapshot {
		t.Fatalf("absent snapshot must fall back to the raw record")
	}
	if result.Record.TemporaryAccessUntil == nil {
		t.Fatalf("fallback must serve the authoritative record")
	}
	if result.ProjectedAt != nil {
		t.Fatalf("raw reads carry no projection timestamp")
	}
}

func TestUserStatusFallsBackWhenSnapshotErrors(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()
	seedTemporaryGrant(t, store, "u1", now.Add(24*time.Hour), now)

	useCase := UserStatusUseCase{Snapshots: brokenSnapshots{}, Repository: store, Clock: fixedClock{now: now}}
	result, err := useCase.Execute(context.Background(), "u1")
	if err != nil {
		t.Fatalf("snapshot error must not fail the read: %v", err)
	}
	if result.FromSnapshot {
		t.Fatalf("errored snapshot tier must fall back")
	}
	if result.Record.UserID != "u1" {
		t.Fatalf("expected record for u1, got %+v", result.Record)
	}
}

func TestUserStatusMissingRecordReturnsZeroShape(t *testing.T) {
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	store := memory.NewStore()

	useCase := UserStatusUseCase{Snapshots: store, Repository: store, Clock: fixedClock{now: now}}
	result, err := useCase.Execute(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.Record.UserID != "unknown" {
		t.Fatalf("expected zero record keyed by user id, got %+v", result.Record)
	}
	if result.Record.EmailVerified || result.Record.PaymentVerified {
		t.Fatalf("missing record must present zero-valued fields")
	}
}
