package memory

import (
	"context"
	"sync"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"

	"github.com/google/uuid"
)

type outboxRow struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRow struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-memory entitlement backend used for development and tests.
// It implements every persistence port of the module behind one mutex.
type Store struct {
	mu sync.RWMutex

	entitlements map[string]entities.EntitlementRecord
	snapshots    map[string]entities.StatusSnapshot
	outbox       []outboxRow
	dedup        map[string]dedupRow
	idempotency  map[string]ports.IdempotencyRecord
}

func NewStore() *Store {
	return &Store{
		entitlements: make(map[string]entities.EntitlementRecord),
		snapshots:    make(map[string]entities.StatusSnapshot),
		dedup:        make(map[string]dedupRow),
		idempotency:  make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Store) GetEntitlement(_ context.Context, userID string) (entities.EntitlementRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.entitlements[userID]
	if !ok {
		return entities.EntitlementRecord{}, false, nil
	}
	return cloneRecord(record), true, nil
}

func (s *Store) ClearExpiredTemporaryGrants(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.UTC()
	var cleared int64
	for userID, record := range s.entitlements {
		if record.TemporaryAccessUntil == nil || !record.TemporaryAccessUntil.Before(now) {
			continue
		}
		record.TemporaryAccessUntil = nil
		record.TemporaryAccessReason = ""
		record.UpdatedAt = now
		s.entitlements[userID] = record
		cleared++
	}
	return cleared, nil
}

func (s *Store) GetSnapshot(_ context.Context, userID string) (entities.StatusSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[userID]
	if !ok {
		return entities.StatusSnapshot{}, false, nil
	}
	return entities.StatusSnapshot{
		Record:      cloneRecord(snapshot.Record),
		ProjectedAt: snapshot.ProjectedAt,
	}, true, nil
}

func (s *Store) PutSnapshot(_ context.Context, snapshot entities.StatusSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.Record.UserID] = entities.StatusSnapshot{
		Record:      cloneRecord(snapshot.Record),
		ProjectedAt: snapshot.ProjectedAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.dedup[eventID]; ok {
		if existing.payloadHash != payloadHash {
			return false, domainerrors.ErrIdempotencyConflict
		}
		return true, nil
	}
	s.dedup[eventID] = dedupRow{payloadHash: payloadHash, expiresAt: expiresAt.UTC()}
	return false, nil
}

func (s *Store) GetRecord(_ context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.idempotency[key]
	if !ok {
		return ports.IdempotencyRecord{}, false, nil
	}
	if !record.ExpiresAt.IsZero() && now.UTC().After(record.ExpiresAt.UTC()) {
		delete(s.idempotency, key)
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *Store) PutRecord(_ context.Context, record ports.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[record.Key]; ok {
		if existing.RequestHash != record.RequestHash {
			return domainerrors.ErrIdempotencyConflict
		}
		return nil
	}
	s.idempotency[record.Key] = record
	return nil
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

// applyTemporaryGrant upserts the record under the store lock: temporary
// fields are replaced, payment fields are untouched.
func (s *Store) applyTemporaryGrant(grant ports.TemporaryGrant) entities.EntitlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.entitlements[grant.UserID]
	if !ok {
		record = entities.EntitlementRecord{
			UserID:             grant.UserID,
			SubscriptionStatus: entities.SubscriptionNone,
		}
	}
	expiresAt := grant.ExpiresAt.UTC()
	record.Email = grant.Email
	record.EmailVerified = grant.EmailVerified
	record.TemporaryAccessUntil = &expiresAt
	record.TemporaryAccessReason = grant.Reason
	record.UpdatedAt = grant.GrantedAt.UTC()
	s.entitlements[grant.UserID] = record
	return cloneRecord(record)
}

// applyPaymentGrant upserts the record under the store lock: payment fields
// plus the long-lived temporary-access backstop.
func (s *Store) applyPaymentGrant(grant ports.PaymentGrant) entities.EntitlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.entitlements[grant.UserID]
	if !ok {
		record = entities.EntitlementRecord{UserID: grant.UserID}
	}
	accessUntil := grant.AccessUntil.UTC()
	paidAt := grant.PaidAt.UTC()
	record.Email = grant.Email
	record.EmailVerified = grant.EmailVerified
	record.PaymentVerified = true
	record.SubscriptionStatus = entities.SubscriptionActive
	record.SubscriptionPlan = grant.Plan
	record.TemporaryAccessUntil = &accessUntil
	record.TemporaryAccessReason = entities.PaymentBackstopReason
	record.LastPaymentDate = &paidAt
	record.UpdatedAt = paidAt
	s.entitlements[grant.UserID] = record
	return cloneRecord(record)
}

func (s *Store) appendOutbox(message ports.OutboxMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, outboxRow{message: message})
}

func cloneRecord(in entities.EntitlementRecord) entities.EntitlementRecord {
	out := in
	if in.TemporaryAccessUntil != nil {
		v := in.TemporaryAccessUntil.UTC()
		out.TemporaryAccessUntil = &v
	}
	if in.LastPaymentDate != nil {
		v := in.LastPaymentDate.UTC()
		out.LastPaymentDate = &v
	}
	return out
}

var _ ports.Repository = (*Store)(nil)
var _ ports.SnapshotStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.EventDedupStore = (*Store)(nil)
var _ ports.IdempotencyStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
