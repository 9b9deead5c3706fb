package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	"gatehouse/contexts/access-control/entitlement-service/ports"
	contractsv1 "gatehouse/contracts/gen/events/v1"
)

const (
	sourceService    = "entitlement-service"
	changedEventType = "entitlement.changed"
)

// PrimaryWriter applies grants to the store and appends the change event to
// the outbox in the same locked section, mirroring the transactional primary
// path of the persistent backend.
type PrimaryWriter struct {
	store *Store
}

func NewPrimaryWriter(store *Store) *PrimaryWriter {
	return &PrimaryWriter{store: store}
}

func (w *PrimaryWriter) Name() string { return "memory_primary" }

func (w *PrimaryWriter) ApplyTemporaryGrant(_ context.Context, grant ports.TemporaryGrant) (entities.EntitlementRecord, error) {
	record := w.store.applyTemporaryGrant(grant)
	message, err := changedOutboxMessage(grant.OutboxID, record, grant.GrantedAt)
	if err != nil {
		return entities.EntitlementRecord{}, err
	}
	w.store.appendOutbox(message)
	return record, nil
}

func (w *PrimaryWriter) ApplyPaymentGrant(_ context.Context, grant ports.PaymentGrant) (entities.EntitlementRecord, error) {
	record := w.store.applyPaymentGrant(grant)
	message, err := changedOutboxMessage(grant.OutboxID, record, grant.PaidAt)
	if err != nil {
		return entities.EntitlementRecord{}, err
	}
	w.store.appendOutbox(message)
	return record, nil
}

// FallbackWriter applies grants directly without touching the outbox. The
// authoritative record is still correct; the derived snapshot simply lags
// until the next primary-path write for the same user.
type FallbackWriter struct {
	store *Store
}

func NewFallbackWriter(store *Store) *FallbackWriter {
	return &FallbackWriter{store: store}
}

func (w *FallbackWriter) Name() string { return "memory_fallback_direct" }

func (w *FallbackWriter) ApplyTemporaryGrant(_ context.Context, grant ports.TemporaryGrant) (entities.EntitlementRecord, error) {
	return w.store.applyTemporaryGrant(grant), nil
}

func (w *FallbackWriter) ApplyPaymentGrant(_ context.Context, grant ports.PaymentGrant) (entities.EntitlementRecord, error) {
	return w.store.applyPaymentGrant(grant), nil
}

func changedOutboxMessage(outboxID string, record entities.EntitlementRecord, occurredAt time.Time) (ports.OutboxMessage, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return ports.OutboxMessage{}, fmt.Errorf("marshal entitlement record: %w", err)
	}
	envelope := contractsv1.Envelope{
		EventID:          outboxID,
		EventType:        changedEventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    sourceService,
		SchemaVersion:    1,
		PartitionKeyPath: "data.user_id",
		PartitionKey:     record.UserID,
		Data:             data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return ports.OutboxMessage{}, fmt.Errorf("marshal event envelope: %w", err)
	}
	return ports.OutboxMessage{
		OutboxID:     outboxID,
		EventType:    changedEventType,
		PartitionKey: record.UserID,
		Payload:      payload,
		CreatedAt:    occurredAt.UTC(),
	}, nil
}

var _ ports.EntitlementWriter = (*PrimaryWriter)(nil)
var _ ports.EntitlementWriter = (*FallbackWriter)(nil)
