package postgresadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	"gatehouse/contexts/access-control/entitlement-service/ports"
	contractsv1 "gatehouse/contracts/gen/events/v1"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	sourceService    = "entitlement-service"
	changedEventType = "entitlement.changed"
)

// PrimaryWriter is the transactional write path: the entitlement upsert and
// the outbox append commit or roll back together, so every committed change
// has a pending change event.
type PrimaryWriter struct {
	db *gorm.DB
}

func NewPrimaryWriter(db *gorm.DB) *PrimaryWriter {
	return &PrimaryWriter{db: db}
}

func (w *PrimaryWriter) Name() string { return "postgres_primary" }

func (w *PrimaryWriter) ApplyTemporaryGrant(ctx context.Context, grant ports.TemporaryGrant) (entities.EntitlementRecord, error) {
	var record entities.EntitlementRecord
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertTemporaryGrant(tx, grant); err != nil {
			return err
		}
		applied, err := readEntitlementTx(tx, grant.UserID)
		if err != nil {
			return err
		}
		record = applied
		return appendChangedOutboxTx(tx, grant.OutboxID, applied, grant.GrantedAt)
	})
	if err != nil {
		return entities.EntitlementRecord{}, err
	}
	return record, nil
}

func (w *PrimaryWriter) ApplyPaymentGrant(ctx context.Context, grant ports.PaymentGrant) (entities.EntitlementRecord, error) {
	var record entities.EntitlementRecord
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertPaymentGrant(tx, grant); err != nil {
			return err
		}
		applied, err := readEntitlementTx(tx, grant.UserID)
		if err != nil {
			return err
		}
		record = applied
		return appendChangedOutboxTx(tx, grant.OutboxID, applied, grant.PaidAt)
	})
	if err != nil {
		return entities.EntitlementRecord{}, err
	}
	return record, nil
}

// FallbackWriter is the degraded write path engaged when the primary path
// errors. It upserts the authoritative row without an outbox append, so the
// record is correct immediately while the derived snapshot lags.
type FallbackWriter struct {
	db *gorm.DB
}

func NewFallbackWriter(db *gorm.DB) *FallbackWriter {
	return &FallbackWriter{db: db}
}

func (w *FallbackWriter) Name() string { return "postgres_fallback_direct" }

func (w *FallbackWriter) ApplyTemporaryGrant(ctx context.Context, grant ports.TemporaryGrant) (entities.EntitlementRecord, error) {
	db := w.db.WithContext(ctx)
	if err := upsertTemporaryGrant(db, grant); err != nil {
		return entities.EntitlementRecord{}, err
	}
	return readEntitlementTx(db, grant.UserID)
}

func (w *FallbackWriter) ApplyPaymentGrant(ctx context.Context, grant ports.PaymentGrant) (entities.EntitlementRecord, error) {
	db := w.db.WithContext(ctx)
	if err := upsertPaymentGrant(db, grant); err != nil {
		return entities.EntitlementRecord{}, err
	}
	return readEntitlementTx(db, grant.UserID)
}

// upsertTemporaryGrant replaces the temporary window and identity facts while
// leaving payment columns untouched on conflict.
func upsertTemporaryGrant(tx *gorm.DB, grant ports.TemporaryGrant) error {
	expiresAt := grant.ExpiresAt.UTC()
	row := entitlementModel{
		UserID:                strings.TrimSpace(grant.UserID),
		Email:                 strings.TrimSpace(grant.Email),
		EmailVerified:         grant.EmailVerified,
		TemporaryAccessUntil:  &expiresAt,
		TemporaryAccessReason: strings.TrimSpace(grant.Reason),
		SubscriptionStatus:    string(entities.SubscriptionNone),
		UpdatedAt:             grant.GrantedAt.UTC(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"email_verified",
			"temporary_access_until",
			"temporary_access_reason",
			"updated_at",
		}),
	}).Create(&row).Error
}

// upsertPaymentGrant marks the payment verified and writes the long-lived
// temporary backstop alongside the subscription columns.
func upsertPaymentGrant(tx *gorm.DB, grant ports.PaymentGrant) error {
	accessUntil := grant.AccessUntil.UTC()
	paidAt := grant.PaidAt.UTC()
	row := entitlementModel{
		UserID:                strings.TrimSpace(grant.UserID),
		Email:                 strings.TrimSpace(grant.Email),
		EmailVerified:         grant.EmailVerified,
		TemporaryAccessUntil:  &accessUntil,
		TemporaryAccessReason: entities.PaymentBackstopReason,
		PaymentVerified:       true,
		SubscriptionStatus:    string(entities.SubscriptionActive),
		SubscriptionPlan:      strings.TrimSpace(grant.Plan),
		LastPaymentDate:       &paidAt,
		UpdatedAt:             paidAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email",
			"email_verified",
			"temporary_access_until",
			"temporary_access_reason",
			"payment_verified",
			"subscription_status",
			"subscription_plan",
			"last_payment_date",
			"updated_at",
		}),
	}).Create(&row).Error
}

func readEntitlementTx(tx *gorm.DB, userID string) (entities.EntitlementRecord, error) {
	var row entitlementModel
	if err := tx.Where("user_id = ?", strings.TrimSpace(userID)).First(&row).Error; err != nil {
		return entities.EntitlementRecord{}, err
	}
	return row.toEntity(), nil
}

func appendChangedOutboxTx(tx *gorm.DB, outboxID string, record entities.EntitlementRecord, occurredAt time.Time) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal entitlement record: %w", err)
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
		return fmt.Errorf("marshal event envelope: %w", err)
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    changedEventType,
		PartitionKey: record.UserID,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    occurredAt.UTC(),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

var _ ports.EntitlementWriter = (*PrimaryWriter)(nil)
var _ ports.EntitlementWriter = (*FallbackWriter)(nil)
