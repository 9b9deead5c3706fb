package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetEntitlement(ctx context.Context, userID string) (entities.EntitlementRecord, bool, error) {
	var row entitlementModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EntitlementRecord{}, false, nil
		}
		return entities.EntitlementRecord{}, false, err
	}
	return row.toEntity(), true, nil
}

// ClearExpiredTemporaryGrants nulls out expired temporary windows in one
// conditional bulk update. The expiry filter runs inside the statement, so a
// grant renewed between poll and sweep is never touched.
func (r *Repository) ClearExpiredTemporaryGrants(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entitlementModel{}).
		Where("temporary_access_until IS NOT NULL AND temporary_access_until < ?", now.UTC()).
		Updates(map[string]any{
			"temporary_access_until":  nil,
			"temporary_access_reason": "",
			"updated_at":              now.UTC(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *Repository) GetSnapshot(ctx context.Context, userID string) (entities.StatusSnapshot, bool, error) {
	var row snapshotModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.StatusSnapshot{}, false, nil
		}
		return entities.StatusSnapshot{}, false, err
	}
	return entities.StatusSnapshot{
		Record:      row.toEntity(),
		ProjectedAt: row.ProjectedAt.UTC(),
	}, true, nil
}

func (r *Repository) PutSnapshot(ctx context.Context, snapshot entities.StatusSnapshot) error {
	row := snapshotModelFromEntity(snapshot)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(snapshotColumns()),
		}).
		Create(&row).
		Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		}).
		Error
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrIdempotencyConflict
	}
	return true, nil
}

func (r *Repository) GetRecord(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, err
	}

	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).
			Error; err != nil {
			return ports.IdempotencyRecord{}, false, err
		}
		return ports.IdempotencyRecord{}, false, nil
	}

	return ports.IdempotencyRecord{
		Key:             row.Key,
		Operation:       row.Operation,
		RequestHash:     row.RequestHash,
		ResponsePayload: append([]byte(nil), row.ResponsePayload...),
		ExpiresAt:       row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) PutRecord(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:             strings.TrimSpace(record.Key),
		Operation:       strings.TrimSpace(record.Operation),
		RequestHash:     record.RequestHash,
		ResponsePayload: append([]byte(nil), record.ResponsePayload...),
		ExpiresAt:       record.ExpiresAt.UTC(),
	}
	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).
		Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

type entitlementModel struct {
	UserID                string     `gorm:"column:user_id;primaryKey"`
	Email                 string     `gorm:"column:email"`
	EmailVerified         bool       `gorm:"column:email_verified"`
	TemporaryAccessUntil  *time.Time `gorm:"column:temporary_access_until"`
	TemporaryAccessReason string     `gorm:"column:temporary_access_reason"`
	PaymentVerified       bool       `gorm:"column:payment_verified"`
	SubscriptionStatus    string     `gorm:"column:subscription_status"`
	SubscriptionPlan      string     `gorm:"column:subscription_plan"`
	ManualOverride        bool       `gorm:"column:manual_override"`
	LastPaymentDate       *time.Time `gorm:"column:last_payment_date"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
}

func (entitlementModel) TableName() string {
	return "entitlements"
}

func (m entitlementModel) toEntity() entities.EntitlementRecord {
	status := entities.SubscriptionStatus(m.SubscriptionStatus)
	if m.SubscriptionStatus == "" {
		status = entities.SubscriptionNone
	}
	return entities.EntitlementRecord{
		UserID:                m.UserID,
		Email:                 m.Email,
		EmailVerified:         m.EmailVerified,
		TemporaryAccessUntil:  normalizeOptionalTime(m.TemporaryAccessUntil),
		TemporaryAccessReason: m.TemporaryAccessReason,
		PaymentVerified:       m.PaymentVerified,
		SubscriptionStatus:    status,
		SubscriptionPlan:      m.SubscriptionPlan,
		ManualOverride:        m.ManualOverride,
		LastPaymentDate:       normalizeOptionalTime(m.LastPaymentDate),
		UpdatedAt:             m.UpdatedAt.UTC(),
	}
}

type snapshotModel struct {
	UserID                string     `gorm:"column:user_id;primaryKey"`
	Email                 string     `gorm:"column:email"`
	EmailVerified         bool       `gorm:"column:email_verified"`
	TemporaryAccessUntil  *time.Time `gorm:"column:temporary_access_until"`
	TemporaryAccessReason string     `gorm:"column:temporary_access_reason"`
	PaymentVerified       bool       `gorm:"column:payment_verified"`
	SubscriptionStatus    string     `gorm:"column:subscription_status"`
	SubscriptionPlan      string     `gorm:"column:subscription_plan"`
	ManualOverride        bool       `gorm:"column:manual_override"`
	LastPaymentDate       *time.Time `gorm:"column:last_payment_date"`
	UpdatedAt             time.Time  `gorm:"column:updated_at"`
	ProjectedAt           time.Time  `gorm:"column:projected_at"`
}

func (snapshotModel) TableName() string {
	return "entitlement_snapshots"
}

func snapshotModelFromEntity(snapshot entities.StatusSnapshot) snapshotModel {
	record := snapshot.Record
	return snapshotModel{
		UserID:                strings.TrimSpace(record.UserID),
		Email:                 strings.TrimSpace(record.Email),
		EmailVerified:         record.EmailVerified,
		TemporaryAccessUntil:  normalizeOptionalTime(record.TemporaryAccessUntil),
		TemporaryAccessReason: record.TemporaryAccessReason,
		PaymentVerified:       record.PaymentVerified,
		SubscriptionStatus:    string(record.SubscriptionStatus),
		SubscriptionPlan:      record.SubscriptionPlan,
		ManualOverride:        record.ManualOverride,
		LastPaymentDate:       normalizeOptionalTime(record.LastPaymentDate),
		UpdatedAt:             record.UpdatedAt.UTC(),
		ProjectedAt:           snapshot.ProjectedAt.UTC(),
	}
}

func snapshotColumns() []string {
	return []string{
		"email",
		"email_verified",
		"temporary_access_until",
		"temporary_access_reason",
		"payment_verified",
		"subscription_status",
		"subscription_plan",
		"manual_override",
		"last_payment_date",
		"updated_at",
		"projected_at",
	}
}

func (m snapshotModel) toEntity() entities.EntitlementRecord {
	return entitlementModel{
		UserID:                m.UserID,
		Email:                 m.Email,
		EmailVerified:         m.EmailVerified,
		TemporaryAccessUntil:  m.TemporaryAccessUntil,
		TemporaryAccessReason: m.TemporaryAccessReason,
		PaymentVerified:       m.PaymentVerified,
		SubscriptionStatus:    m.SubscriptionStatus,
		SubscriptionPlan:      m.SubscriptionPlan,
		ManualOverride:        m.ManualOverride,
		LastPaymentDate:       m.LastPaymentDate,
		UpdatedAt:             m.UpdatedAt,
	}.toEntity()
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "entitlement_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "entitlement_event_dedup"
}

type idempotencyModel struct {
	Key             string    `gorm:"column:key;primaryKey"`
	Operation       string    `gorm:"column:operation"`
	RequestHash     string    `gorm:"column:request_hash"`
	ResponsePayload []byte    `gorm:"column:response_payload"`
	ExpiresAt       time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "entitlement_idempotency"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.SnapshotStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
