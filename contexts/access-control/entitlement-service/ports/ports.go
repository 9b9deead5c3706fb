package ports

import (
	"context"
	"time"

	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	contractsv1 "gatehouse/contracts/gen/events/v1"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for outbox/event rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// User is the narrow identity projection this service needs. The identity
// provider owns authentication and email verification state.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
}

// IdentityProvider resolves a user id to its identity facts. Unknown users
// return domain ErrUserNotFound; transient failures are retried once by the
// caller before giving up.
type IdentityProvider interface {
	ResolveUser(ctx context.Context, userID string) (User, error)
}

// TemporaryGrant is the write input for a time-boxed grant. Re-issuing
// replaces the expiry (overwrite, never accumulate).
type TemporaryGrant struct {
	UserID        string
	Email         string
	EmailVerified bool
	ExpiresAt     time.Time
	Reason        string
	GrantedAt     time.Time
	OutboxID      string
}

// PaymentGrant is the write input recorded on payment success. AccessUntil is
// the long-lived temporary-access backstop written alongside the subscription
// fields.
type PaymentGrant struct {
	UserID        string
	Email         string
	EmailVerified bool
	Plan          string
	ExternalRef   string
	AccessUntil   time.Time
	PaidAt        time.Time
	OutboxID      string
}

// EntitlementWriter is the primary/fallback write strategy boundary. Each
// grant operation is attempted on the primary writer first and, on error, on
// the fallback writer; every fallback engagement is logged distinctly. An
// implementation must apply each grant as one atomic upsert.
type EntitlementWriter interface {
	Name() string
	ApplyTemporaryGrant(ctx context.Context, grant TemporaryGrant) (entities.EntitlementRecord, error)
	ApplyPaymentGrant(ctx context.Context, grant PaymentGrant) (entities.EntitlementRecord, error)
}

// Repository is the authoritative read/sweep boundary for entitlement state.
type Repository interface {
	GetEntitlement(ctx context.Context, userID string) (entities.EntitlementRecord, bool, error)
	// ClearExpiredTemporaryGrants clears temporary_access_until/_reason on
	// every record whose expiry is strictly before now, in one conditional
	// bulk update filtered at query time. All other fields stay untouched.
	ClearExpiredTemporaryGrants(ctx context.Context, now time.Time) (int64, error)
}

// SnapshotStore holds the derived status projection. Absence is not an error;
// readers fall back to the authoritative record.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, userID string) (entities.StatusSnapshot, bool, error)
	PutSnapshot(ctx context.Context, snapshot entities.StatusSnapshot) error
}

// EntitlementEvent reuses the canonical cross-process envelope contract.
type EntitlementEvent = contractsv1.Envelope

// EventPublisher emits entitlement change events to the bus adapter.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EntitlementEvent) error
}

// EventSubscriber delivers bus events to worker consumers.
type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EntitlementEvent) error) error
}

// EventDedupStore enforces idempotent processing for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// IdempotencyRecord stores request hash and previous response payload.
type IdempotencyRecord struct {
	Key             string
	Operation       string
	RequestHash     string
	ResponsePayload []byte
	ExpiresAt       time.Time
}

// IdempotencyStore guarantees replay/conflict behavior for retried payment
// webhooks that carry an idempotency key.
type IdempotencyStore interface {
	GetRecord(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	PutRecord(ctx context.Context, record IdempotencyRecord) error
}
