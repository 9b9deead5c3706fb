package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "gatehouse/contexts/access-control/entitlement-service/application"
	"gatehouse/contexts/access-control/entitlement-service/domain/entities"
	"gatehouse/contexts/access-control/entitlement-service/ports"
)

const (
	// EntitlementChangedTopic carries the full record after every primary
	// write; the projector folds it into the status snapshot.
	EntitlementChangedTopic = "entitlement.changed"

	defaultConsumerGroup = "entitlement-snapshot-cg"
)

// SnapshotProjector consumes entitlement change events and recomputes the
// derived status snapshot. The snapshot is advisory: readers fall back to the
// authoritative record whenever the projection is missing or behind.
type SnapshotProjector struct {
	Subscriber    ports.EventSubscriber
	Snapshots     ports.SnapshotStore
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (p SnapshotProjector) Start(ctx context.Context) error {
	group := p.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	return p.Subscriber.Subscribe(ctx, EntitlementChangedTopic, group, p.handleChanged)
}

func (p SnapshotProjector) handleChanged(ctx context.Context, event ports.EntitlementEvent) error {
	logger := application.ResolveLogger(p.Logger)
	now := time.Now().UTC()
	if p.Clock != nil {
		now = p.Clock.Now().UTC()
	}

	payloadHash := hashPayload(event.Data)
	alreadyProcessed, err := p.Dedup.ReserveEvent(ctx, event.EventID, payloadHash, now.Add(p.dedupTTL()))
	if err != nil {
		logger.Error("entitlement event dedupe failed",
			"event", "entitlement_projection_dedupe_failed",
			"module", "access-control/entitlement-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("entitlement event already projected",
			"event", "entitlement_projection_event_replayed",
			"module", "access-control/entitlement-service",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var record entities.EntitlementRecord
	if err := json.Unmarshal(event.Data, &record); err != nil {
		return fmt.Errorf("decode entitlement event payload: %w", err)
	}
	if record.UserID == "" {
		return fmt.Errorf("entitlement event missing user_id")
	}

	if err := p.Snapshots.PutSnapshot(ctx, entities.StatusSnapshot{
		Record:      record,
		ProjectedAt: now,
	}); err != nil {
		logger.Error("snapshot write failed",
			"event", "entitlement_projection_write_failed",
			"module", "access-control/entitlement-service",
			"layer", "worker",
			"event_id", event.EventID,
			"user_id", record.UserID,
			"error", err.Error(),
		)
		return err
	}

	logger.Debug("entitlement event projected",
		"event", "entitlement_projection_updated",
		"module", "access-control/entitlement-service",
		"layer", "worker",
		"event_id", event.EventID,
		"user_id", record.UserID,
	)
	return nil
}

func (p SnapshotProjector) dedupTTL() time.Duration {
	if p.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return p.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
