// Package conflict contains the cross-channel conflict service: it feeds
// entity snapshots through the detector, persists and publishes what it
// finds, applies automatic resolutions where the domain permits them, and
// escalates everything that outlives its resolution deadline.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// defaultEscalationBatch caps one escalation sweep
const defaultEscalationBatch = 100

// Service coordinates conflict detection, resolution and escalation
type Service struct {
	detector  *conflict.Detector
	resolver  *conflict.Resolver
	repo      conflict.Repository
	publisher shared.EventPublisher
	logger    *zap.Logger

	businessMetrics *telemetry.BusinessMetrics
}

// NewService creates the conflict service
func NewService(detector *conflict.Detector, repo conflict.Repository, publisher shared.EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		detector:  detector,
		resolver:  conflict.NewResolver(),
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// ---------------------------------------------------------------------------
// Detection
// ---------------------------------------------------------------------------

// EvaluateSnapshot runs detection over one entity snapshot. New conflicts are
// persisted and announced; entities with an open conflict of the same type
// are not re-flagged. Inventory mismatches are rebalanced immediately.
func (s *Service) EvaluateSnapshot(ctx context.Context, snap *conflict.Snapshot) ([]*conflict.CrossChannelConflict, error) {
	detected := s.detector.DetectConflicts(snap)
	if len(detected) == 0 {
		return nil, nil
	}

	open, err := s.openConflictsFor(ctx, snap.TenantID, snap.EntityKey)
	if err != nil {
		return nil, err
	}

	var recorded []*conflict.CrossChannelConflict
	for _, c := range detected {
		if _, exists := open[c.Type]; exists {
			continue
		}

		if err := s.repo.Save(ctx, c); err != nil {
			return recorded, fmt.Errorf("conflict: failed to persist detected conflict: %w", err)
		}
		recorded = append(recorded, c)

		s.logger.Warn("cross-channel conflict detected",
			zap.String("conflict_id", c.ID.String()),
			zap.String("tenant_id", c.TenantID.String()),
			zap.String("type", c.Type.String()),
			zap.String("severity", string(c.Severity)),
			zap.String("entity_key", c.EntityKey),
		)
		s.publish(ctx, conflict.NewConflictDetectedEvent(c))
		if s.businessMetrics != nil {
			s.businessMetrics.RecordConflictDetected(ctx, c.TenantID, c.Type.String(), string(c.Severity))
		}

		if c.Type == conflict.TypeInventoryMismatch && c.AutoResolvable && snap.OnHand != nil {
			if _, err := s.rebalanceInventory(ctx, c, snap); err != nil {
				// the conflict stays open for the escalation sweep
				s.logger.Error("automatic inventory rebalance failed",
					zap.String("conflict_id", c.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	return recorded, nil
}

// openConflictsFor indexes a tenant's open conflicts for one entity by type
func (s *Service) openConflictsFor(ctx context.Context, tenantID uuid.UUID, entityKey string) (map[conflict.Type]*conflict.CrossChannelConflict, error) {
	existing, err := s.repo.FindByFilter(ctx, conflict.Filter{
		TenantID:  &tenantID,
		EntityKey: entityKey,
		OpenOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("conflict: failed to load open conflicts: %w", err)
	}
	open := make(map[conflict.Type]*conflict.CrossChannelConflict, len(existing))
	for _, c := range existing {
		open[c.Type] = c
	}
	return open, nil
}

// rebalanceInventory applies the priority/origin-timestamp rebalancing policy
// and resolves the conflict with the resulting plan
func (s *Service) rebalanceInventory(ctx context.Context, c *conflict.CrossChannelConflict, snap *conflict.Snapshot) (*conflict.RebalancePlan, error) {
	plan, err := s.resolver.ResolveInventory(c, *snap.OnHand, snap.Reservations)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("conflict: failed to persist resolved conflict: %w", err)
	}

	s.logger.Info("inventory conflict auto-resolved",
		zap.String("conflict_id", c.ID.String()),
		zap.String("entity_key", c.EntityKey),
		zap.String("plan", plan.Note()),
	)
	s.publish(ctx, conflict.NewConflictResolvedEvent(c, true))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConflictResolved(ctx, c.TenantID, c.Type.String(), true)
	}
	return plan, nil
}

// ---------------------------------------------------------------------------
// Resolution
// ---------------------------------------------------------------------------

// ResolveStatusConflict pushes the internal status to divergent channels when
// the internal observation is provably newer
func (s *Service) ResolveStatusConflict(ctx context.Context, id uuid.UUID, internal conflict.StatusObservation) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.ResolveStatus(c, internal); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("conflict: failed to persist resolved conflict: %w", err)
	}
	s.publish(ctx, conflict.NewConflictResolvedEvent(c, true))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConflictResolved(ctx, c.TenantID, c.Type.String(), true)
	}
	return nil
}

// ResolveManually records a human resolution, typically for price conflicts
// where automatic repricing is out of the question
func (s *Service) ResolveManually(ctx context.Context, id uuid.UUID, note string) error {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == conflict.StatusDetected {
		if err := c.BeginResolution(); err != nil {
			return err
		}
	}
	if err := c.Resolve(note); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("conflict: failed to persist resolved conflict: %w", err)
	}

	s.logger.Info("conflict resolved manually",
		zap.String("conflict_id", c.ID.String()),
		zap.String("resolution_note", note),
	)
	s.publish(ctx, conflict.NewConflictResolvedEvent(c, false))
	if s.businessMetrics != nil {
		s.businessMetrics.RecordConflictResolved(ctx, c.TenantID, c.Type.String(), false)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Escalation
// ---------------------------------------------------------------------------

// EscalateOverdue escalates every open conflict past its resolution deadline.
// Nothing is silently discarded: each escalation is persisted and announced.
// Returns how many conflicts were escalated.
func (s *Service) EscalateOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.repo.FindPastDeadline(ctx, now, defaultEscalationBatch)
	if err != nil {
		return 0, fmt.Errorf("conflict: failed to load overdue conflicts: %w", err)
	}

	escalated := 0
	for _, c := range overdue {
		reason := fmt.Sprintf("unresolved past %s deadline", c.Severity.ResolutionWindow())
		if err := c.Escalate(reason); err != nil {
			s.logger.Error("failed to escalate overdue conflict",
				zap.String("conflict_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if err := s.repo.Save(ctx, c); err != nil {
			s.logger.Error("failed to persist escalated conflict",
				zap.String("conflict_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}

		s.logger.Warn("conflict escalated past resolution deadline",
			zap.String("conflict_id", c.ID.String()),
			zap.String("tenant_id", c.TenantID.String()),
			zap.String("type", c.Type.String()),
			zap.String("severity", string(c.Severity)),
		)
		s.publish(ctx, conflict.NewConflictEscalatedEvent(c, reason))
		if s.businessMetrics != nil {
			s.businessMetrics.RecordConflictEscalated(ctx, c.TenantID, c.Type.String(), string(c.Severity))
		}
		escalated++
	}

	return escalated, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// ListConflicts returns conflicts matching the filter, newest first
func (s *Service) ListConflicts(ctx context.Context, filter conflict.Filter) ([]*conflict.CrossChannelConflict, error) {
	return s.repo.FindByFilter(ctx, filter)
}

// GetConflict returns one conflict
func (s *Service) GetConflict(ctx context.Context, id uuid.UUID) (*conflict.CrossChannelConflict, error) {
	return s.repo.FindByID(ctx, id)
}

// CountByStatus returns a tenant's conflict counts per lifecycle status
func (s *Service) CountByStatus(ctx context.Context, tenantID uuid.UUID) (map[conflict.Status]int64, error) {
	return s.repo.CountByStatus(ctx, tenantID)
}

// publish sends an event to the alerting boundary; delivery failures are
// logged, never fatal
func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish conflict event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
