package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custodia/internal/audit"
	"custodia/internal/task"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// travelTolerance is the slack multiplier over the expected travel time
// before an arrival counts as anomalous.
const travelTolerance = 1.5

// checkTravelTime runs when an arrival closes a custody-transfer pair. It
// measures the elapsed time since the matching departure event and escalates
// the task when the journey took over 1.5x the expected travel time. A missing
// departure event is a no-op: there is nothing to measure against.
func (s *Service) checkTravelTime(ctx context.Context, t *task.Task, now time.Time) error {
	departure, err := s.store.FindByTaskAndType(ctx, t.ID, TaskEventPickup)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load departure event")
	}

	elapsed := now.Sub(departure.ServerTime)
	threshold := time.Duration(float64(t.ExpectedTravel) * travelTolerance)
	if elapsed <= threshold {
		return nil
	}

	if err := s.statuses.UpdateStatus(ctx, t.ID, task.StatusSuspicious); err != nil {
		return err
	}

	detail := fmt.Sprintf("travel took %s, expected at most %s", elapsed.Round(time.Second), threshold.Round(time.Second))
	s.auditEntity(ctx, audit.ActionRedFlagTravelTime, "task", t.ID.String(), detail)
	s.logger.WarnContext(ctx, "travel-time red flag raised",
		"task_id", t.ID.String(),
		"actor_id", requestcontext.ActorID(ctx).String(),
		"elapsed", elapsed.String(),
		"threshold", threshold.String(),
	)
	if s.metrics != nil {
		s.metrics.IncrementRedFlags()
	}
	return nil
}
