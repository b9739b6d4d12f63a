package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service orchestrates schedule lookups and creation. Category and day-status
// reads go through an optional cache since they sit on the event submission
// hot path.
type Service struct {
	store   Store
	centers CenterStore
	cache   Cache
	auditor *audit.Recorder
	logger  *slog.Logger
}

func NewService(store Store, centers CenterStore, cache Cache, auditor *audit.Recorder, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{store: store, centers: centers, cache: cache, auditor: auditor, logger: logger}
}

// Create validates and persists a schedule entry. The owning center must
// exist and be active; an exact duplicate (center, date, class, subject) is
// rejected with a Conflict even when submitted with different times.
func (s *Service) Create(ctx context.Context, entry *Entry) (*Entry, error) {
	center, err := s.centers.FindByID(ctx, entry.CenterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown center")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve center")
	}
	if !center.Active {
		return nil, dErrors.New(dErrors.CodeBadRequest, "center is inactive")
	}

	if err := s.store.CreateIfAbsent(ctx, entry); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "schedule already exists for this center, date, class and subject")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create schedule")
	}

	if err := s.auditor.Record(ctx, audit.ActionScheduleCreated, "schedule", entry.ID.String(), entry.Subject); err != nil {
		return nil, err
	}

	s.cache.InvalidateDate(ctx, entry.Date)
	return entry, nil
}

// ScheduleFor returns all entries on a date.
func (s *Service) ScheduleFor(ctx context.Context, date time.Time) ([]Entry, error) {
	entries, err := s.store.ListByDate(ctx, DateOnly(date))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list schedules")
	}
	return entries, nil
}

// CategoryFor resolves which category governs a date. Rule vocationalWins:
// if any active entry on the date is VOCATIONAL the whole date is treated as
// VOCATIONAL, because its earlier windows are strictly more permissive.
// Dates with no schedule default to CORE.
func (s *Service) CategoryFor(ctx context.Context, date time.Time) (timewindow.Category, error) {
	date = DateOnly(date)

	if category, ok := s.cache.GetCategory(ctx, date); ok {
		return category, nil
	}

	entries, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve category")
	}

	category := vocationalWins(entries)
	s.cache.SetCategory(ctx, date, category)
	return category, nil
}

func vocationalWins(entries []Entry) timewindow.Category {
	for _, e := range entries {
		if e.Active && e.Category == timewindow.CategoryVocational {
			return timewindow.CategoryVocational
		}
	}
	return timewindow.CategoryCore
}

// ExamDayStatus reports whether the center has an active schedule today and,
// if not, the nearest future active date.
func (s *Service) ExamDayStatus(ctx context.Context, centerID id.CenterID) (*DayStatus, error) {
	today := DateOnly(requestcontext.Now(ctx))

	if status, ok := s.cache.GetDayStatus(ctx, centerID, today); ok {
		return status, nil
	}

	entries, err := s.store.ListByCenterAndDate(ctx, centerID, today)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query schedules")
	}

	status := &DayStatus{TodaySchedules: entries}
	for _, e := range entries {
		if e.Active {
			status.IsExamDay = true
			break
		}
	}

	if !status.IsExamDay {
		next, err := s.store.NextActiveDate(ctx, centerID, today)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find next exam date")
		}
		status.NextExamDate = next
	}

	s.cache.SetDayStatus(ctx, centerID, today, status)
	return status, nil
}

// CheckWindow answers the time-window query: is the checkpoint allowed at
// now, under the category governing the date.
func (s *Service) CheckWindow(ctx context.Context, date time.Time, checkpoint timewindow.Checkpoint, now time.Time) (timewindow.Result, error) {
	category, err := s.CategoryFor(ctx, date)
	if err != nil {
		return timewindow.Result{}, err
	}
	return timewindow.Check(checkpoint, category, now), nil
}
