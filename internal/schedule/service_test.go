package schedule_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	auditMemory "custodia/internal/audit/store/memory"
	"custodia/internal/schedule"
	scheduleMemory "custodia/internal/schedule/store/memory"
	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/testutil"
)

type ScheduleServiceSuite struct {
	suite.Suite
	store    *scheduleMemory.InMemoryStore
	centers  *scheduleMemory.InMemoryCenterStore
	service  *schedule.Service
	centerID id.CenterID
	examDate time.Time
}

func TestScheduleServiceSuite(t *testing.T) {
	suite.Run(t, new(ScheduleServiceSuite))
}

func (s *ScheduleServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = scheduleMemory.NewInMemoryStore()
	s.centers = scheduleMemory.NewInMemoryCenterStore()
	s.service = schedule.NewService(s.store, s.centers, nil, audit.NewRecorder(auditMemory.NewInMemoryStore(), logger), logger)

	s.centerID = id.NewCenterID()
	s.centers.Save(schedule.Center{ID: s.centerID, Name: "Center 014", Active: true})
	s.examDate = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
}

func (s *ScheduleServiceSuite) newEntry(class, subject string, category timewindow.Category) *schedule.Entry {
	entry, err := schedule.NewEntry(
		s.centerID, s.examDate, class, subject, category,
		s.examDate.Add(9*time.Hour), s.examDate.Add(12*time.Hour),
		time.Now().UTC(),
	)
	s.Require().NoError(err)
	return entry
}

func (s *ScheduleServiceSuite) TestCreate() {
	s.Run("valid entry is persisted", func() {
		created, err := s.service.Create(context.Background(), s.newEntry("SS3", "Mathematics", timewindow.CategoryCore))
		s.Require().NoError(err)
		s.True(created.Active)
	})

	s.Run("duplicate tuple is rejected even with different times", func() {
		dup, err := schedule.NewEntry(
			s.centerID, s.examDate, "SS3", "Mathematics", timewindow.CategoryCore,
			s.examDate.Add(13*time.Hour), s.examDate.Add(15*time.Hour),
			time.Now().UTC(),
		)
		s.Require().NoError(err)

		_, err = s.service.Create(context.Background(), dup)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("different subject on the same date is fine", func() {
		_, err := s.service.Create(context.Background(), s.newEntry("SS3", "Physics", timewindow.CategoryCore))
		s.NoError(err)
	})

	s.Run("unknown center is a bad request", func() {
		entry := s.newEntry("SS1", "Chemistry", timewindow.CategoryCore)
		entry.CenterID = id.NewCenterID()
		_, err := s.service.Create(context.Background(), entry)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("inactive center is a bad request", func() {
		inactive := id.NewCenterID()
		s.centers.Save(schedule.Center{ID: inactive, Name: "Closed Center", Active: false})
		entry := s.newEntry("SS1", "Chemistry", timewindow.CategoryCore)
		entry.CenterID = inactive
		_, err := s.service.Create(context.Background(), entry)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ScheduleServiceSuite) TestCategoryFor() {
	ctx := context.Background()

	s.Run("empty date defaults to core", func() {
		category, err := s.service.CategoryFor(ctx, s.examDate)
		s.Require().NoError(err)
		s.Equal(timewindow.CategoryCore, category)
	})

	s.Run("all-core date stays core", func() {
		_, err := s.service.Create(ctx, s.newEntry("SS3", "Mathematics", timewindow.CategoryCore))
		s.Require().NoError(err)

		category, err := s.service.CategoryFor(ctx, s.examDate)
		s.Require().NoError(err)
		s.Equal(timewindow.CategoryCore, category)
	})

	s.Run("one vocational entry flips the whole date", func() {
		_, err := s.service.Create(ctx, s.newEntry("TVC2", "Carpentry", timewindow.CategoryVocational))
		s.Require().NoError(err)

		category, err := s.service.CategoryFor(ctx, s.examDate)
		s.Require().NoError(err)
		s.Equal(timewindow.CategoryVocational, category)
	})
}

func (s *ScheduleServiceSuite) TestExamDayStatus() {
	ctx := testutil.ActorContext(id.NewUserID(), id.RoleCourier, s.examDate.Add(8*time.Hour))

	s.Run("no schedule reports the next active date", func() {
		future, err := schedule.NewEntry(
			s.centerID, s.examDate.AddDate(0, 0, 3), "SS3", "Biology", timewindow.CategoryCore,
			s.examDate.Add(9*time.Hour), s.examDate.Add(12*time.Hour),
			time.Now().UTC(),
		)
		s.Require().NoError(err)
		_, err = s.service.Create(ctx, future)
		s.Require().NoError(err)

		status, err := s.service.ExamDayStatus(ctx, s.centerID)
		s.Require().NoError(err)
		s.False(status.IsExamDay)
		s.Require().NotNil(status.NextExamDate)
		s.Equal(s.examDate.AddDate(0, 0, 3), *status.NextExamDate)
	})

	s.Run("active schedule today makes it an exam day", func() {
		_, err := s.service.Create(ctx, s.newEntry("SS3", "Mathematics", timewindow.CategoryCore))
		s.Require().NoError(err)

		status, err := s.service.ExamDayStatus(ctx, s.centerID)
		s.Require().NoError(err)
		s.True(status.IsExamDay)
		s.Len(status.TodaySchedules, 1)
	})
}

func (s *ScheduleServiceSuite) TestCheckWindow() {
	ctx := context.Background()

	s.Run("core pickup mid-morning is allowed", func() {
		result, err := s.service.CheckWindow(ctx, s.examDate, timewindow.CheckpointPickup, s.examDate.Add(9*time.Hour+10*time.Minute))
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("vocational date shifts the packing window earlier", func() {
		_, err := s.service.Create(ctx, s.newEntry("TVC2", "Welding", timewindow.CategoryVocational))
		s.Require().NoError(err)

		result, err := s.service.CheckWindow(ctx, s.examDate, timewindow.CheckpointPacking, s.examDate.Add(10*time.Hour+45*time.Minute))
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}
