// Package schedule owns exam/activity schedules per center and date, and
// answers which time-window category governs a date.
package schedule

import (
	"time"

	"custodia/internal/timewindow"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Entry is one scheduled activity at a center.
//
// Invariant: no two active entries share (center, date, class, subject);
// the store enforces this with a unique index.
type Entry struct {
	ID       id.ScheduleID       `json:"id"`
	CenterID id.CenterID         `json:"center_id"`
	Date     time.Time           `json:"date"` // date component only, UTC midnight
	Class    string              `json:"class"`
	Subject  string              `json:"subject"`
	Category timewindow.Category `json:"category"`
	Start    time.Time           `json:"start"`
	End      time.Time           `json:"end"`
	Active   bool                `json:"active"`
	Created  time.Time           `json:"created_at"`
}

// NewEntry validates and constructs an active schedule entry.
func NewEntry(centerID id.CenterID, date time.Time, class, subject string, category timewindow.Category, start, end, now time.Time) (*Entry, error) {
	if centerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "center id is required")
	}
	if class == "" || subject == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "class and subject are required")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "unknown category")
	}
	if !end.After(start) {
		return nil, dErrors.New(dErrors.CodeBadRequest, "end time must be after start time")
	}
	return &Entry{
		ID:       id.NewScheduleID(),
		CenterID: centerID,
		Date:     DateOnly(date),
		Class:    class,
		Subject:  subject,
		Category: category,
		Start:    start,
		End:      end,
		Active:   true,
		Created:  now,
	}, nil
}

// Center is the owning examination center. Schedules can only be created for
// active centers.
type Center struct {
	ID     id.CenterID `json:"id"`
	Name   string      `json:"name"`
	Active bool        `json:"active"`
}

// DayStatus answers the "is this an exam day" query for a center.
type DayStatus struct {
	IsExamDay      bool       `json:"is_exam_day"`
	NextExamDate   *time.Time `json:"next_exam_date,omitempty"`
	TodaySchedules []Entry    `json:"today_schedules"`
}

// DateOnly truncates t to UTC midnight so date comparisons ignore clock time.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
