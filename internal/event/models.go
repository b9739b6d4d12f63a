package event

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Geo is a validated coordinate pair.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ParseGeo validates coordinate ranges.
func ParseGeo(lat, lng float64) (Geo, error) {
	if lat < -90 || lat > 90 {
		return Geo{}, dErrors.New(dErrors.CodeBadRequest, "latitude out of range")
	}
	if lng < -180 || lng > 180 {
		return Geo{}, dErrors.New(dErrors.CodeBadRequest, "longitude out of range")
	}
	return Geo{Latitude: lat, Longitude: lng}, nil
}

// TaskEvent is one evidenced custody milestone. Immutable once created.
// At most one event of a given type exists per task; the store enforces
// this with a unique constraint.
type TaskEvent struct {
	ID         id.EventID    `json:"id"`
	TaskID     id.TaskID     `json:"task_id"`
	Type       TaskEventType `json:"type"`
	ImageRef   string        `json:"image_ref"`
	ImageHash  string        `json:"image_hash"` // SHA-256 hex of raw image bytes
	Geo        Geo           `json:"geo"`
	ServerTime time.Time     `json:"server_time"`
	CreatedAt  time.Time     `json:"created_at"`
}

// TrackerEvent is the exam-tracker variant of a custody milestone. Dedupe
// runs per (user, school, kind, shift, date) rather than per task.
type TrackerEvent struct {
	ID         id.EventID  `json:"id"`
	UserID     id.UserID   `json:"user_id"`
	SchoolID   id.CenterID `json:"school_id"`
	Kind       TrackerKind `json:"kind"`
	Shift      Shift       `json:"shift,omitempty"`
	Date       time.Time   `json:"date"` // date component only, UTC midnight
	ImageRef   string      `json:"image_ref"`
	ImageHash  string      `json:"image_hash"`
	Geo        Geo         `json:"geo"`
	ServerTime time.Time   `json:"server_time"`
	CreatedAt  time.Time   `json:"created_at"`
}
