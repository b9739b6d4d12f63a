// Package domain holds shared domain primitives: typed identifiers and the
// actor role vocabulary. IDs are UUID-backed and must be constructed through
// the Parse functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed identifiers. Distinct types keep a task ID from being passed where a
// user ID is expected.
type (
	UserID     uuid.UUID
	TaskID     uuid.UUID
	EventID    uuid.UUID
	CenterID   uuid.UUID
	ScheduleID uuid.UUID
	AuditID    uuid.UUID
)

func parse(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s)
	return UserID(u), err
}

// ParseTaskID validates and returns a TaskID.
func ParseTaskID(s string) (TaskID, error) {
	u, err := parse(s)
	return TaskID(u), err
}

// ParseEventID validates and returns an EventID.
func ParseEventID(s string) (EventID, error) {
	u, err := parse(s)
	return EventID(u), err
}

// ParseCenterID validates and returns a CenterID.
func ParseCenterID(s string) (CenterID, error) {
	u, err := parse(s)
	return CenterID(u), err
}

// ParseScheduleID validates and returns a ScheduleID.
func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parse(s)
	return ScheduleID(u), err
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id TaskID) String() string     { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id CenterID) String() string   { return uuid.UUID(id).String() }
func (id ScheduleID) String() string { return uuid.UUID(id).String() }
func (id AuditID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TaskID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CenterID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewTaskID returns a fresh random TaskID.
func NewTaskID() TaskID { return TaskID(uuid.New()) }

// NewEventID returns a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewCenterID returns a fresh random CenterID.
func NewCenterID() CenterID { return CenterID(uuid.New()) }

// NewScheduleID returns a fresh random ScheduleID.
func NewScheduleID() ScheduleID { return ScheduleID(uuid.New()) }

// NewAuditID returns a fresh random AuditID.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

// MarshalText lets typed IDs serialize as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id TaskID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CenterID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ScheduleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *TaskID) UnmarshalText(b []byte) error {
	parsed, err := ParseTaskID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CenterID) UnmarshalText(b []byte) error {
	parsed, err := ParseCenterID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := ParseEventID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ScheduleID) UnmarshalText(b []byte) error {
	parsed, err := ParseScheduleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
