// Package audit is the append-only ledger of security-relevant actions.
// Every other component calls into it; it depends on none of them.
package audit

import (
	"time"

	id "custodia/pkg/domain"
)

// Action is the closed vocabulary of auditable actions. Reviewers filter on
// these values, so additions are deliberate and removals never happen.
type Action string

const (
	// Device guard
	ActionDeviceBound    Action = "DEVICE_BOUND"
	ActionDeviceMismatch Action = "DEVICE_MISMATCH"
	ActionDeviceReset    Action = "DEVICE_RESET"
	ActionDeviceBypassed Action = "DEVICE_CHECK_BYPASSED"

	// Task registry
	ActionTaskCreated           Action = "TASK_CREATED"
	ActionTaskAssigned          Action = "TASK_ASSIGNED"
	ActionTaskStatusChanged     Action = "TASK_STATUS_CHANGED"
	ActionTaskFlaggedSuspicious Action = "TASK_FLAGGED_SUSPICIOUS"
	ActionTaskCompleted         Action = "TASK_COMPLETED"
	ActionTaskReset             Action = "TASK_RESET_FOR_TESTING"

	// Event ledger
	ActionEventUploaded              Action = "EVENT_UPLOADED"
	ActionEventRejectedDuplicate     Action = "EVENT_REJECTED_DUPLICATE"
	ActionEventRejectedTaskLocked    Action = "EVENT_REJECTED_TASK_LOCKED"
	ActionEventUploadDeniedNotAssigned Action = "EVENT_UPLOAD_DENIED_NOT_ASSIGNED"

	// Red-flag detector
	ActionRedFlagTravelTime Action = "RED_FLAG_TRAVEL_TIME"

	// Schedule registry
	ActionScheduleCreated Action = "SCHEDULE_CREATED"
)

// Severity routes entries to alerting. Rejections and anomalies are warnings;
// mismatches are critical; the rest is informational.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var actionSeverities = map[Action]Severity{
	ActionDeviceMismatch:               SeverityCritical,
	ActionDeviceBypassed:               SeverityWarning,
	ActionTaskFlaggedSuspicious:        SeverityWarning,
	ActionEventRejectedDuplicate:       SeverityWarning,
	ActionEventRejectedTaskLocked:      SeverityWarning,
	ActionEventUploadDeniedNotAssigned: SeverityWarning,
	ActionRedFlagTravelTime:            SeverityCritical,
}

// Severity returns the alerting severity for this action. Unknown actions
// default to SeverityInfo.
func (a Action) Severity() Severity {
	if s, ok := actionSeverities[a]; ok {
		return s
	}
	return SeverityInfo
}

// Entry is one appended fact. ActorID is nil for anonymous or failed
// attempts, where no authenticated identity exists to blame.
type Entry struct {
	ID         id.AuditID `json:"id"`
	Action     Action     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	ActorID    *id.UserID `json:"actor_id,omitempty"`
	SourceIP   string     `json:"source_ip"`
	Detail     string     `json:"detail,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
