// Package event is the custody event ledger: it validates submission
// legality, computes the image integrity digest, persists checkpoint events,
// and drives the resulting task status transitions.
package event

import (
	"custodia/internal/timewindow"
	dErrors "custodia/pkg/domain-errors"
)

// TaskEventType is the closed 3-step vocabulary for custody task events.
// It is a distinct type from TrackerEventType so the compiler catches
// cross-workflow misuse.
type TaskEventType string

const (
	TaskEventPickup  TaskEventType = "pickup"
	TaskEventTransit TaskEventType = "transit"
	TaskEventFinal   TaskEventType = "final"
)

// taskEventSequence is the canonical submission order.
var taskEventSequence = []TaskEventType{TaskEventPickup, TaskEventTransit, TaskEventFinal}

// afternoonSequence is what remains of the sequence for a double-shift task
// in its afternoon shift: pickup belongs to the morning run.
var afternoonSequence = []TaskEventType{TaskEventTransit, TaskEventFinal}

// ParseTaskEventType validates external input against the closed set.
func ParseTaskEventType(s string) (TaskEventType, error) {
	switch t := TaskEventType(s); t {
	case TaskEventPickup, TaskEventTransit, TaskEventFinal:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "unknown event type")
}

// Checkpoint maps the task event type onto the window-relevant checkpoint kind.
func (t TaskEventType) Checkpoint() timewindow.Checkpoint {
	switch t {
	case TaskEventPickup:
		return timewindow.CheckpointPickup
	case TaskEventTransit:
		return timewindow.CheckpointTransit
	case TaskEventFinal:
		return timewindow.CheckpointFinal
	}
	return timewindow.Checkpoint(t)
}

// StartsCustody reports whether this event type moves a PENDING task to
// IN_PROGRESS.
func (t TaskEventType) StartsCustody() bool { return t == TaskEventPickup }

// CompletesCustody reports whether this event type completes the task.
func (t TaskEventType) CompletesCustody() bool { return t == TaskEventFinal }

// DepartsCustody marks the departure half of the custody-transfer pair.
func (t TaskEventType) DepartsCustody() bool { return t == TaskEventPickup }

// ClosesTransferPair marks the arrival half of the custody-transfer pair;
// submitting it triggers the red-flag detector.
func (t TaskEventType) ClosesTransferPair() bool { return t == TaskEventTransit }

// Shift qualifies tracker events on double-shift exam days.
type Shift int

const (
	ShiftNone      Shift = 0
	ShiftMorning   Shift = 1
	ShiftAfternoon Shift = 2
)

// TrackerEventType is the closed shift-aware vocabulary for the exam
// tracker workflow.
type TrackerEventType struct {
	Kind  TrackerKind `json:"kind"`
	Shift Shift       `json:"shift,omitempty"`
}

// TrackerKind is the base checkpoint kind of a tracker event.
type TrackerKind string

const (
	TrackerTreasuryArrival   TrackerKind = "treasury_arrival"
	TrackerCustodianHandover TrackerKind = "custodian_handover"
	TrackerOpening           TrackerKind = "opening"
	TrackerPacking           TrackerKind = "packing"
	TrackerDelivery          TrackerKind = "delivery"
)

// trackerSequence is the canonical tracker submission order.
var trackerSequence = []TrackerKind{
	TrackerTreasuryArrival,
	TrackerCustodianHandover,
	TrackerOpening,
	TrackerPacking,
	TrackerDelivery,
}

// ParseTrackerKind validates external input against the closed set.
func ParseTrackerKind(s string) (TrackerKind, error) {
	switch k := TrackerKind(s); k {
	case TrackerTreasuryArrival, TrackerCustodianHandover, TrackerOpening, TrackerPacking, TrackerDelivery:
		return k, nil
	}
	return "", dErrors.New(dErrors.CodeBadRequest, "unknown tracker event kind")
}

// Checkpoint maps the tracker kind onto the window-relevant checkpoint kind.
func (k TrackerKind) Checkpoint() timewindow.Checkpoint {
	switch k {
	case TrackerTreasuryArrival:
		return timewindow.CheckpointTreasuryArrival
	case TrackerCustodianHandover:
		return timewindow.CheckpointCustodianHandover
	case TrackerOpening:
		return timewindow.CheckpointOpening
	case TrackerPacking:
		return timewindow.CheckpointPacking
	case TrackerDelivery:
		return timewindow.CheckpointDelivery
	}
	return timewindow.Checkpoint(k)
}

// DepartsCustody marks the departure half of the tracker transfer pair.
func (k TrackerKind) DepartsCustody() bool { return k == TrackerCustodianHandover }

// ClosesTransferPair marks the arrival half of the tracker transfer pair.
func (k TrackerKind) ClosesTransferPair() bool { return k == TrackerOpening }
