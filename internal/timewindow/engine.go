// Package timewindow judges whether a checkpoint event is legitimate at a
// given clock time. It is pure: no storage, no side effects, total over the
// category set. The schedule registry decides which category governs a date;
// this package only maps (category, checkpoint) to clock-time windows.
package timewindow

import (
	"fmt"
	"time"
)

// Category classifies an exam day. VOCATIONAL activities finish earlier, so
// their later-stage windows (packing, delivery) open earlier than CORE.
type Category string

const (
	CategoryCore       Category = "CORE"
	CategoryVocational Category = "VOCATIONAL"
)

// IsValid checks membership in the closed category set.
func (c Category) IsValid() bool {
	return c == CategoryCore || c == CategoryVocational
}

// ParseCategory validates external category input.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryCore, CategoryVocational:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Checkpoint is the window-relevant kind of a custody event. Both workflow
// vocabularies (the 3-step task set and the shift-aware tracker set) map
// onto these kinds; the engine does not care which workflow produced them.
type Checkpoint string

const (
	CheckpointTreasuryArrival   Checkpoint = "treasury_arrival"
	CheckpointCustodianHandover Checkpoint = "custodian_handover"
	CheckpointPickup            Checkpoint = "pickup"
	CheckpointTransit           Checkpoint = "transit"
	CheckpointOpening           Checkpoint = "opening"
	CheckpointPacking           Checkpoint = "packing"
	CheckpointDelivery          Checkpoint = "delivery"
	CheckpointFinal             Checkpoint = "final"
)

// Window is a clock-time range, date-independent. End is inclusive.
type Window struct {
	StartHour   int `json:"start_hour"`
	StartMinute int `json:"start_minute"`
	EndHour     int `json:"end_hour"`
	EndMinute   int `json:"end_minute"`
}

func at(startHour, startMinute, endHour, endMinute int) Window {
	return Window{StartHour: startHour, StartMinute: startMinute, EndHour: endHour, EndMinute: endMinute}
}

// Contains reports whether t's clock time falls inside the window.
func (w Window) Contains(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= w.StartHour*60+w.StartMinute && minutes <= w.EndHour*60+w.EndMinute
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
}

// defaultWindow covers the full working day. Unrecognized checkpoint kinds
// fall back to it instead of failing the caller.
var defaultWindow = at(6, 0, 18, 0)

var coreWindows = map[Checkpoint]Window{
	CheckpointTreasuryArrival:   at(5, 0, 8, 0),
	CheckpointCustodianHandover: at(6, 0, 9, 0),
	CheckpointPickup:            at(6, 0, 9, 30),
	CheckpointTransit:           at(6, 30, 12, 0),
	CheckpointOpening:           at(8, 30, 10, 0),
	CheckpointPacking:           at(11, 30, 14, 0),
	CheckpointDelivery:          at(12, 0, 16, 0),
	CheckpointFinal:             at(12, 0, 16, 0),
}

// Vocational activities run shorter, so packing and delivery open an hour
// earlier. Earlier-stage windows match CORE.
var vocationalWindows = map[Checkpoint]Window{
	CheckpointTreasuryArrival:   at(5, 0, 8, 0),
	CheckpointCustodianHandover: at(6, 0, 9, 0),
	CheckpointPickup:            at(6, 0, 9, 30),
	CheckpointTransit:           at(6, 30, 12, 0),
	CheckpointOpening:           at(8, 30, 10, 0),
	CheckpointPacking:           at(10, 30, 13, 0),
	CheckpointDelivery:          at(11, 0, 15, 0),
	CheckpointFinal:             at(11, 0, 15, 0),
}

// WindowsFor returns the full checkpoint-to-window map for a category.
// Unknown categories are treated as CORE, the stricter schedule.
func WindowsFor(category Category) map[Checkpoint]Window {
	source := coreWindows
	if category == CategoryVocational {
		source = vocationalWindows
	}
	windows := make(map[Checkpoint]Window, len(source))
	for k, v := range source {
		windows[k] = v
	}
	return windows
}

// Result is the verdict on one checkpoint at one moment.
type Result struct {
	Allowed bool   `json:"allowed"`
	Window  Window `json:"window"`
	Message string `json:"message"`
}

// Check judges whether now falls inside the window for the checkpoint under
// the given category. Unrecognized checkpoints get the default window.
func Check(checkpoint Checkpoint, category Category, now time.Time) Result {
	windows := coreWindows
	if category == CategoryVocational {
		windows = vocationalWindows
	}

	window, ok := windows[checkpoint]
	if !ok {
		window = defaultWindow
	}

	if window.Contains(now) {
		return Result{Allowed: true, Window: window}
	}
	return Result{
		Allowed: false,
		Window:  window,
		Message: fmt.Sprintf("%s submitted at %02d:%02d, outside window %s", checkpoint, now.Hour(), now.Minute(), window),
	}
}
