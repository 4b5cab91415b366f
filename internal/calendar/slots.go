package calendar

import (
	"fmt"
	"sort"
)

// SlotState is the resolved state of one time slot on a date.
type SlotState string

const (
	SlotAvailable     SlotState = "available"
	SlotOccupied      SlotState = "occupied"
	SlotAdminDisabled SlotState = "admin-disabled"
	SlotFullyBooked   SlotState = "fully-booked"
)

// Slot is a configured time-of-day booking window shared by all dates.
type Slot struct {
	ID    int64  `json:"id"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// Label renders the slot as "HH:MM - HH:MM".
func (s Slot) Label() string {
	return fmt.Sprintf("%s - %s", s.Start, s.End)
}

// Selection is the slot part of a booking: either a configured slot id or the
// special-hours sentinel. The zero value selects nothing.
type Selection struct {
	SlotID  int64 `json:"time_slot_id,omitempty"`
	Special bool  `json:"special_hours,omitempty"`
}

// SpecialSelection is the sentinel selecting a date's special-hours window.
var SpecialSelection = Selection{Special: true}

// SlotSelection selects the configured slot id.
func SlotSelection(id int64) Selection {
	return Selection{SlotID: id}
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.SlotID == 0 && !s.Special
}

// DaySnapshot is the per-date occupancy data. Special is non-nil when the
// date's override is SpecialHours.
type DaySnapshot struct {
	Date     string
	Occupied map[int64]struct{}
	Disabled map[int64]struct{}
	Special  *Window
	// SpecialFull marks the special-hours capacity of the date as exhausted.
	SpecialFull bool
}

// NewDaySnapshot builds a snapshot from the endpoint lists.
func NewDaySnapshot(date string, occupied, disabled []int64, special *Window) DaySnapshot {
	snap := DaySnapshot{
		Date:     date,
		Occupied: make(map[int64]struct{}, len(occupied)),
		Disabled: make(map[int64]struct{}, len(disabled)),
		Special:  special,
	}
	for _, id := range occupied {
		snap.Occupied[id] = struct{}{}
	}
	for _, id := range disabled {
		snap.Disabled[id] = struct{}{}
	}
	return snap
}

// SlotOption is a resolved, renderable choice for a date.
type SlotOption struct {
	Selection Selection `json:"selection"`
	Start     string    `json:"start_time"`
	End       string    `json:"end_time"`
	State     SlotState `json:"state"`
}

// Selectable reports whether the option may be picked.
func (o SlotOption) Selectable() bool {
	return o.State == SlotAvailable
}

// SortSlots orders slots the way they are offered: by start time, then id.
func SortSlots(slots []Slot) []Slot {
	out := append([]Slot(nil), slots...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ResolveSlots returns the options for a date in configured order.
// On a special-hours date the regular list is replaced by one pseudo-slot.
// Admin-disabled wins over occupied so staff blocks render as such.
func ResolveSlots(slots []Slot, day DaySnapshot) []SlotOption {
	if day.Special != nil {
		state := SlotAvailable
		if day.SpecialFull {
			state = SlotFullyBooked
		}
		return []SlotOption{{
			Selection: SpecialSelection,
			Start:     day.Special.Start,
			End:       day.Special.End,
			State:     state,
		}}
	}

	ordered := SortSlots(slots)
	options := make([]SlotOption, 0, len(ordered))
	for _, s := range ordered {
		state := SlotAvailable
		if _, ok := day.Disabled[s.ID]; ok {
			state = SlotAdminDisabled
		} else if _, ok := day.Occupied[s.ID]; ok {
			state = SlotOccupied
		}
		options = append(options, SlotOption{
			Selection: SlotSelection(s.ID),
			Start:     s.Start,
			End:       s.End,
			State:     state,
		})
	}
	return options
}

// Find returns the option matching sel.
func Find(options []SlotOption, sel Selection) (SlotOption, bool) {
	for _, o := range options {
		if o.Selection == sel {
			return o, true
		}
	}
	return SlotOption{}, false
}

// AutoSelect re-resolves a selection after occupancy changed. The current
// selection is kept while it is still available; otherwise the first
// available option in configured order is chosen. nil means the guest has to
// pick again.
func AutoSelect(current *Selection, options []SlotOption) *Selection {
	if current != nil {
		if o, ok := Find(options, *current); ok && o.Selectable() {
			sel := *current
			return &sel
		}
	}
	for _, o := range options {
		if o.Selectable() {
			sel := o.Selection
			return &sel
		}
	}
	return nil
}
