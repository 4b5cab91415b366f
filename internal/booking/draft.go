package booking

import (
	"errors"
	"time"

	"restaurant-booking-backend/internal/calendar"
	"restaurant-booking-backend/internal/parse"
)

var (
	ErrNoDate           = errors.New("no date selected")
	ErrDateNotBookable  = errors.New("selected date is not bookable")
	ErrNoSlot           = errors.New("no time slot selected")
	ErrSlotNotAvailable = errors.New("selected time slot is not available")
	ErrDayNotLoaded     = errors.New("slot availability for the selected date is not loaded")
	ErrMonthStale       = errors.New("month availability must be reloaded after a rejection")
)

// Draft is the booking form state. It is a value: every change goes through
// Reduce and yields a new Draft.
type Draft struct {
	Flow            Flow
	Date            string
	Selection       *calendar.Selection
	GuestCount      int
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	SpecialRequests string
	IdempotencyKey  string
}

// State is a draft plus the server snapshots it was resolved against.
type State struct {
	Draft Draft
	Month calendar.MonthSnapshot
	// Day is the occupancy snapshot of Draft.Date; DayReady is false until it
	// has been loaded for that date.
	Day      calendar.DaySnapshot
	DayReady bool
	// AwaitingPick is set by a rejection: no slot is picked on the guest's
	// behalf until they choose one with SelectSlot.
	AwaitingPick bool
	// MonthStale is set by a rejection and cleared by the next MonthLoaded.
	MonthStale bool
}

// Env is the read-only context a reducer step is evaluated in.
type Env struct {
	Today time.Time
	Rules Rules
	Slots []calendar.Slot
}

// NewState starts an empty draft for flow.
func NewState(flow Flow, rules Rules) State {
	return State{Draft: Draft{Flow: flow, GuestCount: rules.MinGuests}}
}

// Action is one user or network event applied by Reduce.
type Action interface {
	isAction()
}

type (
	// MonthLoaded delivers the blackout snapshot for the visible month.
	MonthLoaded struct{ Snapshot calendar.MonthSnapshot }
	// SelectDate picks a calendar date.
	SelectDate struct{ Date time.Time }
	// DayLoaded delivers the slot occupancy snapshot of a date.
	DayLoaded struct{ Snapshot calendar.DaySnapshot }
	// SelectSlot picks a slot or the special-hours sentinel.
	SelectSlot struct{ Selection calendar.Selection }
	SetGuests  struct{ Count int }
	SetContact struct{ FirstName, LastName, Email, Phone string }
	SetRequests struct{ Text string }
	// Rejected records a commit rejection. The slot is dropped, the month and
	// the day must be re-fetched, and the guest has to pick again.
	Rejected struct{}
)

func (MonthLoaded) isAction() {}
func (SelectDate) isAction()  {}
func (DayLoaded) isAction()   {}
func (SelectSlot) isAction()  {}
func (SetGuests) isAction()   {}
func (SetContact) isAction()  {}
func (SetRequests) isAction() {}
func (Rejected) isAction()    {}

// Reduce applies a to s. It is pure: s is never modified.
func Reduce(s State, a Action, env Env) State {
	switch a := a.(type) {
	case MonthLoaded:
		s.Month = a.Snapshot
		s.MonthStale = false
		if s.Draft.Date != "" {
			if d, err := parse.Date(s.Draft.Date); err == nil && a.Snapshot.Covers(d) &&
				!calendar.ResolveDay(d, a.Snapshot, env.Today, env.Rules.MaxAdvanceDays).Selectable() {
				s.Draft.Date = ""
				s.Draft.Selection = nil
				s.Day = calendar.DaySnapshot{}
				s.DayReady = false
			}
		}

	case SelectDate:
		if !calendar.ResolveDay(a.Date, s.Month, env.Today, env.Rules.MaxAdvanceDays).Selectable() {
			return s
		}
		date := parse.FormatDate(parse.DateOnly(a.Date))
		if date == s.Draft.Date {
			return s
		}
		s.Draft.Date = date
		s.Draft.Selection = nil
		s.Day = calendar.DaySnapshot{Date: date}
		s.DayReady = false

	case DayLoaded:
		if a.Snapshot.Date != s.Draft.Date {
			// Late answer for a date the guest already left.
			return s
		}
		snap := a.Snapshot
		if snap.Special == nil {
			if d, err := parse.Date(snap.Date); err == nil {
				if w, ok := s.Month.SpecialWindow(d); ok {
					snap.Special = &w
				}
			}
		}
		s.Day = snap
		s.DayReady = true
		if !s.AwaitingPick {
			s.Draft.Selection = calendar.AutoSelect(s.Draft.Selection, calendar.ResolveSlots(env.Slots, snap))
		}

	case SelectSlot:
		if !s.DayReady {
			return s
		}
		o, ok := calendar.Find(calendar.ResolveSlots(env.Slots, s.Day), a.Selection)
		if !ok || !o.Selectable() {
			return s
		}
		sel := a.Selection
		s.Draft.Selection = &sel
		s.AwaitingPick = false

	case SetGuests:
		s.Draft.GuestCount = a.Count

	case SetContact:
		s.Draft.FirstName = a.FirstName
		s.Draft.LastName = a.LastName
		s.Draft.Email = a.Email
		s.Draft.Phone = a.Phone

	case SetRequests:
		s.Draft.SpecialRequests = a.Text

	case Rejected:
		s.Draft.Selection = nil
		s.DayReady = false
		s.AwaitingPick = true
		s.MonthStale = true
	}
	return s
}

// Request converts the draft into the create-reservation payload.
func (d Draft) Request() Request {
	req := Request{
		Date:            d.Date,
		GuestCount:      d.GuestCount,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		Email:           d.Email,
		Phone:           d.Phone,
		SpecialRequests: d.SpecialRequests,
		IdempotencyKey:  d.IdempotencyKey,
	}
	if d.Selection != nil {
		if d.Selection.Special {
			req.SpecialHours = true
		} else {
			id := d.Selection.SlotID
			req.TimeSlotID = &id
		}
	}
	return Sanitize(req)
}

// Check runs every submit gate against s and returns the first failing one.
// Field errors come back as ValidationErrors.
func Check(s State, env Env, v *Validator) error {
	if s.MonthStale {
		return ErrMonthStale
	}
	if s.Draft.Date == "" {
		return ErrNoDate
	}
	d, err := parse.Date(s.Draft.Date)
	if err != nil {
		return ErrNoDate
	}
	if !calendar.ResolveDay(d, s.Month, env.Today, env.Rules.MaxAdvanceDays).Selectable() {
		return ErrDateNotBookable
	}
	if s.Draft.Selection == nil {
		return ErrNoSlot
	}
	if !s.DayReady {
		return ErrDayNotLoaded
	}
	o, ok := calendar.Find(calendar.ResolveSlots(env.Slots, s.Day), *s.Draft.Selection)
	if !ok || !o.Selectable() {
		return ErrSlotNotAvailable
	}
	return v.Validate(s.Draft.Request(), s.Draft.Flow, env.Rules)
}

// CanSubmit reports whether the draft passes every submit gate.
func CanSubmit(s State, env Env, v *Validator) bool {
	return Check(s, env, v) == nil
}
