// Package calendar resolves what a guest may pick: the state of each day in a
// month and the state of each time slot on a date. Everything here is pure;
// callers supply the snapshots fetched from the availability endpoints.
package calendar

import "time"

// DayState is the resolved booking state of one calendar day.
type DayState string

const (
	DayPast         DayState = "past"
	DayBeyondWindow DayState = "beyond-window"
	DayClosed       DayState = "closed"
	DayFullyBooked  DayState = "fully-booked"
	DaySpecialHours DayState = "special-hours"
	DayOpen         DayState = "open"
)

// Selectable reports whether a guest may select a day in this state.
func (s DayState) Selectable() bool {
	return s == DayOpen || s == DaySpecialHours
}

// Window is a special-hours window replacing the regular slots of a date.
// Start and End are "HH:MM"; the window is [Start, End).
type Window struct {
	Start string `json:"special_start"`
	End   string `json:"special_end"`
}

// MonthSnapshot is the blackout data of one month as returned by the
// availability endpoints. Day keys are day-of-month numbers.
type MonthSnapshot struct {
	Year        int
	Month       time.Month
	FullyBooked map[int]struct{}
	Closed      map[int]struct{}
	Special     map[int]Window
}

// NewMonthSnapshot builds a snapshot from the endpoint lists. Nil inputs mean
// "nothing known" and leave every day open.
func NewMonthSnapshot(year int, month time.Month, fullyBooked, closed []int, special map[int]Window) MonthSnapshot {
	snap := MonthSnapshot{
		Year:        year,
		Month:       month,
		FullyBooked: make(map[int]struct{}, len(fullyBooked)),
		Closed:      make(map[int]struct{}, len(closed)),
		Special:     make(map[int]Window, len(special)),
	}
	for _, d := range fullyBooked {
		snap.FullyBooked[d] = struct{}{}
	}
	for _, d := range closed {
		snap.Closed[d] = struct{}{}
	}
	for d, w := range special {
		snap.Special[d] = w
	}
	return snap
}

// Covers reports whether date falls in the snapshot's month.
func (m MonthSnapshot) Covers(date time.Time) bool {
	return date.Year() == m.Year && date.Month() == m.Month
}

// SpecialWindow returns the special-hours window of date, if any.
func (m MonthSnapshot) SpecialWindow(date time.Time) (Window, bool) {
	if !m.Covers(date) {
		return Window{}, false
	}
	w, ok := m.Special[date.Day()]
	return w, ok
}

// ResolveDay returns the state of date. The first matching rule wins:
// past, beyond-window, closed, fully-booked, special-hours, open.
// today is compared by calendar date only; today itself is bookable.
// Blackout sets are only consulted when the snapshot covers date's month.
func ResolveDay(date time.Time, snap MonthSnapshot, today time.Time, maxAdvanceDays int) DayState {
	d := dateOnly(date)
	t := dateOnly(today)

	if d.Before(t) {
		return DayPast
	}
	if d.After(t.AddDate(0, 0, maxAdvanceDays)) {
		return DayBeyondWindow
	}
	if !snap.Covers(d) {
		return DayOpen
	}
	day := d.Day()
	if _, ok := snap.Closed[day]; ok {
		return DayClosed
	}
	if _, ok := snap.FullyBooked[day]; ok {
		return DayFullyBooked
	}
	if _, ok := snap.Special[day]; ok {
		return DaySpecialHours
	}
	return DayOpen
}

// DayView is one cell of a month calendar.
type DayView struct {
	Day   int      `json:"day"`
	Date  string   `json:"date"`
	State DayState `json:"state"`
}

// ResolveMonth resolves every day of the snapshot's month.
func ResolveMonth(snap MonthSnapshot, today time.Time, maxAdvanceDays int) []DayView {
	n := DaysIn(snap.Month, snap.Year)
	views := make([]DayView, 0, n)
	for day := 1; day <= n; day++ {
		date := time.Date(snap.Year, snap.Month, day, 0, 0, 0, 0, time.UTC)
		views = append(views, DayView{
			Day:   day,
			Date:  date.Format("2006-01-02"),
			State: ResolveDay(date, snap, today, maxAdvanceDays),
		})
	}
	return views
}

// DaysIn returns the number of days in month m of year.
func DaysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
