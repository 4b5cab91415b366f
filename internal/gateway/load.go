package gateway

import (
	"context"
	"sync"
	"time"

	"restaurant-booking-backend/internal/calendar"
	"restaurant-booking-backend/internal/parse"
)

// Query categories. A load supersedes the previous load of its category.
const (
	CategoryMonth = "month"
	CategoryDay   = "day"
)

// MonthResult is a month snapshot. Degraded names the lists that could not
// be loaded and were treated as empty.
type MonthResult struct {
	Snapshot calendar.MonthSnapshot
	Degraded []string
}

// DayResult is a day snapshot. Degraded names the lists that could not be
// loaded and were treated as empty.
type DayResult struct {
	Snapshot calendar.DaySnapshot
	Degraded []string
}

// fetch runs one list query of a load.
type fetch struct {
	name string
	run  func(ctx context.Context) error
}

// load runs the fetches concurrently under category. A failed fetch is
// logged and reported as degraded.
func (c *Client) load(ctx context.Context, category string, fetches ...fetch) ([]string, error) {
	qctx, token := c.queries.begin(ctx, category)

	errs := make([]error, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.run(qctx)
		}()
	}
	wg.Wait()

	if !c.queries.end(category, token) {
		return nil, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var degraded []string
	for i, err := range errs {
		if err != nil {
			c.log.Warn().Err(err).Str("category", category).Str("list", fetches[i].name).
				Msg("availability list unavailable, treating as empty")
			degraded = append(degraded, fetches[i].name)
		}
	}
	return degraded, nil
}

// LoadMonth fetches the blackout lists of a month. A list that fails to
// load leaves its days open. A newer LoadMonth supersedes this one.
func (c *Client) LoadMonth(ctx context.Context, year int, month time.Month) (*MonthResult, error) {
	var (
		fullyBooked, closed []int
		special             []SpecialDay
	)
	degraded, err := c.load(ctx, CategoryMonth,
		fetch{"fully-booked-dates", func(ctx context.Context) (err error) {
			fullyBooked, err = c.FullyBookedDays(ctx, year, month)
			return err
		}},
		fetch{"closed-dates", func(ctx context.Context) (err error) {
			closed, err = c.ClosedDays(ctx, year, month)
			return err
		}},
		fetch{"special-hours-dates", func(ctx context.Context) (err error) {
			special, err = c.SpecialHoursDays(ctx, year, month)
			return err
		}},
	)
	if err != nil {
		return nil, err
	}

	windows := make(map[int]calendar.Window, len(special))
	for _, d := range special {
		windows[d.Day] = d.Window
	}
	return &MonthResult{
		Snapshot: calendar.NewMonthSnapshot(year, month, fullyBooked, closed, windows),
		Degraded: degraded,
	}, nil
}

// LoadDay fetches the slot lists of date. The special-hours window and its
// fullness come from month, which should cover date. A newer LoadDay
// supersedes this one.
func (c *Client) LoadDay(ctx context.Context, date time.Time, month calendar.MonthSnapshot) (*DayResult, error) {
	day := parse.FormatDate(date)
	var occupied, disabled []int64
	degraded, err := c.load(ctx, CategoryDay,
		fetch{"occupied-time-slots", func(ctx context.Context) (err error) {
			occupied, err = c.OccupiedSlots(ctx, day)
			return err
		}},
		fetch{"disabled-time-slots", func(ctx context.Context) (err error) {
			disabled, err = c.DisabledSlots(ctx, day)
			return err
		}},
	)
	if err != nil {
		return nil, err
	}

	var special *calendar.Window
	if w, ok := month.SpecialWindow(date); ok {
		special = &w
	}
	snap := calendar.NewDaySnapshot(day, occupied, disabled, special)
	if special != nil {
		_, snap.SpecialFull = month.FullyBooked[date.Day()]
	}
	return &DayResult{Snapshot: snap, Degraded: degraded}, nil
}
