package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"

	"restaurant-booking-backend/internal/calendar"
	"restaurant-booking-backend/internal/model"
	"restaurant-booking-backend/internal/parse"
)

// FullyBookedDays derives the fully-booked days of a month from the active
// reservation counts. Closed days are never reported.
func (s *gormStore) FullyBookedDays(ctx context.Context, month time.Month, year int) ([]int, error) {
	first, last := parse.MonthRange(month, year)
	db := s.db.WithContext(ctx)

	var settings model.SystemSettings
	if err := db.First(&settings, settingsID).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	counts, err := countActive(db, first, last)
	if err != nil {
		return nil, err
	}
	if len(counts) == 0 {
		return []int{}, nil
	}

	var slotIDs []int64
	if err := db.Model(&model.TimeSlot{}).Order("id").Pluck("id", &slotIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list time slots: %w", err)
	}

	var overrides []model.DateOverride
	if err := db.Preload("DisabledSlots").Where("date BETWEEN ? AND ?", first, last).Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	byDate := make(map[string]model.DateOverride, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o
	}

	loads := make(map[string]*calendar.DayLoad)
	for _, c := range counts {
		load, ok := loads[c.ReservationDate]
		if !ok {
			load = &calendar.DayLoad{SlotIDs: slotIDs, Counts: map[int64]int{}, Disabled: map[int64]struct{}{}}
			if o, ok := byDate[c.ReservationDate]; ok {
				switch o.Kind {
				case model.OverrideSpecialHours:
					load.Special = true
				case model.OverrideDisabledSlots:
					for _, id := range o.DisabledSlotIDs() {
						load.Disabled[id] = struct{}{}
					}
				}
			}
			loads[c.ReservationDate] = load
		}
		switch {
		case c.SpecialHours:
			load.SpecialCount += c.Booked
		case c.TimeSlotID != nil:
			load.Counts[*c.TimeSlotID] += c.Booked
		}
	}

	days := []int{}
	for date, load := range loads {
		if o, ok := byDate[date]; ok && o.Kind == model.OverrideClosed {
			continue
		}
		if load.FullyBooked(settings.Capacity) {
			days = append(days, dayOf(date))
		}
	}
	sort.Ints(days)
	return days, nil
}

func (s *gormStore) ClosedDays(ctx context.Context, month time.Month, year int) ([]int, error) {
	overrides, err := s.overridesOfKind(ctx, model.OverrideClosed, month, year)
	if err != nil {
		return nil, err
	}
	days := make([]int, 0, len(overrides))
	for _, o := range overrides {
		days = append(days, dayOf(o.Date))
	}
	return days, nil
}

func (s *gormStore) SpecialHoursDays(ctx context.Context, month time.Month, year int) ([]SpecialDay, error) {
	overrides, err := s.overridesOfKind(ctx, model.OverrideSpecialHours, month, year)
	if err != nil {
		return nil, err
	}
	days := make([]SpecialDay, 0, len(overrides))
	for _, o := range overrides {
		day := SpecialDay{Day: dayOf(o.Date)}
		if o.SpecialStart != nil {
			day.Start = *o.SpecialStart
		}
		if o.SpecialEnd != nil {
			day.End = *o.SpecialEnd
		}
		days = append(days, day)
	}
	return days, nil
}

// OccupiedSlots lists the regular slots of date whose active count reached
// capacity.
func (s *gormStore) OccupiedSlots(ctx context.Context, date string) ([]int64, error) {
	db := s.db.WithContext(ctx)

	var settings model.SystemSettings
	if err := db.First(&settings, settingsID).Error; err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	counts, err := countActive(db, date, date)
	if err != nil {
		return nil, err
	}

	ids := []int64{}
	for _, c := range counts {
		if c.SpecialHours || c.TimeSlotID == nil {
			continue
		}
		if c.Booked >= settings.Capacity {
			ids = append(ids, *c.TimeSlotID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *gormStore) DisabledSlots(ctx context.Context, date string) ([]int64, error) {
	override, err := s.Override(ctx, date)
	if err != nil {
		return nil, err
	}
	if override == nil || override.Kind != model.OverrideDisabledSlots {
		return []int64{}, nil
	}
	ids := override.DisabledSlotIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *gormStore) overridesOfKind(ctx context.Context, kind model.OverrideKind, month time.Month, year int) ([]model.DateOverride, error) {
	first, last := parse.MonthRange(month, year)
	var overrides []model.DateOverride
	err := s.db.WithContext(ctx).
		Where("kind = ? AND date BETWEEN ? AND ?", kind, first, last).
		Order("date").
		Find(&overrides).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s overrides: %w", kind, err)
	}
	return overrides, nil
}

// countActive groups the active reservations between two dates (inclusive)
// by date and capacity bucket.
func countActive(db *gorm.DB, first, last string) ([]slotCount, error) {
	var counts []slotCount
	err := db.Model(&model.Reservation{}).
		Select("reservation_date, time_slot_id, special_hours, COUNT(*) AS booked").
		Where("reservation_date BETWEEN ? AND ? AND status IN ?", first, last, activeStatuses()).
		Group("reservation_date, time_slot_id, special_hours").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count reservations between %s and %s: %w", first, last, err)
	}
	return counts, nil
}

// dayOf returns the day-of-month of a YYYY-MM-DD date.
func dayOf(date string) int {
	if len(date) < 10 {
		return 0
	}
	d, _ := strconv.Atoi(date[8:10])
	return d
}
