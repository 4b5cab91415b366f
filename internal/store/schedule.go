package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"restaurant-booking-backend/internal/model"
)

const settingsID = 1

func (s *gormStore) Settings(ctx context.Context) (*model.SystemSettings, error) {
	var settings model.SystemSettings
	if err := s.db.WithContext(ctx).First(&settings, settingsID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &settings, nil
}

// EnsureSettings seeds the settings row with defaults unless it exists.
func (s *gormStore) EnsureSettings(ctx context.Context, defaults model.SystemSettings) (*model.SystemSettings, error) {
	defaults.ID = settingsID
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error; err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}
	return s.Settings(ctx)
}

func (s *gormStore) UpdateSettings(ctx context.Context, settings model.SystemSettings) (*model.SystemSettings, error) {
	settings.ID = settingsID
	if err := s.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return s.Settings(ctx)
}

// TimeSlots returns every slot in configured order.
func (s *gormStore) TimeSlots(ctx context.Context) ([]model.TimeSlot, error) {
	var slots []model.TimeSlot
	if err := s.db.WithContext(ctx).Order("start_time, id").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *gormStore) CreateTimeSlot(ctx context.Context, slot *model.TimeSlot) error {
	slot.ID = 0
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("failed to create time slot: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateTimeSlot(ctx context.Context, slot *model.TimeSlot) error {
	res := s.db.WithContext(ctx).Model(&model.TimeSlot{ID: slot.ID}).
		Updates(map[string]any{"start_time": slot.StartTime, "end_time": slot.EndTime})
	if res.Error != nil {
		return fmt.Errorf("failed to update time slot %d: %w", slot.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).First(slot, slot.ID).Error
}

// DeleteTimeSlot removes a slot nobody ever booked. Slots referenced by any
// reservation, active or not, are kept for history.
func (s *gormStore) DeleteTimeSlot(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&model.Reservation{}).Where("time_slot_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count reservations for time slot %d: %w", id, err)
		}
		if refs > 0 {
			return ErrSlotInUse
		}

		if err := tx.Where("time_slot_id = ?", id).Delete(&model.OverrideDisabledSlot{}).Error; err != nil {
			return fmt.Errorf("failed to drop disabled entries of time slot %d: %w", id, err)
		}

		res := tx.Delete(&model.TimeSlot{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete time slot %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Override returns the override of date, or nil for a normal day.
func (s *gormStore) Override(ctx context.Context, date string) (*model.DateOverride, error) {
	var override model.DateOverride
	err := s.db.WithContext(ctx).Preload("DisabledSlots").Where("date = ?", date).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load override for %s: %w", date, err)
	}
	return &override, nil
}

// SetOverride replaces whatever override date had. Existing reservations on
// the date are left untouched.
func (s *gormStore) SetOverride(ctx context.Context, override *model.DateOverride) error {
	switch override.Kind {
	case model.OverrideClosed:
		override.SpecialStart, override.SpecialEnd = nil, nil
		override.DisabledSlots = nil
	case model.OverrideSpecialHours:
		if override.SpecialStart == nil || override.SpecialEnd == nil {
			return fmt.Errorf("special hours need a start and end: %w", ErrInvalidOverride)
		}
		override.DisabledSlots = nil
	case model.OverrideDisabledSlots:
		if len(override.DisabledSlots) == 0 {
			return fmt.Errorf("no slots to disable: %w", ErrInvalidOverride)
		}
		override.SpecialStart, override.SpecialEnd = nil, nil
	default:
		return fmt.Errorf("unknown kind %q: %w", override.Kind, ErrInvalidOverride)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if override.Kind == model.OverrideDisabledSlots {
			ids := uniqueSlotIDs(override.DisabledSlots)
			var known int64
			if err := tx.Model(&model.TimeSlot{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
				return fmt.Errorf("failed to check disabled slots: %w", err)
			}
			if int(known) != len(ids) {
				return fmt.Errorf("disabled slot: %w", ErrNotFound)
			}
			override.DisabledSlots = override.DisabledSlots[:0]
			for _, id := range ids {
				override.DisabledSlots = append(override.DisabledSlots, model.OverrideDisabledSlot{TimeSlotID: id})
			}
		}

		if err := deleteOverride(tx, override.Date); err != nil {
			return err
		}
		override.ID = 0
		if err := tx.Create(override).Error; err != nil {
			return fmt.Errorf("failed to save override for %s: %w", override.Date, err)
		}
		return nil
	})
}

// ClearOverride turns date back into a normal day.
func (s *gormStore) ClearOverride(ctx context.Context, date string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteOverride(tx, date)
	})
}

func deleteOverride(tx *gorm.DB, date string) error {
	sub := tx.Model(&model.DateOverride{}).Select("id").Where("date = ?", date)
	if err := tx.Where("override_id IN (?)", sub).Delete(&model.OverrideDisabledSlot{}).Error; err != nil {
		return fmt.Errorf("failed to clear disabled slots for %s: %w", date, err)
	}
	if err := tx.Where("date = ?", date).Delete(&model.DateOverride{}).Error; err != nil {
		return fmt.Errorf("failed to clear override for %s: %w", date, err)
	}
	return nil
}

func uniqueSlotIDs(slots []model.OverrideDisabledSlot) []int64 {
	seen := make(map[int64]struct{}, len(slots))
	ids := make([]int64, 0, len(slots))
	for _, d := range slots {
		if _, ok := seen[d.TimeSlotID]; ok {
			continue
		}
		seen[d.TimeSlotID] = struct{}{}
		ids = append(ids, d.TimeSlotID)
	}
	return ids
}
