package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSlots = []Slot{
	{ID: 3, Start: "20:00", End: "22:00"},
	{ID: 1, Start: "18:00", End: "20:00"},
	{ID: 2, Start: "12:00", End: "14:00"},
	{ID: 4, Start: "18:00", End: "19:00"},
}

func TestResolveSlots_States(t *testing.T) {
	snap := NewDaySnapshot("2026-10-20", []int64{1, 3}, []int64{3, 4}, nil)

	options := ResolveSlots(testSlots, snap)
	require.Len(t, options, 4)

	// Configured order: start time, then id.
	assert.Equal(t, SlotSelection(2), options[0].Selection)
	assert.Equal(t, SlotSelection(1), options[1].Selection)
	assert.Equal(t, SlotSelection(4), options[2].Selection)
	assert.Equal(t, SlotSelection(3), options[3].Selection)

	assert.Equal(t, SlotAvailable, options[0].State)
	assert.Equal(t, SlotOccupied, options[1].State)
	assert.Equal(t, SlotAdminDisabled, options[2].State)
	assert.Equal(t, SlotAdminDisabled, options[3].State, "disabled renders as disabled even when also occupied")

	assert.True(t, options[0].Selectable())
	assert.False(t, options[1].Selectable())
	assert.False(t, options[2].Selectable())
}

func TestResolveSlots_SpecialHoursReplacesList(t *testing.T) {
	snap := NewDaySnapshot("2026-10-20", []int64{1}, nil, &Window{Start: "17:00", End: "21:00"})

	options := ResolveSlots(testSlots, snap)
	require.Len(t, options, 1)
	assert.Equal(t, SpecialSelection, options[0].Selection)
	assert.Equal(t, "17:00", options[0].Start)
	assert.Equal(t, "21:00", options[0].End)
	assert.Equal(t, SlotAvailable, options[0].State)

	snap.SpecialFull = true
	options = ResolveSlots(testSlots, snap)
	require.Len(t, options, 1)
	assert.Equal(t, SlotFullyBooked, options[0].State)
	assert.False(t, options[0].Selectable())
}

func TestResolveSlots_NoSlots(t *testing.T) {
	assert.Empty(t, ResolveSlots(nil, NewDaySnapshot("2026-10-20", nil, nil, nil)))
}

func TestAutoSelect(t *testing.T) {
	testCases := []struct {
		name     string
		current  *Selection
		occupied []int64
		disabled []int64
		expected *Selection
	}{
		{
			name:     "Keeps available selection",
			current:  &Selection{SlotID: 1},
			expected: &Selection{SlotID: 1},
		},
		{
			name:     "Occupied selection moves to first available",
			current:  &Selection{SlotID: 1},
			occupied: []int64{1},
			expected: &Selection{SlotID: 2},
		},
		{
			name:     "Skips occupied and disabled slots in order",
			current:  &Selection{SlotID: 2},
			occupied: []int64{2, 1},
			disabled: []int64{4},
			expected: &Selection{SlotID: 3},
		},
		{
			name:     "No selection picks first available",
			expected: &Selection{SlotID: 2},
		},
		{
			name:     "Nothing available clears selection",
			current:  &Selection{SlotID: 1},
			occupied: []int64{1, 2, 3},
			disabled: []int64{4},
			expected: nil,
		},
		{
			name:     "Unknown slot id moves to first available",
			current:  &Selection{SlotID: 99},
			expected: &Selection{SlotID: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options := ResolveSlots(testSlots, NewDaySnapshot("2026-10-20", tc.occupied, tc.disabled, nil))
			assert.Equal(t, tc.expected, AutoSelect(tc.current, options))
		})
	}
}

func TestAutoSelect_OccupiedNeverChosen(t *testing.T) {
	occupied := []int64{2, 1, 4}
	options := ResolveSlots(testSlots, NewDaySnapshot("2026-10-20", occupied, nil, nil))

	sel := AutoSelect(nil, options)
	require.NotNil(t, sel)
	assert.NotContains(t, occupied, sel.SlotID)
}

func TestAutoSelect_SpecialHours(t *testing.T) {
	snap := NewDaySnapshot("2026-10-20", nil, nil, &Window{Start: "17:00", End: "21:00"})
	options := ResolveSlots(testSlots, snap)

	sel := AutoSelect(&Selection{SlotID: 1}, options)
	require.NotNil(t, sel)
	assert.Equal(t, SpecialSelection, *sel)

	snap.SpecialFull = true
	assert.Nil(t, AutoSelect(sel, ResolveSlots(testSlots, snap)))
}

func TestSelection(t *testing.T) {
	assert.True(t, Selection{}.IsZero())
	assert.False(t, SpecialSelection.IsZero())
	assert.False(t, SlotSelection(1).IsZero())
	assert.Equal(t, "18:00 - 20:00", testSlots[1].Label())
}

func TestDayLoad_FullyBooked(t *testing.T) {
	ids := []int64{1, 2, 3}

	testCases := []struct {
		name     string
		load     DayLoad
		capacity int
		expected bool
	}{
		{
			name:     "All slots at capacity",
			load:     DayLoad{SlotIDs: ids, Counts: map[int64]int{1: 2, 2: 2, 3: 3}},
			capacity: 2,
			expected: true,
		},
		{
			name:     "One slot has room",
			load:     DayLoad{SlotIDs: ids, Counts: map[int64]int{1: 2, 2: 1, 3: 2}},
			capacity: 2,
			expected: false,
		},
		{
			name:     "Disabled slot with room is ignored",
			load:     DayLoad{SlotIDs: ids, Counts: map[int64]int{1: 2, 2: 2}, Disabled: map[int64]struct{}{3: {}}},
			capacity: 2,
			expected: true,
		},
		{
			name:     "Every slot disabled is not full",
			load:     DayLoad{SlotIDs: ids, Disabled: map[int64]struct{}{1: {}, 2: {}, 3: {}}},
			capacity: 1,
			expected: false,
		},
		{
			name:     "No slots configured",
			load:     DayLoad{},
			capacity: 1,
			expected: false,
		},
		{
			name:     "Special hours at capacity",
			load:     DayLoad{SlotIDs: ids, Special: true, SpecialCount: 4},
			capacity: 4,
			expected: true,
		},
		{
			name:     "Special hours ignores regular counts",
			load:     DayLoad{SlotIDs: ids, Counts: map[int64]int{1: 9, 2: 9, 3: 9}, Special: true, SpecialCount: 1},
			capacity: 4,
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.load.FullyBooked(tc.capacity))
		})
	}
}
