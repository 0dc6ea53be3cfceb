package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlotsDefaultDay(t *testing.T) {
	slots := GenerateSlots(DefaultWorkingHours(), nil)
	require.Len(t, slots, 9)
	assert.Equal(t, Slot{Start: "09:00", End: "10:00", Available: true}, slots[0])
	assert.Equal(t, Slot{Start: "17:00", End: "18:00", Available: true}, slots[8])
}

func TestGenerateSlotsExactMatchOnly(t *testing.T) {
	booked := []Interval{
		{Start: "10:00", End: "11:00"},
		{Start: "13:30", End: "14:30"},
	}
	slots := GenerateSlots(DefaultWorkingHours(), booked)
	require.Len(t, slots, 9)

	for _, s := range slots {
		if s.Start == "10:00" {
			assert.False(t, s.Available)
			continue
		}
		assert.True(t, s.Available, "slot %s-%s", s.Start, s.End)
	}
}

func TestGenerateSlotsCustomHours(t *testing.T) {
	hours := WorkingHours{Start: "08:00", End: "09:45", SlotDuration: 30 * time.Minute}
	slots := GenerateSlots(hours, nil)
	require.Len(t, slots, 3)
	assert.Equal(t, TimeOfDay("09:00"), slots[2].Start)
	assert.Equal(t, TimeOfDay("09:30"), slots[2].End)

	assert.Empty(t, GenerateSlots(WorkingHours{Start: "09:00", End: "18:00"}, nil))
}

func TestGenerateSlotsUnpaddedBounds(t *testing.T) {
	hours := WorkingHours{Start: "9:00", End: "11:00", SlotDuration: time.Hour}
	slots := GenerateSlots(hours, []Interval{{Start: "9:00", End: "10:00"}})
	require.Len(t, slots, 2)
	assert.Equal(t, Slot{Start: "09:00", End: "10:00", Available: false}, slots[0])
	assert.True(t, slots[1].Available)

	assert.Empty(t, GenerateSlots(WorkingHours{Start: "12:00", End: "10:00", SlotDuration: time.Hour}, nil))
}
