package scheduling

import "time"

// WorkingHours bounds the slot report for a day.
type WorkingHours struct {
	Start        TimeOfDay
	End          TimeOfDay
	SlotDuration time.Duration
}

// DefaultWorkingHours is 09:00-18:00 in one-hour slots.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{Start: "09:00", End: "18:00", SlotDuration: time.Hour}
}

// Slot is one candidate lesson window in the availability report.
type Slot struct {
	Start     TimeOfDay `json:"start"`
	End       TimeOfDay `json:"end"`
	Available bool      `json:"available"`
}

// GenerateSlots enumerates fixed-length slots across the working hours.
// A slot is unavailable only when a booked interval matches its bounds exactly.
func GenerateSlots(hours WorkingHours, booked []Interval) []Slot {
	step := int(hours.SlotDuration / time.Minute)
	if step <= 0 {
		return nil
	}
	start := hours.Start.Minutes()
	end := hours.End.Minutes()
	if end <= start {
		return []Slot{}
	}

	slots := make([]Slot, 0, (end-start)/step+1)
	for cur := start; cur < end; cur += step {
		next := cur + step
		if next > end {
			break
		}
		slots = append(slots, Slot{Start: FromMinutes(cur), End: FromMinutes(next), Available: true})
	}

	for _, b := range booked {
		for i := range slots {
			if (Interval{Start: slots[i].Start, End: slots[i].End}).Equal(b) {
				slots[i].Available = false
				break
			}
		}
	}
	return slots
}
