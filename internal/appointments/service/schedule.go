package service

import (
	"time"

	"vehicle_inspection_backend/internal/appointments/repository"
)

const (
	SlotDuration  = 45 * time.Minute
	openingHour   = 9
	closingHour   = 17
	scheduleDays  = 7
	dateLayout    = "2006-01-02"
	displayLayout = "15:04"
)

// Slot is one bookable start time.
type Slot struct {
	Start     time.Time
	Display   string
	Available bool
}

// DaySchedule is the slot grid of one calendar day.
type DaySchedule struct {
	Date           string
	Weekday        string
	Slots          []Slot
	AvailableCount int
}

// SlotStarts returns the slot grid of the calendar day of day in loc: every
// 45 minutes from 09:00 while the start is before 17:00.
func SlotStarts(day time.Time, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := day.In(loc)
	current := time.Date(local.Year(), local.Month(), local.Day(), openingHour, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), closingHour, 0, 0, 0, loc)

	starts := make([]time.Time, 0, 11)
	for current.Before(end) {
		starts = append(starts, current)
		current = current.Add(SlotDuration)
	}
	return starts
}

// IsSlotStart reports whether t lies exactly on the slot grid.
func IsSlotStart(t time.Time, loc *time.Location) bool {
	for _, start := range SlotStarts(t, loc) {
		if start.Equal(t) {
			return true
		}
	}
	return false
}

// conflicts reports whether an active appointment starts less than a slot
// duration away from t.
func conflicts(t time.Time, booked []repository.Appointment) bool {
	for _, appt := range booked {
		if !appt.IsActive() {
			continue
		}
		diff := appt.RequestedAt.Sub(t)
		if diff < 0 {
			diff = -diff
		}
		if diff < SlotDuration {
			return true
		}
	}
	return false
}

// buildDay marks each slot of day as available or not.
func buildDay(day time.Time, loc *time.Location, booked []repository.Appointment, now time.Time) DaySchedule {
	starts := SlotStarts(day, loc)
	schedule := DaySchedule{
		Date:    starts[0].Format(dateLayout),
		Weekday: starts[0].Weekday().String(),
		Slots:   make([]Slot, 0, len(starts)),
	}
	for _, start := range starts {
		available := start.After(now) && !conflicts(start, booked)
		if available {
			schedule.AvailableCount++
		}
		schedule.Slots = append(schedule.Slots, Slot{Start: start, Display: start.Format(displayLayout), Available: available})
	}
	return schedule
}

// dayBounds returns midnight of day and of the next day in loc.
func dayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
