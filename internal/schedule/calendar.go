package schedule

import (
	"fmt"
	"time"
)

// Default clinic hours: 09:00 through 17:00 inclusive on a 30 minute
// interval, which yields 17 offsets per working day.
const (
	DefaultDayStart = TimeOfDay(9 * 60)
	DefaultDayEnd   = TimeOfDay(17 * 60)
	DefaultInterval = 30 * time.Minute
)

// Session is a named group of offsets used for presentation, e.g. the
// morning block.
type Session struct {
	Name  string
	Slots []TimeOfDay
}

// Calendar generates the closed catalog of bookable time-of-day offsets for
// a working day. It is a pure value; every method derives its result from
// the three fields and its arguments.
type Calendar struct {
	dayStart TimeOfDay
	dayEnd   TimeOfDay
	interval TimeOfDay
}

// NewCalendar builds a calendar for the [start, end] range stepped by
// interval. The end offset itself is part of the catalog.
func NewCalendar(start, end TimeOfDay, interval time.Duration) (Calendar, error) {
	step := TimeOfDay(interval / time.Minute)
	if step <= 0 {
		return Calendar{}, fmt.Errorf("calendar interval %s must be a positive number of minutes", interval)
	}
	if end < start {
		return Calendar{}, fmt.Errorf("calendar end %s precedes start %s", end, start)
	}
	return Calendar{dayStart: start, dayEnd: end, interval: step}, nil
}

// DefaultCalendar returns the clinic's standard 09:00-17:00 / 30m calendar.
func DefaultCalendar() Calendar {
	c, err := NewCalendar(DefaultDayStart, DefaultDayEnd, DefaultInterval)
	if err != nil {
		panic(err)
	}
	return c
}

// Slots returns the full ordered catalog.
func (c Calendar) Slots() []TimeOfDay {
	var slots []TimeOfDay
	for t := c.dayStart; t <= c.dayEnd; t += c.interval {
		slots = append(slots, t)
	}
	return slots
}

// Contains reports whether the offset is a member of the catalog.
func (c Calendar) Contains(t TimeOfDay) bool {
	if t < c.dayStart || t > c.dayEnd {
		return false
	}
	return (t-c.dayStart)%c.interval == 0
}

// Sessions partitions the catalog into the morning block (before noon) and
// the afternoon block.
func (c Calendar) Sessions() []Session {
	noon := TimeOfDay(12 * 60)
	var morning, afternoon []TimeOfDay
	for _, t := range c.Slots() {
		if t < noon {
			morning = append(morning, t)
		} else {
			afternoon = append(afternoon, t)
		}
	}
	sessions := make([]Session, 0, 2)
	if len(morning) > 0 {
		sessions = append(sessions, Session{Name: "morning", Slots: morning})
	}
	if len(afternoon) > 0 {
		sessions = append(sessions, Session{Name: "afternoon", Slots: afternoon})
	}
	return sessions
}

// BookableOn filters the catalog for presentation on a given date. Past
// dates have no bookable offsets; on the current date, offsets at or before
// the current time of day are dropped.
func (c Calendar) BookableOn(date Date, now time.Time) []TimeOfDay {
	today := DateOf(now)
	if date.Before(today) {
		return nil
	}
	slots := c.Slots()
	if date != today {
		return slots
	}
	cutoff := TimeOfDayAt(now)
	var open []TimeOfDay
	for _, t := range slots {
		if t > cutoff {
			open = append(open, t)
		}
	}
	return open
}
