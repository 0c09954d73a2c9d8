package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the short day token used in provider availability sets,
// e.g. "Mon" or "Fri".
type Weekday string

const (
	Sunday    Weekday = "Sun"
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thu"
	Friday    Weekday = "Fri"
	Saturday  Weekday = "Sat"
)

var weekdayNames = map[Weekday]string{
	Sunday:    "Sunday",
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

// ParseWeekday accepts the short token in any case ("mon", "Mon", "MON").
func ParseWeekday(s string) (Weekday, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if len(token) > 3 {
		token = token[:3]
	}
	if token != "" {
		token = strings.ToUpper(token[:1]) + token[1:]
	}
	w := Weekday(token)
	if _, ok := weekdayNames[w]; !ok {
		return "", fmt.Errorf("invalid weekday %q", s)
	}
	return w, nil
}

// LongName returns the full English day name ("Monday").
func (w Weekday) LongName() string {
	return weekdayNames[w]
}

func weekdayFromTime(d time.Weekday) Weekday {
	switch d {
	case time.Sunday:
		return Sunday
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	default:
		return Saturday
	}
}

// Date is a civil calendar date with no time component.
//
// All instant conversions pin the date to UTC so that the same civil date
// always resolves to the same weekday no matter what the process-local
// timezone is.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf extracts the civil date of an instant, evaluated in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return Date{Year: u.Year(), Month: u.Month(), Day: u.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Weekday derives the day token from the calendar fields alone.
func (d Date) Weekday() Weekday {
	return weekdayFromTime(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday())
}

// At combines the date with a time-of-day offset into a UTC instant.
func (d Date) At(t TimeOfDay) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour(), t.Minute(), 0, 0, time.UTC)
}

// StartOfDay returns the 00:00 UTC instant for the date.
func (d Date) StartOfDay() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return DateOf(d.StartOfDay().Add(24 * time.Hour))
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return d.StartOfDay().Before(other.StartOfDay())
}

// FormatWeekdays renders an availability set the way it is shown to
// patients, e.g. "Mon, Wed, Fri".
func FormatWeekdays(days []Weekday) string {
	tokens := make([]string, len(days))
	for i, d := range days {
		tokens[i] = string(d)
	}
	return strings.Join(tokens, ", ")
}
