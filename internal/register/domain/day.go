package register

import "time"

// DayKey is the persisted representation of a register day.
type DayKey string

// Day normalizes a timestamp to its UTC day start.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDayKey builds a DayKey for the given day start.
func NewDayKey(dayStart time.Time) (DayKey, error) {
	if dayStart.IsZero() {
		return "", ErrInvalidDay
	}
	return DayKey(Day(dayStart).Format("20060102")), nil
}

// String returns the raw string for storage.
func (k DayKey) String() string { return string(k) }

// ParseDay parses a YYYY-MM-DD date into a UTC day start.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidDay
	}
	return Day(t), nil
}
