// Package workday holds the calendar arithmetic used by attendance: civil
// dates in the organisation's fixed UTC offset and shift times of day.
package workday

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// DefaultOffsetHours is UTC+07:00 (WIB).
const DefaultOffsetHours = 7

// FixedZone returns a constant-offset location. DST is never applied.
func FixedZone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+03d:00", offsetHours)
	return time.FixedZone(name, offsetHours*60*60)
}

// Date is a calendar day without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of instant t as seen in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// FromTime takes the y/m/d fields of t as-is. Used for values scanned from
// DATE columns, which arrive as UTC midnight.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of d, the representation pgx uses for DATE.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Midnight returns the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines d with a time of day in loc.
func (d Date) At(tod TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, tod.Hour, tod.Minute, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func (d Date) Before(u Date) bool {
	return d.Time().Before(u.Time())
}

func (d Date) After(u Date) bool {
	return d.Time().After(u.Time())
}

// Between reports whether start <= d <= end.
func (d Date) Between(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS. Seconds are dropped.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants.
func MustTimeOfDay(s string) TimeOfDay {
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return tod
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// FromMicroseconds builds a TimeOfDay from a PostgreSQL TIME value.
func FromMicroseconds(us int64) TimeOfDay {
	mins := int(us / int64(time.Minute/time.Microsecond))
	return TimeOfDay{Hour: mins / 60, Minute: mins % 60}
}

// Microseconds is the inverse of FromMicroseconds.
func (t TimeOfDay) Microseconds() int64 {
	return int64(t.Minutes()) * int64(time.Minute/time.Microsecond)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
