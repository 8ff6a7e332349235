package core

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout formats a year and month, e.g. "2024-03".
const MonthLayout = "2006-01"

const secondsPerDay = 24 * 60 * 60

var ErrInvalidDate = errors.New("invalid date")

// Date is a calendar date at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current UTC calendar date.
func Today() Date { return DateOf(time.Now().UTC()) }

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// ParseMonth parses "YYYY-MM" into the first day of that month.
func ParseMonth(s string) (Date, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the "YYYY-MM" month of d.
func (d Date) MonthKey() string { return d.Format(MonthLayout) }

// Cmp compares two dates: -1 before, 0 same day, +1 after.
func (d Date) Cmp(o Date) int { return d.Time.Compare(o.Time) }

func (d Date) IsBefore(o Date) bool { return d.Cmp(o) < 0 }
func (d Date) IsAfter(o Date) bool  { return d.Cmp(o) > 0 }
func (d Date) Same(o Date) bool     { return d.Cmp(o) == 0 }

// Within reports whether d lies in [from, to], inclusive.
func (d Date) Within(from, to Date) bool {
	return !d.IsBefore(from) && !d.IsAfter(to)
}

// DaysUntil returns the number of calendar days from d to o; negative when o
// is earlier. Both are UTC midnights, so the Unix difference is whole days
// and does not saturate like time.Duration.
func (d Date) DaysUntil(o Date) int {
	return int((o.Unix() - d.Unix()) / secondsPerDay)
}

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date { return NewDate(d.Year(), int(d.Month()), 1) }

// MonthEnd returns the last day of d's month.
func (d Date) MonthEnd() Date {
	return NewDate(d.Year(), int(d.Month())+1, 0)
}

func (d Date) IsMonthEnd() bool { return d.Day() == daysIn(d.Year(), d.Month()) }

// AddMonthsClamped shifts d by n calendar months keeping the day of month,
// clamped to the length of the target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonthsClamped(n int) Date {
	first := NewDate(d.Year(), int(d.Month())+n, 1)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// MonthsBetween returns the whole number of calendar months from the month of
// d to the month of o, ignoring the day of month.
func (d Date) MonthsBetween(o Date) int {
	return (o.Year()-d.Year())*12 + int(o.Month()) - int(d.Month())
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(string(bytes.Trim(b, `"`)))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Scan reads a DATE column or its "YYYY-MM-DD" text form.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanText(string(v))
	case string:
		return d.scanText(v)
	}
	return fmt.Errorf("%w: cannot scan %T", ErrInvalidDate, src)
}

func (d *Date) scanText(s string) error {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(DateLayout), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
