// Package date provides a day-granularity Date used for option expirations
// and trading-day comparisons.
package date

import (
	"fmt"
	"time"
)

// Format is the standard ISO-8601 representation of a Date.
const Format = "2006-01-02"

// readFormat is more permissive and accepts single-digit month/day.
const readFormat = "2006-1-2"

// compactFormat is the YYMMDD form embedded in option symbols.
const compactFormat = "060102"

// Date represents a calendar day, with no time or timezone attached.
type Date struct {
	y int
	m time.Month
	d int
}

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Of returns the Date on which the given instant falls, using the instant's
// own wall clock.
func Of(t time.Time) Date {
	return New(t.Date())
}

// time returns the canonical time.Time for that day (midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool { return d == Date{} }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return New(d.y, d.m, d.d+days) }

// Sub returns the number of days between d and x.
func (d Date) Sub(x Date) int { return int(d.time().Sub(x.time()) / (24 * time.Hour)) }

// String formats the date in its standard format.
func (d Date) String() string { return d.time().Format(Format) }

// Parse parses a Date from a string. It is lenient and accepts forms like
// "2021-4-1".
func Parse(str string) (Date, error) {
	on, err := time.Parse(readFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readFormat, err)
	}
	return New(on.Date()), nil
}

// Parse6 parses the compact YYMMDD form embedded in option symbols.
func Parse6(str string) (Date, error) {
	on, err := time.Parse(compactFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid compact date %q want format YYMMDD: %w", str, err)
	}
	return New(on.Date()), nil
}

// Format6 renders the date in the compact YYMMDD form.
func (d Date) Format6() string { return d.time().Format(compactFormat) }

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
