package civil

import (
	"errors"
	"time"
)

var ErrInvalidDate = errors.New("civil: invalid date")

const layout = "2006-01-02"

// Date is a calendar date with no time-of-day or zone semantics.
// Stored as UTC midnight so equal dates compare equal regardless of
// how the caller constructed them.
type Date struct {
	t time.Time
}

// FromTime truncates an instant to its UTC calendar date.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return Date{t: time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)}
}

// Parse reads a date in ISO "2006-01-02" form.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Time returns the UTC midnight instant backing the date.
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	return d.t.Format(layout)
}
