package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMonth indicates the value could not be parsed as YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// Month is a calendar year-month. Settlement periods and assignment
// range queries are keyed by it.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses the canonical "YYYY-MM" form.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t (in UTC).
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// IsZero reports whether m is the zero value.
func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

// Range returns the inclusive bounds of the month in UTC:
// first day 00:00:00 through last day 23:59:59.
func (m Month) Range() (start, end time.Time) {
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// Contains reports whether t falls inside the month's range.
func (m Month) Contains(t time.Time) bool {
	start, end := m.Range()
	u := t.UTC()
	return !u.Before(start) && !u.After(end)
}

// MarshalJSON encodes the month as "YYYY-MM".
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON decodes the "YYYY-MM" form.
func (m *Month) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return ErrInvalidMonth
	}
	parsed, err := ParseMonth(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
