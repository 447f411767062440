// internal/domain/cycle/cycle.go
package cycle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A cycle is one monthly period, identified as "YYYY-MM". Its deadline
// is the second Saturday of that month at 10:59:00 UTC.

const (
	// MinYear and MaxYear bound the supported cycle id range.
	MinYear = 2024
	MaxYear = 2099

	deadlineHour   = 10
	deadlineMinute = 59
)

var ErrInvalidCycleID = fmt.Errorf("cycle id must be in YYYY-MM format with a supported year and month")

var idPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// IDFor returns the cycle identifier for the month containing t (in UTC).
func IDFor(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%04d-%02d", u.Year(), int(u.Month()))
}

// Parse validates a cycle id and returns its year and month.
func Parse(id string) (int, time.Month, error) {
	if !idPattern.MatchString(id) {
		return 0, 0, ErrInvalidCycleID
	}
	parts := strings.SplitN(id, "-", 2)
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, ErrInvalidCycleID
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidCycleID
	}
	if year < MinYear || year > MaxYear {
		return 0, 0, ErrInvalidCycleID
	}
	if month < 1 || month > 12 {
		return 0, 0, ErrInvalidCycleID
	}
	return year, time.Month(month), nil
}

// Deadline returns the deadline instant for a cycle id: the second
// Saturday of its month at 10:59:00 UTC.
func Deadline(id string) (time.Time, error) {
	year, month, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return deadlineFor(year, month), nil
}

func deadlineFor(year int, month time.Month) time.Time {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysToFirstSaturday := (int(time.Saturday) - int(firstOfMonth.Weekday()) + 7) % 7
	secondSaturday := 1 + daysToFirstSaturday + 7
	return time.Date(year, month, secondSaturday, deadlineHour, deadlineMinute, 0, 0, time.UTC)
}

// Next returns the id of the cycle following id, rolling December over
// into January of the next year.
func Next(id string) (string, error) {
	year, month, err := Parse(id)
	if err != nil {
		return "", err
	}
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	return fmt.Sprintf("%04d-%02d", year, int(month)), nil
}

// NextDeadline returns the deadline of the cycle following id.
func NextDeadline(id string) (time.Time, error) {
	next, err := Next(id)
	if err != nil {
		return time.Time{}, err
	}
	return Deadline(next)
}

// IsSecondSaturday reports whether t (in UTC) falls on the second
// Saturday of its month. The second Saturday is always day 8-14.
func IsSecondSaturday(t time.Time) bool {
	u := t.UTC()
	return u.Weekday() == time.Saturday && u.Day() >= 8 && u.Day() <= 14
}
