package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Regional time policy.
//
// Expenses are stored with the regional (UTC+7) wall-clock time labelled as
// UTC: 09:30 in Hanoi is stored as 09:30Z. Calendar bounds are therefore
// plain UTC midnights in the storage frame, and every query issued during the
// same regional day uses identical bounds.

// RegionalOffset is the fixed offset of the regional zone from UTC.
const RegionalOffset = 7 * time.Hour

// Zone is the fixed regional time zone.
var Zone = time.FixedZone("ICT", int(RegionalOffset/time.Second))

// DisplayDateLayout renders dates as dd/mm/yyyy.
const DisplayDateLayout = "02/01/2006"

const endOfDay = 24*time.Hour - time.Millisecond

// ToStorage converts an instant into the storage frame.
func ToStorage(t time.Time) time.Time {
	return t.UTC().Add(RegionalOffset)
}

// DayBounds returns the inclusive storage-frame bounds of a regional day.
func DayBounds(y int, m time.Month, d int) (start, end time.Time) {
	start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(endOfDay)
}

// MonthBounds returns the inclusive storage-frame bounds of a regional month.
func MonthBounds(y int, m time.Month) (start, end time.Time) {
	start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Millisecond)
}

// YearBounds returns the inclusive storage-frame bounds of a regional year.
func YearBounds(y int) (start, end time.Time) {
	start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Millisecond)
}

// regionalDay returns the regional calendar date of now shifted by offset days.
func regionalDay(now time.Time, offsetDays int) (int, time.Month, int) {
	y, m, d := now.In(Zone).Date()
	t := time.Date(y, m, d+offsetDays, 0, 0, 0, 0, time.UTC)
	return t.Date()
}

// FormatDate renders a storage-frame timestamp as a regional dd/mm/yyyy date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DisplayDateLayout)
}

// ParseStrictDate parses s as D/M/YYYY or DD/MM/YYYY and rejects dates that
// do not exist in the calendar (e.g. 31/02/2024).
func ParseStrictDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	d, m, y := nums[0], nums[1], nums[2]
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m || t.Year() != y {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// parseCalendarDate accepts YYYY-MM-DD, D/M/YYYY (ParseStrictDate) or an
// RFC 3339 timestamp and returns the calendar date it names. Timestamps
// carrying an explicit offset are read in the regional zone.
func parseCalendarDate(s string) (y int, m time.Month, d int, err error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		t, perr := ParseStrictDate(s)
		if perr != nil {
			return 0, 0, 0, perr
		}
		y, m, d = t.Date()
		return y, m, d, nil
	}
	if t, perr := time.Parse("2006-01-02", s); perr == nil {
		y, m, d = t.Date()
		return y, m, d, nil
	}
	if t, perr := time.Parse(time.RFC3339, s); perr == nil {
		y, m, d = t.In(Zone).Date()
		return y, m, d, nil
	}
	return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// parseMonthYear accepts MM/YYYY or YYYY-MM.
func parseMonthYear(s string) (int, time.Month, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"01/2006", "1/2006", "2006-01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), t.Month(), true
		}
	}
	return 0, 0, false
}

// parseYear accepts a four-digit year.
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1 {
		return 0, false
	}
	return y, true
}
