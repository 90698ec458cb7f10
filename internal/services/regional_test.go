package services

import (
	"errors"
	"testing"
	"time"
)

func TestToStorage_ShiftsToRegionalWallClock(t *testing.T) {
	in := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	want := time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC)
	if got := ToStorage(in); !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("ToStorage=%v; want %v", got, want)
	}
	// The zone of the input does not matter, only the instant.
	if got := ToStorage(in.In(Zone)); !got.Equal(want) {
		t.Fatalf("ToStorage(in zone)=%v; want %v", got, want)
	}
}

func TestDayMonthYearBounds(t *testing.T) {
	s, e := DayBounds(2024, time.May, 1)
	if !s.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) || !e.Equal(time.Date(2024, 5, 1, 23, 59, 59, 999e6, time.UTC)) {
		t.Fatalf("DayBounds=(%v,%v)", s, e)
	}
	s, e = MonthBounds(2024, time.February)
	if !s.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) || !e.Equal(time.Date(2024, 2, 29, 23, 59, 59, 999e6, time.UTC)) {
		t.Fatalf("MonthBounds=(%v,%v)", s, e)
	}
	s, e = YearBounds(2023)
	if !s.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)) || !e.Equal(time.Date(2023, 12, 31, 23, 59, 59, 999e6, time.UTC)) {
		t.Fatalf("YearBounds=(%v,%v)", s, e)
	}
}

func TestRegionalDay_UsesRegionalCalendar(t *testing.T) {
	// 18:30Z on May 1 is 01:30 on May 2 in UTC+7.
	now := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
	if y, m, d := regionalDay(now, 0); y != 2024 || m != time.May || d != 2 {
		t.Fatalf("today=%d-%d-%d; want 2024-5-2", y, m, d)
	}
	if y, m, d := regionalDay(now, -1); y != 2024 || m != time.May || d != 1 {
		t.Fatalf("yesterday=%d-%d-%d; want 2024-5-1", y, m, d)
	}
	// Crossing a year boundary.
	jan1 := time.Date(2023, 12, 31, 17, 0, 0, 0, time.UTC)
	if y, m, d := regionalDay(jan1, -1); y != 2023 || m != time.December || d != 31 {
		t.Fatalf("yesterday of 2024-01-01=%d-%d-%d", y, m, d)
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)); got != "01/05/2024" {
		t.Fatalf("FormatDate=%q", got)
	}
}

func TestParseStrictDate(t *testing.T) {
	ok := map[string]time.Time{
		"01/05/2024": time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		"29/02/2024": time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		"5/3/2024":   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range ok {
		got, err := ParseStrictDate(in)
		if err != nil || !got.Equal(want) {
			t.Fatalf("ParseStrictDate(%q)=(%v,%v); want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"31/02/2024", "29/02/2023", "00/01/2024", "12/13/2024", "2024-05-01", "hôm nay", ""} {
		if _, err := ParseStrictDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseStrictDate(%q) err=%v; want ErrInvalidDate", in, err)
		}
	}
}

func TestParseCalendarDate(t *testing.T) {
	cases := map[string][3]int{
		"2024-05-01":                {2024, 5, 1},
		"01/05/2024":                {2024, 5, 1},
		"5/3/2024":                  {2024, 3, 5},
		"2024-05-01T20:00:00Z":      {2024, 5, 2}, // 03:00 next day regionally
		"2024-05-01T20:00:00+07:00": {2024, 5, 1},
	}
	for in, want := range cases {
		y, m, d, err := parseCalendarDate(in)
		if err != nil || y != want[0] || int(m) != want[1] || d != want[2] {
			t.Fatalf("parseCalendarDate(%q)=(%d,%d,%d,%v); want %v", in, y, m, d, err, want)
		}
	}
	for _, bad := range []string{"tomorrow", "31/02/2024", "05/2024"} {
		if _, _, _, err := parseCalendarDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("parseCalendarDate(%q): expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseMonthYearAndYear(t *testing.T) {
	if y, m, ok := parseMonthYear("03/2024"); !ok || y != 2024 || m != time.March {
		t.Fatalf("parseMonthYear(03/2024)=(%d,%d,%v)", y, m, ok)
	}
	if y, m, ok := parseMonthYear("2023-12"); !ok || y != 2023 || m != time.December {
		t.Fatalf("parseMonthYear(2023-12)=(%d,%d,%v)", y, m, ok)
	}
	if _, _, ok := parseMonthYear("this_month"); ok {
		t.Fatalf("token must not parse as a month")
	}
	if y, ok := parseYear("2023"); !ok || y != 2023 {
		t.Fatalf("parseYear(2023)=(%d,%v)", y, ok)
	}
	if _, ok := parseYear("23"); ok {
		t.Fatalf("two-digit years are rejected")
	}
}
