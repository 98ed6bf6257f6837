// Package slotgrid holds the time-of-day and calendar arithmetic of the slot
// window: "HH:MM" clock strings, grid alignment and day offsets.
package slotgrid

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	clockLayout = "15:04"
	minutesDay  = 24 * 60
)

var (
	ErrMalformedTime = errors.New("time must be formatted as HH:MM")
	ErrMalformedDate = errors.New("date must be formatted as YYYY-MM-DD")
	ErrNotAligned    = errors.New("time is not aligned to the slot grid")
	ErrEmptyRange    = errors.New("end time must be after start time")
)

// Grid is a fixed-width slot grid. Minutes must divide a day evenly.
type Grid struct {
	Minutes int
}

func New(minutes int) (Grid, error) {
	if minutes <= 0 || minutesDay%minutes != 0 {
		return Grid{}, fmt.Errorf("slot width %d does not divide a day", minutes)
	}
	return Grid{Minutes: minutes}, nil
}

func (g Grid) Duration() time.Duration {
	return time.Duration(g.Minutes) * time.Minute
}

// ParseClock converts "HH:MM" (or "HH:MM:SS" with zero seconds) to minutes
// since midnight.
// One-digit hours are rejected; time.Parse alone would accept "9:30".
func ParseClock(s string) (int, error) {
	if (len(s) != len(clockLayout) && len(s) != len("15:04:05")) || s[2] != ':' {
		return 0, ErrMalformedTime
	}
	if len(s) == len("15:04:05") {
		t, err := time.Parse("15:04:05", s)
		if err != nil || t.Second() != 0 {
			return 0, ErrMalformedTime
		}
		return t.Hour()*60 + t.Minute(), nil
	}
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, ErrMalformedTime
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Normalize reformats a clock string to the canonical "HH:MM".
func Normalize(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(m), nil
}

func (g Grid) Aligned(minutes int) bool {
	return minutes%g.Minutes == 0
}

// Range is a validated half-open [Start, End) interval on the grid.
type Range struct {
	Start int
	End   int
}

// ParseRange validates start < end and grid alignment.
func (g Grid) ParseRange(start, end string) (Range, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Range{}, fmt.Errorf("start_time: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Range{}, fmt.Errorf("end_time: %w", err)
	}
	if !g.Aligned(s) {
		return Range{}, fmt.Errorf("start_time: %w", ErrNotAligned)
	}
	if !g.Aligned(e) {
		return Range{}, fmt.Errorf("end_time: %w", ErrNotAligned)
	}
	if e <= s {
		return Range{}, ErrEmptyRange
	}
	return Range{Start: s, End: e}, nil
}

func (r Range) StartClock() string { return FormatClock(r.Start) }

func (r Range) EndClock() string { return FormatClock(r.End) }

// Slots is the number of grid cells spanned by r.
func (g Grid) Slots(r Range) int {
	return (r.End - r.Start) / g.Minutes
}

// Times lists the start time of every grid cell in r.
func (g Grid) Times(r Range) []string {
	out := make([]string, 0, g.Slots(r))
	for m := r.Start; m < r.End; m += g.Minutes {
		out = append(out, FormatClock(m))
	}
	return out
}

// Contains reports whether inner lies within outer.
func (r Range) Contains(inner Range) bool {
	return inner.Start >= r.Start && inner.End <= r.End
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrMalformedDate
	}
	return t, nil
}

// AddDays shifts a "YYYY-MM-DD" date by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
