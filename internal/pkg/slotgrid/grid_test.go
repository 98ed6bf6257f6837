package slotgrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsWidthThatDoesNotDivideADay(t *testing.T) {
	_, err := New(7)
	assert.Error(t, err)

	_, err = New(0)
	assert.Error(t, err)

	g, err := New(30)
	require.NoError(t, err)
	assert.Equal(t, 30, g.Minutes)
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 570},
		{in: "18:00:00", want: 1080},
		{in: "18:00:30", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "9:300", wantErr: true},
		{in: "9:30:00", wantErr: true},
		{in: "09-30", wantErr: true},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrMalformedTime, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.in[:5], FormatClock(got))
	}
}

func TestParseRange(t *testing.T) {
	g, _ := New(30)

	r, err := g.ParseRange("09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Slots(r))
	assert.Equal(t, []string{"09:00", "09:30"}, g.Times(r))
	assert.Equal(t, "09:00", r.StartClock())
	assert.Equal(t, "10:00", r.EndClock())

	_, err = g.ParseRange("09:15", "10:00")
	assert.ErrorIs(t, err, ErrNotAligned)

	_, err = g.ParseRange("09:00", "10:10")
	assert.ErrorIs(t, err, ErrNotAligned)

	_, err = g.ParseRange("10:00", "10:00")
	assert.ErrorIs(t, err, ErrEmptyRange)

	_, err = g.ParseRange("11:00", "10:00")
	assert.ErrorIs(t, err, ErrEmptyRange)

	_, err = g.ParseRange("nine", "10:00")
	assert.ErrorIs(t, err, ErrMalformedTime)
}

func TestRangeContains(t *testing.T) {
	hours := Range{Start: 8 * 60, End: 18 * 60}
	assert.True(t, hours.Contains(Range{Start: 8 * 60, End: 9 * 60}))
	assert.True(t, hours.Contains(hours))
	assert.False(t, hours.Contains(Range{Start: 7*60 + 30, End: 9 * 60}))
	assert.False(t, hours.Contains(Range{Start: 17 * 60, End: 18*60 + 30}))
}

func TestDateArithmetic(t *testing.T) {
	next, err := AddDays("2026-02-28", 1)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", next)

	prev, err := AddDays("2026-01-01", -1)
	require.NoError(t, err)
	assert.Equal(t, "2025-12-31", prev)

	n, err := DaysBetween("2026-10-16", "2026-10-23")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = DaysBetween("2026-10-16", "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	_, err = AddDays("16/10/2026", 1)
	assert.ErrorIs(t, err, ErrMalformedDate)
}
