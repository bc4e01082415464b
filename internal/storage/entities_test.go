package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("17:45")
	require.NoError(t, err)
	require.Equal(t, NewClock(17, 45, 0), c)
	require.Equal(t, "17:45", c.String())

	c, err = ParseClock("07:05:09")
	require.NoError(t, err)
	require.Equal(t, NewClock(7, 5, 9), c)
	require.Equal(t, "07:05:09", c.String())
}

func TestParseClock_Invalid(t *testing.T) {
	for _, s := range []string{"", "25:00", "7pm", "12:60"} {
		_, err := ParseClock(s)
		require.Error(t, err, s)
	}
}

func TestClockOf(t *testing.T) {
	at := time.Date(2026, 10, 15, 13, 20, 5, 999, time.UTC)
	require.Equal(t, NewClock(13, 20, 5), ClockOf(at))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	at := time.Date(2026, 10, 15, 23, 30, 0, 0, loc)
	require.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), DateOf(at))
}

func TestFormatDate(t *testing.T) {
	require.Equal(t, "", FormatDate(nil))
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	require.Equal(t, "2026-02-28", FormatDate(&d))
}
