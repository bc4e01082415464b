package testing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNonIncreasing(t *testing.T) {
	now := time.Now()
	require.True(t, NonIncreasing([]time.Time{now, now, now.Add(-time.Second)}))
	require.False(t, NonIncreasing([]time.Time{now, now.Add(time.Second)}))
	require.True(t, NonIncreasing(nil))
}

func TestStrictlyDecreasing(t *testing.T) {
	now := time.Now()
	require.True(t, StrictlyDecreasing([]time.Time{now, now.Add(-time.Second)}))
	require.False(t, StrictlyDecreasing([]time.Time{now, now}))
}

func TestSorted(t *testing.T) {
	require.True(t, Sorted([]string{"Market A", "Market B", "Market B"}, false))
	require.False(t, Sorted([]string{"b", "a"}, false))
	require.True(t, Sorted([]string{"b", "a"}, true))
	require.False(t, Sorted([]string{"a", "b"}, true))
}

func TestTicker(t *testing.T) {
	start := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clock := Ticker(start, time.Minute)
	require.Equal(t, start, clock())
	require.Equal(t, start.Add(time.Minute), clock())
}

func TestRandString(t *testing.T) {
	s := RandString()
	require.Len(t, s, 10)
	for _, r := range s {
		require.True(t, r >= 'a' && r <= 'z')
	}
}
