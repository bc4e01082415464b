package testing

import (
	"sync"
	"time"
)

// Ticker returns a clock starting at start that moves step forward on every call
func Ticker(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// Fixed returns a clock that is always at t
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
