package storage

import (
	"fmt"
	"time"
)

// Table names known to the store
const (
	TableRideRequests = "ride_requests"
	TableOfferRides   = "offer_rides"
	TableFeedbacks    = "feedbacks"
)

const (
	dateLayout = "2006-01-02"
)

// Clock is a time of day measured as the duration since midnight
type Clock time.Duration

// NewClock returns Clock for provided hour, minute and second
func NewClock(hour, minute, second int) Clock {
	return Clock(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// ClockOf returns the time of day of t in t's location
func ClockOf(t time.Time) Clock {
	return NewClock(t.Hour(), t.Minute(), t.Second())
}

// ParseClock accepts "15:04" and "15:04:05" forms
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

func (c Clock) String() string {
	d := time.Duration(c)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)
	if sec != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// ParseDate parses calendar date in YYYY-MM-DD form, the result is midnight UTC
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// DateOf drops the time of day of t keeping its calendar day, the result is midnight UTC
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate formats d as YYYY-MM-DD, nil yields empty string
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(dateLayout)
}

// RideRequest is a request for a ride posted on the board
type RideRequest struct {
	ID        int64
	Pickup    string
	Dropoff   string
	Name      string
	Contact   string
	Date      *time.Time
	Time      *Clock
	CreatedAt time.Time
}

// OfferRide is a ride offered by a driver
type OfferRide struct {
	ID        int64
	Pickup    string
	Dropoff   string
	Name      string
	Contact   string
	Date      *time.Time
	Time      *Clock
	Note      string
	CreatedAt time.Time
}

// Feedback is a message left through the feedback form, it is never listed
type Feedback struct {
	ID        int64
	Name      string
	Email     string
	Message   string
	Category  string
	CreatedAt time.Time
}
