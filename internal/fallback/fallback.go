// Package fallback synthesizes sample rides shown when the database can not serve live data.
// Everything here is a pure function of its arguments.
package fallback

import (
	"strconv"
	"time"

	"gurujiride/internal/storage"
)

// Marker is present in the name and contact of every sample entry
const Marker = "Sample"

// Step separates creation times of neighbouring sample entries
const Step = 15 * time.Minute

var routes = [][2]string{
	{"Market Street", "Airport Terminal 2"},
	{"Central Station", "University Campus"},
	{"Old Town Square", "Riverside Mall"},
	{"Harbor View", "Tech Park"},
	{"City Hospital", "Greenfield Suburbs"},
}

var dayOffsets = []int{0, 1, 2, 3, 5, 7}

var times = []storage.Clock{
	storage.NewClock(7, 30, 0),
	storage.NewClock(9, 0, 0),
	storage.NewClock(12, 15, 0),
	storage.NewClock(17, 45, 0),
	storage.NewClock(20, 30, 0),
}

// entry holds values shared by sample requests and offers
type entry struct {
	id        int64
	n         string
	pickup    string
	dropoff   string
	date      time.Time
	time      storage.Clock
	createdAt time.Time
}

func entries(now time.Time, take, offset int) []entry {
	if take < 0 {
		take = 0
	}
	today := storage.DateOf(now)

	out := make([]entry, take)
	for i := range out {
		seq := offset + i
		route := routes[mod(seq, len(routes))]
		out[i] = entry{
			id:        int64(seq + 1),
			n:         strconv.Itoa(seq + 1),
			pickup:    route[0],
			dropoff:   route[1],
			date:      today.AddDate(0, 0, dayOffsets[mod(seq, len(dayOffsets))]),
			time:      times[mod(seq, len(times))],
			createdAt: now.UTC().Add(-time.Duration(seq+1) * Step),
		}
	}

	return out
}

// RideRequests returns take sample ride requests, newest first, with ids starting at offset+1
func RideRequests(now time.Time, take, offset int) []storage.RideRequest {
	es := entries(now, take, offset)
	out := make([]storage.RideRequest, len(es))
	for i, e := range es {
		date, tod := e.date, e.time
		out[i] = storage.RideRequest{
			ID:        e.id,
			Pickup:    e.pickup,
			Dropoff:   e.dropoff,
			Name:      Marker + " rider " + e.n,
			Contact:   Marker + ".rider" + e.n + "@example.invalid",
			Date:      &date,
			Time:      &tod,
			CreatedAt: e.createdAt,
		}
	}
	return out
}

// Offers returns take sample ride offers, newest first, with ids starting at offset+1
func Offers(now time.Time, take, offset int) []storage.OfferRide {
	es := entries(now, take, offset)
	out := make([]storage.OfferRide, len(es))
	for i, e := range es {
		date, tod := e.date, e.time
		out[i] = storage.OfferRide{
			ID:        e.id,
			Pickup:    e.pickup,
			Dropoff:   e.dropoff,
			Name:      Marker + " driver " + e.n,
			Contact:   Marker + ".driver" + e.n + "@example.invalid",
			Date:      &date,
			Time:      &tod,
			Note:      Marker + " offer, shown while live data is unavailable",
			CreatedAt: e.createdAt,
		}
	}
	return out
}

// Page returns a sample listing page of q's size, q is normalized first
func Page(now time.Time, q storage.ListQuery) storage.Page {
	q = q.Normalize()
	items := RideRequests(now, q.PageSize, q.Offset())
	return storage.Page{
		Items:    items,
		Total:    len(items),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
}

// mod keeps negative offsets inside the rotation
func mod(a, n int) int {
	return (a%n + n) % n
}
