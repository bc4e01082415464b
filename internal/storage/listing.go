package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
)

// Page size limits of the filtered listing
const (
	DefaultPageSize = 20
	MinPageSize     = 5
	MaxPageSize     = 200
)

// SortKey names a listing order
type SortKey string

const (
	SortDate    SortKey = "date"
	SortPickup  SortKey = "pickup"
	SortDropoff SortKey = "dropoff"
	SortCreated SortKey = "created"
)

// ParseSortKey is case-insensitive, anything unknown sorts by date
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortPickup, SortDropoff, SortCreated:
		return k
	default:
		return SortDate
	}
}

// ListQuery describes one page of the filtered ride request listing.
// The zero value lists everything by date ascending on the first page of default size.
type ListQuery struct {
	DateFrom *time.Time
	DateTo   *time.Time
	TimeFrom *Clock
	TimeTo   *Clock

	// Pickup and Dropoff are case-insensitive substrings
	Pickup  string
	Dropoff string

	// UpcomingOnly drops rides without a date and rides scheduled before the moment of the call
	UpcomingOnly bool

	SortBy SortKey
	Desc   bool

	Page     int
	PageSize int
}

// Normalize clamps paging into allowed bounds and drops blank filters
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PageSize == 0:
		q.PageSize = DefaultPageSize
	case q.PageSize < MinPageSize:
		q.PageSize = MinPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	q.Pickup = strings.TrimSpace(q.Pickup)
	q.Dropoff = strings.TrimSpace(q.Dropoff)
	q.SortBy = ParseSortKey(string(q.SortBy))

	return q
}

// Offset is the number of rows preceding the page, q must be normalized
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Page is one page of the filtered listing
type Page struct {
	Items    []RideRequest
	Total    int
	Page     int
	PageSize int
}

// TotalPages is the number of pages needed to show Total items
func (p Page) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// timeOfDay treats a missing time as midnight
const timeOfDay = `coalesce(scheduled_time, time '00:00')`

type listSQL struct {
	where   string
	orderBy string
	args    []interface{}
}

// buildListSQL composes where and order by clauses for normalized q, now is the moment of the call
func buildListSQL(q ListQuery, now time.Time) listSQL {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.DateFrom != nil {
		conds = append(conds, "scheduled_date >= "+arg(dateValue(q.DateFrom)))
	}
	if q.DateTo != nil {
		conds = append(conds, "scheduled_date <= "+arg(dateValue(q.DateTo)))
	}
	if q.TimeFrom != nil {
		conds = append(conds, timeOfDay+" >= "+arg(clockValue(q.TimeFrom)))
	}
	if q.TimeTo != nil {
		conds = append(conds, timeOfDay+" <= "+arg(clockValue(q.TimeTo)))
	}
	if q.Pickup != "" {
		conds = append(conds, "pickup ilike "+arg(containsPattern(q.Pickup)))
	}
	if q.Dropoff != "" {
		conds = append(conds, "dropoff ilike "+arg(containsPattern(q.Dropoff)))
	}
	if q.UpcomingOnly {
		today := DateOf(now)
		clock := ClockOf(now)
		d := arg(dateValue(&today))
		t := arg(clockValue(&clock))
		conds = append(conds, fmt.Sprintf(
			"scheduled_date is not null and (scheduled_date > %s or (scheduled_date = %s and %s > %s))",
			d, d, timeOfDay, t,
		))
	}

	var where string
	if len(conds) > 0 {
		where = " where " + strings.Join(conds, " and ")
	}

	return listSQL{
		where:   where,
		orderBy: orderBy(q.SortBy, q.Desc),
		args:    args,
	}
}

// orderBy always ends with id so that pages are stable, rows without a date go last in both directions
func orderBy(key SortKey, desc bool) string {
	dir := "asc"
	if desc {
		dir = "desc"
	}

	switch key {
	case SortPickup:
		return fmt.Sprintf(` order by pickup collate "C" %s, id %s`, dir, dir)
	case SortDropoff:
		return fmt.Sprintf(` order by dropoff collate "C" %s, id %s`, dir, dir)
	case SortCreated:
		return fmt.Sprintf(` order by created_at %s, id %s`, dir, dir)
	default:
		return fmt.Sprintf(` order by scheduled_date %s nulls last, %s %s, id %s`, dir, timeOfDay, dir, dir)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// ListRideRequests returns one page of ride requests matching q together with the total number of matches.
// On failure the page is empty with zero total and the error tells why.
func (s *Store) ListRideRequests(ctx context.Context, q ListQuery) (Page, error) {
	q = q.Normalize()
	empty := Page{Items: []RideRequest{}, Page: q.Page, PageSize: q.PageSize}

	built := buildListSQL(q, s.now())
	s.logger.Debugf("Listing ride requests (where:%s;%s)", built.where, built.orderBy)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return empty, fmt.Errorf("beginning listing transaction: %w", err)
	}
	// error handling can be omitted for rollback according docs
	defer tx.Rollback(context.Background())

	var total int
	err = tx.QueryRow(ctx, `select count(*) from ride_requests`+built.where, built.args...).Scan(&total)
	if err != nil {
		return empty, fmt.Errorf("counting ride requests: %w", classify(err))
	}

	n := len(built.args)
	args := append(built.args[:n:n], q.PageSize, q.Offset())
	sql := `select ` + rideRequestColumns + ` from ride_requests` + built.where + built.orderBy +
		fmt.Sprintf(` limit $%d offset $%d`, n+1, n+2)

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return empty, fmt.Errorf("selecting ride requests: %w", classify(err))
	}
	items, err := scanRideRequests(rows)
	if err != nil {
		return empty, fmt.Errorf("scanning ride requests: %w", classify(err))
	}

	s.logger.Debugf("Listed %d of %d ride requests", len(items), total)

	return Page{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}
