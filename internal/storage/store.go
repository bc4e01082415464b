package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"gurujiride/internal/storage/zapadapter"
)

var (
	ErrInvalidEntity  = errors.New("entity violates table constraints")
	ErrSchemaOutdated = errors.New("database schema is behind the application")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger  *zap.SugaredLogger
	db      *pgxpool.Pool
	now     func() time.Time
	reprobe time.Duration
	schema  map[string]*capability
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct.
// The pool connects lazily so an unreachable database does not prevent the site from starting.
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	poolConfig.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())
	poolConfig.ConnConfig.LogLevel = pgx.LogLevelWarn
	poolConfig.LazyConnect = true

	o := &options{
		pool:    poolConfig,
		reprobe: DefaultReprobeInterval,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt.apply(o)
	}

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ConnectConfig: %w", err)
	}

	s := &Store{
		logger:  logger,
		db:      pool,
		now:     o.now,
		reprobe: o.reprobe,
		schema:  make(map[string]*capability, len(knownTables)),
	}
	for _, table := range knownTables {
		s.schema[table] = &capability{}
	}

	return s, nil
}

// Close closes all connections in the pool
func (s *Store) Close() {
	s.db.Close()
}

// CreateRideRequest inserts ride request and returns its id.
// Creation time is always taken from the store clock.
func (s *Store) CreateRideRequest(ctx context.Context, r RideRequest) (int64, error) {
	s.logger.Debugf("Creating ride request (%s -> %s)", r.Pickup, r.Dropoff)

	var id int64
	sql := `insert into ride_requests (pickup, dropoff, name, contact, scheduled_date, scheduled_time, created_at)
			values ($1, $2, $3, $4, $5, $6, $7) returning id`
	err := s.db.QueryRow(ctx, sql,
		r.Pickup, r.Dropoff, r.Name, r.Contact, dateValue(r.Date), clockValue(r.Time), s.now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}

	s.logger.Debugf("Created ride request with id %d", id)

	return id, nil
}

// CreateOffer inserts ride offer and returns its id
func (s *Store) CreateOffer(ctx context.Context, o OfferRide) (int64, error) {
	s.logger.Debugf("Creating ride offer (%s -> %s)", o.Pickup, o.Dropoff)

	var id int64
	sql := `insert into offer_rides (pickup, dropoff, name, contact, scheduled_date, scheduled_time, note, created_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8) returning id`
	err := s.db.QueryRow(ctx, sql,
		o.Pickup, o.Dropoff, o.Name, o.Contact, dateValue(o.Date), clockValue(o.Time), nullString(o.Note), s.now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}

	s.logger.Debugf("Created ride offer with id %d", id)

	return id, nil
}

// CreateFeedback inserts feedback message and returns its id
func (s *Store) CreateFeedback(ctx context.Context, f Feedback) (int64, error) {
	var id int64
	sql := `insert into feedbacks (name, email, message, category, created_at)
			values ($1, $2, $3, $4, $5) returning id`
	err := s.db.QueryRow(ctx, sql, f.Name, f.Email, f.Message, nullString(f.Category), s.now().UTC()).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}

	s.logger.Debugf("Created feedback with id %d", id)

	return id, nil
}

const rideRequestColumns = `id, pickup, dropoff, name, contact, scheduled_date, scheduled_time, created_at`

// RecentRideRequests returns ride requests from newest to oldest skipping first skip of them
func (s *Store) RecentRideRequests(ctx context.Context, skip, take int) ([]RideRequest, error) {
	s.logger.Debugf("Retrieving recent ride requests (skip: %d, take: %d)", skip, take)

	sql := `select ` + rideRequestColumns + `
			  from ride_requests
			 order by created_at desc, id desc
			 limit $1 offset $2`

	rows, err := s.db.Query(ctx, sql, take, skip)
	if err != nil {
		return nil, classify(err)
	}

	requests, err := scanRideRequests(rows)
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Debugf("Retrieved %d ride requests", len(requests))

	return requests, nil
}

// RecentOffers returns ride offers from newest to oldest skipping first skip of them
func (s *Store) RecentOffers(ctx context.Context, skip, take int) ([]OfferRide, error) {
	s.logger.Debugf("Retrieving recent ride offers (skip: %d, take: %d)", skip, take)

	sql := `select id, pickup, dropoff, name, contact, scheduled_date, scheduled_time, note, created_at
			  from offer_rides
			 order by created_at desc, id desc
			 limit $1 offset $2`

	rows, err := s.db.Query(ctx, sql, take, skip)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	offers := make([]OfferRide, 0)
	for rows.Next() {
		var (
			o    OfferRide
			date pgtype.Date
			tod  pgtype.Time
			note *string
		)
		err = rows.Scan(&o.ID, &o.Pickup, &o.Dropoff, &o.Name, &o.Contact, &date, &tod, &note, &o.CreatedAt)
		if err != nil {
			return nil, err
		}
		o.Date = dateFromPG(date)
		o.Time = clockFromPG(tod)
		if note != nil {
			o.Note = *note
		}
		o.CreatedAt = o.CreatedAt.UTC()
		offers = append(offers, o)
	}

	if rows.Err() != nil {
		return nil, classify(rows.Err())
	}

	s.logger.Debugf("Retrieved %d ride offers", len(offers))

	return offers, nil
}

// scanRideRequests reads all rows selected with rideRequestColumns and closes them
func scanRideRequests(rows pgx.Rows) ([]RideRequest, error) {
	defer rows.Close()

	requests := make([]RideRequest, 0)
	for rows.Next() {
		var (
			r    RideRequest
			date pgtype.Date
			tod  pgtype.Time
		)
		err := rows.Scan(&r.ID, &r.Pickup, &r.Dropoff, &r.Name, &r.Contact, &date, &tod, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		r.Date = dateFromPG(date)
		r.Time = clockFromPG(tod)
		r.CreatedAt = r.CreatedAt.UTC()
		requests = append(requests, r)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return requests, nil
}

// classify maps postgres errors onto package errors keeping the original message
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.StringDataRightTruncationDataException:
			return fmt.Errorf("%w: %s", ErrInvalidEntity, pgErr.Message)
		case pgerrcode.UndefinedColumn, pgerrcode.UndefinedTable:
			return fmt.Errorf("%w: %s", ErrSchemaOutdated, pgErr.Message)
		}
	}
	return err
}

func dateValue(d *time.Time) pgtype.Date {
	if d == nil {
		return pgtype.Date{Status: pgtype.Null}
	}
	return pgtype.Date{Time: DateOf(*d), Status: pgtype.Present}
}

func clockValue(c *Clock) pgtype.Time {
	if c == nil {
		return pgtype.Time{Status: pgtype.Null}
	}
	return pgtype.Time{Microseconds: int64(time.Duration(*c) / time.Microsecond), Status: pgtype.Present}
}

func dateFromPG(d pgtype.Date) *time.Time {
	if d.Status != pgtype.Present {
		return nil
	}
	t := DateOf(d.Time)
	return &t
}

func clockFromPG(t pgtype.Time) *Clock {
	if t.Status != pgtype.Present {
		return nil
	}
	c := Clock(time.Duration(t.Microseconds) * time.Microsecond)
	return &c
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
