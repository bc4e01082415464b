package storage

import (
	"context"
	"sync/atomic"
)

// createdAtColumn is the newest column every read path depends on
const createdAtColumn = "created_at"

var knownTables = []string{TableRideRequests, TableOfferRides, TableFeedbacks}

// capability caches whether a table has the shape this release expects
type capability struct {
	ready     atomic.Bool
	lastProbe atomic.Int64
}

// HasColumn reports whether column exists on table in the current schema.
// Any failure, including cancelled ctx, is reported as absent.
func (s *Store) HasColumn(ctx context.Context, table, column string) bool {
	var exists bool
	sql := `select exists (
				select 1
				  from information_schema.columns
				 where table_schema = current_schema()
				   and table_name = $1
				   and column_name = $2
			)`
	if err := s.db.QueryRow(ctx, sql, table, column).Scan(&exists); err != nil {
		s.logger.Warnf("Probing column %s.%s: %v", table, column, err)
		return false
	}

	return exists
}

// ProbeSchema checks every known table once and caches the results, it is meant to be called at startup
func (s *Store) ProbeSchema(ctx context.Context) map[string]bool {
	for _, table := range knownTables {
		s.probe(ctx, table)
	}

	return s.Capabilities()
}

// Ready reports the cached capability of table. While it is false, one caller per reprobe interval
// checks the database again so a migration applied after startup is noticed.
func (s *Store) Ready(ctx context.Context, table string) bool {
	c, ok := s.schema[table]
	if !ok {
		return false
	}
	if c.ready.Load() {
		return true
	}
	if s.reprobe <= 0 {
		return false
	}

	last := c.lastProbe.Load()
	now := s.now().UnixNano()
	if now-last < int64(s.reprobe) {
		return false
	}
	if !c.lastProbe.CompareAndSwap(last, now) {
		return false
	}

	return s.probe(ctx, table)
}

// Capabilities returns a snapshot of cached flags keyed by table name
func (s *Store) Capabilities() map[string]bool {
	out := make(map[string]bool, len(s.schema))
	for table, c := range s.schema {
		out[table] = c.ready.Load()
	}
	return out
}

func (s *Store) probe(ctx context.Context, table string) bool {
	c := s.schema[table]
	ok := s.HasColumn(ctx, table, createdAtColumn)
	c.ready.Store(ok)
	c.lastProbe.Store(s.now().UnixNano())
	if !ok {
		s.logger.Warnf("Table %s is not ready, sample data will be served", table)
	}

	return ok
}
