package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// DefaultReprobeInterval is how often a missing schema capability is checked again
const DefaultReprobeInterval = 30 * time.Second

// Config defines fields used for parsing from environment variables.
// URL wins over the separate fields when set.
type Config struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     uint16 `env:"DB_PORT" envDefault:"5432"`
	DBName   string `env:"DB_NAME" envDefault:"gurujiride"`
}

// DSN returns connection string accepted by pgxpool.ParseConfig
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	add("user", c.User)
	add("password", c.Password)
	add("host", c.Host)
	if c.Port != 0 {
		add("port", strconv.FormatUint(uint64(c.Port), 10))
	}
	add("dbname", c.DBName)
	add("sslmode", "disable")

	return strings.Join(parts, " ")
}

// options holds everything an Option may alter during new Store construction
type options struct {
	pool    *pgxpool.Config
	reprobe time.Duration
	now     func() time.Time
}

// Option alters the default configuration used during new Store construction
type Option interface {
	apply(*options)
}

type optionFunc func(o *options)

func (f optionFunc) apply(o *options) { f(o) }

// ConnectionTimeout sets timeout for connection to be established
func ConnectionTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.pool.ConnConfig.ConnectTimeout = d
	})
}

// MaxConns limits the size of the connection pool
func MaxConns(n int32) Option {
	return optionFunc(func(o *options) {
		o.pool.MaxConns = n
	})
}

// SearchPath sets postgres search_path for every pooled connection
func SearchPath(schema string) Option {
	return optionFunc(func(o *options) {
		o.pool.ConnConfig.RuntimeParams["search_path"] = schema
	})
}

// ReprobeInterval sets how often a missing schema capability is probed again, zero disables re-probing
func ReprobeInterval(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.reprobe = d
	})
}

// WithClock replaces time.Now as the source of creation timestamps and "now" in listings
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}
