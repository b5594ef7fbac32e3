// Package datasource reads process readings, audit trails and alarm events
// from the plant historian databases and shapes them into tabular results.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/tabular"
)

var (
	// ErrNoDatabase is returned when a query needs a database that is not
	// configured.
	ErrNoDatabase = errors.New("datasource: database not configured")
	// ErrUnknownTag is returned for a tag name outside the catalog.
	ErrUnknownTag = errors.New("datasource: unknown tag")
)

// NoUser is reported when the printing user cannot be determined.
const NoUser = "[no user logged in]"

// Display layouts for the pinned columns.
const (
	DateLayout = "02-01-2006"
	TimeLayout = "15:04"
)

// Queryer is the subset of *sql.DB used by Source.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Options carries the data-shaping settings.
type Options struct {
	Tables          config.Tables
	LocalOffset     time.Duration
	ServiceAccounts []string
	IgnoredAlarms   []string
}

// OptionsFrom copies the data section of the service configuration.
func OptionsFrom(cfg config.DataConfig) Options {
	return Options{
		Tables:          cfg.Tables,
		LocalOffset:     cfg.LocalOffset(),
		ServiceAccounts: append([]string(nil), cfg.ServiceAccounts...),
		IgnoredAlarms:   append([]string(nil), cfg.IgnoredAlarms...),
	}
}

// Source answers report queries against up to three logical databases.
// A Source is safe for concurrent use when its queryers are.
type Source struct {
	dbs    map[string]Queryer
	opts   Options
	logger observability.Logger
}

// New wraps already opened databases keyed by config.DBProcess, DBAudit and
// DBAlarm. Missing keys make the matching queries fail with ErrNoDatabase.
func New(dbs map[string]Queryer, opts Options, logger observability.Logger) *Source {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	cp := make(map[string]Queryer, len(dbs))
	for k, v := range dbs {
		if v != nil {
			cp[k] = v
		}
	}
	return &Source{dbs: cp, opts: opts, logger: logger}
}

// Open connects every configured database and returns the Source with a
// function closing the connections.
func Open(cfg config.Config, logger observability.Logger) (*Source, func() error, error) {
	opened := make([]*sql.DB, 0, len(cfg.Databases))
	closeAll := func() error {
		var errs []error
		for _, db := range opened {
			errs = append(errs, db.Close())
		}
		return errors.Join(errs...)
	}
	dbs := make(map[string]Queryer, len(cfg.Databases))
	for name, dc := range cfg.Databases {
		db, err := sql.Open(dc.Driver, dc.DSN)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("open %s database: %w", name, err)
		}
		if dc.MaxOpenConns > 0 {
			db.SetMaxOpenConns(dc.MaxOpenConns)
		}
		opened = append(opened, db)
		dbs[name] = db
	}
	return New(dbs, OptionsFrom(cfg.Data), logger), closeAll, nil
}

func (s *Source) db(name string) (Queryer, error) {
	q, ok := s.dbs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDatabase, name)
	}
	return q, nil
}

// Ping checks every configured database that supports it.
func (s *Source) Ping(ctx context.Context) error {
	var errs []error
	for name, q := range s.dbs {
		p, ok := q.(interface{ PingContext(context.Context) error })
		if !ok {
			continue
		}
		if err := p.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// local shifts a stored timestamp into plant local time.
func (s *Source) local(t time.Time) time.Time {
	return t.UTC().Add(s.opts.LocalOffset)
}

// stored converts a plant local time into the stored time base.
func (s *Source) stored(t time.Time) time.Time {
	return wall(t).Add(-s.opts.LocalOffset)
}

// wall keeps the clock reading of t and drops its zone.
func wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func splitStamp(t time.Time) (string, string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

func pinnedColumns() []tabular.Column {
	return []tabular.Column{
		{Name: tabular.DateColumn, Kind: tabular.KindDate},
		{Name: tabular.TimeColumn, Kind: tabular.KindTime},
	}
}

func quote(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
