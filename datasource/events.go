package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/tabular"
)

// Audit and alarm column names.
const (
	MessageColumn = "MessageText"
	UserColumn    = "UserID"
	AlarmColumn   = "Alarm"
)

// AuditQuery selects audit trail entries in a plant local time window.
// With Interval above 1 only every Interval-th entry is kept, starting with
// the first.
type AuditQuery struct {
	Start    time.Time
	End      time.Time
	Interval int
}

// AlarmQuery selects alarm events in a plant local time window.
type AlarmQuery struct {
	Start time.Time
	End   time.Time
}

const auditSQL = `SELECT time_stmp, message_text, user_id
FROM %s
WHERE time_stmp BETWEEN $1 AND $2
	AND user_id IS NOT NULL
	AND user_id <> ALL($3)
ORDER BY time_stmp`

const alarmSQL = `SELECT event_time_stamp, message_text
FROM %s
WHERE event_time_stamp BETWEEN $1 AND $2
	AND message_text IS NOT NULL
	AND message_text <> ALL($3)
ORDER BY event_time_stamp`

const latestUserSQL = `SELECT user_id
FROM %s
WHERE user_id IS NOT NULL
	AND user_id <> ALL($1)
ORDER BY time_stmp DESC
LIMIT 1`

// AuditData returns Date, Time, MessageText and UserID rows, excluding
// service accounts.
func (s *Source) AuditData(ctx context.Context, q AuditQuery) (*tabular.Result, error) {
	db, err := s.db(config.DBAudit)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(auditSQL, quote(s.opts.Tables.Audit))
	rows, err := db.QueryContext(ctx, query, s.stored(q.Start), s.stored(q.End), pq.Array(s.opts.ServiceAccounts))
	if err != nil {
		return nil, fmt.Errorf("query audit data: %w", err)
	}
	defer rows.Close()

	columns := append(pinnedColumns(),
		tabular.Column{Name: MessageColumn, Kind: tabular.KindText},
		tabular.Column{Name: UserColumn, Kind: tabular.KindText})
	var out []tabular.Row
	for n := 1; rows.Next(); n++ {
		var (
			at        time.Time
			msg, user sql.NullString
		)
		if err := rows.Scan(&at, &msg, &user); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if !keepNth(n, q.Interval) {
			continue
		}
		date, clock := splitStamp(s.local(at))
		out = append(out, tabular.Row{
			tabular.DateColumn: date,
			tabular.TimeColumn: clock,
			MessageColumn:      msg.String,
			UserColumn:         user.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read audit rows: %w", err)
	}
	s.logger.Debug("audit data loaded", observability.Int("rows", len(out)))
	return tabular.New(columns, out)
}

// AlarmData returns Date, Time and Alarm rows, excluding the configured
// alarm-quality messages.
func (s *Source) AlarmData(ctx context.Context, q AlarmQuery) (*tabular.Result, error) {
	db, err := s.db(config.DBAlarm)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(alarmSQL, quote(s.opts.Tables.Alarm))
	rows, err := db.QueryContext(ctx, query, s.stored(q.Start), s.stored(q.End), pq.Array(s.opts.IgnoredAlarms))
	if err != nil {
		return nil, fmt.Errorf("query alarm data: %w", err)
	}
	defer rows.Close()

	columns := append(pinnedColumns(), tabular.Column{Name: AlarmColumn, Kind: tabular.KindText})
	var out []tabular.Row
	for rows.Next() {
		var (
			at  time.Time
			msg sql.NullString
		)
		if err := rows.Scan(&at, &msg); err != nil {
			return nil, fmt.Errorf("scan alarm row: %w", err)
		}
		date, clock := splitStamp(s.local(at))
		out = append(out, tabular.Row{
			tabular.DateColumn: date,
			tabular.TimeColumn: clock,
			AlarmColumn:        msg.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read alarm rows: %w", err)
	}
	s.logger.Debug("alarm data loaded", observability.Int("rows", len(out)))
	return tabular.New(columns, out)
}

// LatestUser returns the most recent non-service user in the audit trail.
// Failures are logged and reported as NoUser.
func (s *Source) LatestUser(ctx context.Context) string {
	user, err := s.latestUser(ctx)
	if err != nil {
		s.logger.Warn("could not fetch printing user", observability.Error("error", err))
		return NoUser
	}
	if user == "" {
		return NoUser
	}
	return user
}

func (s *Source) latestUser(ctx context.Context) (string, error) {
	db, err := s.db(config.DBAudit)
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf(latestUserSQL, quote(s.opts.Tables.Audit))
	rows, err := db.QueryContext(ctx, query, pq.Array(s.opts.ServiceAccounts))
	if err != nil {
		return "", fmt.Errorf("query latest user: %w", err)
	}
	defer rows.Close()
	var user string
	if rows.Next() {
		if err := rows.Scan(&user); err != nil {
			return "", fmt.Errorf("scan latest user: %w", err)
		}
	}
	return user, rows.Err()
}

// keepNth reports whether the n-th (1-based) row survives interval sampling.
func keepNth(n, interval int) bool {
	if interval < 2 {
		return true
	}
	return n%interval == 1
}
