package datasource

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/tabular"
)

// Tag is one process measurement point in the historian float table.
type Tag struct {
	Index int
	Name  string
}

// String tag indexes joined onto every reading timestamp.
const (
	userTagIndex  = 0
	batchTagIndex = 1
)

var catalog = []Tag{
	{2, "TT-102"}, {3, "TT-103"}, {4, "TT-104"}, {5, "TT-105"},
	{6, "TT-106"}, {7, "TT-107"}, {8, "TT-108"}, {9, "TT-109"},
	{10, "TT-110"}, {11, "TT-111"}, {12, "TT-112"}, {13, "TT-113"},
	{14, "TT-114"}, {15, "TT-130"}, {16, "TT-506"},
	{17, "PT-118"}, {18, "PT-119"}, {19, "PT-120"}, {20, "PT-121"},
	{21, "PT-122"}, {22, "PT-123"}, {23, "PT-124"}, {24, "PT-125"},
	{25, "PT-128"},
	{26, "TMF-101"}, {27, "TMF-102"}, {28, "TMF-103"}, {29, "TMF-104"},
	{30, "TMF-105"}, {31, "TMF-106"}, {32, "TMF-107"}, {33, "TMF-108"},
	{34, "MTR-101"}, {35, "MTR-102"}, {36, "MTR-103"}, {37, "MTR-104"},
	{38, "MTR-105"}, {39, "MTR-106"}, {40, "MTR-107"}, {41, "MTR-108"},
	{42, "MTR-109"},
	{43, "RLT-101"}, {44, "MFM-101"}, {45, "pH-101"}, {46, "pH-102"},
	{47, "OZ-101"},
}

// Tags returns the process tag catalog in historian order.
func Tags() []Tag { return append([]Tag(nil), catalog...) }

// LookupTag resolves a tag by its display name.
func LookupTag(name string) (Tag, bool) {
	for _, t := range catalog {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

// ProcessQuery selects process readings. Start and End are plant local
// times and bound the window inclusively. Interval keeps readings whose
// minute is a multiple of it; values below 2 keep every reading.
type ProcessQuery struct {
	Start    time.Time
	End      time.Time
	Tags     []string
	Interval int
}

// reading is one (timestamp, tag) cell of the float table.
type reading struct {
	At    time.Time
	Tag   int
	Value *float64
}

const processSQL = `SELECT s.date_and_time, f.tag_index, MAX(f.val)
FROM (
	SELECT date_and_time
	FROM %s
	WHERE tag_index IN (%d, %d)
	GROUP BY date_and_time
) AS s
JOIN %s AS f ON f.date_and_time = s.date_and_time
WHERE s.date_and_time BETWEEN $1 AND $2
	AND f.tag_index = ANY($3)
GROUP BY s.date_and_time, f.tag_index
ORDER BY s.date_and_time, f.tag_index`

func (s *Source) processSQL() string {
	t := s.opts.Tables
	return fmt.Sprintf(processSQL, quote(t.String), userTagIndex, batchTagIndex, quote(t.Float))
}

// ProcessData returns one row per reading timestamp with the pinned Date and
// Time columns followed by the selected tags in selection order. Values are
// formatted with two decimals; a tag without a reading is empty. Rows that
// collapse onto an already seen Date and Time are dropped.
func (s *Source) ProcessData(ctx context.Context, q ProcessQuery) (*tabular.Result, error) {
	tags := make([]Tag, 0, len(q.Tags))
	indexes := make([]int64, 0, len(q.Tags))
	for _, name := range q.Tags {
		t, ok := LookupTag(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTag, name)
		}
		tags = append(tags, t)
		indexes = append(indexes, int64(t.Index))
	}
	db, err := s.db(config.DBProcess)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, s.processSQL(), wall(q.Start), wall(q.End), pq.Array(indexes))
	if err != nil {
		return nil, fmt.Errorf("query process data: %w", err)
	}
	defer rows.Close()

	var readings []reading
	for rows.Next() {
		var (
			r   reading
			val *float64
		)
		if err := rows.Scan(&r.At, &r.Tag, &val); err != nil {
			return nil, fmt.Errorf("scan process row: %w", err)
		}
		r.Value = val
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read process rows: %w", err)
	}
	res, err := pivot(readings, tags, q.Interval)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("process data loaded",
		observability.Int("readings", len(readings)),
		observability.Int("rows", res.Len()),
		observability.Int("tags", len(tags)))
	return res, nil
}

// pivot folds timestamp-ordered readings into one row per timestamp.
func pivot(readings []reading, tags []Tag, interval int) (*tabular.Result, error) {
	columns := pinnedColumns()
	names := make(map[int]string, len(tags))
	for _, t := range tags {
		columns = append(columns, tabular.Column{Name: t.Name, Kind: tabular.KindNumeric})
		names[t.Index] = t.Name
	}

	var (
		rows []tabular.Row
		seen = make(map[string]bool)
		cur  tabular.Row
		at   time.Time
	)
	flush := func() {
		if cur == nil {
			return
		}
		date, clock := cur[tabular.DateColumn], cur[tabular.TimeColumn]
		key := date + " " + clock
		if !seen[key] && keepMinute(at, interval) {
			seen[key] = true
			rows = append(rows, cur)
		}
		cur = nil
	}
	for _, r := range readings {
		ts := wall(r.At)
		if cur == nil || !ts.Equal(at) {
			flush()
			at = ts
			cur = tabular.Row{}
			cur[tabular.DateColumn], cur[tabular.TimeColumn] = splitStamp(ts)
			for _, t := range tags {
				cur[t.Name] = ""
			}
		}
		name, ok := names[r.Tag]
		if !ok || r.Value == nil {
			continue
		}
		cur[name] = strconv.FormatFloat(*r.Value, 'f', 2, 64)
	}
	flush()
	return tabular.New(columns, rows)
}

func keepMinute(t time.Time, interval int) bool {
	if interval < 2 {
		return true
	}
	return t.Minute()%interval == 0
}
