// Package tabular holds the immutable, already formatted result set that the
// report renderer consumes.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidResult reports a result that breaks the table invariants.
var ErrInvalidResult = errors.New("tabular: invalid result")

// Pinned column names. They lead every result and every rendered chunk.
const (
	DateColumn = "Date"
	TimeColumn = "Time"
)

// Kind is the inferred type of a column's values.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindDate
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	default:
		return "text"
	}
}

// Column describes one named column.
type Column struct {
	Name string
	Kind Kind
}

// Row maps column name to display string.
type Row map[string]string

// Result is an ordered set of columns and rows.
type Result struct {
	columns []Column
	rows    []Row
}

// New validates and copies columns and rows into a Result.
func New(columns []Column, rows []Row) (*Result, error) {
	if len(columns) < 2 || columns[0].Name != DateColumn || columns[1].Name != TimeColumn {
		return nil, fmt.Errorf("%w: columns must start with %s, %s", ErrInvalidResult, DateColumn, TimeColumn)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: empty column name", ErrInvalidResult)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidResult, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	r := &Result{
		columns: append([]Column(nil), columns...),
		rows:    make([]Row, len(rows)),
	}
	for i, row := range rows {
		cp := make(Row, len(columns))
		for _, c := range columns {
			v, ok := row[c.Name]
			if !ok {
				return nil, fmt.Errorf("%w: row %d has no value for %q", ErrInvalidResult, i, c.Name)
			}
			cp[c.Name] = v
		}
		if len(row) != len(columns) {
			for name := range row {
				if _, ok := seen[name]; !ok {
					return nil, fmt.Errorf("%w: row %d has unknown column %q", ErrInvalidResult, i, name)
				}
			}
		}
		r.rows[i] = cp
	}
	return r, nil
}

// FromRecords builds a Result from a header and positional records, the
// shape produced by SQL scans and CSV readers. Column kinds are inferred.
func FromRecords(header []string, records [][]string) (*Result, error) {
	rows := make([]Row, len(records))
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("%w: record %d has %d fields, want %d", ErrInvalidResult, i, len(rec), len(header))
		}
		row := make(Row, len(header))
		for j, name := range header {
			row[name] = rec[j]
		}
		rows[i] = row
	}
	columns := make([]Column, len(header))
	for j, name := range header {
		values := make([]string, len(records))
		for i, rec := range records {
			values[i] = rec[j]
		}
		columns[j] = Column{Name: name, Kind: InferKind(name, values)}
	}
	return New(columns, rows)
}

// InferKind guesses a column kind from its name and values.
func InferKind(name string, values []string) Kind {
	switch name {
	case DateColumn:
		return KindDate
	case TimeColumn:
		return KindTime
	}
	numeric := false
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return KindText
		}
		numeric = true
	}
	if numeric {
		return KindNumeric
	}
	return KindText
}

// Columns returns a copy of the column descriptors.
func (r *Result) Columns() []Column { return append([]Column(nil), r.columns...) }

// ColumnNames returns all column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

// DataColumns returns the names of the non-pinned columns in order.
func (r *Result) DataColumns() []string { return r.ColumnNames()[2:] }

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.rows) }

// Value returns the cell at row i for column name.
func (r *Result) Value(i int, name string) string { return r.rows[i][name] }

// Record returns the values of row i for the given columns.
func (r *Result) Record(i int, names []string) []string {
	out := make([]string, len(names))
	for j, n := range names {
		out[j] = r.rows[i][n]
	}
	return out
}
