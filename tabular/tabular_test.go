package tabular

import (
	"errors"
	"testing"
)

func TestNewValidatesInvariants(t *testing.T) {
	cases := []struct {
		name    string
		columns []Column
		rows    []Row
	}{
		{"missing pinned", []Column{{Name: "TT-102"}}, nil},
		{"pinned out of order", []Column{{Name: "Time"}, {Name: "Date"}}, nil},
		{"duplicate", []Column{{Name: "Date"}, {Name: "Time"}, {Name: "PT-118"}, {Name: "PT-118"}}, nil},
		{"missing value", []Column{{Name: "Date"}, {Name: "Time"}}, []Row{{"Date": "01-01-2024"}}},
		{"unknown column", []Column{{Name: "Date"}, {Name: "Time"}}, []Row{{"Date": "d", "Time": "t", "X": "1"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.columns, tc.rows); !errors.Is(err, ErrInvalidResult) {
				t.Fatalf("err = %v, want ErrInvalidResult", err)
			}
		})
	}
}

func TestResultIsImmutable(t *testing.T) {
	rows := []Row{{"Date": "01-01-2024", "Time": "10:00", "TT-102": "25.00"}}
	r, err := New([]Column{{Name: "Date"}, {Name: "Time"}, {Name: "TT-102"}}, rows)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	rows[0]["TT-102"] = "99.00"
	if got := r.Value(0, "TT-102"); got != "25.00" {
		t.Fatalf("result aliased caller row: %q", got)
	}
	cols := r.Columns()
	cols[2].Name = "changed"
	if r.DataColumns()[0] != "TT-102" {
		t.Fatalf("result aliased caller columns")
	}
}

func TestFromRecordsInfersKinds(t *testing.T) {
	r, err := FromRecords(
		[]string{"Date", "Time", "TT-102", "Batch ID", "PT-118"},
		[][]string{
			{"01-01-2024", "10:00", "25.00", "B-1", ""},
			{"01-01-2024", "10:01", "26.10", "B-1", "1.50"},
		},
	)
	if err != nil {
		t.Fatalf("from records: %v", err)
	}
	want := []Kind{KindDate, KindTime, KindNumeric, KindText, KindNumeric}
	for i, c := range r.Columns() {
		if c.Kind != want[i] {
			t.Errorf("column %s kind = %s, want %s", c.Name, c.Kind, want[i])
		}
	}
	if got := r.Record(1, []string{"Time", "PT-118"}); got[0] != "10:01" || got[1] != "1.50" {
		t.Fatalf("record = %v", got)
	}
	if r.Len() != 2 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestFromRecordsRejectsShortRecord(t *testing.T) {
	if _, err := FromRecords([]string{"Date", "Time"}, [][]string{{"x"}}); !errors.Is(err, ErrInvalidResult) {
		t.Fatalf("err = %v, want ErrInvalidResult", err)
	}
}
