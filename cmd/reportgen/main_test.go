package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wudi/plantreport/tabular"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rows.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	path := writeFile(t, "Date,Time,TT-102,PT-118\n01-03-2024, 10:00,25.46,1.50\n01-03-2024,10:10,25.51,\n")
	res, err := readCSV(path)
	if err != nil {
		t.Fatalf("readCSV: %v", err)
	}
	if res.Len() != 2 || res.Value(0, "Time") != "10:00" || res.Value(1, "PT-118") != "" {
		t.Fatalf("unexpected rows: %d", res.Len())
	}
	if got := res.DataColumns(); len(got) != 2 || got[0] != "TT-102" {
		t.Fatalf("data columns = %v", got)
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	if _, err := readCSV(writeFile(t, "")); err == nil {
		t.Fatal("expected error for empty file")
	}
	if _, err := readCSV(writeFile(t, "Time,Date\n10:00,01-03-2024\n")); !errors.Is(err, tabular.ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult, got %v", err)
	}
}
