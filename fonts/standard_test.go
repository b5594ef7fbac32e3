package fonts

import (
	"math"
	"testing"
)

func TestStandardWidths(t *testing.T) {
	m, ok := Standard(Helvetica)
	if !ok {
		t.Fatalf("Helvetica metrics missing")
	}
	// "Page" = P(667) a(556) g(556) e(556) = 2335
	if got := m.Width("Page", 10); math.Abs(got-23.35) > 1e-9 {
		t.Fatalf("width(Page) = %v, want 23.35", got)
	}
	bold, _ := Standard(HelveticaBold)
	if bold.Width("Page", 10) <= m.Width("Page", 10) {
		t.Fatalf("bold should be wider than regular")
	}
	if _, ok := Standard("Comic Sans"); ok {
		t.Fatalf("unexpected metrics for unknown font")
	}
}

func TestEncodeWinAnsi(t *testing.T) {
	got := Encode("25°C ✓")
	want := []byte{'2', '5', 0xB0, 'C', ' ', '?'}
	if string(got) != string(want) {
		t.Fatalf("Encode = %v, want %v", got, want)
	}
}
