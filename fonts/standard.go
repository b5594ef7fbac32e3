package fonts

import (
	"golang.org/x/text/encoding/charmap"
)

// Standard font names used by the report renderer.
const (
	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// Metrics holds advance widths (1/1000 em) for a standard-14 font under
// WinAnsiEncoding.
type Metrics struct {
	BaseFont string
	Ascent   int
	Descent  int
	widths   map[byte]int
	missing  int
}

// Standard returns built-in metrics for a standard-14 font.
func Standard(baseFont string) (*Metrics, bool) {
	m, ok := standardMetrics[baseFont]
	return m, ok
}

// Width returns the advance width of text set at size points.
func (m *Metrics) Width(text string, size float64) float64 {
	total := 0
	for _, b := range Encode(text) {
		if w, ok := m.widths[b]; ok {
			total += w
		} else {
			total += m.missing
		}
	}
	return float64(total) * size / 1000
}

// Encode converts UTF-8 text to WinAnsi bytes. Runes outside the code page
// become '?'.
func Encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}

func asciiWidths(ws [95]int, extra map[byte]int) map[byte]int {
	m := make(map[byte]int, len(ws)+len(extra))
	for i, w := range ws {
		m[byte(32+i)] = w
	}
	for b, w := range extra {
		m[b] = w
	}
	return m
}

var standardMetrics = map[string]*Metrics{
	Helvetica: {
		BaseFont: Helvetica,
		Ascent:   718,
		Descent:  -207,
		missing:  556,
		widths: asciiWidths([95]int{
			278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278, // space../
			556, 556, 556, 556, 556, 556, 556, 556, 556, 556, // 0-9
			278, 278, 584, 584, 584, 556, 1015, // :..@
			667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, // A-M
			722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, // N-Z
			278, 278, 278, 469, 556, 333, // [..`
			556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, // a-m
			556, 556, 556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, // n-z
			334, 260, 334, 584, // {..~
		}, map[byte]int{0xB0: 400, 0xB5: 556, 0xB7: 278}),
	},
	HelveticaBold: {
		BaseFont: HelveticaBold,
		Ascent:   718,
		Descent:  -207,
		missing:  611,
		widths: asciiWidths([95]int{
			278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
			556, 556, 556, 556, 556, 556, 556, 556, 556, 556,
			333, 333, 584, 584, 584, 611, 975,
			722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833,
			722, 778, 667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611,
			333, 278, 333, 584, 556, 333,
			556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889,
			611, 611, 611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500,
			389, 280, 389, 584,
		}, map[byte]int{0xB0: 400, 0xB5: 611, 0xB7: 278}),
	},
}
