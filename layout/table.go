package layout

import (
	"fmt"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/observability"
)

// TableStyle controls how a Table is drawn.
type TableStyle struct {
	Font             string
	FontSize         float64
	HeaderFont       string
	HeaderFontSize   float64
	Padding          float64
	GridWidth        float64
	GridColor        builder.Color
	HeaderBackground *builder.Color
	BodyBackground   *builder.Color
	// Align holds per-column alignment; missing entries are centred.
	Align []builder.HAlign
}

// Table is a grid of text cells. The first RepeatRows rows form the header
// and are redrawn at the top of every page the table spans. Rows are split
// across pages, never within a row.
type Table struct {
	// Widths fixes column widths in points. Nil sizes columns from their
	// content; a zero entry takes an equal share of the unused frame width.
	Widths     []float64
	Rows       [][]string
	RepeatRows int
	Style      TableStyle
}

type tableLayout struct {
	widths  []float64
	lines   [][][]string
	heights []float64
	left    float64
	width   float64
}

func (t *Table) Flow(f *Flow) error {
	if len(t.Rows) == 0 {
		return nil
	}
	cols := len(t.Rows[0])
	for i, row := range t.Rows {
		if len(row) != cols {
			return fmt.Errorf("table row %d has %d cells, want %d", i, len(row), cols)
		}
	}
	if t.Widths != nil && len(t.Widths) != cols {
		return fmt.Errorf("table has %d widths for %d columns", len(t.Widths), cols)
	}
	lay := t.layout(f, cols)

	repeat := t.RepeatRows
	if repeat > len(t.Rows) {
		repeat = len(t.Rows)
	}
	headerH := 0.0
	for _, h := range lay.heights[:repeat] {
		headerH += h
	}

	var seg []float64 // row boundaries drawn on the current page
	drawRow := func(i int) {
		if seg == nil {
			seg = append(seg, f.Cursor())
		}
		t.drawRow(f, lay, i, i < repeat)
		f.Advance(lay.heights[i])
		seg = append(seg, f.Cursor())
	}
	closeSegment := func() {
		t.drawGrid(f, lay, seg)
		seg = nil
	}
	drawHeader := func() {
		for i := 0; i < repeat; i++ {
			drawRow(i)
		}
	}

	first := headerH
	if repeat < len(t.Rows) {
		first += lay.heights[repeat]
	}
	if first > f.Remaining() && !f.Fresh() {
		if err := f.NewPage(); err != nil {
			return err
		}
	}
	drawHeader()
	bodyOnPage := 0
	for i := repeat; i < len(t.Rows); i++ {
		h := lay.heights[i]
		if h > f.Remaining() && bodyOnPage > 0 {
			closeSegment()
			if err := f.NewPage(); err != nil {
				return err
			}
			drawHeader()
			bodyOnPage = 0
		}
		if h > f.Remaining() {
			f.Logger().Debug("table row taller than frame", observability.Int("row", i), observability.Int("height", int(h)))
		}
		drawRow(i)
		bodyOnPage++
	}
	closeSegment()
	return nil
}

func (t *Table) layout(f *Flow, cols int) tableLayout {
	st := t.Style
	frame := f.Frame()
	natural := make([]float64, cols)
	for i, row := range t.Rows {
		font, size := t.cellFont(i)
		for c, text := range row {
			for _, line := range wrapText(f, text, font, size, 1e9) {
				if w := f.Measure(line, font, size) + 2*st.Padding; w > natural[c] {
					natural[c] = w
				}
			}
		}
	}

	widths := make([]float64, cols)
	if t.Widths == nil {
		total := 0.0
		for _, w := range natural {
			total += w
		}
		scale := 1.0
		if total > frame.Width {
			scale = frame.Width / total
		}
		for c, w := range natural {
			widths[c] = w * scale
		}
	} else {
		fixed, flexible := 0.0, 0
		for _, w := range t.Widths {
			if w > 0 {
				fixed += w
			} else {
				flexible++
			}
		}
		share := 0.0
		if flexible > 0 && frame.Width > fixed {
			share = (frame.Width - fixed) / float64(flexible)
		}
		for c, w := range t.Widths {
			if w > 0 {
				widths[c] = w
			} else {
				widths[c] = share
			}
		}
	}

	lay := tableLayout{
		widths:  widths,
		lines:   make([][][]string, len(t.Rows)),
		heights: make([]float64, len(t.Rows)),
	}
	for _, w := range widths {
		lay.width += w
	}
	lay.left = frame.X + (frame.Width-lay.width)/2
	if lay.width > frame.Width {
		lay.left = frame.X
	}
	for i, row := range t.Rows {
		font, size := t.cellFont(i)
		lay.lines[i] = make([][]string, cols)
		maxLines := 1
		for c, text := range row {
			lines := wrapText(f, text, font, size, widths[c]-2*st.Padding)
			lay.lines[i][c] = lines
			if len(lines) > maxLines {
				maxLines = len(lines)
			}
		}
		lay.heights[i] = float64(maxLines)*f.LineHeight(size) + 2*st.Padding
	}
	return lay
}

func (t *Table) cellFont(row int) (string, float64) {
	st := t.Style
	size := st.FontSize
	if size <= 0 {
		size = 8
	}
	if row < t.RepeatRows {
		font, hsize := st.Font, size
		if st.HeaderFont != "" {
			font = st.HeaderFont
		}
		if st.HeaderFontSize > 0 {
			hsize = st.HeaderFontSize
		}
		return font, hsize
	}
	return st.Font, size
}

func (t *Table) drawRow(f *Flow, lay tableLayout, row int, header bool) {
	st := t.Style
	top := f.Cursor()
	h := lay.heights[row]
	bg := st.BodyBackground
	if header {
		bg = st.HeaderBackground
	}
	if bg != nil {
		f.Page().DrawRectangle(lay.left, top-h, lay.width, h, builder.RectOptions{Fill: true, FillColor: *bg})
	}
	font, size := t.cellFont(row)
	lineH := f.LineHeight(size)
	x := lay.left
	for c, lines := range lay.lines[row] {
		w := lay.widths[c]
		align := builder.HAlignCenter
		if c < len(st.Align) && st.Align[c] != "" {
			align = st.Align[c]
		}
		anchor := x + w/2
		switch align {
		case builder.HAlignLeft:
			anchor = x + st.Padding
		case builder.HAlignRight:
			anchor = x + w - st.Padding
		}
		// vertically centre the cell's lines in the row
		lineTop := top - st.Padding - (h-2*st.Padding-float64(len(lines))*lineH)/2
		for _, line := range lines {
			f.Page().DrawText(line, anchor, baseline(lineTop, lineH, size), builder.TextOptions{
				Font:     font,
				FontSize: size,
				Align:    align,
			})
			lineTop -= lineH
		}
		x += w
	}
}

func (t *Table) drawGrid(f *Flow, lay tableLayout, bounds []float64) {
	st := t.Style
	if st.GridWidth <= 0 || len(bounds) < 2 {
		return
	}
	opts := builder.LineOptions{StrokeColor: st.GridColor, LineWidth: st.GridWidth}
	right := lay.left + lay.width
	for _, y := range bounds {
		f.Page().DrawLine(lay.left, y, right, y, opts)
	}
	top, bottom := bounds[0], bounds[len(bounds)-1]
	x := lay.left
	f.Page().DrawLine(x, top, x, bottom, opts)
	for _, w := range lay.widths {
		x += w
		f.Page().DrawLine(x, top, x, bottom, opts)
	}
}
