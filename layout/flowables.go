package layout

import (
	"strings"

	"github.com/wudi/plantreport/builder"
)

// PageBreak ends the current page. It does nothing on a page that has no
// content yet, so consecutive breaks never produce blank pages.
type PageBreak struct{}

func (PageBreak) Flow(f *Flow) error {
	if f.Fresh() {
		return nil
	}
	return f.endPage()
}

// Paragraph is word-wrapped text set in a single font.
type Paragraph struct {
	Text     string
	Font     string
	FontSize float64
	Color    builder.Color
	Align    builder.HAlign
}

func (p Paragraph) Flow(f *Flow) error {
	size := p.FontSize
	if size <= 0 {
		size = 10
	}
	frame := f.Frame()
	lineH := f.LineHeight(size)
	for _, line := range wrapText(f, p.Text, p.Font, size, frame.Width) {
		if lineH > f.Remaining() && !f.Fresh() {
			if err := f.NewPage(); err != nil {
				return err
			}
		}
		x := frame.X
		switch p.Align {
		case builder.HAlignCenter:
			x = frame.X + frame.Width/2
		case builder.HAlignRight:
			x = frame.X + frame.Width
		}
		f.Page().DrawText(line, x, baseline(f.Cursor(), lineH, size), builder.TextOptions{
			Font:     p.Font,
			FontSize: size,
			Color:    p.Color,
			Align:    p.Align,
		})
		f.Advance(lineH)
	}
	return nil
}

// baseline places text of the given size vertically centred in a line box
// whose top edge is at top.
func baseline(top, lineH, size float64) float64 {
	return top - lineH/2 - size*0.35
}

// wrapText splits text on explicit newlines and then greedily on spaces so
// that no line exceeds width. Words wider than width stay on their own line.
func wrapText(f *Flow, text, font string, size, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if f.Measure(candidate, font, size) <= width {
				line = candidate
				continue
			}
			out = append(out, line)
			line = w
		}
		out = append(out, line)
	}
	return out
}
