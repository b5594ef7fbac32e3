package report

import (
	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/layout"
	"github.com/wudi/plantreport/tabular"
)

// RenderChunk builds the table for one column chunk: a header row with unit
// labels and one body row per result row. The header repeats on every page
// the table spans. A result without rows renders nothing.
func RenderChunk(chunk Chunk, result *tabular.Result, cfg Config) []layout.Flowable {
	if result == nil || result.Len() == 0 {
		return nil
	}
	cols := chunk.Columns()
	rows := make([][]string, 0, result.Len()+1)
	header := make([]string, len(cols))
	for i, name := range cols {
		header[i] = cfg.Units.Header(name)
	}
	rows = append(rows, header)
	for i := 0; i < result.Len(); i++ {
		rows = append(rows, result.Record(i, cols))
	}

	st := cfg.Table
	headerBg, bodyBg := st.HeaderBackground, st.BodyBackground
	table := &layout.Table{
		Rows:       rows,
		RepeatRows: 1,
		Widths:     columnWidths(cols, st),
		Style: layout.TableStyle{
			Font:             cfg.Typography.Regular,
			FontSize:         st.BodyFontSize,
			HeaderFont:       cfg.Typography.Regular,
			HeaderFontSize:   st.HeaderFontSize,
			Padding:          st.Padding,
			GridWidth:        st.GridWidth,
			GridColor:        st.GridColor,
			HeaderBackground: &headerBg,
			BodyBackground:   &bodyBg,
			Align:            columnAligns(cols, st),
		},
	}
	return []layout.Flowable{table}
}

// columnWidths returns nil (size from content) unless the style pins any of
// cols; unpinned columns then share the remaining width.
func columnWidths(cols []string, st TableStyle) []float64 {
	pinned := false
	widths := make([]float64, len(cols))
	for i, name := range cols {
		if cs, ok := st.Columns[name]; ok {
			pinned = true
			widths[i] = cs.Width
		}
	}
	if !pinned {
		return nil
	}
	return widths
}

func columnAligns(cols []string, st TableStyle) []builder.HAlign {
	aligns := make([]builder.HAlign, len(cols))
	for i, name := range cols {
		aligns[i] = st.Align
		if cs, ok := st.Columns[name]; ok && cs.Align != "" {
			aligns[i] = cs.Align
		}
	}
	return aligns
}
