package report

import (
	"fmt"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/tabular"
)

// Audit and alarm column names shared with the data source.
const (
	auditMessageColumn = "MessageText"
	auditUserColumn    = "UserID"
	alarmColumn        = "Alarm"
)

func baseConfig(kind Kind, title string) Config {
	return Config{
		Kind:              kind,
		Title:             title,
		Organization:      DefaultOrganization,
		Geometry:          DefaultGeometry(),
		Typography:        DefaultTypography(),
		Units:             DefaultUnits(),
		MaxColumnsPerPage: DefaultMaxColumns,
		NoDataText:        DefaultNoDataText,
		Language:          DefaultLanguage,
		Table: TableStyle{
			HeaderFontSize:   9,
			BodyFontSize:     8,
			Padding:          3,
			GridWidth:        1,
			GridColor:        builder.Black,
			HeaderBackground: builder.WhiteSmoke,
			BodyBackground:   builder.White,
			Align:            builder.HAlignCenter,
		},
	}
}

// ProcessPreset renders sensor readings: every cell centred, tag columns
// chunked eight to a page block, widths from content.
func ProcessPreset() Config {
	c := baseConfig(KindProcess, "Process Parameter Report")
	c.ShowBatchID = true
	return c
}

// AuditPreset renders the audit trail with fixed column widths.
func AuditPreset() Config {
	c := baseConfig(KindAudit, "Audit Report")
	c.Table.BodyFontSize = 7
	c.Table.GridWidth = 0.5
	c.Table.GridColor = builder.Grey
	c.Table.Columns = map[string]ColumnStyle{
		tabular.DateColumn: {Width: builder.Mm(30)},
		tabular.TimeColumn: {Width: builder.Mm(20)},
		auditMessageColumn: {Width: builder.Mm(100), Align: builder.HAlignLeft},
		auditUserColumn:    {Width: builder.Mm(30)},
	}
	return c
}

// AlarmPreset renders alarm events; the message column takes the rest of
// the frame.
func AlarmPreset() Config {
	c := baseConfig(KindAlarm, "Alarm Report")
	c.Table.Columns = map[string]ColumnStyle{
		tabular.DateColumn: {Width: builder.Mm(30)},
		tabular.TimeColumn: {Width: builder.Mm(20)},
		alarmColumn:        {Width: 0, Align: builder.HAlignLeft},
	}
	return c
}

// Preset returns the built-in configuration for kind.
func Preset(kind Kind) (Config, error) {
	k, err := ParseKind(string(kind))
	if err != nil {
		return Config{}, err
	}
	switch k {
	case KindProcess:
		return ProcessPreset(), nil
	case KindAudit:
		return AuditPreset(), nil
	case KindAlarm:
		return AlarmPreset(), nil
	}
	return Config{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
