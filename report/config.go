package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/fonts"
	"github.com/wudi/plantreport/layout"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("report: invalid configuration")
	// ErrUnknownKind is returned by ParseKind for unsupported report kinds.
	ErrUnknownKind = errors.New("report: unknown report kind")
)

const (
	DefaultOrganization = "ALIVUS LIFE SCIENCES LIMITED ANKLESHWAR"
	DefaultNoDataText   = "No records found for the selected period."
	DefaultMaxColumns   = 8
	DefaultLanguage     = "en-IN"
)

// Kind names a report family. It labels metrics and picks the preset.
type Kind string

const (
	KindProcess Kind = "process"
	KindAudit   Kind = "audit"
	KindAlarm   Kind = "alarm"
)

// Kinds lists the supported report kinds.
func Kinds() []Kind { return []Kind{KindProcess, KindAudit, KindAlarm} }

// ParseKind resolves a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Geometry fixes the page size, margins and the header/footer anchor
// positions. Distances named *Top are measured down from the top edge of the
// page; all values are in points.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margins    layout.Margins

	LogoX    float64
	LogoTop  float64 // lower edge of the logo
	LogoSize float64

	OrganizationTop float64
	TitleTop        float64
	ParamsTop       float64
	ParamsLeading   float64

	FooterBaseline     float64
	FooterInset        float64
	PageNumberBaseline float64
}

// DefaultGeometry is A4 portrait with room for the report header.
func DefaultGeometry() Geometry {
	return Geometry{
		PageWidth:  builder.A4Width,
		PageHeight: builder.A4Height,
		Margins: layout.Margins{
			Top:    builder.Mm(50),
			Bottom: builder.Mm(20),
			Left:   builder.Mm(10),
			Right:  builder.Mm(10),
		},
		LogoX:              builder.Mm(15),
		LogoTop:            builder.Mm(25),
		LogoSize:           60,
		OrganizationTop:    builder.Mm(20),
		TitleTop:           builder.Mm(32),
		ParamsTop:          builder.Mm(38),
		ParamsLeading:      builder.Mm(5),
		FooterBaseline:     builder.Mm(10),
		FooterInset:        builder.Mm(10),
		PageNumberBaseline: builder.Mm(5),
	}
}

// Frame returns the content frame left inside the margins.
func (g Geometry) Frame() layout.Frame {
	return layout.PageTemplate{Width: g.PageWidth, Height: g.PageHeight, Margins: g.Margins}.Frame()
}

// Typography names the fonts and sizes of the page furniture.
type Typography struct {
	Regular          string
	Bold             string
	OrganizationSize float64
	TitleSize        float64
	ParamsSize       float64
	FooterSize       float64
	NoDataSize       float64
	// LineHeight multiplies the font size to give the line advance.
	LineHeight float64
}

func DefaultTypography() Typography {
	return Typography{
		Regular:          fonts.Helvetica,
		Bold:             fonts.HelveticaBold,
		OrganizationSize: 16,
		TitleSize:        14,
		ParamsSize:       9,
		FooterSize:       8,
		NoDataSize:       10,
		LineHeight:       1.2,
	}
}

// ColumnStyle overrides the width and alignment of one named column. A zero
// Width takes an equal share of the frame width left by fixed columns.
type ColumnStyle struct {
	Width float64
	Align builder.HAlign
}

// TableStyle controls the data table.
type TableStyle struct {
	HeaderFontSize   float64
	BodyFontSize     float64
	Padding          float64
	GridWidth        float64
	GridColor        builder.Color
	HeaderBackground builder.Color
	BodyBackground   builder.Color
	Align            builder.HAlign
	// Columns pins widths per column name. When empty, widths follow the
	// content and the table is centred in the frame.
	Columns map[string]ColumnStyle
}

// Config holds every layout constant of a report. It is copied by
// NewAssembler and never changed afterwards.
type Config struct {
	Kind              Kind
	Title             string
	Organization      string
	LogoPath          string
	Geometry          Geometry
	Typography        Typography
	Table             TableStyle
	Units             UnitTable
	MaxColumnsPerPage int
	// ShowBatchID adds the BATCH ID line to the parameter block.
	ShowBatchID bool
	// NoDataText is drawn under the header when the result has no rows.
	// Empty disables it.
	NoDataText string
	// Language is written as the document /Lang.
	Language string
}

func (c Config) clone() Config {
	cp := c
	cp.Units = append(UnitTable(nil), c.Units...)
	if c.Table.Columns != nil {
		cp.Table.Columns = make(map[string]ColumnStyle, len(c.Table.Columns))
		for k, v := range c.Table.Columns {
			cp.Table.Columns[k] = v
		}
	}
	return cp
}

// Validate reports every invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.Kind == "" {
		errs = append(errs, errors.New("kind is required"))
	}
	if c.MaxColumnsPerPage < 1 {
		errs = append(errs, fmt.Errorf("max columns per page must be >= 1, got %d", c.MaxColumnsPerPage))
	}
	g := c.Geometry
	if g.PageWidth <= 0 || g.PageHeight <= 0 {
		errs = append(errs, fmt.Errorf("page size %gx%g must be positive", g.PageWidth, g.PageHeight))
	} else if f := g.Frame(); f.Width <= 0 || f.Height <= 0 {
		errs = append(errs, fmt.Errorf("margins leave a %gx%g frame", f.Width, f.Height))
	}
	m := g.Margins
	if m.Top < 0 || m.Bottom < 0 || m.Left < 0 || m.Right < 0 {
		errs = append(errs, errors.New("margins must not be negative"))
	}
	t := c.Typography
	for _, name := range []string{t.Regular, t.Bold} {
		if _, ok := fonts.Standard(name); !ok {
			errs = append(errs, fmt.Errorf("font %q is not a supported standard font", name))
		}
	}
	for _, size := range []float64{t.OrganizationSize, t.TitleSize, t.ParamsSize, t.FooterSize, t.NoDataSize,
		c.Table.HeaderFontSize, c.Table.BodyFontSize} {
		if size <= 0 {
			errs = append(errs, fmt.Errorf("font size %g must be positive", size))
			break
		}
	}
	if t.LineHeight < 1 {
		errs = append(errs, fmt.Errorf("line height %g must be at least 1", t.LineHeight))
	}
	for name, col := range c.Table.Columns {
		if col.Width < 0 {
			errs = append(errs, fmt.Errorf("column %q has negative width", name))
		}
	}
	for i, r := range c.Units {
		if r.Pattern == "" {
			errs = append(errs, fmt.Errorf("unit rule %d has an empty pattern", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
