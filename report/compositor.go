package report

import (
	"time"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/fonts"
	"github.com/wudi/plantreport/ir/semantic"
	"github.com/wudi/plantreport/layout"
)

// PrintedDateLayout formats the footer timestamp.
const PrintedDateLayout = "02/01/2006 15:04"

// Compositor draws the fixed header and footer on every physical page. The
// page number slot at the bottom right is left to the numbering stamper.
type Compositor struct {
	cfg     Config
	params  Params
	printed time.Time
	logo    *semantic.Image
}

// NewCompositor prepares the page furniture for one document. logo may be
// nil.
func NewCompositor(cfg Config, params Params, printed time.Time, logo *semantic.Image) *Compositor {
	return &Compositor{cfg: cfg, params: params.Clone(), printed: printed, logo: logo}
}

// DecoratePage implements layout.PageDecorator.
func (c *Compositor) DecoratePage(page builder.PageBuilder, info layout.PageInfo) {
	c.header(page, info.Width, info.Height)
	c.footer(page, info.Width)
}

func (c *Compositor) header(page builder.PageBuilder, w, h float64) {
	g, ty := c.cfg.Geometry, c.cfg.Typography
	if c.logo != nil {
		page.DrawImage(c.logo, g.LogoX, h-g.LogoTop, g.LogoSize, g.LogoSize, builder.ImageOptions{Interpolate: true})
	}
	page.DrawText(c.cfg.Organization, w/2, h-g.OrganizationTop, builder.TextOptions{
		Font: ty.Bold, FontSize: ty.OrganizationSize, Align: builder.HAlignCenter,
	})
	page.DrawText(c.cfg.Title, w/2, h-g.TitleTop, builder.TextOptions{
		Font: ty.Bold, FontSize: ty.TitleSize, Align: builder.HAlignCenter,
	})

	lines := c.paramLines()
	widest := 0.0
	if m, ok := fonts.Standard(ty.Regular); ok {
		for _, l := range lines {
			widest = max(widest, m.Width(l, ty.ParamsSize))
		}
	}
	x := w - g.Margins.Right - widest
	for i, l := range lines {
		page.DrawText(l, x, h-g.ParamsTop-float64(i)*g.ParamsLeading, builder.TextOptions{
			Font: ty.Regular, FontSize: ty.ParamsSize,
		})
	}
}

func (c *Compositor) paramLines() []string {
	lines := []string{
		"FROM DATE: " + c.params.Get(ParamFromDate),
		"TO DATE: " + c.params.Get(ParamToDate),
	}
	if c.cfg.ShowBatchID {
		lines = append(lines, "BATCH ID: "+c.params.Get(ParamBatchID))
	}
	return lines
}

func (c *Compositor) footer(page builder.PageBuilder, w float64) {
	g, ty := c.cfg.Geometry, c.cfg.Typography
	opts := builder.TextOptions{Font: ty.Regular, FontSize: ty.FooterSize}
	y := g.FooterBaseline

	page.DrawText("Printed By: "+c.params.Get(ParamPrintedBy), g.FooterInset, y, opts)

	opts.Align = builder.HAlignCenter
	page.DrawText("Printed Date: "+c.printed.Format(PrintedDateLayout), w/2, y, opts)

	opts.Align = builder.HAlignRight
	page.DrawText("Verified By:", w-g.FooterInset, y, opts)
}
