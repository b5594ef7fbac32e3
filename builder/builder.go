package builder

import (
	"fmt"

	"github.com/wudi/plantreport/contentstream"
	"github.com/wudi/plantreport/fonts"
	"github.com/wudi/plantreport/ir/semantic"
)

// A4 portrait dimensions in points.
const (
	A4Width  = 595.2755905511812
	A4Height = 841.8897637795277
)

// Mm converts millimetres to points.
func Mm(v float64) float64 { return v * 72 / 25.4 }

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	// Scratch returns a page that shares the builder's font and image
	// registries but is not part of the document.
	Scratch(width, height float64) PageBuilder
	AddPage(page *semantic.Page) PageBuilder
	SetInfo(info *semantic.DocumentInfo) PDFBuilder
	SetLanguage(lang string) PDFBuilder
	RegisterFont(name string, font *semantic.Font) PDFBuilder
	MeasureText(text, font string, size float64) float64
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	DrawImage(img *semantic.Image, x, y, width, height float64, opts ImageOptions) PageBuilder
	DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder
	DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder
	Page() *semantic.Page
	Finish() PDFBuilder
}

// TextOptions configures text drawing. X is the anchor for Align.
type TextOptions struct {
	Font     string
	FontSize float64
	Color    Color
	Align    HAlign
}

// PathOptions configures path drawing.
type PathOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	LineJoin    contentstream.LineJoin
	DashPattern []float64
	Fill        bool
	Stroke      bool
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions = PathOptions

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	DashPattern []float64
}

// ImageOptions configures image drawing.
type ImageOptions struct {
	Interpolate bool
}

// Color represents an RGB color. The zero value is black.
type Color struct {
	R, G, B float64
}

var (
	Black      = Color{}
	White      = Color{R: 1, G: 1, B: 1}
	Grey       = Color{R: 0.5, G: 0.5, B: 0.5}
	WhiteSmoke = Color{R: 0.9608, G: 0.9608, B: 0.9608}
)

// HAlign controls horizontal text alignment relative to the anchor.
type HAlign string

const (
	HAlignLeft   HAlign = "left"
	HAlignCenter HAlign = "center"
	HAlignRight  HAlign = "right"
)

type builderImpl struct {
	pages        []*semantic.Page
	info         *semantic.DocumentInfo
	lang         string
	fonts        map[string]*semantic.Font
	baseToRes    map[string]string
	defaultFont  string
	xobjectCount int
	xobjectNames map[*semantic.Image]string
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
}

const (
	defaultFontResource = "F1"
	defaultFontSize     = 12
)

// NewBuilder constructs a PDFBuilder with Helvetica registered as F1.
func NewBuilder() PDFBuilder {
	b := &builderImpl{
		fonts:     make(map[string]*semantic.Font),
		baseToRes: make(map[string]string),
	}
	b.RegisterFont(defaultFontResource, &semantic.Font{BaseFont: fonts.Helvetica})
	return b
}

func newPage(w, h float64) *semantic.Page {
	return &semantic.Page{MediaBox: semantic.Rectangle{URX: w, URY: h}}
}

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	return b.AddPage(newPage(w, h))
}

func (b *builderImpl) Scratch(w, h float64) PageBuilder {
	return &pageBuilderImpl{parent: b, page: newPage(w, h)}
}

func (b *builderImpl) AddPage(p *semantic.Page) PageBuilder {
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) SetInfo(info *semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

func (b *builderImpl) SetLanguage(lang string) PDFBuilder {
	b.lang = lang
	return b
}

func (b *builderImpl) RegisterFont(name string, font *semantic.Font) PDFBuilder {
	if font == nil || name == "" {
		return b
	}
	b.fonts[name] = font
	if _, ok := b.baseToRes[font.BaseFont]; !ok {
		b.baseToRes[font.BaseFont] = name
	}
	if b.defaultFont == "" {
		b.defaultFont = name
	}
	return b
}

func (b *builderImpl) MeasureText(text, font string, size float64) float64 {
	f, _ := b.fontForName(font)
	if size <= 0 {
		size = defaultFontSize
	}
	if m, ok := fonts.Standard(f.BaseFont); ok {
		return m.Width(text, size)
	}
	return float64(len([]rune(text))) * size * 0.5
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	for i, p := range b.pages {
		if p == nil {
			return nil, fmt.Errorf("page %d is nil", i)
		}
		p.Index = i
	}
	return &semantic.Document{
		Pages: b.pages,
		Info:  b.info,
		Lang:  b.lang,
	}, nil
}

func (p *pageBuilderImpl) Page() *semantic.Page { return p.page }

func (p *pageBuilderImpl) Finish() PDFBuilder { return p.parent }

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	if text == "" {
		return p
	}
	font, fontName := p.parent.fontForName(opts.Font)
	res := p.ensureResources()
	if _, ok := res.Fonts[fontName]; !ok {
		res.Fonts[fontName] = font
	}
	size := opts.FontSize
	if size <= 0 {
		size = defaultFontSize
	}
	switch opts.Align {
	case HAlignCenter:
		x -= p.parent.MeasureText(text, fontName, size) / 2
	case HAlignRight:
		x -= p.parent.MeasureText(text, fontName, size)
	}

	ops := p.ensureContentOps()
	*ops = append(*ops,
		semantic.Op("BT"),
		semantic.Op("Tf", semantic.NameOperand{Value: fontName}, semantic.NumberOperand{Value: size}),
		semantic.Op("Tm", semantic.Numbers(1, 0, 0, 1, x, y)...),
	)
	if opts.Color != Black {
		*ops = append(*ops, colorOp(opts.Color, false))
	}
	*ops = append(*ops,
		semantic.Op("Tj", semantic.StringOperand{Value: fonts.Encode(text)}),
		semantic.Op("ET"),
	)
	return p
}

func (p *pageBuilderImpl) DrawImage(img *semantic.Image, x, y, width, height float64, opts ImageOptions) PageBuilder {
	if img == nil {
		return p
	}
	res := p.ensureResources()
	name := p.parent.imageName(img)
	if _, exists := res.XObjects[name]; !exists {
		xobj := img
		if opts.Interpolate && !img.Interpolate {
			cp := *img
			cp.Interpolate = true
			xobj = &cp
		}
		res.XObjects[name] = xobj
	}
	w := width
	if w == 0 {
		w = float64(img.Width)
	}
	h := height
	if h == 0 {
		h = float64(img.Height)
	}
	ops := p.ensureContentOps()
	*ops = append(*ops,
		semantic.Op("q"),
		semantic.Op("cm", semantic.Numbers(w, 0, 0, h, x, y)...),
		semantic.Op("Do", semantic.NameOperand{Value: name}),
		semantic.Op("Q"),
	)
	return p
}

func (p *pageBuilderImpl) DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder {
	po := opts
	if !po.Stroke && !po.Fill {
		po.Stroke = true
	}
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Op("q"))
	applyPathState(ops, po)
	*ops = append(*ops,
		semantic.Op("re", semantic.Numbers(x, y, width, height)...),
		semantic.Op(paintOperator(po.Fill, po.Stroke)),
		semantic.Op("Q"),
	)
	return p
}

func (p *pageBuilderImpl) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder {
	ops := p.ensureContentOps()
	*ops = append(*ops, semantic.Op("q"))
	applyPathState(ops, PathOptions{
		StrokeColor: opts.StrokeColor,
		LineWidth:   opts.LineWidth,
		LineCap:     opts.LineCap,
		DashPattern: opts.DashPattern,
		Stroke:      true,
	})
	*ops = append(*ops,
		semantic.Op("m", semantic.Numbers(x1, y1)...),
		semantic.Op("l", semantic.Numbers(x2, y2)...),
		semantic.Op("S"),
		semantic.Op("Q"),
	)
	return p
}

// fontForName resolves a resource name or a standard base font name.
// Unknown names fall back to the default font.
func (b *builderImpl) fontForName(name string) (*semantic.Font, string) {
	if name == "" {
		name = b.defaultFont
	}
	if f, ok := b.fonts[name]; ok {
		return f, name
	}
	if res, ok := b.baseToRes[name]; ok {
		return b.fonts[res], res
	}
	if _, ok := fonts.Standard(name); ok {
		n := len(b.fonts) + 1
		res := fmt.Sprintf("F%d", n)
		for b.fonts[res] != nil {
			n++
			res = fmt.Sprintf("F%d", n)
		}
		b.RegisterFont(res, &semantic.Font{BaseFont: name})
		return b.fonts[res], res
	}
	return b.fonts[b.defaultFont], b.defaultFont
}

func (b *builderImpl) imageName(img *semantic.Image) string {
	if b.xobjectNames == nil {
		b.xobjectNames = make(map[*semantic.Image]string)
	}
	if name, ok := b.xobjectNames[img]; ok {
		return name
	}
	b.xobjectCount++
	name := fmt.Sprintf("Im%d", b.xobjectCount)
	b.xobjectNames[img] = name
	return name
}

func (p *pageBuilderImpl) ensureResources() *semantic.Resources {
	if p.page.Resources == nil {
		p.page.Resources = &semantic.Resources{}
	}
	if p.page.Resources.Fonts == nil {
		p.page.Resources.Fonts = make(map[string]*semantic.Font)
	}
	if p.page.Resources.XObjects == nil {
		p.page.Resources.XObjects = make(map[string]*semantic.XObject)
	}
	return p.page.Resources
}

func (p *pageBuilderImpl) ensureContentOps() *[]semantic.Operation {
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	return &p.page.Contents[len(p.page.Contents)-1].Operations
}

func colorOp(c Color, stroking bool) semantic.Operation {
	op := "rg"
	if stroking {
		op = "RG"
	}
	return semantic.Op(op, semantic.Numbers(c.R, c.G, c.B)...)
}

func applyPathState(ops *[]semantic.Operation, opts PathOptions) {
	if opts.Fill {
		*ops = append(*ops, colorOp(opts.FillColor, false))
	}
	if !opts.Stroke {
		return
	}
	if opts.StrokeColor != Black {
		*ops = append(*ops, colorOp(opts.StrokeColor, true))
	}
	if opts.LineWidth > 0 {
		*ops = append(*ops, semantic.Op("w", semantic.NumberOperand{Value: opts.LineWidth}))
	}
	if opts.LineCap != 0 {
		*ops = append(*ops, semantic.Op("J", semantic.NumberOperand{Value: float64(opts.LineCap)}))
	}
	if opts.LineJoin != 0 {
		*ops = append(*ops, semantic.Op("j", semantic.NumberOperand{Value: float64(opts.LineJoin)}))
	}
	if len(opts.DashPattern) > 0 {
		*ops = append(*ops, semantic.Op("d",
			semantic.ArrayOperand{Values: semantic.Numbers(opts.DashPattern...)},
			semantic.NumberOperand{Value: 0},
		))
	}
}

func paintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}
