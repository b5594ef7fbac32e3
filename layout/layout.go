package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/observability"
)

// ErrFrameTooSmall is returned when margins leave no room for content.
var ErrFrameTooSmall = errors.New("layout: frame has no usable area")

// Canvas receives finished pages from the engine. Implementations decide
// what happens to a page once it is shown.
type Canvas interface {
	BeginPage(width, height float64) builder.PageBuilder
	ShowPage() error
	MeasureText(text, font string, size float64) float64
}

// Margins defines page margins in points.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Frame is the content rectangle of a page, origin at the lower left.
type Frame struct {
	X, Y, Width, Height float64
}

// Top returns the y coordinate of the frame's upper edge.
func (f Frame) Top() float64 { return f.Y + f.Height }

// PageInfo describes the page handed to a PageDecorator.
type PageInfo struct {
	Number int // 1-based, within this Build call
	Width  float64
	Height float64
	Frame  Frame
}

// PageDecorator draws fixed page furniture at the start of every page.
type PageDecorator interface {
	DecoratePage(page builder.PageBuilder, info PageInfo)
}

// DecoratorFunc adapts a function to PageDecorator.
type DecoratorFunc func(page builder.PageBuilder, info PageInfo)

func (f DecoratorFunc) DecoratePage(page builder.PageBuilder, info PageInfo) { f(page, info) }

// PageTemplate fixes the page geometry for a document.
type PageTemplate struct {
	Width   float64
	Height  float64
	Margins Margins
	OnPage  PageDecorator
}

// Frame returns the content frame inside the margins.
func (t PageTemplate) Frame() Frame {
	return Frame{
		X:      t.Margins.Left,
		Y:      t.Margins.Bottom,
		Width:  t.Width - t.Margins.Left - t.Margins.Right,
		Height: t.Height - t.Margins.Top - t.Margins.Bottom,
	}
}

// Flowable is a unit of content that the engine places into frames.
type Flowable interface {
	Flow(f *Flow) error
}

// Engine lays a story of flowables out across pages.
type Engine struct {
	canvas     Canvas
	template   PageTemplate
	lineHeight float64
	logger     observability.Logger
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithLogger sets the logger used for page events.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLineHeight sets the line height multiplier.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		if height > 0 {
			e.lineHeight = height
		}
	}
}

// NewEngine creates a layout engine drawing onto canvas.
func NewEngine(canvas Canvas, template PageTemplate, opts ...Option) *Engine {
	e := &Engine{
		canvas:     canvas,
		template:   template,
		lineHeight: 1.2,
		logger:     observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Build places every flowable and shows the final page. At least one page is
// always produced so that page furniture appears even for an empty story.
// It returns the number of pages shown.
func (e *Engine) Build(ctx context.Context, story []Flowable) (int, error) {
	frame := e.template.Frame()
	if frame.Width <= 0 || frame.Height <= 0 {
		return 0, ErrFrameTooSmall
	}
	f := &Flow{engine: e, frame: frame}
	for i, fl := range story {
		if err := ctx.Err(); err != nil {
			return f.shown, err
		}
		if err := f.ensurePage(); err != nil {
			return f.shown, err
		}
		if err := fl.Flow(f); err != nil {
			return f.shown, fmt.Errorf("flowable %d: %w", i, err)
		}
	}
	if err := f.ensurePage(); err != nil {
		return f.shown, err
	}
	if err := f.endPage(); err != nil {
		return f.shown, err
	}
	return f.shown, nil
}

// Flow is the cursor a flowable draws through.
type Flow struct {
	engine *Engine
	frame  Frame
	page   builder.PageBuilder
	cursor float64
	placed int
	shown  int
}

// Page returns the current page surface.
func (f *Flow) Page() builder.PageBuilder { return f.page }

// Frame returns the content frame.
func (f *Flow) Frame() Frame { return f.frame }

// Cursor returns the y coordinate where the next content starts.
func (f *Flow) Cursor() float64 { return f.cursor }

// Remaining returns the vertical space left in the frame.
func (f *Flow) Remaining() float64 { return f.cursor - f.frame.Y }

// Fresh reports whether nothing has been placed on the current page.
func (f *Flow) Fresh() bool { return f.placed == 0 }

// Advance moves the cursor down by h after content was drawn.
func (f *Flow) Advance(h float64) {
	f.cursor -= h
	f.placed++
}

// LineHeight returns the line advance for a font size.
func (f *Flow) LineHeight(size float64) float64 { return size * f.engine.lineHeight }

// Measure returns the width of text.
func (f *Flow) Measure(text, font string, size float64) float64 {
	return f.engine.canvas.MeasureText(text, font, size)
}

// Logger returns the engine logger.
func (f *Flow) Logger() observability.Logger { return f.engine.logger }

// NewPage ends the current page and starts a new one.
func (f *Flow) NewPage() error {
	if f.page != nil {
		if err := f.endPage(); err != nil {
			return err
		}
	}
	return f.ensurePage()
}

func (f *Flow) ensurePage() error {
	if f.page != nil {
		return nil
	}
	t := f.engine.template
	f.page = f.engine.canvas.BeginPage(t.Width, t.Height)
	if f.page == nil {
		return fmt.Errorf("canvas refused page %d", f.shown+1)
	}
	f.cursor = f.frame.Top()
	f.placed = 0
	if t.OnPage != nil {
		t.OnPage.DecoratePage(f.page, PageInfo{
			Number: f.shown + 1,
			Width:  t.Width,
			Height: t.Height,
			Frame:  f.frame,
		})
	}
	return nil
}

func (f *Flow) endPage() error {
	if err := f.engine.canvas.ShowPage(); err != nil {
		return fmt.Errorf("show page %d: %w", f.shown+1, err)
	}
	f.shown++
	f.engine.logger.Debug("page laid out", observability.Int("page", f.shown), observability.Int("flowables", f.placed))
	f.page = nil
	return nil
}
