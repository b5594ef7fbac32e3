// Package numbering implements a two-pass page sink: pages are frozen into
// snapshots while the layout runs, and page numbers are stamped once the
// total is known.
package numbering

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/ir/semantic"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/writer"
)

// ErrState is returned for calls that are invalid in the engine's current
// state.
var ErrState = errors.New("numbering: invalid call for engine state")

// State is the engine lifecycle position.
type State int

const (
	Accumulating State = iota
	Finalizing
	Done
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is the frozen drawing of one physical page.
type Snapshot struct {
	page *semantic.Page
}

func (s Snapshot) Width() float64  { return s.page.Width() }
func (s Snapshot) Height() float64 { return s.page.Height() }

// Operations returns a copy of the page's drawing operations.
func (s Snapshot) Operations() []semantic.Operation {
	var ops []semantic.Operation
	for _, cs := range s.page.Contents {
		ops = append(ops, cs.Clone().Operations...)
	}
	return ops
}

// Stamper draws the page number onto a finished page.
type Stamper interface {
	Stamp(page builder.PageBuilder, number, total int)
}

// StamperFunc adapts a function to Stamper.
type StamperFunc func(page builder.PageBuilder, number, total int)

func (f StamperFunc) Stamp(page builder.PageBuilder, number, total int) { f(page, number, total) }

// TextStamper draws Format (with number and total) right-aligned against
// RightMargin on the Baseline.
type TextStamper struct {
	Format      string
	Font        string
	FontSize    float64
	RightMargin float64
	Baseline    float64
}

// DefaultStamper writes "Page X of Y" at the bottom right of the page.
func DefaultStamper() TextStamper {
	return TextStamper{
		Format:      "Page %d of %d",
		Font:        "Helvetica",
		FontSize:    8,
		RightMargin: builder.Mm(10),
		Baseline:    builder.Mm(5),
	}
}

func (s TextStamper) Stamp(page builder.PageBuilder, number, total int) {
	p := page.Page()
	page.DrawText(fmt.Sprintf(s.Format, number, total), p.Width()-s.RightMargin, s.Baseline, builder.TextOptions{
		Font:     s.Font,
		FontSize: s.FontSize,
		Align:    builder.HAlignRight,
	})
}

// Engine buffers pages until Finalize. It implements layout.Canvas. An
// Engine is used by one goroutine for one document.
type Engine struct {
	state   State
	b       builder.PDFBuilder
	cur     builder.PageBuilder
	buffer  []Snapshot
	err     error
	stamper Stamper
	info    *semantic.DocumentInfo
	lang    string
	wcfg    writer.Config
	logger  observability.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithStamper(s Stamper) Option { return func(e *Engine) { e.stamper = s } }

func WithInfo(info *semantic.DocumentInfo) Option { return func(e *Engine) { e.info = info } }

func WithWriterConfig(cfg writer.Config) Option { return func(e *Engine) { e.wcfg = cfg } }

// WithLanguage sets the document natural language, e.g. "en-IN".
func WithLanguage(lang string) Option { return func(e *Engine) { e.lang = lang } }

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine in the Accumulating state.
func New(opts ...Option) *Engine {
	e := &Engine{
		b:       builder.NewBuilder(),
		stamper: DefaultStamper(),
		wcfg:    writer.DefaultConfig(),
		logger:  observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State reports the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Pages returns the number of buffered snapshots.
func (e *Engine) Pages() int { return len(e.buffer) }

// BeginPage opens a blank page. It returns nil if the engine is not
// accumulating or a page is already open; the error is reported by the next
// ShowPage or Finalize.
func (e *Engine) BeginPage(width, height float64) builder.PageBuilder {
	if e.state != Accumulating {
		e.err = fmt.Errorf("%w: BeginPage while %s", ErrState, e.state)
		return nil
	}
	if e.cur != nil {
		e.err = fmt.Errorf("%w: BeginPage with page %d still open", ErrState, len(e.buffer)+1)
		return nil
	}
	e.cur = e.b.Scratch(width, height)
	return e.cur
}

// ShowPage freezes the open page into a snapshot.
func (e *Engine) ShowPage() error {
	if e.err != nil {
		return e.err
	}
	if e.state != Accumulating {
		return fmt.Errorf("%w: ShowPage while %s", ErrState, e.state)
	}
	if e.cur == nil {
		return fmt.Errorf("%w: ShowPage without an open page", ErrState)
	}
	e.buffer = append(e.buffer, Snapshot{page: e.cur.Page().Clone()})
	e.cur = nil
	return nil
}

// MeasureText measures text with the engine's font registry.
func (e *Engine) MeasureText(text, font string, size float64) float64 {
	return e.b.MeasureText(text, font, size)
}

// Snapshots returns the buffered pages in order.
func (e *Engine) Snapshots() []Snapshot {
	return append([]Snapshot(nil), e.buffer...)
}

// Finalize stamps every buffered page with its number and the total and
// serializes the document. The buffer is released and the engine is Done
// afterwards, whether or not serialization succeeded.
func (e *Engine) Finalize(ctx context.Context) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.state != Accumulating {
		return nil, fmt.Errorf("%w: Finalize while %s", ErrState, e.state)
	}
	if e.cur != nil {
		return nil, fmt.Errorf("%w: Finalize with page %d still open", ErrState, len(e.buffer)+1)
	}
	e.state = Finalizing
	defer func() {
		e.buffer = nil
		e.state = Done
	}()

	total := len(e.buffer)
	for i, snap := range e.buffer {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := e.b.AddPage(snap.page.Clone())
		if e.stamper != nil {
			e.stamper.Stamp(page, i+1, total)
		}
	}
	if e.info != nil {
		e.b.SetInfo(e.info)
	}
	if e.lang != "" {
		e.b.SetLanguage(e.lang)
	}
	doc, err := e.b.Build()
	if err != nil {
		return nil, fmt.Errorf("build document: %w", err)
	}
	var buf bytes.Buffer
	if err := (&writer.WriterBuilder{}).Build().Write(ctx, doc, &buf, e.wcfg); err != nil {
		return nil, fmt.Errorf("write document: %w", err)
	}
	e.logger.Debug("document finalized", observability.Int("pages", total), observability.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
