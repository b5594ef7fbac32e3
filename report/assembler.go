// Package report turns a tabular result into a paginated PDF report: column
// chunking, table rendering, page furniture and "Page X of Y" numbering.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/ir/semantic"
	"github.com/wudi/plantreport/layout"
	"github.com/wudi/plantreport/numbering"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/tabular"
	"github.com/wudi/plantreport/writer"
)

const producer = "plantreport"

// Assembler renders reports for one configuration. It keeps no per-call
// state and is safe for concurrent use.
type Assembler struct {
	cfg     Config
	logo    *semantic.Image
	logger  observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
	wcfg    writer.Config
}

// Option configures an Assembler.
type Option func(*Assembler)

func WithLogger(l observability.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithMetrics(m *observability.Metrics) Option { return func(a *Assembler) { a.metrics = m } }

// WithClock fixes the source of the printed date and document dates.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

func WithWriterConfig(cfg writer.Config) Option { return func(a *Assembler) { a.wcfg = cfg } }

// NewAssembler validates cfg and prepares the shared page furniture. A logo
// that cannot be read or decoded is logged and left out.
func NewAssembler(cfg Config, opts ...Option) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Assembler{
		cfg:    cfg.clone(),
		logger: observability.NopLogger{},
		now:    time.Now,
		wcfg:   writer.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(observability.String("kind", string(cfg.Kind)))
	if cfg.LogoPath != "" {
		img, err := builder.ImageFromFile(cfg.LogoPath)
		if err != nil {
			a.logger.Debug("logo skipped", observability.String("path", cfg.LogoPath), observability.Error("error", err))
		} else {
			a.logo = img
		}
	}
	return a, nil
}

// Config returns a copy of the assembler's configuration.
func (a *Assembler) Config() Config { return a.cfg.clone() }

// Assemble renders result under the header values in params and returns the
// PDF bytes.
func (a *Assembler) Assemble(ctx context.Context, result *tabular.Result, params Params) ([]byte, error) {
	kind := string(a.cfg.Kind)
	start := time.Now()
	out, pages, err := a.assemble(ctx, result, params)
	if err != nil {
		a.metrics.RenderFailed(kind)
		return nil, err
	}
	a.metrics.ObserveRender(kind, time.Since(start), pages)
	a.logger.Info("report rendered",
		observability.Int("rows", result.Len()),
		observability.Int("pages", pages),
		observability.Int("bytes", len(out)),
		observability.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (a *Assembler) assemble(ctx context.Context, result *tabular.Result, params Params) ([]byte, int, error) {
	if result == nil {
		return nil, 0, fmt.Errorf("%w: nil result", tabular.ErrInvalidResult)
	}
	params = params.Clone()
	printed := a.now()

	chunks, err := ChunkColumns(result.DataColumns(), a.cfg.MaxColumnsPerPage)
	if err != nil {
		return nil, 0, err
	}
	story := a.story(chunks, result)

	g, ty := a.cfg.Geometry, a.cfg.Typography
	sink := numbering.New(
		numbering.WithStamper(numbering.TextStamper{
			Format:      "Page %d of %d",
			Font:        ty.Regular,
			FontSize:    ty.FooterSize,
			RightMargin: g.FooterInset,
			Baseline:    g.PageNumberBaseline,
		}),
		numbering.WithInfo(a.info(params, result, printed)),
		numbering.WithWriterConfig(a.wcfg),
		numbering.WithLanguage(a.cfg.Language),
		numbering.WithLogger(a.logger),
	)
	tmpl := layout.PageTemplate{
		Width:   g.PageWidth,
		Height:  g.PageHeight,
		Margins: g.Margins,
		OnPage:  NewCompositor(a.cfg, params, printed, a.logo),
	}
	engine := layout.NewEngine(sink, tmpl,
		layout.WithLineHeight(ty.LineHeight),
		layout.WithLogger(a.logger))
	pages, err := engine.Build(ctx, story)
	if err != nil {
		return nil, 0, fmt.Errorf("layout %s report: %w", a.cfg.Kind, err)
	}
	out, err := sink.Finalize(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("finalize %s report: %w", a.cfg.Kind, err)
	}
	return out, pages, nil
}

// story lays the chunk tables out one after another, each starting on a new
// page. An empty result gets the no-data line instead.
func (a *Assembler) story(chunks []Chunk, result *tabular.Result) []layout.Flowable {
	if result.Len() == 0 {
		if a.cfg.NoDataText == "" {
			return nil
		}
		return []layout.Flowable{layout.Paragraph{
			Text:     a.cfg.NoDataText,
			Font:     a.cfg.Typography.Regular,
			FontSize: a.cfg.Typography.NoDataSize,
			Align:    builder.HAlignCenter,
		}}
	}
	var story []layout.Flowable
	for i, ch := range chunks {
		if i > 0 {
			story = append(story, layout.PageBreak{})
		}
		story = append(story, RenderChunk(ch, result, a.cfg)...)
		a.logger.Debug("chunk rendered", observability.Int("chunk", ch.Index), observability.Int("columns", len(ch.Data)))
	}
	return story
}

// info carries the selection details that do not fit the visual header.
func (a *Assembler) info(params Params, result *tabular.Result, printed time.Time) *semantic.DocumentInfo {
	info := &semantic.DocumentInfo{
		Title:        a.cfg.Title,
		Author:       a.cfg.Organization,
		Creator:      producer,
		Producer:     producer,
		CreationDate: printed,
	}
	var subject []string
	if params.Has(ParamFromDate) || params.Has(ParamToDate) {
		subject = append(subject, fmt.Sprintf("%s to %s", params.Get(ParamFromDate), params.Get(ParamToDate)))
	}
	count := params.Get(ParamRecordCount)
	if count == "" {
		count = fmt.Sprint(result.Len())
	}
	subject = append(subject, ParamRecordCount+": "+count)
	if tags := params.Get(ParamTagsSelected); tags != "" {
		subject = append(subject, ParamTagsSelected+": "+tags)
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				info.Keywords = append(info.Keywords, t)
			}
		}
	}
	info.Subject = strings.Join(subject, "; ")
	return info
}
