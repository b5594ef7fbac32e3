// Package service validates report requests, loads their data and renders
// them with the matching report preset.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/datasource"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/report"
	"github.com/wudi/plantreport/tabular"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("service: invalid request")

// DefaultInterval is the sampling interval used when a request leaves it
// unset.
const DefaultInterval = 10

// DataSource supplies report rows and the printing user.
type DataSource interface {
	ProcessData(ctx context.Context, q datasource.ProcessQuery) (*tabular.Result, error)
	AuditData(ctx context.Context, q datasource.AuditQuery) (*tabular.Result, error)
	AlarmData(ctx context.Context, q datasource.AlarmQuery) (*tabular.Result, error)
	LatestUser(ctx context.Context) string
}

// Request describes one report run. Start and End are plant local times.
type Request struct {
	Kind     report.Kind
	Start    time.Time
	End      time.Time
	Tags     []string
	BatchID  string
	Interval int
}

// Validate checks the request and fills defaults. Process reports need at
// least one known tag and a batch ID.
func (r *Request) Validate() error {
	var errs []error
	kind, err := report.ParseKind(string(r.Kind))
	if err != nil {
		errs = append(errs, err)
	}
	r.Kind = kind
	if r.Start.IsZero() || r.End.IsZero() {
		errs = append(errs, errors.New("start and end are required"))
	} else if r.End.Before(r.Start) {
		errs = append(errs, fmt.Errorf("end %s is before start %s",
			r.End.Format(report.ParamTimeLayout), r.Start.Format(report.ParamTimeLayout)))
	}
	switch {
	case r.Interval == 0:
		r.Interval = DefaultInterval
	case r.Interval < 1:
		errs = append(errs, fmt.Errorf("interval must be at least 1, got %d", r.Interval))
	}
	r.BatchID = strings.TrimSpace(r.BatchID)
	if kind == report.KindProcess {
		if len(r.Tags) == 0 {
			errs = append(errs, errors.New("at least one tag is required"))
		}
		seen := make(map[string]bool, len(r.Tags))
		for _, tag := range r.Tags {
			if _, ok := datasource.LookupTag(tag); !ok {
				errs = append(errs, fmt.Errorf("unknown tag %q", tag))
			}
			if seen[tag] {
				errs = append(errs, fmt.Errorf("tag %q selected twice", tag))
			}
			seen[tag] = true
		}
		if r.BatchID == "" {
			errs = append(errs, errors.New("batch id is required"))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}

// Report is a rendered document.
type Report struct {
	Kind     report.Kind
	Filename string
	PDF      []byte
	Rows     int
}

// Service renders reports. It is safe for concurrent use.
type Service struct {
	src        DataSource
	assemblers map[report.Kind]*report.Assembler
	now        func() time.Time
	logger     observability.Logger
}

type options struct {
	logger  observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// Option configures a Service.
type Option func(*options)

func WithLogger(l observability.Logger) Option    { return func(o *options) { o.logger = l } }
func WithMetrics(m *observability.Metrics) Option { return func(o *options) { o.metrics = m } }
func WithClock(now func() time.Time) Option       { return func(o *options) { o.now = now } }

// New builds one assembler per report kind from the presets, overridden by
// the report section of the service configuration.
func New(src DataSource, rc config.ReportConfig, opts ...Option) (*Service, error) {
	o := options{logger: observability.NopLogger{}, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NopLogger{}
	}
	if o.now == nil {
		o.now = time.Now
	}
	s := &Service{
		src:        src,
		assemblers: make(map[report.Kind]*report.Assembler),
		now:        o.now,
		logger:     o.logger,
	}
	for _, kind := range report.Kinds() {
		cfg, err := report.Preset(kind)
		if err != nil {
			return nil, err
		}
		if rc.Organization != "" {
			cfg.Organization = rc.Organization
		}
		if rc.MaxColumnsPerPage > 0 {
			cfg.MaxColumnsPerPage = rc.MaxColumnsPerPage
		}
		cfg.LogoPath = rc.LogoPath
		cfg.NoDataText = rc.NoDataLine(report.DefaultNoDataText)
		a, err := report.NewAssembler(cfg,
			report.WithLogger(o.logger),
			report.WithMetrics(o.metrics),
			report.WithClock(o.now))
		if err != nil {
			return nil, fmt.Errorf("%s report: %w", kind, err)
		}
		s.assemblers[kind] = a
	}
	return s, nil
}

// Tags lists the selectable process tags in catalog order.
func (s *Service) Tags() []string {
	tags := datasource.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

// Generate validates req, loads its rows and renders the report.
func (s *Service) Generate(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	s.logger.Debug("report requested",
		observability.String("kind", string(req.Kind)),
		observability.Int("tags", len(req.Tags)),
		observability.Int("interval", req.Interval))
	result, err := s.load(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("load %s data: %w", req.Kind, err)
	}
	params := BuildParams(req, result.Len(), s.src.LatestUser(ctx))
	pdf, err := s.assemblers[req.Kind].Assemble(ctx, result, params)
	if err != nil {
		return nil, err
	}
	return &Report{
		Kind:     req.Kind,
		Filename: Filename(req.Kind, s.now()),
		PDF:      pdf,
		Rows:     result.Len(),
	}, nil
}

func (s *Service) load(ctx context.Context, req Request) (*tabular.Result, error) {
	switch req.Kind {
	case report.KindProcess:
		return s.src.ProcessData(ctx, datasource.ProcessQuery{
			Start: req.Start, End: req.End, Tags: req.Tags, Interval: req.Interval,
		})
	case report.KindAudit:
		return s.src.AuditData(ctx, datasource.AuditQuery{Start: req.Start, End: req.End, Interval: req.Interval})
	default:
		return s.src.AlarmData(ctx, datasource.AlarmQuery{Start: req.Start, End: req.End})
	}
}

// BuildParams derives the header and document parameters of a run.
func BuildParams(req Request, rows int, printedBy string) report.Params {
	p := report.Params{
		report.ParamFromDate:    req.Start.Format(report.ParamTimeLayout),
		report.ParamToDate:      req.End.Format(report.ParamTimeLayout),
		report.ParamRecordCount: strconv.Itoa(rows),
		report.ParamPrintedBy:   printedBy,
	}
	if req.Kind == report.KindProcess {
		p[report.ParamBatchID] = req.BatchID
		p[report.ParamTagsSelected] = strings.Join(req.Tags, ", ")
	}
	return p
}

// Filename suggests a download name such as Process_Report_20240301_1030.pdf.
func Filename(kind report.Kind, at time.Time) string {
	name := string(kind)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s_Report_%s.pdf", name, at.Format("20060102_1504"))
}
