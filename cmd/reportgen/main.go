// Command reportgen renders a single report to a PDF file, either from the
// configured databases or from a CSV export.
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/datasource"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/report"
	"github.com/wudi/plantreport/service"
	"github.com/wudi/plantreport/tabular"
)

const inputLayout = "2006-01-02T15:04"

type options struct {
	configPath string
	kind       report.Kind
	from, to   time.Time
	tags       []string
	batchID    string
	interval   int
	csvPath    string
	printedBy  string
	outPath    string
	validate   bool
	verbose    bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reportgen: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "reportgen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: reportgen -kind process|audit|alarm -from T -to T [flags]\n")
		flag.PrintDefaults()
	}
	kind := flag.String("kind", string(report.KindProcess), "Report kind: process, audit or alarm")
	from := flag.String("from", "", "Start of the period, "+inputLayout)
	to := flag.String("to", "", "End of the period, "+inputLayout)
	tags := flag.String("tags", "", "Comma-separated process tags")
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&opts.batchID, "batch", "", "Batch ID printed on process reports")
	flag.IntVar(&opts.interval, "interval", service.DefaultInterval, "Sampling interval")
	flag.StringVar(&opts.csvPath, "csv", "", "Render rows from a CSV file with Date and Time as the first columns")
	flag.StringVar(&opts.printedBy, "printed-by", "", "Printed By value for CSV input")
	flag.StringVar(&opts.outPath, "out", "", "Output file (default: generated report name)")
	flag.BoolVar(&opts.validate, "validate", false, "Validate the written PDF")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()

	if flag.NArg() != 0 {
		flag.Usage()
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(flag.Args(), " "))
	}
	k, err := report.ParseKind(*kind)
	if err != nil {
		return opts, err
	}
	opts.kind = k
	if opts.from, err = time.ParseInLocation(inputLayout, *from, time.Local); err != nil {
		return opts, fmt.Errorf("-from: %w", err)
	}
	if opts.to, err = time.ParseInLocation(inputLayout, *to, time.Local); err != nil {
		return opts, fmt.Errorf("-to: %w", err)
	}
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.tags = append(opts.tags, t)
		}
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	logger, zl, err := observability.NewProductionLogger(level)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	req := service.Request{
		Kind:     opts.kind,
		Start:    opts.from,
		End:      opts.to,
		Tags:     opts.tags,
		BatchID:  opts.batchID,
		Interval: opts.interval,
	}
	var rep *service.Report
	if opts.csvPath != "" {
		rep, err = fromCSV(ctx, cfg, req, opts, logger)
	} else {
		rep, err = fromDatabase(ctx, cfg, req, logger)
	}
	if err != nil {
		return err
	}

	out := opts.outPath
	if out == "" {
		out = rep.Filename
	}
	if opts.validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.Validate(bytes.NewReader(rep.PDF), conf); err != nil {
			return fmt.Errorf("validate: %w", err)
		}
	}
	if err := os.WriteFile(out, rep.PDF, 0o644); err != nil {
		return err
	}
	logger.Info("report written", observability.String("path", out), observability.Int("rows", rep.Rows))
	return nil
}

func fromDatabase(ctx context.Context, cfg config.Config, req service.Request, logger observability.Logger) (*service.Report, error) {
	src, closeDBs, err := datasource.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer closeDBs()
	svc, err := service.New(src, cfg.Report, service.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return svc.Generate(ctx, req)
}

// fromCSV renders a CSV export with the preset of the requested kind. The
// database catalog does not apply, so the data columns are used as given.
func fromCSV(ctx context.Context, cfg config.Config, req service.Request, opts options, logger observability.Logger) (*service.Report, error) {
	result, err := readCSV(opts.csvPath)
	if err != nil {
		return nil, err
	}
	rc, err := report.Preset(req.Kind)
	if err != nil {
		return nil, err
	}
	rc.Organization = cfg.Report.Organization
	rc.MaxColumnsPerPage = cfg.Report.MaxColumnsPerPage
	rc.LogoPath = cfg.Report.LogoPath
	rc.NoDataText = cfg.Report.NoDataLine(report.DefaultNoDataText)
	a, err := report.NewAssembler(rc, report.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if req.Kind == report.KindProcess && len(req.Tags) == 0 {
		req.Tags = result.DataColumns()
	}
	pdf, err := a.Assemble(ctx, result, service.BuildParams(req, result.Len(), opts.printedBy))
	if err != nil {
		return nil, err
	}
	return &service.Report{
		Kind:     req.Kind,
		Filename: service.Filename(req.Kind, time.Now()),
		PDF:      pdf,
		Rows:     result.Len(),
	}, nil
}

func readCSV(path string) (*tabular.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, errors.New("csv input has no header row")
	}
	return tabular.FromRecords(records[0], records[1:])
}
