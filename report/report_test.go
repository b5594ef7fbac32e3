package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wudi/plantreport/builder"
	"github.com/wudi/plantreport/contentstream"
	"github.com/wudi/plantreport/layout"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/tabular"
	"github.com/wudi/plantreport/writer"
)

func init() { api.DisableConfigDir() }

var fixedNow = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func plainWriter() writer.Config {
	return writer.Config{Version: writer.PDF17, Deterministic: true}
}

// processResult builds a result with cols tag columns and rows readings.
func processResult(t *testing.T, cols, rows int) *tabular.Result {
	t.Helper()
	header := []string{tabular.DateColumn, tabular.TimeColumn}
	for c := 0; c < cols; c++ {
		header = append(header, fmt.Sprintf("TT-%d", 102+c))
	}
	records := make([][]string, rows)
	for r := range records {
		rec := []string{"01-03-2024", fmt.Sprintf("10:%02d", r%60)}
		for c := 0; c < cols; c++ {
			rec = append(rec, strconv.FormatFloat(float64(r*c)+0.25, 'f', 2, 64))
		}
		records[r] = rec
	}
	res, err := tabular.FromRecords(header, records)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	return res
}

func sampleParams() Params {
	return Params{
		ParamFromDate:     "01/03/2024 00:00",
		ParamToDate:       "01/03/2024 23:59",
		ParamTagsSelected: "TT-102, TT-103",
		ParamPrintedBy:    "PLANT\\operator",
	}
}

func newAssembler(t *testing.T, cfg Config, opts ...Option) *Assembler {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	a, err := NewAssembler(cfg, opts...)
	if err != nil {
		t.Fatalf("new assembler: %v", err)
	}
	return a
}

var pageNumberRe = regexp.MustCompile(`\(Page (\d+) of (\d+)\) Tj`)

// pageNumbers returns the stamped (X, Y) pairs of an uncompressed PDF.
func pageNumbers(out []byte) [][2]int {
	var got [][2]int
	for _, m := range pageNumberRe.FindAllSubmatch(out, -1) {
		x, _ := strconv.Atoi(string(m[1]))
		y, _ := strconv.Atoi(string(m[2]))
		got = append(got, [2]int{x, y})
	}
	return got
}

func countBreaks(story []layout.Flowable) int {
	n := 0
	for _, f := range story {
		if _, ok := f.(layout.PageBreak); ok {
			n++
		}
	}
	return n
}

func TestChunkColumns(t *testing.T) {
	cases := []struct {
		name  string
		cols  int
		max   int
		sizes []int
	}{
		{"none", 0, 8, []int{0}},
		{"single", 3, 8, []int{3}},
		{"exact", 8, 8, []int{8}},
		{"wide", 20, 8, []int{8, 8, 4}},
		{"one per chunk", 3, 1, []int{1, 1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := make([]string, tc.cols)
			for i := range data {
				data[i] = fmt.Sprintf("C%d", i)
			}
			chunks, err := ChunkColumns(data, tc.max)
			if err != nil {
				t.Fatalf("chunk: %v", err)
			}
			if len(chunks) != len(tc.sizes) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tc.sizes))
			}
			var joined []string
			for i, ch := range chunks {
				if len(ch.Data) != tc.sizes[i] {
					t.Fatalf("chunk %d has %d columns, want %d", i, len(ch.Data), tc.sizes[i])
				}
				cols := ch.Columns()
				if cols[0] != tabular.DateColumn || cols[1] != tabular.TimeColumn {
					t.Fatalf("chunk %d does not lead with Date, Time: %v", i, cols)
				}
				joined = append(joined, ch.Data...)
			}
			if strings.Join(joined, ",") != strings.Join(data, ",") {
				t.Fatalf("chunks do not partition the columns in order: %v", joined)
			}
		})
	}

	if _, err := ChunkColumns([]string{"a"}, 0); !errors.Is(err, ErrInvalidChunkSize) {
		t.Fatalf("expected ErrInvalidChunkSize, got %v", err)
	}
}

func TestUnitTable(t *testing.T) {
	units := DefaultUnits()
	cases := map[string]string{
		"TT-102":  "(Deg.C)",
		"PT-118":  "(Bar)",
		"TMF-101": "(Kg/Hr)",
		"MTR-103": "(LPH)",
		"MFM-101": "(LPH)",
		"OZ-101":  "(PPMV)",
		"RLT-101": "(%)",
		"pH-101":  "(pH)",
		"PH-102":  "(pH)",
		"Phase":   "",
		"Batch":   "",
		"Date":    "",
	}
	for name, want := range cases {
		if got := units.Unit(name); got != want {
			t.Errorf("Unit(%q) = %q, want %q", name, got, want)
		}
	}
	if got := units.Header("TT-102"); got != "TT-102\n(Deg.C)" {
		t.Fatalf("header = %q", got)
	}
	if got := units.Header("Batch"); got != "Batch" {
		t.Fatalf("header = %q", got)
	}
	first := UnitTable{{Pattern: "T", Label: "(first)"}, {Pattern: "TT", Label: "(second)"}}
	if got := first.Unit("TT-1"); got != "(first)" {
		t.Fatalf("first matching rule should win, got %q", got)
	}
}

func TestParamsDefaults(t *testing.T) {
	p := Params{ParamFromDate: "x", ParamBatchID: "  "}
	if p.Get(ParamBatchID) != "Not specified" {
		t.Fatalf("blank batch id should fall back")
	}
	if p.Get(ParamPrintedBy) != "[no user logged in]" {
		t.Fatalf("printed by default missing")
	}
	if p.Get(ParamToDate) != "" || p.Get(ParamFromDate) != "x" {
		t.Fatalf("unexpected values")
	}
	cp := p.Clone()
	cp[ParamFromDate] = "y"
	if p[ParamFromDate] != "x" {
		t.Fatalf("clone shares storage")
	}
}

func TestRenderChunkTable(t *testing.T) {
	res := processResult(t, 3, 5)
	chunks, _ := ChunkColumns(res.DataColumns(), 8)
	story := RenderChunk(chunks[0], res, ProcessPreset())
	if len(story) != 1 {
		t.Fatalf("expected one table, got %d flowables", len(story))
	}
	table := story[0].(*layout.Table)
	if table.RepeatRows != 1 || len(table.Rows) != 6 {
		t.Fatalf("rows = %d repeat = %d", len(table.Rows), table.RepeatRows)
	}
	wantHeader := []string{"Date", "Time", "TT-102\n(Deg.C)", "TT-103\n(Deg.C)", "TT-104\n(Deg.C)"}
	if strings.Join(table.Rows[0], "|") != strings.Join(wantHeader, "|") {
		t.Fatalf("header = %q", table.Rows[0])
	}
	if table.Widths != nil {
		t.Fatalf("process tables size from content")
	}

	empty, _ := tabular.New(res.Columns(), nil)
	if got := RenderChunk(chunks[0], empty, ProcessPreset()); len(got) != 0 {
		t.Fatalf("empty result should render no table")
	}
}

func TestRenderChunkFixedWidths(t *testing.T) {
	res, err := tabular.FromRecords([]string{"Date", "Time", "Alarm"}, [][]string{{"01-03-2024", "10:00", "High level"}})
	if err != nil {
		t.Fatal(err)
	}
	table := RenderChunk(Chunk{Data: []string{"Alarm"}}, res, AlarmPreset())[0].(*layout.Table)
	if len(table.Widths) != 3 || table.Widths[0] != builder.Mm(30) || table.Widths[2] != 0 {
		t.Fatalf("widths = %v", table.Widths)
	}
	if table.Style.Align[2] != builder.HAlignLeft || table.Style.Align[0] != builder.HAlignCenter {
		t.Fatalf("aligns = %v", table.Style.Align)
	}
}

func TestSingleChunkScenario(t *testing.T) {
	a := newAssembler(t, ProcessPreset(), WithWriterConfig(plainWriter()))
	res := processResult(t, 3, 5)
	chunks, _ := ChunkColumns(res.DataColumns(), a.cfg.MaxColumnsPerPage)
	if n := countBreaks(a.story(chunks, res)); n != 0 {
		t.Fatalf("breaks = %d, want 0", n)
	}
	out, err := a.Assemble(context.Background(), res, sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := pageNumbers(out); len(got) != 1 || got[0] != [2]int{1, 1} {
		t.Fatalf("page numbers = %v", got)
	}
}

func TestMultiChunkScenario(t *testing.T) {
	a := newAssembler(t, ProcessPreset(), WithWriterConfig(plainWriter()))
	res := processResult(t, 20, 5)
	chunks, _ := ChunkColumns(res.DataColumns(), a.cfg.MaxColumnsPerPage)
	story := a.story(chunks, res)
	if n := countBreaks(story); n != 2 {
		t.Fatalf("breaks = %d, want 2", n)
	}
	out, err := a.Assemble(context.Background(), res, sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	n, err := api.PageCount(bytes.NewReader(out), pdfcpuConfig())
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n < 3 {
		t.Fatalf("pages = %d, want at least 3", n)
	}
	nums := pageNumbers(out)
	if len(nums) != n {
		t.Fatalf("stamped %d pages of %d", len(nums), n)
	}
	for i, xy := range nums {
		if xy != [2]int{i + 1, n} {
			t.Fatalf("page %d stamped %v", i+1, xy)
		}
	}
}

func TestLongTablePaginatesWithConsistentNumbers(t *testing.T) {
	a := newAssembler(t, ProcessPreset(), WithWriterConfig(plainWriter()))
	out, err := a.Assemble(context.Background(), processResult(t, 8, 200), sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if err := api.Validate(bytes.NewReader(out), pdfcpuConfig()); err != nil {
		t.Fatalf("pdfcpu validate: %v", err)
	}
	n, _ := api.PageCount(bytes.NewReader(out), pdfcpuConfig())
	nums := pageNumbers(out)
	if n < 4 || len(nums) != n {
		t.Fatalf("pages = %d, stamps = %d", n, len(nums))
	}
	for i, xy := range nums {
		if xy[0] != i+1 || xy[1] != n {
			t.Fatalf("stamp %d = %v", i, xy)
		}
	}
	// header row repeats on every page
	if got := bytes.Count(out, []byte("(TT-102) Tj")); got != n {
		t.Fatalf("TT-102 header drawn %d times over %d pages", got, n)
	}
}

func TestEmptyResultScenario(t *testing.T) {
	a := newAssembler(t, AuditPreset(), WithWriterConfig(plainWriter()))
	empty, err := tabular.New([]tabular.Column{{Name: "Date"}, {Name: "Time"}, {Name: "MessageText"}, {Name: "UserID"}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := a.Assemble(context.Background(), empty, sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("empty output")
	}
	if n, err := api.PageCount(bytes.NewReader(out), pdfcpuConfig()); err != nil || n != 1 {
		t.Fatalf("pages = %d, err = %v", n, err)
	}
	if !bytes.Contains(out, []byte("(No records found for the selected period.) Tj")) {
		t.Fatalf("no-data line missing")
	}
	if bytes.Contains(out, []byte("(MessageText) Tj")) {
		t.Fatalf("table header drawn for empty result")
	}
	if got := pageNumbers(out); len(got) != 1 || got[0] != [2]int{1, 1} {
		t.Fatalf("page numbers = %v", got)
	}

	cfg := AuditPreset()
	cfg.NoDataText = ""
	out, err = newAssembler(t, cfg, WithWriterConfig(plainWriter())).Assemble(context.Background(), empty, nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if bytes.Contains(out, []byte("No records found")) {
		t.Fatalf("disabled no-data line drawn")
	}
}

func TestAssembleIsDeterministic(t *testing.T) {
	a := newAssembler(t, ProcessPreset())
	res := processResult(t, 12, 40)
	first, err := a.Assemble(context.Background(), res, sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	second, err := a.Assemble(context.Background(), res, sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same inputs and clock produced different bytes")
	}
	if err := api.Validate(bytes.NewReader(first), pdfcpuConfig()); err != nil {
		t.Fatalf("pdfcpu validate: %v", err)
	}
}

func TestAssembleWritesInfo(t *testing.T) {
	a := newAssembler(t, ProcessPreset(), WithWriterConfig(plainWriter()))
	out, err := a.Assemble(context.Background(), processResult(t, 2, 3), sampleParams())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for _, want := range []string{
		"(Process Parameter Report)",
		"RECORD COUNT: 3",
		"TAGS SELECTED: TT-102, TT-103",
		"/CreationDate (D:20240301103000Z)",
		"/Lang (en-IN)",
	} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output lacks %q", want)
		}
	}
}

func TestAssembleCancelled(t *testing.T) {
	a := newAssembler(t, ProcessPreset())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Assemble(ctx, processResult(t, 3, 5), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := a.Assemble(context.Background(), nil, nil); !errors.Is(err, tabular.ErrInvalidResult) {
		t.Fatalf("expected ErrInvalidResult for nil result, got %v", err)
	}
}

func TestCompositorDrawsFurniture(t *testing.T) {
	page := builder.NewBuilder().Scratch(builder.A4Width, builder.A4Height)
	params := Params{ParamFromDate: "01/03/2024 00:00", ParamToDate: "02/03/2024 00:00"}
	c := NewCompositor(ProcessPreset(), params, fixedNow, nil)
	c.DecoratePage(page, layout.PageInfo{Number: 1, Width: builder.A4Width, Height: builder.A4Height})

	got, err := contentstream.Strings(context.Background(), contentstream.Encode(page.Page().Contents[0].Operations))
	if err != nil {
		t.Fatalf("strings: %v", err)
	}
	want := []string{
		DefaultOrganization,
		"Process Parameter Report",
		"FROM DATE: 01/03/2024 00:00",
		"TO DATE: 02/03/2024 00:00",
		"BATCH ID: Not specified",
		"Printed By: [no user logged in]",
		"Printed Date: 01/03/2024 10:30",
		"Verified By:",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("furniture text:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	audit := builder.NewBuilder().Scratch(builder.A4Width, builder.A4Height)
	NewCompositor(AuditPreset(), params, fixedNow, nil).DecoratePage(audit, layout.PageInfo{Width: builder.A4Width, Height: builder.A4Height})
	got, _ = contentstream.Strings(context.Background(), contentstream.Encode(audit.Page().Contents[0].Operations))
	for _, s := range got {
		if strings.HasPrefix(s, "BATCH ID") {
			t.Fatalf("audit header should not show the batch id")
		}
	}
}

func TestLogoHandling(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := observability.NewZapLogger(zap.New(core))

	cfg := ProcessPreset()
	cfg.LogoPath = filepath.Join(t.TempDir(), "missing.png")
	a := newAssembler(t, cfg, WithLogger(logger))
	if a.logo != nil {
		t.Fatalf("missing logo should be skipped")
	}
	if logs.FilterMessage("logo skipped").Len() != 1 {
		t.Fatalf("missing logo not logged")
	}
	if _, err := a.Assemble(context.Background(), processResult(t, 1, 1), nil); err != nil {
		t.Fatalf("assemble without logo: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	cfg.LogoPath = filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(cfg.LogoPath, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	a = newAssembler(t, cfg, WithWriterConfig(plainWriter()))
	out, err := a.Assemble(context.Background(), processResult(t, 1, 1), nil)
	if err != nil {
		t.Fatalf("assemble with logo: %v", err)
	}
	if !bytes.Contains(out, []byte("/Image")) || !bytes.Contains(out, []byte(" Do")) {
		t.Fatalf("logo not drawn")
	}
}

func TestNewAssemblerValidates(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero columns", func(c *Config) { c.MaxColumnsPerPage = 0 }},
		{"no page", func(c *Config) { c.Geometry.PageWidth = 0 }},
		{"margins eat frame", func(c *Config) { c.Geometry.Margins.Top = c.Geometry.PageHeight }},
		{"empty font", func(c *Config) { c.Typography.Bold = "" }},
		{"unknown font", func(c *Config) { c.Typography.Regular = "Comic Sans" }},
		{"zero body size", func(c *Config) { c.Table.BodyFontSize = 0 }},
		{"no kind", func(c *Config) { c.Kind = "" }},
		{"empty unit pattern", func(c *Config) { c.Units = append(c.Units, UnitRule{Label: "(x)"}) }},
		{"line height below one", func(c *Config) { c.Typography.LineHeight = 0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ProcessPreset()
			tc.mutate(&cfg)
			if _, err := NewAssembler(cfg); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
	for _, k := range Kinds() {
		cfg, err := Preset(k)
		if err != nil {
			t.Fatalf("preset %s: %v", k, err)
		}
		if _, err := NewAssembler(cfg); err != nil {
			t.Fatalf("preset %s invalid: %v", k, err)
		}
	}
	if _, err := Preset("trend"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestAssemblerConfigIsImmutable(t *testing.T) {
	cfg := AuditPreset()
	a := newAssembler(t, cfg)
	cfg.Table.Columns[auditMessageColumn] = ColumnStyle{Width: 1}
	cfg.Units[0].Label = "changed"
	got := a.Config()
	if got.Table.Columns[auditMessageColumn].Width != builder.Mm(100) || got.Units[0].Label != "(Deg.C)" {
		t.Fatalf("assembler config changed through caller's copy")
	}
}

func TestAssembleRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newAssembler(t, AlarmPreset(), WithMetrics(observability.NewMetrics(reg)))
	res, _ := tabular.FromRecords([]string{"Date", "Time", "Alarm"}, [][]string{{"01-03-2024", "10:00", "High level"}})
	if _, err := a.Assemble(context.Background(), res, nil); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if n, err := testutil.GatherAndCount(reg, "plantreport_render_duration_seconds"); err != nil || n != 1 {
		t.Fatalf("duration series = %d, err = %v", n, err)
	}
	if n, err := testutil.GatherAndCount(reg, "plantreport_pages_rendered_total"); err != nil || n != 1 {
		t.Fatalf("pages series = %d, err = %v", n, err)
	}
}
