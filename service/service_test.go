package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/wudi/plantreport/config"
	"github.com/wudi/plantreport/datasource"
	"github.com/wudi/plantreport/report"
	"github.com/wudi/plantreport/tabular"
)

type fakeSource struct {
	process *tabular.Result
	err     error
	user    string

	gotProcess datasource.ProcessQuery
	gotAudit   datasource.AuditQuery
	calls      int
}

func (f *fakeSource) ProcessData(_ context.Context, q datasource.ProcessQuery) (*tabular.Result, error) {
	f.calls++
	f.gotProcess = q
	return f.process, f.err
}

func (f *fakeSource) AuditData(_ context.Context, q datasource.AuditQuery) (*tabular.Result, error) {
	f.calls++
	f.gotAudit = q
	if f.err != nil {
		return nil, f.err
	}
	return tabular.New([]tabular.Column{{Name: "Date"}, {Name: "Time"}, {Name: "MessageText"}, {Name: "UserID"}}, nil)
}

func (f *fakeSource) AlarmData(context.Context, datasource.AlarmQuery) (*tabular.Result, error) {
	f.calls++
	return tabular.FromRecords([]string{"Date", "Time", "Alarm"}, [][]string{{"01-03-2024", "10:00", "High level"}})
}

func (f *fakeSource) LatestUser(context.Context) string { return f.user }

var now = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func newService(t *testing.T, src DataSource) *Service {
	t.Helper()
	s, err := New(src, config.Default().Report, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return s
}

func processRequest() Request {
	return Request{
		Kind:    report.KindProcess,
		Start:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC),
		Tags:    []string{"TT-102", "PT-118"},
		BatchID: "B-42",
	}
}

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Request)
		ok     bool
	}{
		{"valid", func(*Request) {}, true},
		{"upper-case kind", func(r *Request) { r.Kind = "PROCESS" }, true},
		{"unknown kind", func(r *Request) { r.Kind = "trend" }, false},
		{"missing start", func(r *Request) { r.Start = time.Time{} }, false},
		{"end before start", func(r *Request) { r.End = r.Start.Add(-time.Minute) }, false},
		{"negative interval", func(r *Request) { r.Interval = -5 }, false},
		{"no tags", func(r *Request) { r.Tags = nil }, false},
		{"unknown tag", func(r *Request) { r.Tags = []string{"XX-9"} }, false},
		{"duplicate tag", func(r *Request) { r.Tags = []string{"TT-102", "TT-102"} }, false},
		{"blank batch", func(r *Request) { r.BatchID = "  " }, false},
		{"audit without tags or batch", func(r *Request) { r.Kind, r.Tags, r.BatchID = report.KindAudit, nil, "" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := processRequest()
			tc.mutate(&req)
			err := req.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}

	req := processRequest()
	if err := req.Validate(); err != nil || req.Interval != DefaultInterval {
		t.Fatalf("interval default not applied: %d, %v", req.Interval, err)
	}
}

func TestGenerateProcessReport(t *testing.T) {
	res, err := tabular.FromRecords(
		[]string{"Date", "Time", "TT-102", "PT-118"},
		[][]string{{"01-03-2024", "10:00", "25.46", "1.50"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeSource{process: res, user: "PLANT\\jdoe"}
	s := newService(t, src)

	req := processRequest()
	req.Interval = 5
	rep, err := s.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Filename != "Process_Report_20240301_1030.pdf" {
		t.Fatalf("filename = %s", rep.Filename)
	}
	if rep.Rows != 1 || !bytes.HasPrefix(rep.PDF, []byte("%PDF-")) {
		t.Fatalf("unexpected report: rows=%d", rep.Rows)
	}
	if src.gotProcess.Interval != 5 || strings.Join(src.gotProcess.Tags, ",") != "TT-102,PT-118" {
		t.Fatalf("query = %+v", src.gotProcess)
	}
}

func TestGenerateRejectsBeforeLoading(t *testing.T) {
	src := &fakeSource{}
	s := newService(t, src)
	req := processRequest()
	req.BatchID = ""
	if _, err := s.Generate(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if src.calls != 0 {
		t.Fatalf("data source queried for an invalid request")
	}
}

func TestGenerateWrapsSourceErrors(t *testing.T) {
	src := &fakeSource{err: datasource.ErrNoDatabase}
	s := newService(t, src)
	_, err := s.Generate(context.Background(), Request{Kind: report.KindAudit, Start: now, End: now})
	if !errors.Is(err, datasource.ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase, got %v", err)
	}
}

func TestGenerateAuditAndAlarm(t *testing.T) {
	src := &fakeSource{}
	s := newService(t, src)
	rep, err := s.Generate(context.Background(), Request{Kind: report.KindAudit, Start: now, End: now, Interval: 3})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if rep.Rows != 0 || rep.Filename != "Audit_Report_20240301_1030.pdf" || src.gotAudit.Interval != 3 {
		t.Fatalf("audit report = %+v", rep.Filename)
	}
	rep, err = s.Generate(context.Background(), Request{Kind: report.KindAlarm, Start: now, End: now})
	if err != nil {
		t.Fatalf("alarm: %v", err)
	}
	if rep.Rows != 1 || rep.Kind != report.KindAlarm {
		t.Fatalf("alarm report rows = %d", rep.Rows)
	}
}

func TestBuildParams(t *testing.T) {
	req := processRequest()
	p := BuildParams(req, 12, "op")
	want := map[string]string{
		report.ParamFromDate:     "01/03/2024 00:00",
		report.ParamToDate:       "01/03/2024 23:59",
		report.ParamBatchID:      "B-42",
		report.ParamTagsSelected: "TT-102, PT-118",
		report.ParamRecordCount:  "12",
		report.ParamPrintedBy:    "op",
	}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("%s = %q, want %q", k, p[k], v)
		}
	}
	req.Kind = report.KindAlarm
	if p := BuildParams(req, 0, ""); p.Has(report.ParamBatchID) || p.Has(report.ParamTagsSelected) {
		t.Fatalf("alarm params carry process fields")
	}
}

func TestServiceTagsAndConfigOverrides(t *testing.T) {
	rc := config.Default().Report
	rc.MaxColumnsPerPage = 0
	empty := ""
	rc.NoDataText = &empty
	s, err := New(&fakeSource{}, rc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cfg := s.assemblers[report.KindProcess].Config()
	if cfg.MaxColumnsPerPage != report.DefaultMaxColumns || cfg.NoDataText != "" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	tags := s.Tags()
	if len(tags) != 46 || tags[0] != "TT-102" {
		t.Fatalf("tags = %v", tags)
	}
}
