// Package server exposes report generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wudi/plantreport/datasource"
	"github.com/wudi/plantreport/observability"
	"github.com/wudi/plantreport/report"
	"github.com/wudi/plantreport/service"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Accepted layouts for the from and to query parameters, in plant local
// time.
var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	report.ParamTimeLayout,
}

var errBadQuery = errors.New("bad query")

// Generator renders reports.
type Generator interface {
	Generate(ctx context.Context, req service.Request) (*service.Report, error)
	Tags() []string
}

// Server routes report requests to a Generator.
type Server struct {
	gen      Generator
	logger   observability.Logger
	gatherer prometheus.Gatherer
	health   func(context.Context) error
	loc      *time.Location
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l observability.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer sets the registry served at /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithHealthCheck makes /healthz report the result of check.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithLocation sets the zone of the from and to parameters.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func New(gen Generator, opts ...Option) *Server {
	s := &Server{
		gen:      gen,
		logger:   observability.NopLogger{},
		gatherer: prometheus.DefaultGatherer,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.withRequestID)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/tags", s.handleTags).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reports/{kind}", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/reports/{kind}/preview", s.handlePreview).Methods(http.MethodGet)
	return r
}

type ctxKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
		s.logger.Debug("request served",
			observability.String("request_id", id),
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Duration("elapsed", time.Since(start)))
	})
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"tags": s.gen.Tags()})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.generate(w, r)
	if !ok {
		return
	}
	disposition := "attachment"
	if v, _ := strconv.ParseBool(r.URL.Query().Get("inline")); v {
		disposition = "inline"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, rep.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.PDF)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.generate(w, r)
	if !ok {
		return
	}
	page, err := PreviewPage(rep)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) (*service.Report, bool) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	rep, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return rep, true
}

func (s *Server) parseRequest(r *http.Request) (service.Request, error) {
	q := r.URL.Query()
	req := service.Request{
		Kind:    report.Kind(mux.Vars(r)["kind"]),
		BatchID: q.Get("batch_id"),
	}
	var err error
	if req.Start, err = s.parseTime(q.Get("from")); err != nil {
		return req, fmt.Errorf("%w: from: %w", errBadQuery, err)
	}
	if req.End, err = s.parseTime(q.Get("to")); err != nil {
		return req, fmt.Errorf("%w: to: %w", errBadQuery, err)
	}
	if v := q.Get("interval"); v != "" {
		if req.Interval, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("%w: interval %q is not an integer", errBadQuery, v)
		}
	}
	for _, v := range q["tags"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}
	return req, nil
}

func (s *Server) parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q does not match YYYY-MM-DDTHH:MM", v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	fields := []observability.Field{
		observability.String("request_id", RequestID(r.Context())),
		observability.Int("status", status),
		observability.Error("error", err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("report request failed", fields...)
	} else {
		s.logger.Info("report request rejected", fields...)
	}
	respondJSON(w, status, map[string]string{"error": err.Error(), "request_id": RequestID(r.Context())})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadQuery),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, report.ErrUnknownKind),
		errors.Is(err, datasource.ErrUnknownTag):
		return http.StatusBadRequest
	case errors.Is(err, datasource.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
