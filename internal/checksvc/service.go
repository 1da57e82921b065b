// Package checksvc is the checker service: it runs check requests through
// the engine, caches per-unit results by rule-set version, stores reports
// and reloads rules. The HTTP handler, RPC server and queue worker all go
// through a Service.
package checksvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/tracing"
)

// Cache stores per-unit diagnostics keyed by rule-set version.
type Cache interface {
	// GetOrCompute returns the diagnostics of every unit, calling compute
	// for the units it has no entry for. It also returns the number of
	// cache hits.
	GetOrCompute(ctx context.Context, version string, units []checker.Unit,
		compute func(ctx context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error),
	) ([][]diagnostic.Diagnostic, int, error)
	Forget(ctx context.Context, version string) (int64, error)
	Invalidate(ctx context.Context) (int64, error)
}

// Store persists reports.
type Store interface {
	Save(ctx context.Context, resp *proto.CheckResponse) (int64, error)
	Get(ctx context.Context, id int64) (*proto.CheckResponse, error)
	List(ctx context.Context, page proto.Pagination) ([]proto.ReportSummary, error)
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the result cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithStore enables the report store.
func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

// WithLoader sets where Reload reads rule definitions from.
func WithLoader(load checker.Loader) Option {
	return func(s *Service) { s.load = load }
}

// WithErrorsOnly drops warnings from every report.
func WithErrorsOnly(on bool) Option {
	return func(s *Service) { s.errorsOnly = on }
}

// WithReloadTimeout bounds a rule reload.
func WithReloadTimeout(d time.Duration) Option {
	return func(s *Service) { s.reloadTimeout = d }
}

// WithMaxUnits caps the number of units in one request.
func WithMaxUnits(n int) Option {
	return func(s *Service) { s.maxUnits = n }
}

type Service struct {
	engine        *checker.Engine
	cache         Cache
	store         Store
	load          checker.Loader
	errorsOnly    bool
	reloadTimeout time.Duration
	maxUnits      int
	logger        *slog.Logger
}

func New(engine *checker.Engine, opts ...Option) *Service {
	s := &Service{
		engine:        engine,
		reloadTimeout: 30 * time.Second,
		maxUnits:      10000,
		logger:        slog.Default().With("component", "check-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one check request.
type Result struct {
	Report    report.Report
	ReportID  int64
	CacheHits int
}

// Proto converts the result to its wire form.
func (r *Result) Proto() *proto.CheckResponse {
	resp := reportToProto(r.Report)
	resp.ReportID = r.ReportID
	return resp
}

// Check runs every unit of req against the active rule set.
func (s *Service) Check(ctx context.Context, req proto.CheckRequest) (*Result, error) {
	if len(req.Units) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "at least one unit is required")
	}
	if s.maxUnits > 0 && len(req.Units) > s.maxUnits {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge,
			"%d units exceeds the limit of %d", len(req.Units), s.maxUnits)
	}
	units := make([]checker.Unit, len(req.Units))
	for i, u := range req.Units {
		if u.Line < 0 {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "unit %d: negative line %d", i, u.Line)
		}
		units[i] = checker.Unit{
			Raw:       u.Raw,
			Pretty:    u.Pretty,
			ContextID: u.ContextID,
			File:      u.File,
			Line:      int(u.Line),
		}
	}
	if req.Store && s.store == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "report store is not configured")
	}

	ctx, span := tracing.StartChildSpan(ctx, "checksvc.check")
	span.SetAttr("units", len(units))

	rs := s.engine.RuleSet()
	version := ""
	if rs != nil {
		version = rs.Version()
	}

	var (
		results [][]diagnostic.Diagnostic
		hits    int
		err     error
	)
	if s.cache != nil {
		results, hits, err = s.cache.GetOrCompute(ctx, version, units, func(ctx context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error) {
			return s.engine.CheckAllWith(ctx, rs, missing)
		})
	} else {
		results, err = s.engine.CheckAllWith(ctx, rs, units)
	}
	span.SetAttr("cache_hits", hits)
	span.End(err)
	if err != nil {
		return nil, checkError(err)
	}

	title := req.Title
	if title == "" {
		title = "request"
	}
	res := &Result{
		Report: report.Build(title, results, report.Options{
			ErrorsOnly:     req.ErrorsOnly || s.errorsOnly,
			RuleSetVersion: version,
		}),
		CacheHits: hits,
	}
	if req.Store {
		id, err := s.store.Save(ctx, res.Proto())
		if err != nil {
			return nil, fmt.Errorf("%w: saving report: %w", apperrors.ErrUnavailable, err)
		}
		res.ReportID = id
	}

	logger.FromContext(ctx).Info("check completed",
		"units", len(units),
		"errors", res.Report.Summary.Errors,
		"warnings", res.Report.Summary.Warnings,
		"cache_hits", hits,
		"report_id", res.ReportID,
	)
	return res, nil
}

func checkError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", apperrors.ErrInternal, err)
	}
}

// RuleSet describes the active rule set.
func (s *Service) RuleSet() proto.RuleSetResponse {
	rs := s.engine.RuleSet()
	if rs == nil {
		return proto.RuleSetResponse{}
	}
	return proto.RuleSetResponse{
		Loaded:    true,
		Version:   rs.Version(),
		Rules:     int32(rs.Rules()),
		Groups:    int32(rs.Groups()),
		Prefilter: rs.HasPrefilter(),
	}
}

// Reload rereads and recompiles the rules. On failure the active rule set
// stays in place. Cached results of the replaced version are dropped.
func (s *Service) Reload(ctx context.Context) (proto.RuleSetResponse, error) {
	if s.load == nil {
		return proto.RuleSetResponse{}, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "no rules source is configured")
	}
	before := s.RuleSet()
	err := resilience.WithTimeout(ctx, s.reloadTimeout, "rules reload", func(ctx context.Context) error {
		_, err := s.engine.Reload(ctx, s.load)
		return err
	})
	if err != nil {
		return proto.RuleSetResponse{}, err
	}
	after := s.RuleSet()
	if s.cache != nil && before.Loaded && before.Version != after.Version {
		if n, err := s.cache.Forget(ctx, before.Version); err != nil {
			s.logger.Warn("failed to drop cached results", "version", before.Version, "error", err)
		} else {
			s.logger.Info("dropped cached results", "version", before.Version, "keys", n)
		}
	}
	return after, nil
}

// InvalidateCache drops every cached result.
func (s *Service) InvalidateCache(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled")
	}
	return s.cache.Invalidate(ctx)
}

// ListReports returns stored report summaries, newest first.
func (s *Service) ListReports(ctx context.Context, page proto.Pagination) (*proto.ListReportsResponse, error) {
	if s.store == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "report store is not configured")
	}
	if page.Limit <= 0 || page.Limit > 100 {
		page.Limit = 20
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	reports, err := s.store.List(ctx, page)
	if err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []proto.ReportSummary{}
	}
	return &proto.ListReportsResponse{Reports: reports}, nil
}

// GetReport returns one stored report.
func (s *Service) GetReport(ctx context.Context, id int64) (*proto.CheckResponse, error) {
	if s.store == nil {
		return nil, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "report store is not configured")
	}
	return s.store.Get(ctx, id)
}

func reportToProto(r report.Report) *proto.CheckResponse {
	resp := &proto.CheckResponse{
		Title:          r.Title,
		RuleSetVersion: r.RuleSetVersion,
		Units:          int32(r.Summary.Units),
		Errors:         int32(r.Summary.Errors),
		Warnings:       int32(r.Summary.Warnings),
		Diagnostics:    make([]proto.Diagnostic, 0, len(r.Diagnostics)),
	}
	for _, d := range r.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, proto.Diagnostic{
			Check:       string(d.Check),
			Severity:    d.Severity.String(),
			File:        d.Location.File,
			ContextID:   d.Location.ContextID,
			Line:        int32(d.Location.Line),
			Match:       d.Match,
			Message:     d.Message,
			Suggestions: d.Suggestions,
			Content:     d.Content,
			Excerpt:     d.Excerpt,
		})
	}
	return resp
}
