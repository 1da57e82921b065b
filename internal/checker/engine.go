// Package checker runs the terminology, duplicate and sentence-length checks
// over text units. An Engine holds the active terminology rule set and can
// swap it for a recompiled one while checks are in flight.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/duplicate"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/length"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
)

// Unit is one checkable piece of text and where it came from. Pretty is the
// display form of Raw and falls back to it when empty.
type Unit struct {
	Raw       string `json:"raw" yaml:"raw"`
	Pretty    string `json:"pretty,omitempty" yaml:"pretty,omitempty"`
	ContextID string `json:"context_id,omitempty" yaml:"contextId,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`
	Line      int    `json:"line" yaml:"line"`
}

// Loader produces the rule definitions for a reload.
type Loader func(ctx context.Context) (terminology.Definitions, error)

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of units CheckAll checks concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMetrics records check and compilation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithCompileOptions sets the options Reload compiles rule sets with.
func WithCompileOptions(opts ...terminology.Option) Option {
	return func(e *Engine) {
		e.compileOpts = opts
	}
}

type Engine struct {
	rules       atomic.Pointer[terminology.RuleSet]
	reloads     singleflight.Group
	compileOpts []terminology.Option
	workers     int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New returns an Engine using rs. A nil rs disables the terminology check
// until a rule set is swapped in.
func New(rs *terminology.RuleSet, opts ...Option) *Engine {
	e := &Engine{
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("component", "checker"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if rs != nil {
		e.Swap(rs)
	}
	return e
}

// RuleSet returns the active rule set, or nil.
func (e *Engine) RuleSet() *terminology.RuleSet {
	return e.rules.Load()
}

// Swap installs rs as the active rule set and returns the previous one.
// Checks already running keep the rule set they started with.
func (e *Engine) Swap(rs *terminology.RuleSet) *terminology.RuleSet {
	old := e.rules.Swap(rs)
	if e.metrics != nil && rs != nil {
		e.metrics.ActiveRules.Set(float64(rs.Rules()))
	}
	if rs != nil {
		e.logger.Info("rule set activated",
			"version", rs.Version(),
			"rules", rs.Rules(),
			"groups", rs.Groups(),
			"prefilter", rs.HasPrefilter(),
		)
	}
	return old
}

// Check segments the unit into sentences and runs the terminology,
// duplicate and sentence-length checks on each, in that order.
func (e *Engine) Check(u Unit) ([]diagnostic.Diagnostic, error) {
	return e.check(e.rules.Load(), u)
}

func (e *Engine) check(rs *terminology.RuleSet, u Unit) ([]diagnostic.Diagnostic, error) {
	start := time.Now()
	pretty := u.Pretty
	if pretty == "" {
		pretty = u.Raw
	}

	var diags []diagnostic.Diagnostic
	sentences := tokenizer.Segment(u.Raw)
	prefiltered := 0
	for _, text := range sentences {
		s := tokenizer.Sentence{
			Text:      text,
			Tokens:    tokenizer.Tokenize(text),
			File:      u.File,
			ContextID: u.ContextID,
			Line:      u.Line,
			Raw:       u.Raw,
			Pretty:    pretty,
		}
		found, stats, err := rs.ScanWithStats(s)
		if err != nil {
			return nil, fmt.Errorf("checking %s line %d: %w", describe(u), u.Line, err)
		}
		if stats.Prefiltered {
			prefiltered++
		}
		diags = append(diags, found...)
		diags = append(diags, duplicate.Scan(s)...)
		diags = append(diags, length.Scan(s)...)
	}

	if e.metrics != nil {
		e.metrics.UnitsCheckedTotal.Inc()
		e.metrics.SentencesTotal.Add(float64(len(sentences)))
		e.metrics.PrefilterSkipsTotal.Add(float64(prefiltered))
		for _, d := range diags {
			e.metrics.DiagnosticsTotal.WithLabelValues(string(d.Check), d.Severity.String()).Inc()
		}
		e.metrics.CheckDuration.Observe(time.Since(start).Seconds())
	}
	e.logger.Debug("unit checked",
		"file", u.File,
		"line", u.Line,
		"sentences", len(sentences),
		"prefiltered", prefiltered,
		"diagnostics", len(diags),
	)
	return diags, nil
}

// CheckAll checks units concurrently and returns their diagnostics in
// input order. Every unit is checked against the same rule set even if a
// swap happens meanwhile.
func (e *Engine) CheckAll(ctx context.Context, units []Unit) ([][]diagnostic.Diagnostic, error) {
	return e.CheckAllWith(ctx, e.rules.Load(), units)
}

// CheckAllWith is CheckAll against rs instead of the active rule set. Callers
// that key results by rule-set version take rs from RuleSet first.
func (e *Engine) CheckAllWith(ctx context.Context, rs *terminology.RuleSet, units []Unit) ([][]diagnostic.Diagnostic, error) {
	results := make([][]diagnostic.Diagnostic, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diags, err := e.check(rs, units[i])
			if err != nil {
				return err
			}
			results[i] = diags
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Reload loads and compiles a new rule set and swaps it in. Concurrent
// reloads share one load and compilation. On failure the active rule set is
// left in place.
func (e *Engine) Reload(ctx context.Context, load Loader) (*terminology.RuleSet, error) {
	v, err, shared := e.reloads.Do("reload", func() (any, error) {
		defs, err := load(ctx)
		if err != nil {
			e.recordCompilation("load_error")
			return nil, fmt.Errorf("loading rules: %w", err)
		}
		rs, err := terminology.Compile(defs, e.compileOpts...)
		if err != nil {
			e.recordCompilation("compile_error")
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRules, err)
		}
		e.recordCompilation("ok")
		e.Swap(rs)
		return rs, nil
	})
	if err != nil {
		e.logger.Error("rule reload failed", "error", err, "shared", shared)
		return nil, err
	}
	return v.(*terminology.RuleSet), nil
}

func (e *Engine) recordCompilation(status string) {
	if e.metrics != nil {
		e.metrics.RuleCompilations.WithLabelValues(status).Inc()
	}
}

func describe(u Unit) string {
	switch {
	case u.File != "" && u.ContextID != "":
		return fmt.Sprintf("%s (%s)", u.File, u.ContextID)
	case u.File != "":
		return u.File
	case u.ContextID != "":
		return u.ContextID
	default:
		return "unit"
	}
}

// IsConfigError reports whether err comes from invalid rule definitions
// rather than from the checks themselves.
func IsConfigError(err error) bool {
	var rerr *terminology.RuleError
	return errors.As(err, &rerr) || errors.Is(err, apperrors.ErrInvalidRules)
}
