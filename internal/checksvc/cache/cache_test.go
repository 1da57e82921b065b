package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/resilience"
)

type fakeBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  time.Duration
	err  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string][]byte)}
}

func (f *fakeBackend) MGet(_ context.Context, keys ...string) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = f.data[k]
	}
	return out, nil
}

func (f *fakeBackend) SetMany(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for k, v := range entries {
		f.data[k] = v
	}
	f.ttl = ttl
	return nil
}

func (f *fakeBackend) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func diag(line int, msg string) []diagnostic.Diagnostic {
	return []diagnostic.Diagnostic{{
		Check:    diagnostic.CheckLength,
		Severity: diagnostic.SeverityWarning,
		Location: diagnostic.Location{Line: line},
		Message:  msg,
	}}
}

func fakeCompute(calls *int) func(context.Context, []checker.Unit) ([][]diagnostic.Diagnostic, error) {
	return func(_ context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error) {
		*calls++
		out := make([][]diagnostic.Diagnostic, len(missing))
		for i, u := range missing {
			if u.Raw != "clean" {
				out[i] = diag(u.Line, u.Raw)
			}
		}
		return out, nil
	}
}

func TestGetOrCompute(t *testing.T) {
	backend := newFakeBackend()
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	c := New(backend, time.Minute, WithMetrics(m))
	units := []checker.Unit{{Raw: "one", Line: 1}, {Raw: "clean", Line: 2}}

	calls := 0
	first, hits, err := c.GetOrCompute(context.Background(), "v1", units, fakeCompute(&calls))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, calls)
	assert.Len(t, backend.data, 2)
	assert.Equal(t, time.Minute, backend.ttl)

	second, hits, err := c.GetOrCompute(context.Background(), "v1", units, fakeCompute(&calls))
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
	assert.Equal(t, 1, calls)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached results differ (-computed +cached):\n%s", diff)
	}
	assert.Nil(t, second[1])

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMissesTotal))
	hitCount, missCount := c.Stats()
	assert.Equal(t, int64(2), hitCount)
	assert.Equal(t, int64(2), missCount)
}

func TestGetOrComputePartialHit(t *testing.T) {
	c := New(newFakeBackend(), time.Minute)
	calls := 0
	_, _, err := c.GetOrCompute(context.Background(), "v1", []checker.Unit{{Raw: "one", Line: 1}}, fakeCompute(&calls))
	require.NoError(t, err)

	var seen []checker.Unit
	units := []checker.Unit{{Raw: "one", Line: 1}, {Raw: "two", Line: 2}}
	got, hits, err := c.GetOrCompute(context.Background(), "v1", units, func(_ context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error) {
		seen = missing
		return [][]diagnostic.Diagnostic{diag(2, "two")}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
	assert.Equal(t, []checker.Unit{{Raw: "two", Line: 2}}, seen)
	assert.Equal(t, "one", got[0][0].Message)
	assert.Equal(t, "two", got[1][0].Message)
}

func TestKeyDependsOnVersionAndLocation(t *testing.T) {
	u := checker.Unit{Raw: "text", File: "a.xml", Line: 3}
	assert.NotEqual(t, Key("v1", u), Key("v2", u))
	moved := u
	moved.Line = 4
	assert.NotEqual(t, Key("v1", u), Key("v1", moved))
	assert.True(t, strings.HasPrefix(Key("", u), "stylecheck:none:"))
	assert.Equal(t, Key("v1", u), Key("v1", u))
}

func TestForgetAndInvalidate(t *testing.T) {
	backend := newFakeBackend()
	c := New(backend, time.Minute)
	calls := 0
	units := []checker.Unit{{Raw: "one"}}
	_, _, err := c.GetOrCompute(context.Background(), "v1", units, fakeCompute(&calls))
	require.NoError(t, err)
	_, _, err = c.GetOrCompute(context.Background(), "v2", units, fakeCompute(&calls))
	require.NoError(t, err)

	n, err := c.Forget(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, backend.data)
}

func TestBackendFailureFallsBackToCompute(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection refused")
	cb := resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	c := New(backend, time.Minute, WithBreaker(cb))

	calls := 0
	units := []checker.Unit{{Raw: "one"}}
	got, hits, err := c.GetOrCompute(context.Background(), "v1", units, fakeCompute(&calls))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)
	assert.Equal(t, "one", got[0][0].Message)
	assert.Equal(t, resilience.StateOpen, cb.State())

	backend.err = nil
	_, hits, err = c.GetOrCompute(context.Background(), "v1", units, fakeCompute(&calls))
	require.NoError(t, err)
	assert.Equal(t, 0, hits)
	assert.Empty(t, backend.data)
	assert.Equal(t, 2, calls)
}

func TestComputeError(t *testing.T) {
	c := New(newFakeBackend(), time.Minute)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "v1", []checker.Unit{{Raw: "x"}}, func(context.Context, []checker.Unit) ([][]diagnostic.Diagnostic, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSharedComputeOutlivesCancelledCaller(t *testing.T) {
	backend := newFakeBackend()
	c := New(backend, time.Minute)
	units := []checker.Unit{{Raw: "one", Line: 1}}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	compute := func(ctx context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return [][]diagnostic.Diagnostic{diag(1, "one")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(ctx, "v1", units, compute)
		firstErr <- err
	}()
	<-started

	type result struct {
		diags [][]diagnostic.Diagnostic
		err   error
	}
	second := make(chan result, 1)
	go func() {
		diags, _, err := c.GetOrCompute(context.Background(), "v1", units, compute)
		second <- result{diags, err}
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	require.Len(t, got.diags, 1)
	assert.Equal(t, "one", got.diags[0][0].Message)

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Len(t, backend.data, 1)
}
