// Package cache keeps per-unit diagnostics in Redis, keyed by the rule-set
// version and a hash of the unit, so that unchanged text is not checked
// twice under the same rules.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/resilience"
)

const keyPrefix = "stylecheck:"

// Backend is the key-value store behind the cache. *redis.Client
// implements it.
type Backend interface {
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

// Option configures a ResultCache.
type Option func(*ResultCache)

// WithMetrics counts hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ResultCache) { c.metrics = m }
}

// WithBreaker routes backend calls through cb. While it is open the cache
// behaves as if empty.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *ResultCache) { c.breaker = cb }
}

type ResultCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(backend Backend, ttl time.Duration, opts ...Option) *ResultCache {
	c := &ResultCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "result-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCompute returns the diagnostics of every unit in order. Units
// without an entry are passed to compute in one batch and their results
// stored. Concurrent calls missing the same units share one compute, which
// is not cancelled when a caller's context is; that caller returns early.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	version string,
	units []checker.Unit,
	compute func(ctx context.Context, missing []checker.Unit) ([][]diagnostic.Diagnostic, error),
) ([][]diagnostic.Diagnostic, int, error) {
	keys := make([]string, len(units))
	for i, u := range units {
		keys[i] = Key(version, u)
	}
	results := make([][]diagnostic.Diagnostic, len(units))
	cached := c.lookup(ctx, keys)

	var missing []int
	for i := range units {
		if cached == nil || cached[i] == nil {
			missing = append(missing, i)
			continue
		}
		if err := json.Unmarshal(cached[i], &results[i]); err != nil {
			c.logger.Warn("cache unmarshal failed", "key", keys[i], "error", err)
			missing = append(missing, i)
		}
	}
	hits := len(units) - len(missing)
	c.record(hits, len(missing))
	if len(missing) == 0 {
		return results, hits, nil
	}

	todo := make([]checker.Unit, len(missing))
	batch := make([]string, len(missing))
	for j, i := range missing {
		todo[j] = units[i]
		batch[j] = keys[i]
	}
	if err := ctx.Err(); err != nil {
		return nil, hits, err
	}
	// The flight runs detached from the caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strings.Join(batch, ","), func() (any, error) {
		computed, err := compute(flightCtx, todo)
		if err != nil {
			return nil, err
		}
		entries := make(map[string][]byte, len(batch))
		for j, key := range batch {
			data, err := json.Marshal(computed[j])
			if err != nil {
				c.logger.Error("cache marshal failed", "key", key, "error", err)
				continue
			}
			entries[key] = data
		}
		c.save(flightCtx, entries)
		return computed, nil
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, hits, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, hits, res.Err
	}
	computed := res.Val.([][]diagnostic.Diagnostic)
	for j, i := range missing {
		results[i] = computed[j]
	}
	return results, hits, nil
}

// Forget drops every entry computed under version.
func (c *ResultCache) Forget(ctx context.Context, version string) (int64, error) {
	return c.deletePrefix(ctx, keyPrefix+versionTag(version)+":")
}

// Invalidate drops every entry.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	return c.deletePrefix(ctx, keyPrefix)
}

// Stats returns the hit and miss counts since start.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Key is the cache key of u under a rule-set version. Every field of the
// unit takes part because diagnostics carry its location.
func Key(version string, u checker.Unit) string {
	h := sha256.New()
	for _, field := range []string{u.Raw, u.Pretty, u.File, u.ContextID, strconv.Itoa(u.Line)} {
		h.Write([]byte(field))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%s:%s", keyPrefix, versionTag(version), hex.EncodeToString(h.Sum(nil)[:16]))
}

func versionTag(version string) string {
	if version == "" {
		return "none"
	}
	return version
}

func (c *ResultCache) lookup(ctx context.Context, keys []string) [][]byte {
	var vals [][]byte
	err := c.execute(func() error {
		var err error
		vals, err = c.backend.MGet(ctx, keys...)
		return err
	})
	if err != nil {
		c.logger.Warn("cache lookup failed", "keys", len(keys), "error", err)
		return nil
	}
	if len(vals) != len(keys) {
		c.logger.Error("cache returned wrong number of values", "want", len(keys), "got", len(vals))
		return nil
	}
	return vals
}

func (c *ResultCache) save(ctx context.Context, entries map[string][]byte) {
	if len(entries) == 0 {
		return
	}
	if err := c.execute(func() error {
		return c.backend.SetMany(ctx, entries, c.ttl)
	}); err != nil {
		c.logger.Warn("cache store failed", "keys", len(entries), "error", err)
	}
}

func (c *ResultCache) deletePrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := c.execute(func() error {
		var err error
		n, err = c.backend.DeletePrefix(ctx, prefix)
		return err
	})
	if err != nil {
		return n, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "prefix", prefix, "keys_deleted", n)
	return n, nil
}

func (c *ResultCache) execute(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}
	return c.breaker.Execute(fn)
}

func (c *ResultCache) record(hits, misses int) {
	c.hits.Add(int64(hits))
	c.misses.Add(int64(misses))
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Add(float64(hits))
		c.metrics.CacheMissesTotal.Add(float64(misses))
	}
}
