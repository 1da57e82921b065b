package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/diagnostic"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checker/terminology"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
)

func defs(prefilter bool) terminology.Definitions {
	return terminology.Definitions{
		Prefilter: prefilter,
		Rules: []terminology.RuleDefinition{
			{Accept: "email", Groups: []terminology.GroupDefinition{
				{Patterns: []terminology.PatternDefinition{{Text: "e-mail"}}},
			}},
			{Accept: "log in", AcceptContext: "verbs", Groups: []terminology.GroupDefinition{
				{Patterns: []terminology.PatternDefinition{{Text: "login"}}, Contexts: []terminology.ContextDefinition{
					{Text: "to", Look: terminology.LookBefore},
				}},
			}},
		},
	}
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	rs, err := terminology.Compile(defs(true))
	require.NoError(t, err)
	return New(rs, opts...)
}

func checks(diags []diagnostic.Diagnostic) []diagnostic.Check {
	out := make([]diagnostic.Check, len(diags))
	for i, d := range diags {
		out[i] = d.Check
	}
	return out
}

func TestCheckOrdersDetectorsPerSentence(t *testing.T) {
	e := newEngine(t)
	diags, err := e.Check(Unit{
		Raw:  "Send me an e-mail e-mail today. You need to login login now.",
		File: "guide.xml",
		Line: 12,
	})
	require.NoError(t, err)

	want := []diagnostic.Check{
		diagnostic.CheckTerminology, diagnostic.CheckTerminology, diagnostic.CheckDuplicate,
		diagnostic.CheckTerminology, diagnostic.CheckDuplicate,
	}
	assert.Equal(t, want, checks(diags))
	assert.Equal(t, "In the context of verbs, do not use «login»", diags[3].Message)
	for _, d := range diags {
		assert.Equal(t, "guide.xml", d.Location.File)
		assert.Equal(t, 12, d.Location.Line)
	}
}

func TestCheckPrettyFallsBackToRaw(t *testing.T) {
	e := newEngine(t)
	diags, err := e.Check(Unit{Raw: "an e-mail"})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "an e-mail", diags[0].Content)

	diags, err = e.Check(Unit{Raw: "an e-mail", Pretty: "an <emphasis>e-mail</emphasis>"})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "an <emphasis>e-mail</emphasis>", diags[0].Content)
}

func TestCheckEmptyInputs(t *testing.T) {
	e := newEngine(t)
	for _, raw := range []string{"", "   ", ". . .", " "} {
		diags, err := e.Check(Unit{Raw: raw})
		require.NoError(t, err)
		assert.Empty(t, diags, "%q", raw)
	}
}

func TestCheckWithoutRuleSet(t *testing.T) {
	e := New(nil)
	assert.Nil(t, e.RuleSet())
	diags, err := e.Check(Unit{Raw: "an e-mail e-mail"})
	require.NoError(t, err)
	assert.Equal(t, []diagnostic.Check{diagnostic.CheckDuplicate}, checks(diags))
}

func TestCheckLongSentence(t *testing.T) {
	e := newEngine(t)
	raw := strings.TrimSpace(strings.Repeat("word ", 40)) + "."
	diags, err := e.Check(Unit{Raw: raw})
	require.NoError(t, err)
	var lengths []diagnostic.Diagnostic
	for _, d := range diags {
		if d.Check == diagnostic.CheckLength {
			lengths = append(lengths, d)
		}
	}
	require.Len(t, lengths, 1)
	assert.Equal(t, diagnostic.SeverityError, lengths[0].Severity)
}

func TestCheckAllMatchesSequentialCheck(t *testing.T) {
	e := newEngine(t, WithWorkers(3))
	units := make([]Unit, 50)
	for i := range units {
		units[i] = Unit{
			Raw:  fmt.Sprintf("Unit %d sends an e-mail. Try to login login.", i),
			Line: i + 1,
		}
	}

	got, err := e.CheckAll(context.Background(), units)
	require.NoError(t, err)
	require.Len(t, got, len(units))
	for i, u := range units {
		want, err := e.Check(u)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got[i]); diff != "" {
			t.Errorf("unit %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestCheckAllSingleUnit(t *testing.T) {
	got, err := New(nil).CheckAll(context.Background(), []Unit{{Raw: "the the cat.", Line: 1}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []diagnostic.Check{diagnostic.CheckDuplicate}, checks(got[0]))
}

func TestCheckAllCancelled(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.CheckAll(ctx, []Unit{{Raw: "an e-mail"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSwapKeepsPreviousRuleSet(t *testing.T) {
	e := newEngine(t)
	first := e.RuleSet()

	rs, err := terminology.Compile(terminology.Definitions{})
	require.NoError(t, err)
	old := e.Swap(rs)
	assert.Same(t, first, old)
	assert.Same(t, rs, e.RuleSet())

	diags, err := e.Check(Unit{Raw: "an e-mail"})
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	e := New(nil, WithMetrics(m))

	rs, err := e.Reload(context.Background(), func(context.Context) (terminology.Definitions, error) {
		return defs(false), nil
	})
	require.NoError(t, err)
	assert.Same(t, rs, e.RuleSet())
	assert.Equal(t, terminology.Version(defs(false)), rs.Version())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RuleCompilations.WithLabelValues("ok")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.ActiveRules))
}

func TestReloadFailureKeepsActiveRuleSet(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	e := newEngine(t, WithMetrics(m))
	active := e.RuleSet()

	bad := terminology.Definitions{Rules: []terminology.RuleDefinition{
		{Accept: "x", Groups: []terminology.GroupDefinition{{}}},
	}}
	_, err := e.Reload(context.Background(), func(context.Context) (terminology.Definitions, error) {
		return bad, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRules)
	assert.ErrorIs(t, err, terminology.ErrEmptyPattern)
	assert.True(t, IsConfigError(err))
	assert.Same(t, active, e.RuleSet())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RuleCompilations.WithLabelValues("compile_error")))

	loadErr := errors.New("disk on fire")
	_, err = e.Reload(context.Background(), func(context.Context) (terminology.Definitions, error) {
		return terminology.Definitions{}, loadErr
	})
	assert.ErrorIs(t, err, loadErr)
	assert.False(t, IsConfigError(err))
	assert.Same(t, active, e.RuleSet())
}

func TestConcurrentChecksDuringReload(t *testing.T) {
	e := newEngine(t, WithWorkers(4))
	units := []Unit{{Raw: "an e-mail"}, {Raw: "to login"}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := e.CheckAll(context.Background(), units)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := e.Reload(context.Background(), func(context.Context) (terminology.Definitions, error) {
			return defs(i%2 == 0), nil
		})
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestCheckMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	e := newEngine(t, WithMetrics(m))

	_, err := e.Check(Unit{Raw: "Nothing to see. An e-mail here."})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UnitsCheckedTotal))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SentencesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PrefilterSkipsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DiagnosticsTotal.WithLabelValues("terminology", "error")))
}
