package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/checksvctest"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc/handler"
)

func TestPercentile(t *testing.T) {
	lat := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(lat, 50))
	assert.Equal(t, time.Duration(10), percentile(lat, 99))
	assert.Equal(t, time.Duration(1), percentile(lat, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestSummarize(t *testing.T) {
	s := newStats()
	s.record(10*time.Millisecond, 200, 5, 2)
	s.record(30*time.Millisecond, 200, 5, 1)
	s.record(20*time.Millisecond, 503, 5, 0)
	s.record(0, 0, 5, 0)

	sum := s.summarize()
	assert.Equal(t, int64(4), sum.Total)
	assert.Equal(t, int64(2), sum.OK)
	assert.Equal(t, int64(2), sum.Failed)
	assert.Equal(t, int64(10), sum.Units)
	assert.Equal(t, int64(3), sum.Findings)
	assert.Equal(t, 10*time.Millisecond, sum.Min)
	assert.Equal(t, 20*time.Millisecond, sum.Avg)
	assert.Equal(t, 30*time.Millisecond, sum.Max)

	var out bytes.Buffer
	sum.write(&out, time.Second)
	assert.Contains(t, out.String(), "503: 1")
}

func TestBatchFresh(t *testing.T) {
	req := batch(config{batch: 3, fresh: true}, 1, 2)
	require.Len(t, req.Units, 3)
	assert.NotEqual(t, req.Units[0].Raw, sampleParagraphs[3])
	assert.Equal(t, int32(3), req.Units[2].Line)
}

func TestRunAgainstHandler(t *testing.T) {
	engine, err := checksvctest.Engine()
	require.NoError(t, err)
	h := handler.New(checksvc.New(engine), 0)
	srv := httptest.NewServer(handler.NewRouter(h, handler.RouterConfig{}))
	defer srv.Close()

	s := run(context.Background(), config{
		baseURL:     srv.URL,
		concurrency: 2,
		duration:    200 * time.Millisecond,
		batch:       4,
	}, srv.Client())
	sum := s.summarize()
	require.Positive(t, sum.OK)
	assert.Equal(t, sum.Total, sum.OK)
	assert.Positive(t, sum.Findings)
}
