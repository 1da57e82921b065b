package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// stats accumulates request outcomes across workers.
type stats struct {
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
	transport   int64
	units       int64
	findings    int64
}

func newStats() *stats {
	return &stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// record adds one request. status 0 means the request never got a
// response.
func (s *stats) record(d time.Duration, status, units, findings int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		s.transport++
		return
	}
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	if status == 200 {
		s.units += int64(units)
		s.findings += int64(findings)
	}
}

type summary struct {
	Total, OK, Failed int64
	Units, Findings   int64
	Min, Avg, Max     time.Duration
	P50, P90, P99     time.Duration
	StdDev            time.Duration
	StatusCodes       map[int]int64
}

func (s *stats) summarize() summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := summary{
		Units:       s.units,
		Findings:    s.findings,
		StatusCodes: make(map[int]int64, len(s.statusCodes)),
	}
	for code, n := range s.statusCodes {
		sum.StatusCodes[code] = n
		sum.Total += n
		if code == 200 {
			sum.OK += n
		}
	}
	sum.Total += s.transport
	sum.Failed = sum.Total - sum.OK

	lat := slices.Clone(s.latencies)
	if len(lat) == 0 {
		return sum
	}
	slices.Sort(lat)
	var total time.Duration
	for _, l := range lat {
		total += l
	}
	sum.Min, sum.Max = lat[0], lat[len(lat)-1]
	sum.Avg = total / time.Duration(len(lat))
	sum.P50 = percentile(lat, 50)
	sum.P90 = percentile(lat, 90)
	sum.P99 = percentile(lat, 99)
	var sq float64
	for _, l := range lat {
		diff := float64(l - sum.Avg)
		sq += diff * diff
	}
	sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(lat))))
	return sum
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func (sum summary) write(w io.Writer, elapsed time.Duration) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Requests:     %s (%s ok, %s failed)\n",
		humanize.Comma(sum.Total), humanize.Comma(sum.OK), humanize.Comma(sum.Failed))
	if sum.Total > 0 && elapsed > 0 {
		fmt.Fprintf(w, "Error rate:   %.2f%%\n", float64(sum.Failed)/float64(sum.Total)*100)
		fmt.Fprintf(w, "Requests/sec: %.2f\n", float64(sum.Total)/elapsed.Seconds())
		fmt.Fprintf(w, "Units/sec:    %.2f\n", float64(sum.Units)/elapsed.Seconds())
	}
	fmt.Fprintf(w, "Findings:     %s\n", humanize.Comma(sum.Findings))
	if sum.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min %s  Avg %s  P50 %s  P90 %s  P99 %s  Max %s  StdDev %s\n",
			sum.Min, sum.Avg, sum.P50, sum.P90, sum.P99, sum.Max, sum.StdDev)
	}
	codes := make([]int, 0, len(sum.StatusCodes))
	for code := range sum.StatusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %s\n", code, humanize.Comma(sum.StatusCodes[code]))
	}
}
