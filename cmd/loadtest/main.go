// Command loadtest drives POST /api/v1/check with concurrent workers and
// prints throughput and latency figures.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
)

var sampleParagraphs = []string{
	"Send an e-mail to the administrator before you start the upgrade.",
	"You need to login to the web site with your user name.",
	"Snapshots are taken before and after every package update so that you can roll back.",
	"The the installer detects most network cards automatically.",
	"Use the partitioner to create a separate home partition and encrypt it with a strong password that you can remember without writing it down anywhere near the machine itself.",
	"Refer to the hardware list for details on supported devices.",
}

type config struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	batch       int
	fresh       bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the checker service")
	flag.IntVar(&cfg.concurrency, "concurrency", 10, "number of concurrent workers")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "test duration")
	flag.IntVar(&cfg.batch, "batch", 20, "units per request")
	flag.BoolVar(&cfg.fresh, "fresh", false, "make every unit unique so the result cache never hits")
	flag.Parse()

	fmt.Println("=== Checker Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.baseURL)
	fmt.Printf("Concurrency: %d\n", cfg.concurrency)
	fmt.Printf("Duration:    %s\n", cfg.duration)
	fmt.Printf("Batch:       %d units\n", cfg.batch)
	fmt.Println()

	start := time.Now()
	s := run(context.Background(), cfg, &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.concurrency * 2,
			MaxIdleConnsPerHost: cfg.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	})
	sum := s.summarize()
	sum.write(os.Stdout, time.Since(start))
	if sum.Total == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the service running?")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, client *http.Client) *stats {
	s := newStats()
	ctx, cancel := context.WithTimeout(ctx, cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := 0; ctx.Err() == nil; seq++ {
				body, err := json.Marshal(batch(cfg, w, seq))
				if err != nil {
					panic(err)
				}
				start := time.Now()
				status, findings := post(ctx, client, cfg.baseURL, body)
				if ctx.Err() != nil && status == 0 {
					return
				}
				s.record(time.Since(start), status, cfg.batch, findings)
			}
		}()
	}
	wg.Wait()
	return s
}

func batch(cfg config, worker, seq int) proto.CheckRequest {
	req := proto.CheckRequest{Title: fmt.Sprintf("loadtest-%d-%d", worker, seq)}
	for i := 0; i < cfg.batch; i++ {
		raw := sampleParagraphs[(worker+seq+i)%len(sampleParagraphs)]
		if cfg.fresh {
			raw = fmt.Sprintf("%s Run %d.%d.%d.", raw, worker, seq, i)
		}
		req.Units = append(req.Units, proto.Unit{Raw: raw, File: "loadtest", Line: int32(i + 1)})
	}
	return req
}

func post(ctx context.Context, client *http.Client, baseURL string, body []byte) (status, findings int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/check", bytes.NewReader(body))
	if err != nil {
		return 0, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, 0
	}
	var out proto.CheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return resp.StatusCode, 0
	}
	return resp.StatusCode, int(out.Errors + out.Warnings)
}
