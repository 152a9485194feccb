package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// queries are typed one character at a time, the way a settings dialog
// sends them, so each keystroke refines the previous hits.
var queries = []string{
	"font size",
	"line numbers",
	"theme",
	"soft wrap",
	"commit message",
	"ligatures",
	"keymap",
	"trailing spaces",
	"Settings | Editor | Font",
	"colour scheme",
}

type Stats struct {
	total         atomic.Int64
	errors        atomic.Int64
	invalidations atomic.Int64

	mu          sync.Mutex
	latencies   map[string][]time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make(map[string][]time.Duration),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) Record(endpoint string, d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil || status < 200 || status >= 300 {
		s.errors.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	s.latencies[endpoint] = append(s.latencies[endpoint], d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

type searchResponse struct {
	ContentHits []struct {
		ID string `json:"id"`
	} `json:"content_hits"`
}

type worker struct {
	base   string
	client *http.Client
	stats  *Stats
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the options service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent typists")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	invalidateEvery := flag.Duration("invalidate-every", 0, "invalidate the index at this interval (0 disables)")
	flag.Parse()

	fmt.Println("=== Options Service Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	if *invalidateEvery > 0 {
		fmt.Printf("Invalidate:  every %s\n", *invalidateEvery)
	}
	fmt.Println()

	stats := NewStats()
	w := &worker{
		base:  strings.TrimRight(*baseURL, "/"),
		stats: stats,
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        *concurrency * 2,
				MaxIdleConnsPerHost: *concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *concurrency; i++ {
		offset := i
		g.Go(func() error {
			w.typeQueries(gctx, offset)
			return nil
		})
	}
	if *invalidateEvery > 0 {
		g.Go(func() error {
			w.invalidate(gctx, *invalidateEvery)
			return nil
		})
	}
	g.Wait()

	printReport(stats, *duration)
}

// typeQueries replays queries keystroke by keystroke until ctx ends.
func (w *worker) typeQueries(ctx context.Context, offset int) {
	for n := offset; ctx.Err() == nil; n++ {
		query := queries[n%len(queries)]
		var previous []string
		for i := 1; i <= len(query) && ctx.Err() == nil; i++ {
			v := url.Values{"q": {query[:i]}}
			if len(previous) > 0 {
				v.Set("incremental", "true")
				v.Set("previous", strings.Join(previous, ","))
			}
			var body searchResponse
			if w.get(ctx, "search", "/api/v1/options/search?"+v.Encode(), &body) {
				previous = previous[:0]
				for _, h := range body.ContentHits {
					previous = append(previous, h.ID)
				}
			}
		}
		w.get(ctx, "prefix", "/api/v1/options/prefix?p="+url.QueryEscape(strings.Fields(query)[0]), nil)
	}
}

func (w *worker) invalidate(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/api/v1/index/invalidate", nil)
			if err != nil {
				return
			}
			start := time.Now()
			resp, err := w.client.Do(req)
			if err != nil {
				w.stats.Record("invalidate", time.Since(start), 0, err)
				continue
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			w.stats.invalidations.Add(1)
			w.stats.Record("invalidate", time.Since(start), resp.StatusCode, nil)
		}
	}
}

// get issues one GET and decodes a 2xx body into out when out is set.
func (w *worker) get(ctx context.Context, endpoint, path string, out any) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+path, nil)
	if err != nil {
		return false
	}
	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			w.stats.Record(endpoint, time.Since(start), 0, err)
		}
		return false
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	w.stats.Record(endpoint, time.Since(start), resp.StatusCode, nil)
	return ok && err == nil
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Errors:          %d\n", errs)
	fmt.Printf("Invalidations:   %d\n", stats.invalidations.Load())
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errs)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()

	endpoints := make([]string, 0, len(stats.latencies))
	for name := range stats.latencies {
		endpoints = append(endpoints, name)
	}
	sort.Strings(endpoints)
	for _, name := range endpoints {
		latencies := stats.latencies[name]
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Println()
		fmt.Printf("=== Latency: %s (%d) ===\n", name, len(latencies))
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", mean(latencies))
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func mean(values []time.Duration) time.Duration {
	var sum time.Duration
	for _, v := range values {
		sum += v
	}
	return sum / time.Duration(len(values))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
