// Command loadtest drives concurrent mining requests against a running gspd
// and reports throughput, latency percentiles, cache hits and status codes.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-concurrency 10] [-duration 30s] [-datasets 8]
//
// Requests rotate through -datasets generated payloads, so once each has been
// mined the rest should be served from the result cache.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Payloads    [][]byte
}

type Stats struct {
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 10000),
		statusCodes: make(map[int]int64),
	}
}

// Record notes one request. status is 0 for transport errors.
func (s *Stats) Record(latency time.Duration, status int, cached bool) {
	s.total.Add(1)
	if status < 200 || status >= 300 {
		s.failed.Add(1)
	} else {
		s.succeeded.Add(1)
	}
	if cached {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusCodes[status]++
	if status != 0 {
		s.latencies = append(s.latencies, latency)
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the mining service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	datasets := flag.Int("datasets", 8, "distinct request payloads to rotate through")
	transactions := flag.Int("transactions", 200, "transactions per payload")
	minSupport := flag.Float64("min-support", 0.1, "min support sent with each request")
	seed := flag.Uint64("seed", 1, "dataset generator seed")
	flag.Parse()

	payloads, err := buildPayloads(*datasets, *transactions, *minSupport, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building payloads: %v\n", err)
		os.Exit(1)
	}
	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Payloads:    payloads,
	}

	fmt.Println("=== GSP Mining Load Test ===")
	fmt.Printf("Target:       %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency:  %d\n", cfg.Concurrency)
	fmt.Printf("Duration:     %s\n", cfg.Duration)
	fmt.Printf("Datasets:     %d x %d transactions, min support %g\n", *datasets, *transactions, *minSupport)
	fmt.Println()

	stats := run(cfg)
	if printReport(os.Stdout, stats, cfg.Duration) == 0 {
		os.Exit(1)
	}
}

// buildPayloads generates n mining requests over a 12-symbol alphabet.
func buildPayloads(n, transactions int, minSupport float64, seed uint64) ([][]byte, error) {
	if n < 1 {
		n = 1
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([][]byte, n)
	for i := range out {
		req := jobs.MineRequest{
			Transactions: randomTransactions(r, transactions),
			MinSupport:   &minSupport,
		}
		body, err := json.Marshal(req)
		if err != nil {
			return nil, err
		}
		out[i] = body
	}
	return out, nil
}

func randomTransactions(r *rand.Rand, n int) [][][]string {
	const alphabet = "abcdefghijkl"
	txs := make([][][]string, n)
	for i := range txs {
		tx := make([][]string, 1+r.IntN(6))
		for j := range tx {
			is := make([]string, 1+r.IntN(3))
			for k := range is {
				is[k] = string(alphabet[r.IntN(len(alphabet))])
			}
			tx[j] = is
		}
		txs[i] = tx
	}
	return txs
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				body := cfg.Payloads[next%len(cfg.Payloads)]
				next++
				start := time.Now()
				status, cached := mine(ctx, client, cfg.BaseURL, body)
				if ctx.Err() != nil && status == 0 {
					return
				}
				stats.Record(time.Since(start), status, cached)
			}
		}(w)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mine(ctx context.Context, client *http.Client, baseURL string, body []byte) (status int, cached bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/mine", bytes.NewReader(body))
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "loadtest-"+uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		return 0, false
	}
	defer resp.Body.Close()

	var out struct {
		Cached bool `json:"cached"`
	}
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, out.Cached
}

// printReport writes the summary and returns the number of requests seen.
func printReport(w io.Writer, stats *Stats, duration time.Duration) int64 {
	total := stats.total.Load()
	succeeded := stats.succeeded.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", total)
	fmt.Fprintf(w, "Successful:      %d\n", succeeded)
	fmt.Fprintf(w, "Failed:          %d\n", stats.failed.Load())
	if total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(stats.failed.Load())/float64(total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if succeeded > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(succeeded)*100)
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(codes))
	for _, code := range codes {
		counts[code] = stats.statusCodes[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", sum/time.Duration(len(latencies)))
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	sort.Ints(codes)
	for _, code := range codes {
		label := fmt.Sprint(code)
		if code == 0 {
			label = "transport error"
		}
		fmt.Fprintf(w, "  %s: %d\n", label, counts[code])
	}
	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: No requests completed. Is gspd running?")
	}
	return total
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
