package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	dberr "ccsim/pkg/error"
	"ccsim/pkg/logging"
	"ccsim/pkg/scheduler"
)

// BenchmarkResult captures timing statistics for one workload under one protocol.
type BenchmarkResult struct {
	Workload       string        `json:"workload"`
	Algorithm      string        `json:"algorithm"`
	Sequence       string        `json:"sequence"`
	Iterations     int           `json:"iterations"`
	Concurrency    int           `json:"concurrency"`
	TotalDuration  time.Duration `json:"total_duration_ns"`
	AvgDuration    time.Duration `json:"avg_duration_ns"`
	MinDuration    time.Duration `json:"min_duration_ns"`
	MaxDuration    time.Duration `json:"max_duration_ns"`
	MedianDuration time.Duration `json:"median_duration_ns"`
	P95Duration    time.Duration `json:"p95_duration_ns"`
	P99Duration    time.Duration `json:"p99_duration_ns"`
	RunsPerSecond  float64       `json:"runs_per_second"`
	// Aborts is the abort count of a single run; runs are deterministic.
	Aborts       int            `json:"aborts"`
	SuccessCount int            `json:"success_count"`
	ErrorCount   int            `json:"error_count"`
	ErrorCodes   map[string]int `json:"error_codes,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// BenchmarkReport aggregates every result of a suite run.
type BenchmarkReport struct {
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	TotalDuration time.Duration     `json:"total_duration"`
	Transactions  int               `json:"transactions"`
	Results       []BenchmarkResult `json:"results"`
}

// suiteConfig is read from the environment:
//   - BENCHMARK_OUTPUT: report directory (default ./benchmark-results)
//   - BENCHMARK_ITERATIONS: runs per workload (default 1000)
//   - BENCHMARK_CONCURRENCY: parallel runs (default 10)
//   - BENCHMARK_TXNS: transactions per generated sequence (default 8)
type suiteConfig struct {
	outputDir    string
	iterations   int
	concurrency  int
	transactions int
}

func main() {
	cfg := suiteConfig{
		outputDir:    envString("BENCHMARK_OUTPUT", "./benchmark-results"),
		iterations:   envInt("BENCHMARK_ITERATIONS", 1000),
		concurrency:  envInt("BENCHMARK_CONCURRENCY", 10),
		transactions: envInt("BENCHMARK_TXNS", 8),
	}

	// Per-run log lines would dominate the timings; keep warnings only.
	if err := logging.Init(logging.Config{Level: logging.LevelWarn, Format: "text"}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Close()

	report, err := runSuite(context.Background(), cfg)
	if err != nil {
		logging.Error("benchmark suite failed", "error", err)
		os.Exit(1)
	}

	path, err := saveJSONReport(report, cfg.outputDir)
	if err != nil {
		logging.Error("failed to save report", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\n%d results in %s, report saved to %s\n", len(report.Results), formatDuration(report.TotalDuration), path)
}

// runSuite benchmarks every workload under every protocol, first sequentially
// and then with cfg.concurrency parallel runs.
func runSuite(ctx context.Context, cfg suiteConfig) (BenchmarkReport, error) {
	report := BenchmarkReport{
		StartTime:    time.Now(),
		Transactions: cfg.transactions,
	}

	for _, w := range workloads {
		seq := w.generate(cfg.transactions, rand.New(rand.NewSource(42)))
		for _, alg := range scheduler.Algorithms {
			for _, conc := range uniqueConcurrency(cfg.concurrency) {
				result, err := runBenchmark(ctx, w.name, seq, alg, cfg.iterations, conc)
				if err != nil {
					return report, err
				}
				report.Results = append(report.Results, result)
				printBenchmarkResult(result)
			}
		}
	}

	report.EndTime = time.Now()
	report.TotalDuration = report.EndTime.Sub(report.StartTime)
	return report, nil
}

func uniqueConcurrency(n int) []int {
	if n <= 1 {
		return []int{1}
	}
	return []int{1, n}
}

// runBenchmark simulates seq iterations times, at most concurrent at once,
// and computes latency percentiles and throughput.
func runBenchmark(ctx context.Context, name, seq string, alg scheduler.Algorithm, iterations, concurrent int) (BenchmarkResult, error) {
	if iterations <= 0 {
		return BenchmarkResult{}, fmt.Errorf("iterations must be positive, got %d", iterations)
	}

	durations := make([]time.Duration, 0, iterations)
	codes := make(map[string]int)
	aborts := 0
	var mu sync.Mutex

	opts := scheduler.DefaultOptions()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrent, 1))

	startTime := time.Now()
	for range iterations {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			runStart := time.Now()
			result, err := scheduler.Simulate(seq, alg, opts)
			duration := time.Since(runStart)

			mu.Lock()
			defer mu.Unlock()
			durations = append(durations, duration)
			if err != nil {
				codes[dberr.CodeOf(err)]++
			} else {
				aborts = len(result.Aborts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BenchmarkResult{}, err
	}
	totalDuration := time.Since(startTime)

	errorCount := 0
	for _, n := range codes {
		errorCount += n
	}

	slices.Sort(durations)
	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return BenchmarkResult{
		Workload:       name,
		Algorithm:      alg.String(),
		Sequence:       seq,
		Iterations:     iterations,
		Concurrency:    concurrent,
		TotalDuration:  totalDuration,
		AvgDuration:    sum / time.Duration(len(durations)),
		MinDuration:    durations[0],
		MaxDuration:    durations[len(durations)-1],
		MedianDuration: percentile(durations, 0.50),
		P95Duration:    percentile(durations, 0.95),
		P99Duration:    percentile(durations, 0.99),
		RunsPerSecond:  float64(iterations) / totalDuration.Seconds(),
		Aborts:         aborts,
		SuccessCount:   iterations - errorCount,
		ErrorCount:     errorCount,
		ErrorCodes:     codes,
		Timestamp:      time.Now(),
	}, nil
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	i := int(float64(len(sorted)) * p)
	return sorted[min(i, len(sorted)-1)]
}

func printBenchmarkResult(r BenchmarkResult) {
	fmt.Printf("%-9s %-8s x%-3d avg %-9s p50 %-9s p95 %-9s p99 %-9s %8.0f runs/s  aborts %d  errors %d\n",
		r.Workload, r.Algorithm, r.Concurrency,
		formatDuration(r.AvgDuration),
		formatDuration(r.MedianDuration),
		formatDuration(r.P95Duration),
		formatDuration(r.P99Duration),
		r.RunsPerSecond, r.Aborts, r.ErrorCount)
}

// formatDuration formats a duration in a human-readable way with appropriate units.
// Examples: 1.23ms, 456.78µs, 12.34s
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func saveJSONReport(report BenchmarkReport, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("benchmark_report_%s.json", report.StartTime.Format("20060102_150405")))
	return path, os.WriteFile(path, data, 0o600)
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
