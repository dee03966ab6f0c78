// Package main provides a performance benchmarking tool for the Radar CLI.
// It generates synthetic account registries and touchpoint snapshots of different
// sizes, runs forecasts against each of them multiple times, treating the first
// successful cached run as cold and averaging the rest as warm, and writes CSV
// output for performance analysis and documentation.
//
// Prerequisites:
// - radar binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where synthetic snapshots are generated
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Horizon     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// Dataset describes one synthetic snapshot pair.
type Dataset struct {
	Name         string
	Accounts     int
	HistoryDays  int
	DailyTouches float64 // Mean touchpoints per account and day
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Horizons    []int
	Datasets    []Dataset
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     14,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Horizons:    []int{30, 365},
		Datasets: []Dataset{
			{Name: "small", Accounts: 100, HistoryDays: 180, DailyTouches: 0.5},
			{Name: "medium", Accounts: 2_000, HistoryDays: 365, DailyTouches: 0.5},
			{Name: "large", Accounts: 20_000, HistoryDays: 365, DailyTouches: 0.3},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("radar", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the radar binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("radar"); err != nil {
		return fmt.Errorf("radar binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// generateDataset writes the registry and touchpoint CSVs of a dataset and returns their paths
func generateDataset(dir string, ds Dataset, cutoff time.Time) (string, string, error) {
	rng := rand.New(rand.NewPCG(42, uint64(ds.Accounts)))
	accountsPath := filepath.Join(dir, ds.Name+"_accounts.csv")
	touchpointsPath := filepath.Join(dir, ds.Name+"_touchpoints.csv")

	err := writeCSV(accountsPath, []string{"account_id", "company", "tier", "arr", "renewal_date"}, func(w *csv.Writer) error {
		for i := range ds.Accounts {
			renewal := cutoff.AddDate(0, 0, 1+rng.IntN(365)).Format(time.DateOnly)
			arr := strconv.Itoa(5_000 + rng.IntN(250_000))
			if err := w.Write([]string{accountID(i), "Company " + strconv.Itoa(i), "SMB", arr, renewal}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}

	err = writeCSV(touchpointsPath, []string{"account_id", "touchpoint_dt", "interaction_value"}, func(w *csv.Writer) error {
		for i := range ds.Accounts {
			// Every account gets its own activity level so the forecast spreads across buckets
			activity := ds.DailyTouches * 2 * rng.Float64()
			for d := range ds.HistoryDays {
				if rng.Float64() >= activity {
					continue
				}
				day := cutoff.AddDate(0, 0, -d).Format(time.DateOnly)
				value := strconv.FormatFloat(1+4*rng.Float64(), 'f', 2, 64)
				if err := w.Write([]string{accountID(i), day, value}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return accountsPath, touchpointsPath, err
}

func accountID(i int) string {
	return fmt.Sprintf("ACC%06d", i)
}

func writeCSV(path string, header []string, writeRows func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := writeRows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// runBenchmarks executes all benchmark tests across configured datasets
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult
	cutoff := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		fmt.Printf("Generating %s dataset (%d accounts)\n", ds.Name, ds.Accounts)
		accounts, touchpoints, err := generateDataset(config.WorkDir, ds, cutoff)
		if err != nil {
			fmt.Printf("Warning: failed to generate %s: %v\n", ds.Name, err)
			continue
		}
		for _, horizon := range config.Horizons {
			args := []string{
				"forecast", "-a", accounts, "-t", touchpoints,
				"--cutoff", cutoff.Format(time.DateOnly),
				"--horizon", strconv.Itoa(horizon),
				"--workers", strconv.Itoa(config.Workers),
				"--limit", "10",
			}
			results = append(results, runBenchmarkSuite(config, ds.Name, horizon, args))
		}
	}
	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one forecast
func runBenchmarkSuite(config BenchmarkConfig, dataset string, horizon int, args []string) BenchmarkResult {
	fmt.Printf("Running %d day forecast on %s\n", horizon, dataset)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, args, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Horizon:     horizon,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a radar command multiple times with the given cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, args []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args = append(append([]string{}, args...), "--cache-backend", cacheBackend)

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "radar", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil && !timedOut && isSuccess(output) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Forecast completed in") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("radar_benchmark_%s.csv", timestamp))

	err := writeCSV(filename, []string{"dataset", "horizon", "no_cache_avg", "cold_time", "warm_avg"}, func(w *csv.Writer) error {
		for _, result := range results {
			if err := w.Write([]string{result.Dataset, strconv.Itoa(result.Horizon), result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, horizon := range config.Horizons {
		fmt.Printf("%d day forecast:\n", horizon)
		for _, result := range results {
			if result.Horizon == horizon {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
}
