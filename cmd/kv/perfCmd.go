package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/cKV/cmd/util"
	"github.com/ValentinKolb/cKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for cKV servers",
		Long:    "Runs set, get, delete, exists and mixed benchmarks against a cKV server and prints the throughput and the latency percentiles of every benchmark.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	// perfTimers holds one latency timer per benchmark
	perfTimers = metrics.NewRegistry()
)

// perfBenchmark describes one benchmark. If prefill is set all keys are set before the
// benchmark starts.
type perfBenchmark struct {
	name    string
	prefill bool
	op      func(ctx context.Context, key string, counter int) error
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread < 1 {
		return fmt.Errorf("keys must be at least 1")
	}
	return nil
}

func perfBenchmarks() []perfBenchmark {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)

	return []perfBenchmark{
		{name: "set", op: func(ctx context.Context, key string, _ int) error {
			return rpcStore.Set(ctx, key, "test")
		}},
		{name: "set-large", op: func(ctx context.Context, key string, _ int) error {
			return rpcStore.Set(ctx, key, largeValue)
		}},
		{name: "get", prefill: true, op: func(ctx context.Context, key string, _ int) error {
			_, _, err := rpcStore.Get(ctx, key)
			return err
		}},
		{name: "delete", prefill: true, op: func(ctx context.Context, key string, _ int) error {
			return rpcStore.Delete(ctx, key)
		}},
		{name: "exists", prefill: true, op: func(ctx context.Context, key string, _ int) error {
			_, err := rpcStore.Exists(ctx, key)
			return err
		}},
		{name: "mixed", prefill: true, op: func(ctx context.Context, key string, counter int) error {
			var err error
			switch counter % 4 {
			case 0: // set
				err = rpcStore.Set(ctx, key, int64(counter))
			case 1: // get
				_, _, err = rpcStore.Get(ctx, key)
			case 2: // delete
				err = rpcStore.Delete(ctx, key)
			case 3: // exists
				_, err = rpcStore.Exists(ctx, key)
			}
			return err
		}},
	}
}

func run(cmd *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for cKV servers")

	// Print configuration
	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	for _, bench := range perfBenchmarks() {
		result := runBenchmark(cmd.Context(), bench)
		results[bench.name] = result
		printResult(bench.name, result)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func runBenchmark(ctx context.Context, bench perfBenchmark) testing.BenchmarkResult {
	if ctx == nil {
		ctx = context.Background()
	}

	return testing.Benchmark(func(b *testing.B) {
		if shouldSkip(bench.name) {
			return
		}

		// prepare keys
		getKey, iter := getKeys(bench.name)

		// set keys
		if bench.prefill {
			iter(func(k string) {
				if err := rpcStore.Set(ctx, k, "test"); err != nil {
					log.Printf("(%s) - error setting key: %v\n", bench.name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				if err := rpcStore.Delete(ctx, k); err != nil {
					log.Printf("(%s) - error deleting key: %v\n", bench.name, err)
				}
			})
		})

		timer := metrics.GetOrRegisterTimer(bench.name, perfTimers)

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := bench.op(ctx, getKey(counter), counter); err != nil {
					log.Printf("(%s) - error: %v\n", bench.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// latencies returns the p50, p95 and p99 latency of a benchmark
func latencies(test string) []time.Duration {
	timer := metrics.GetOrRegisterTimer(test, perfTimers)
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	out := make([]time.Duration, len(ps))
	for i, p := range ps {
		out[i] = time.Duration(p)
	}
	return out
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	l := latencies(test)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50=%s p95=%s p99=%s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, l[0], l[1], l[2])
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P95", "P99", "Skipped",
		"Endpoint", "TimeoutSec", "RetryCount", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string
		l := []time.Duration{0, 0, 0}

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			l = latencies(test)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			l[0].String(),
			l[1].String(),
			l[2].String(),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			config.Transport,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
