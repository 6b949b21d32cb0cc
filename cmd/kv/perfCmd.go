package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/triedb/cmd/util"
	"github.com/ValentinKolb/triedb/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for TrieDB servers",
		Long: `Runs a set of parallel benchmarks against a TrieDB server and prints
throughput and latency percentiles. Test keys consist of lowercase letters and
start with "zzperf", so the server alphabet must contain a-z. Keys are left in
the store unless --flush is given, which deletes ALL keys after the run.`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "zzperf"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,pget)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "flush"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Flush the whole store after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(1, viper.GetInt("keys"))
	perfNumThreads = max(1, viper.GetInt("threads"))
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// perfResult is the outcome of one benchmark
type perfResult struct {
	name    string
	bench   testing.BenchmarkResult
	latency gometrics.Timer
}

// perfTest is one benchmark: setup prepares the store, op runs one request for counter i
type perfTest struct {
	name  string
	setup func(keys []string)
	op    func(keys []string, i int) error
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for TrieDB servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	fill := func(keys []string) {
		for _, k := range keys {
			if err := rpcClient.Set([]byte(k), []byte("test")); err != nil {
				log.Printf("error setting key: %v\n", err)
			}
		}
	}

	tests := []perfTest{
		{
			name: "set",
			op: func(keys []string, i int) error {
				return rpcClient.Set([]byte(keys[i%len(keys)]), []byte("test"))
			},
		},
		{
			name: "set-large",
			op: func(keys []string, i int) error {
				return rpcClient.Set([]byte(keys[i%len(keys)]), largeValue)
			},
		},
		{
			name:  "get",
			setup: fill,
			op: func(keys []string, i int) error {
				_, _, err := rpcClient.Get([]byte(keys[i%len(keys)]))
				return err
			},
		},
		{
			name:  "exists",
			setup: fill,
			op: func(keys []string, i int) error {
				_, err := rpcClient.Exists([]byte(keys[i%len(keys)]))
				return err
			},
		},
		{
			name:  "pget",
			setup: fill,
			op: func(keys []string, i int) error {
				_, err := rpcClient.PGet([]byte(keys[i%len(keys)] + "tail"))
				return err
			},
		},
		{
			name:  "pgetl",
			setup: fill,
			op: func(keys []string, i int) error {
				_, _, err := rpcClient.PGetL([]byte(keys[i%len(keys)] + "tail"))
				return err
			},
		},
		{
			name:  "wpget",
			setup: fill,
			op: func(keys []string, i int) error {
				// a short prefix matching about a tenth of the keys
				k := keys[i%len(keys)]
				_, err := rpcClient.WPGet([]byte(k[:len(k)-1]))
				return err
			},
		},
		{
			name:  "mixed",
			setup: fill,
			op: func(keys []string, i int) error {
				key := []byte(keys[i%len(keys)])
				var err error
				switch i % 4 {
				case 0: // set
					err = rpcClient.Set(key, []byte("test"))
				case 1: // get
					_, _, err = rpcClient.Get(key)
				case 2: // pgetl
					_, _, err = rpcClient.PGetL(append(key, "tail"...))
				case 3: // exists
					_, err = rpcClient.Exists(key)
				}
				return err
			},
		},
	}

	registry := gometrics.NewRegistry()
	results := make([]perfResult, 0, len(tests))
	for _, test := range tests {
		if shouldSkip(test.name) {
			printSkipped(test.name)
			continue
		}
		result := runPerfTest(test, registry)
		results = append(results, result)
		printResult(result)
	}

	if viper.GetBool("flush") {
		if err := rpcClient.Flush(); err != nil {
			return fmt.Errorf("failed to flush the store: %v", err)
		}
		fmt.Println("\nstore flushed")
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runPerfTest runs one benchmark in parallel and records the latency of every request
func runPerfTest(test perfTest, registry gometrics.Registry) perfResult {
	keys := perfKeys(test.name)
	if test.setup != nil {
		test.setup(keys)
	}

	timer := gometrics.NewTimer()
	_ = registry.Register(test.name, timer)

	bench := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := test.op(keys, counter); err != nil {
					log.Printf("(%s) - request failed: %v\n", test.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})

	return perfResult{name: test.name, bench: bench, latency: timer}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// perfKeys creates the test keys of one benchmark. Keys only use lowercase
// letters so they are valid under the default alphabet.
func perfKeys(test string) []string {
	name := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return r
		}
		return -1
	}, test)

	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = perfKeyPrefix + name + letters(i)
	}
	return keys
}

// letters encodes n in base 26 with the digits a-z, padded to at least two digits
func letters(n int) string {
	var b []byte
	for {
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
		if n == 0 && len(b) >= 2 {
			return string(b)
		}
	}
}

func printSkipped(test string) {
	fmt.Printf("%-12sskipped\n", test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(r perfResult) {
	nsPerOp := max(r.bench.NsPerOp(), 1) // prevent division by zero
	opsPerSec := 1e9 / float64(nsPerOp)

	ps := r.latency.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-12s%10s/op %10.0f ops/sec   p50 %-10s p99 %s\n",
		r.name, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "Requests", "MeanNs", "P50Ns", "P99Ns",
		"Endpoints", "Transport", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, r := range results {
		nsPerOp := max(r.bench.NsPerOp(), 1)
		ps := r.latency.Percentiles([]float64{0.5, 0.99})

		row := []string{
			r.name,
			strconv.FormatInt(nsPerOp, 10),
			fmt.Sprintf("%.0f", 1e9/float64(nsPerOp)),
			strconv.FormatInt(r.latency.Count(), 10),
			fmt.Sprintf("%.0f", r.latency.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			strings.Join(config.Transport.Endpoints, ";"),
			string(config.Transport.Type),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
