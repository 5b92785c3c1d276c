package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/i5heu/ezqueue/internal/testbench"
	"github.com/i5heu/ezqueue/pkg/config"
	"github.com/i5heu/ezqueue/pkg/ezq"
	"github.com/i5heu/ezqueue/pkg/lockedq"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation      string  `json:"implementation"`
	FixedCapacity       int     `json:"fixed_capacity"`
	Capacity            uint64  `json:"capacity"`
	Allocator           string  `json:"allocator"`
	NumProducers        int     `json:"num_producers"`
	NumConsumers        int     `json:"num_consumers"`
	NumMessages         int64   `json:"num_messages"`          // produced count
	NumMessagesConsumed int64   `json:"num_messages_consumed"` // consumed count
	TestDuration        string  `json:"test_duration"`         // e.g. "10s"
	ActualElapsed       string  `json:"actual_elapsed"`        // measured time
	Throughput          float64 `json:"throughput_msgs_sec"`   // based on consumed count
	Timestamp           int64   `json:"timestamp"`
	GoVersion           string  `json:"go_version"`
}

// SystemInfo holds system information.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete test session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// Implementation is one queue variant ready to be benchmarked.
type Implementation struct {
	variant  config.Variant
	newQueue func() (*lockedq.Locked[int], error)
}

// drivable rejects variants the blocking harness cannot feed: without an
// allocator the bound must fit inside the ring, otherwise Enqueue would hit
// ErrNoAllocFunction instead of waiting.
func drivable(v config.Variant) error {
	if v.Allocator != config.AllocatorNone && v.Allocator != "" {
		return nil
	}
	fixed := v.FixedCapacity
	if fixed <= 0 {
		fixed = ezq.DefaultFixedCapacity
	}
	if v.Capacity == 0 || v.Capacity > uint64(fixed) {
		return errs.New("variant %q has no allocator, so capacity must be in 1..%d", v.Name, fixed)
	}
	return nil
}

// getImplementations builds one Implementation per profile variant.
func getImplementations(p config.Profile) ([]Implementation, error) {
	impls := make([]Implementation, 0, len(p.Variants))
	for _, v := range p.Variants {
		if err := drivable(v); err != nil {
			return nil, err
		}
		impls = append(impls, Implementation{
			variant: v,
			newQueue: func() (*lockedq.Locked[int], error) {
				q, err := config.NewQueue[int](v)
				if err != nil {
					return nil, err
				}
				return lockedq.New(q), nil
			},
		})
	}
	return impls, nil
}

// verifyImplementations pushes a fixed number of sequenced items through
// every variant and checks exactly-once, per-producer-ordered delivery.
func verifyImplementations(p config.Profile, logger *zap.Logger) error {
	cfg := testbench.Config{NumProducers: 4, NumConsumers: 4}
	for _, v := range p.Variants {
		q, err := config.NewQueue[testbench.Sequenced](v)
		if err != nil {
			return err
		}
		if err := testbench.RunCountedTest(lockedq.New(q), cfg, 10000); err != nil {
			return errs.New("variant %q failed verification: %w", v.Name, err)
		}
		logger.Info("variant verified", zap.String("variant", v.Name))
	}
	return nil
}

// outputMarkdownTable loads the JSON file and outputs a Markdown table.
func outputMarkdownTable(jsonFile string) error {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		return errs.Wrap(err)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return errs.New("could not decode %q: %w", jsonFile, err)
	}
	if len(sessions) == 0 {
		return errs.New("no sessions found in %q", jsonFile)
	}
	// Use the last session for the table.
	last := sessions[len(sessions)-1]

	type row struct {
		name        string
		layout      string
		concurrency string
		throughput  float64
	}
	var rows []row
	for _, b := range last.Benchmarks {
		bound := "unbounded"
		if b.Capacity > 0 {
			bound = fmt.Sprintf("cap %d", b.Capacity)
		}
		rows = append(rows, row{
			name:        b.Implementation,
			layout:      fmt.Sprintf("ring %d, %s, %s", b.FixedCapacity, b.Allocator, bound),
			concurrency: fmt.Sprintf("%dP/%dC", b.NumProducers, b.NumConsumers),
			throughput:  b.Throughput,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})

	fmt.Println("## Last Session Benchmark Summary")
	fmt.Println()
	fmt.Println("| Variant              | Layout                              | Concurrency | Throughput (msgs/sec) |")
	fmt.Println("|----------------------|-------------------------------------|-------------|-----------------------|")
	for _, r := range rows {
		fmt.Printf("| %-20s | %-35s | %-11s | %21.0f |\n", r.name, r.layout, r.concurrency, r.throughput)
	}
	return nil
}

// appendResults appends sessions to the JSON history in filename.
func appendResults(filename string, sessions []FullReport) error {
	var previous []FullReport
	if data, err := os.ReadFile(filename); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &previous); err != nil {
			return errs.New("existing %q is not a result file: %w", filename, err)
		}
	}
	data, err := json.MarshalIndent(append(previous, sessions...), "", "  ")
	if err != nil {
		return errs.Wrap(err)
	}
	return errs.Wrap(os.WriteFile(filename, data, 0o644))
}

// cpuSettings picks the GOMAXPROCS values to test.
func cpuSettings(cpuMax, trueCPUs int) []int {
	if cpuMax > 0 {
		return []int{min(cpuMax, trueCPUs)}
	}
	var out []int
	for _, v := range []int{1, 2, 3, 4, 6, 8, 12, 16, 32, 48, 56, 64, 96, 128, 192, 256, 384, 512} {
		if v <= trueCPUs {
			out = append(out, v)
		}
	}
	return out
}

func getLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

func main() {
	profilePath := flag.String("profile", "", "YAML profile with variants and concurrency settings (built-in default if empty)")
	iterations := flag.Int("iter", 0, "Override the profile's number of iterations per concurrency setting")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, test common CPU/vCPU values up to runtime.NumCPU()")
	jsonExport := flag.Bool("json", false, "Append results as JSON to -jsonfile")
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from -jsonfile and exit")
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to the JSON results file")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	verify := flag.Bool("verify", true, "Check exactly-once FIFO delivery for every variant before timing")
	flag.Parse()

	logger, err := getLogger()
	if err != nil {
		log.Panicf("could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if *markdownTable {
		if err := outputMarkdownTable(*jsonFile); err != nil {
			logger.Fatal("failed to render markdown table", zap.Error(err))
		}
		return
	}

	profile := config.Default()
	if *profilePath != "" {
		profile, err = config.Load(*profilePath)
		if err != nil {
			logger.Fatal("failed to load profile", zap.String("path", *profilePath), zap.Error(err))
		}
	}
	if *iterations > 0 {
		profile.Iterations = *iterations
	}

	impls, err := getImplementations(profile)
	if err != nil {
		logger.Fatal("invalid profile", zap.Error(err))
	}

	if *verify {
		if err := verifyImplementations(profile, logger); err != nil {
			logger.Fatal("verification failed", zap.Error(err))
		}
	}

	trueCPUs := runtime.NumCPU()
	cpus := cpuSettings(*cpuMaxFlag, trueCPUs)
	totalTests := len(cpus) * len(profile.Concurrency) * profile.Iterations * len(impls)

	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	var allSessions []FullReport
	for _, n := range cpus {
		runtime.GOMAXPROCS(n)
		sysInfo := gatherSystemInfo()
		sysInfo.NumCPU = n
		sysInfo.TrueCPU = trueCPUs
		sysInfo.SimulatedCPUCount = n
		logger.Info("starting session", zap.Int("gomaxprocs", n))

		var results []BenchmarkResult
		for _, cfg := range profile.Concurrency {
			for iteration := 1; iteration <= profile.Iterations; iteration++ {
				for _, impl := range impls {
					runtime.GC()
					q, err := impl.newQueue()
					if err != nil {
						logger.Fatal("could not build queue", zap.String("variant", impl.variant.Name), zap.Error(err))
					}

					produced, consumed, elapsed := testbench.RunTimedTest(q, cfg, profile.Duration,
						func(i int) *int {
							v := i
							return &v
						})
					throughput := float64(consumed) / elapsed.Seconds()

					logger.Debug("run finished",
						zap.String("variant", impl.variant.Name),
						zap.Int("producers", cfg.NumProducers),
						zap.Int("consumers", cfg.NumConsumers),
						zap.Int("iteration", iteration),
						zap.Int64("produced", produced),
						zap.Int64("consumed", consumed),
						zap.Float64("throughput", throughput),
						zap.Duration("took", elapsed))
					if bar != nil {
						_ = bar.Add(1)
					}

					results = append(results, BenchmarkResult{
						Implementation:      impl.variant.Name,
						FixedCapacity:       impl.variant.FixedCapacity,
						Capacity:            impl.variant.Capacity,
						Allocator:           impl.variant.Allocator,
						NumProducers:        cfg.NumProducers,
						NumConsumers:        cfg.NumConsumers,
						NumMessages:         produced,
						NumMessagesConsumed: consumed,
						TestDuration:        profile.Duration.String(),
						ActualElapsed:       elapsed.String(),
						Throughput:          throughput,
						Timestamp:           time.Now().Unix(),
						GoVersion:           runtime.Version(),
					})
				}
			}
		}

		allSessions = append(allSessions, FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, s := range allSessions {
		for _, b := range s.Benchmarks {
			fmt.Printf("%-20s cpus=%-3d %dP/%dC => %.0f msg/s\n",
				b.Implementation, s.SystemInfo.NumCPU, b.NumProducers, b.NumConsumers, b.Throughput)
		}
	}

	if *jsonExport {
		if err := appendResults(*jsonFile, allSessions); err != nil {
			logger.Fatal("failed to write results", zap.String("file", *jsonFile), zap.Error(err))
		}
		logger.Info("wrote results", zap.String("file", *jsonFile))
	}
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	var cpuModel string
	var cpuSpeed float64
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		cpuModel = infos[0].ModelName
		cpuSpeed = infos[0].Mhz
	}

	var totalMemory uint64
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMemory = vm.Total
	}

	return SystemInfo{
		NumCPU:      runtime.NumCPU(),
		CPUModel:    cpuModel,
		CPUSpeedMHz: cpuSpeed,
		GOARCH:      runtime.GOARCH,
		TotalMemory: totalMemory,
	}
}
