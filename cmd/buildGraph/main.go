package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// result is the subset of a bench result this tool reads.
type result struct {
	Implementation      string  `json:"implementation"`
	FixedCapacity       int     `json:"fixed_capacity"`
	Capacity            uint64  `json:"capacity"`
	Allocator           string  `json:"allocator"`
	NumProducers        int     `json:"num_producers"`
	NumConsumers        int     `json:"num_consumers"`
	NumMessagesConsumed int64   `json:"num_messages_consumed"`
	ActualElapsed       string  `json:"actual_elapsed"`
	Throughput          float64 `json:"throughput_msgs_sec"`
}

type session struct {
	SystemInfo struct {
		NumCPU            int `json:"num_cpu"`
		SimulatedCPUCount int `json:"simulated_cpu_count,omitempty"`
	} `json:"system_info"`
	Benchmarks []result `json:"benchmarks"`
}

type sample struct {
	nsPerMsg   float64
	throughput float64
}

// series holds every sample of one variant keyed by producers+consumers.
type series map[int][]sample

// summary is one plotted point: the median with the averaged 5% tails.
type summary struct {
	x, low, median, high float64
	concurrency          int
}

type summaryPoints []summary

func (s summaryPoints) Len() int                { return len(s) }
func (s summaryPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s summaryPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].low, s[i].high - s[i].median
}

type categoryTicks []string

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, label := range ct {
		if pos := float64(i); pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: label})
		}
	}
	return ticks
}

type nsTicks struct{}

func (nsTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.LogTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatNs(ticks[i].Value)
		}
	}
	return ticks
}

func loadSessions(path string) ([]session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	var sessions []session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, errs.New("could not decode %q: %w", path, err)
	}
	return sessions, nil
}

// variantLabel names a result in the legend. Older result files carry no
// variant name, so the layout is spelled out instead.
func variantLabel(r result) string {
	if r.Implementation != "" {
		return r.Implementation
	}
	label := fmt.Sprintf("ring%d-%s", r.FixedCapacity, r.Allocator)
	if r.Capacity > 0 {
		label += fmt.Sprintf("-cap%d", r.Capacity)
	}
	return label
}

// groupSessions buckets samples by GOMAXPROCS, then by variant.
func groupSessions(sessions []session) map[int]map[string]series {
	out := make(map[int]map[string]series)
	for _, s := range sessions {
		cpus := s.SystemInfo.SimulatedCPUCount
		if cpus == 0 {
			cpus = s.SystemInfo.NumCPU
		}
		for _, b := range s.Benchmarks {
			elapsed, err := time.ParseDuration(b.ActualElapsed)
			if err != nil || b.NumMessagesConsumed == 0 {
				continue
			}
			if out[cpus] == nil {
				out[cpus] = make(map[string]series)
			}
			name := variantLabel(b)
			if out[cpus][name] == nil {
				out[cpus][name] = make(series)
			}
			conc := b.NumProducers + b.NumConsumers
			out[cpus][name][conc] = append(out[cpus][name][conc], sample{
				nsPerMsg:   float64(elapsed.Nanoseconds()) / float64(b.NumMessagesConsumed),
				throughput: b.Throughput,
			})
		}
	}
	return out
}

// summarize reduces a series to one point per concurrency level, ordered by
// concurrency.
func summarize(s series, pick func(sample) float64) []summary {
	out := make([]summary, 0, len(s))
	for conc, samples := range s {
		if len(samples) == 0 {
			continue
		}
		vals := make([]float64, len(samples))
		for i, smp := range samples {
			vals[i] = pick(smp)
		}
		sort.Float64s(vals)
		out = append(out, summary{
			concurrency: conc,
			low:         averageOfRange(vals, 0, 0.05),
			median:      median(vals),
			high:        averageOfRange(vals, 0.95, 1),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].concurrency < out[j].concurrency })
	return out
}

// axis collects the concurrency levels seen across variants and maps each to
// its category position.
func axis(variants map[string]series) (map[int]float64, categoryTicks) {
	seen := make(map[int]struct{})
	for _, s := range variants {
		for conc := range s {
			seen[conc] = struct{}{}
		}
	}
	levels := make([]int, 0, len(seen))
	for conc := range seen {
		levels = append(levels, conc)
	}
	sort.Ints(levels)

	pos := make(map[int]float64, len(levels))
	labels := make(categoryTicks, len(levels))
	for i, conc := range levels {
		pos[conc] = float64(i)
		labels[i] = strconv.Itoa(conc)
	}
	return pos, labels
}

func sortedNames(variants map[string]series) []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func darkPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	p.BackgroundColor = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	p.Title.TextStyle.Color = white
	p.X.Label.TextStyle.Color = white
	p.Y.Label.TextStyle.Color = white
	p.X.Color = white
	p.Y.Color = white
	p.X.Tick.Label.Color = white
	p.Y.Tick.Label.Color = white
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.TextStyle.Color = white
	p.Add(plotter.NewGrid())
	return p
}

var glyphs = []draw.GlyphDrawer{
	draw.CircleGlyph{},
	draw.SquareGlyph{},
	draw.TriangleGlyph{},
	draw.CrossGlyph{},
	draw.PlusGlyph{},
}

// latencyPlot draws time per message against concurrency, one line with
// error bars per variant.
func latencyPlot(cpus int, variants map[string]series) (*plot.Plot, error) {
	p := darkPlot(
		fmt.Sprintf("Time per message vs. concurrency, %d CPU(s)", cpus),
		"producers + consumers",
		"time per message [log scale]")
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = nsTicks{}

	pos, labels := axis(variants)
	p.X.Tick.Marker = labels

	names := sortedNames(variants)
	step := 0.4 / float64(len(names))
	for i, name := range names {
		points := summaryPoints(summarize(variants[name], func(s sample) float64 { return s.nsPerMsg }))
		if len(points) == 0 {
			continue
		}
		// Nudge each variant sideways so error bars do not overlap.
		for j := range points {
			points[j].x = pos[points[j].concurrency] - 0.2 + step/2 + float64(i)*step
		}
		c := plotutil.SoftColors[i%len(plotutil.SoftColors)]

		line, err := plotter.NewLine(points)
		if err != nil {
			return nil, errs.New("line for %q: %w", name, err)
		}
		line.Color = c

		scatter, err := plotter.NewScatter(points)
		if err != nil {
			return nil, errs.New("scatter for %q: %w", name, err)
		}
		scatter.Color = c
		scatter.Shape = glyphs[i%len(glyphs)]
		scatter.Radius = vg.Points(5)

		bars, err := plotter.NewYErrorBars(points)
		if err != nil {
			return nil, errs.New("error bars for %q: %w", name, err)
		}
		bars.Color = c

		p.Add(line, scatter, bars)
		p.Legend.Add(name, line, scatter)
	}
	return p, nil
}

// throughputPlot draws grouped bars of median throughput per concurrency level.
func throughputPlot(cpus int, variants map[string]series) (*plot.Plot, error) {
	p := darkPlot(
		fmt.Sprintf("Median throughput, %d CPU(s)", cpus),
		"producers + consumers",
		"messages / second")

	pos, labels := axis(variants)
	p.X.Tick.Marker = labels

	names := sortedNames(variants)
	width := vg.Points(60) / vg.Length(max(len(names), 1))
	for i, name := range names {
		values := make(plotter.Values, len(labels))
		for _, s := range summarize(variants[name], func(s sample) float64 { return s.throughput }) {
			values[int(pos[s.concurrency])] = s.median
		}
		bar, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, errs.New("bars for %q: %w", name, err)
		}
		bar.Color = plotutil.SoftColors[i%len(plotutil.SoftColors)]
		bar.LineStyle.Width = 0
		bar.Offset = width*vg.Length(i) - width*vg.Length(len(names))/2 + width/2

		p.Add(bar)
		p.Legend.Add(name, bar)
	}
	return p, nil
}

// render writes the latency and throughput graphs for every CPU group and
// returns the written filenames.
func render(groups map[int]map[string]series, prefix string) ([]string, error) {
	cpuCounts := make([]int, 0, len(groups))
	for cpus := range groups {
		cpuCounts = append(cpuCounts, cpus)
	}
	sort.Ints(cpuCounts)

	var written []string
	for _, cpus := range cpuCounts {
		for _, g := range []struct {
			kind  string
			build func(int, map[string]series) (*plot.Plot, error)
		}{
			{"latency", latencyPlot},
			{"throughput", throughputPlot},
		} {
			p, err := g.build(cpus, groups[cpus])
			if err != nil {
				return written, err
			}
			filename := fmt.Sprintf("%s_%d_%s.png", prefix, cpus, g.kind)
			if err := p.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
				return written, errs.New("saving %q: %w", filename, err)
			}
			written = append(written, filename)
		}
	}
	return written, nil
}

func main() {
	jsonFile := flag.String("jsonfile", "test-results.json", "Path to JSON file containing bench sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Panicf("could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sessions, err := loadSessions(*jsonFile)
	if err != nil {
		logger.Fatal("failed to load results", zap.String("file", *jsonFile), zap.Error(err))
	}

	written, err := render(groupSessions(sessions), *outputPrefix)
	for _, f := range written {
		logger.Info("graph saved", zap.String("file", f))
	}
	if err != nil {
		logger.Fatal("failed to render graphs", zap.Error(err))
	}
}

// averageOfRange averages sortedVals between the two length fractions,
// falling back to the median when the slice is too short.
func averageOfRange(sortedVals []float64, startFrac, endFrac float64) float64 {
	n := len(sortedVals)
	if n == 0 {
		return 0
	}
	start := int(float64(n) * startFrac)
	end := min(int(float64(n)*endFrac), n)
	if start >= end {
		return median(sortedVals)
	}
	sum := 0.0
	for _, v := range sortedVals[start:end] {
		sum += v
	}
	return sum / float64(end-start)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return 0.5 * (sorted[mid-1] + sorted[mid])
}

func formatNs(ns float64) string {
	switch {
	case ns < 1e3:
		return fmt.Sprintf("%.0fns", ns)
	case ns < 1e6:
		return fmt.Sprintf("%.1fµs", ns/1e3)
	case ns < 1e9:
		return fmt.Sprintf("%.1fms", ns/1e6)
	default:
		return fmt.Sprintf("%.2fs", ns/1e9)
	}
}
