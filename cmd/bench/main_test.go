package main

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i5heu/ezqueue/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// progressWatchdog monitors progress and fails the test if no progress is made for 15 seconds.
type progressWatchdog struct {
	t            *testing.T
	label        string
	lastProgress atomic.Int64
	done         chan struct{}
}

func newWatchdog(t *testing.T, label string) *progressWatchdog {
	wd := &progressWatchdog{
		t:     t,
		label: label,
		done:  make(chan struct{}),
	}
	wd.lastProgress.Store(time.Now().UnixNano())
	return wd
}

func (wd *progressWatchdog) Start() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if time.Since(time.Unix(0, wd.lastProgress.Load())) > 15*time.Second {
					wd.t.Errorf("No progress in the last 15 seconds (%s test likely stuck).", wd.label)
					return
				}
			case <-wd.done:
				return
			}
		}
	}()
}

func (wd *progressWatchdog) Progress() {
	wd.lastProgress.Store(time.Now().UnixNano())
}

func (wd *progressWatchdog) Stop() {
	close(wd.done)
}

// withAllQueues runs fn once per variant of the default profile.
func withAllQueues(t *testing.T, fn func(t *testing.T, impl Implementation)) {
	t.Helper()
	impls, err := getImplementations(config.Default())
	require.NoError(t, err)
	for _, impl := range impls {
		t.Run(impl.variant.Name, func(t *testing.T) {
			fn(t, impl)
		})
	}
}

func TestBasicFIFO(t *testing.T) {
	withAllQueues(t, func(t *testing.T, impl Implementation) {
		q, err := impl.newQueue()
		require.NoError(t, err)

		wd := newWatchdog(t, "BasicFIFO")
		wd.Start()
		defer wd.Stop()

		// Stay within the bound so a single goroutine never blocks on itself.
		n := 1000
		if c := impl.variant.Capacity; c > 0 && uint64(n) > c {
			n = int(c)
		}
		for i := 0; i < n; i++ {
			item := i
			q.Enqueue(&item)
			wd.Progress()
		}
		for i := 0; i < n; i++ {
			v, ok := q.Dequeue()
			require.True(t, ok)
			require.Equal(t, i, *v)
			wd.Progress()
		}
		_, ok := q.Dequeue()
		assert.False(t, ok)
	})
}

func TestHighContention(t *testing.T) {
	withAllQueues(t, func(t *testing.T, impl Implementation) {
		q, err := impl.newQueue()
		require.NoError(t, err)

		wd := newWatchdog(t, "HighContention")
		wd.Start()
		defer wd.Stop()

		const (
			numProducers        = 20
			numConsumers        = 20
			messagesPerProducer = 2000
		)
		total := int64(numProducers * messagesPerProducer)
		var received atomic.Int64

		var wg sync.WaitGroup
		wg.Add(numProducers + numConsumers)
		for p := 0; p < numProducers; p++ {
			go func(p int) {
				defer wg.Done()
				for j := 0; j < messagesPerProducer; j++ {
					v := p*messagesPerProducer + j
					q.Enqueue(&v)
					wd.Progress()
				}
			}(p)
		}
		for c := 0; c < numConsumers; c++ {
			go func() {
				defer wg.Done()
				for received.Load() < total {
					if _, ok := q.Dequeue(); ok {
						received.Add(1)
						wd.Progress()
						continue
					}
					time.Sleep(time.Microsecond)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, total, received.Load())
		assert.Equal(t, uint64(0), q.UsedSlots())
	})
}

func TestVerifyDefaultProfile(t *testing.T) {
	require.NoError(t, verifyImplementations(config.Default(), zaptest.NewLogger(t)))
}

func TestDrivableRejectsUnboundedVariantWithoutAllocator(t *testing.T) {
	assert.Error(t, drivable(config.Variant{Name: "x", FixedCapacity: 8, Allocator: config.AllocatorNone}))
	assert.Error(t, drivable(config.Variant{Name: "x", FixedCapacity: 8, Capacity: 9}))
	assert.NoError(t, drivable(config.Variant{Name: "x", FixedCapacity: 8, Capacity: 8}))
	assert.NoError(t, drivable(config.Variant{Name: "x", Allocator: config.AllocatorHeap}))

	_, err := getImplementations(config.Profile{Variants: []config.Variant{{Name: "x"}}})
	assert.Error(t, err)
}

func TestCPUSettings(t *testing.T) {
	assert.Equal(t, []int{4}, cpuSettings(8, 4))
	assert.Equal(t, []int{2}, cpuSettings(2, 4))
	assert.Equal(t, []int{1, 2, 3, 4, 6}, cpuSettings(0, 7))
}

func TestAppendResultsAndMarkdown(t *testing.T) {
	file := filepath.Join(t.TempDir(), "results.json")
	session := FullReport{
		SessionTime: "2026-01-01T00:00:00Z",
		Benchmarks: []BenchmarkResult{
			{Implementation: "ring16-heap", FixedCapacity: 16, Allocator: "heap", NumProducers: 2, NumConsumers: 2, Throughput: 10},
		},
	}
	require.NoError(t, appendResults(file, []FullReport{session}))
	require.NoError(t, appendResults(file, []FullReport{session}))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"implementation": "ring16-heap"`)

	assert.NoError(t, outputMarkdownTable(file))
	assert.Error(t, outputMarkdownTable(filepath.Join(t.TempDir(), "missing.json")))

	require.NoError(t, os.WriteFile(file, []byte("[]"), 0o644))
	assert.Error(t, outputMarkdownTable(file))
}
