package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const history = `[
  {
    "session_time": "2026-01-01T00:00:00Z",
    "system_info": {"num_cpu": 4, "simulated_cpu_count": 2, "go_arch": "amd64"},
    "benchmarks": [
      {"implementation": "ring16-heap", "fixed_capacity": 16, "allocator": "heap", "num_producers": 2, "num_consumers": 2,
       "num_messages_consumed": 1000, "actual_elapsed": "1ms", "throughput_msgs_sec": 1000000},
      {"implementation": "ring16-heap", "fixed_capacity": 16, "allocator": "heap", "num_producers": 2, "num_consumers": 2,
       "num_messages_consumed": 1000, "actual_elapsed": "3ms", "throughput_msgs_sec": 333333},
      {"fixed_capacity": 1024, "capacity": 1024, "allocator": "none", "num_producers": 10, "num_consumers": 10,
       "num_messages_consumed": 500, "actual_elapsed": "4ms", "throughput_msgs_sec": 500000},
      {"implementation": "broken", "num_producers": 1, "num_consumers": 1,
       "num_messages_consumed": 0, "actual_elapsed": "1ms"}
    ]
  },
  {
    "session_time": "2026-01-01T00:01:00Z",
    "system_info": {"num_cpu": 4},
    "benchmarks": [
      {"implementation": "ring16-arena", "num_producers": 1, "num_consumers": 1,
       "num_messages_consumed": 10, "actual_elapsed": "1µs", "throughput_msgs_sec": 10000000}
    ]
  }
]`

func writeHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte(history), 0o644))
	return path
}

func TestGroupSessions(t *testing.T) {
	sessions, err := loadSessions(writeHistory(t))
	require.NoError(t, err)

	groups := groupSessions(sessions)
	require.Len(t, groups, 2)

	two := groups[2]
	require.Contains(t, two, "ring16-heap")
	require.Contains(t, two, "ring1024-none-cap1024")
	assert.NotContains(t, two, "broken")
	assert.Len(t, two["ring16-heap"][4], 2)
	assert.InDelta(t, 8000.0, two["ring1024-none-cap1024"][20][0].nsPerMsg, 1e-9)

	assert.Contains(t, groups[4], "ring16-arena")
}

func TestSummarize(t *testing.T) {
	s := series{
		4: {{nsPerMsg: 3}, {nsPerMsg: 1}, {nsPerMsg: 2}},
		2: {{nsPerMsg: 10}},
	}
	got := summarize(s, func(smp sample) float64 { return smp.nsPerMsg })
	require.Len(t, got, 2)

	assert.Equal(t, 2, got[0].concurrency)
	assert.Equal(t, 10.0, got[0].median)

	assert.Equal(t, 4, got[1].concurrency)
	assert.Equal(t, 2.0, got[1].median)
	assert.Equal(t, 2.0, got[1].low, "too few samples for a 5% tail, falls back to the median")
}

func TestAverageOfRange(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	assert.Equal(t, 2.0, averageOfRange(vals, 0, 0.05))
	assert.Equal(t, 97.0, averageOfRange(vals, 0.95, 1))
	assert.Equal(t, 0.0, averageOfRange(nil, 0, 1))
}

func TestFormatNs(t *testing.T) {
	assert.Equal(t, "500ns", formatNs(500))
	assert.Equal(t, "1.5µs", formatNs(1500))
	assert.Equal(t, "2.0ms", formatNs(2e6))
	assert.Equal(t, "3.00s", formatNs(3e9))
}

func TestRenderWritesBothGraphsPerCPUGroup(t *testing.T) {
	sessions, err := loadSessions(writeHistory(t))
	require.NoError(t, err)

	prefix := filepath.Join(t.TempDir(), "graph")
	written, err := render(groupSessions(sessions), prefix)
	require.NoError(t, err)
	assert.Equal(t, []string{
		prefix + "_2_latency.png",
		prefix + "_2_throughput.png",
		prefix + "_4_latency.png",
		prefix + "_4_throughput.png",
	}, written)
	for _, f := range written {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestLoadSessionsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := loadSessions(path)
	assert.Error(t, err)

	_, err = loadSessions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
