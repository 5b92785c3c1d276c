package lockedq

import (
	"math"
	"sync"
	"testing"

	"github.com/i5heu/ezqueue/internal/queue"
	"github.com/i5heu/ezqueue/pkg/ezq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	producer int
	seq      int
}

var _ queue.QueueValidationInterface[job] = (*Locked[job])(nil)

func newLocked(t *testing.T, capacity uint64) *Locked[job] {
	t.Helper()
	q, err := ezq.New[job](8,
		ezq.WithCapacity[job](capacity),
		ezq.WithAllocator[job](ezq.HeapAllocator[job]{}))
	require.NoError(t, err)
	return New(q)
}

func Test_FreeSlotsReflectCapacity(t *testing.T) {
	l := newLocked(t, 10)
	assert.Equal(t, uint64(10), l.FreeSlots())

	for i := 0; i < 10; i++ {
		assert.NoError(t, l.TryEnqueue(&job{seq: i}))
	}
	assert.Equal(t, uint64(0), l.FreeSlots())
	assert.Equal(t, uint64(10), l.UsedSlots())
	assert.ErrorIs(t, l.TryEnqueue(&job{}), ezq.ErrFull)
}

func Test_UnboundedFreeSlots(t *testing.T) {
	l := newLocked(t, 0)
	require.NoError(t, l.TryEnqueue(&job{}))
	assert.Equal(t, uint64(math.MaxUint64-1), l.FreeSlots())
}

func Test_DequeueOnEmpty(t *testing.T) {
	l := newLocked(t, 0)
	item, ok := l.Dequeue()
	assert.False(t, ok)
	assert.Nil(t, item)
}

func Test_EnqueuePanicsOnNilItem(t *testing.T) {
	l := newLocked(t, 0)
	assert.PanicsWithValue(t, ezq.ErrNullItem, func() { l.Enqueue(nil) })
}

func Test_EnqueuePanicsWithoutAllocator(t *testing.T) {
	q, err := ezq.New[job](1)
	require.NoError(t, err)
	l := New(q)

	l.Enqueue(&job{})
	assert.Panics(t, func() { l.Enqueue(&job{}) })
}

func Test_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	const Producers = 8
	const PerProducer = 2000
	l := newLocked(t, 64)

	var wg sync.WaitGroup
	wg.Add(Producers)
	for p := 0; p < Producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < PerProducer; i++ {
				l.Enqueue(&job{producer: p, seq: i})
			}
		}(p)
	}

	next := make([]int, Producers)
	total := 0
	for total < Producers*PerProducer {
		j, ok := l.Dequeue()
		if !ok {
			continue
		}
		require.Equal(t, next[j.producer], j.seq, "producer %d out of order", j.producer)
		next[j.producer]++
		total++
	}
	wg.Wait()

	for p := 0; p < Producers; p++ {
		assert.Equal(t, PerProducer, next[p])
	}
	assert.Equal(t, uint64(0), l.UsedSlots())
}

func Test_CloseDrainsThroughCleanup(t *testing.T) {
	l := newLocked(t, 0)
	for i := 0; i < 20; i++ {
		l.Enqueue(&job{seq: i})
	}
	assert.Equal(t, ezq.StateOverflowing, l.Stats().State)

	var seqs []int
	require.NoError(t, l.Close(func(j *job, _ any) { seqs = append(seqs, j.seq) }, nil))
	assert.Len(t, seqs, 20)
	assert.Equal(t, 0, seqs[0])
	assert.Equal(t, 19, seqs[19])
	assert.Equal(t, ezq.StateEmpty, l.Stats().State)
}
