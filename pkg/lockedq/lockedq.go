// Package lockedq guards an ezq.Queue with a single mutex so it can be shared
// between goroutines.
package lockedq

import (
	"errors"
	"math"
	"runtime"
	"sync"

	"github.com/i5heu/ezqueue/pkg/ezq"
)

// Locked serializes every call on the wrapped queue.
type Locked[T any] struct {
	mu sync.Mutex
	q  *ezq.Queue[T]
}

// New wraps q. The caller must not touch q directly afterwards.
func New[T any](q *ezq.Queue[T]) *Locked[T] {
	return &Locked[T]{q: q}
}

// TryEnqueue pushes item once and reports the queue's status.
func (l *Locked[T]) TryEnqueue(item *T) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Push(item)
}

// retryable reports whether a push may succeed later without caller action.
func retryable(err error) bool {
	return errors.Is(err, ezq.ErrFull) || errors.Is(err, ezq.ErrAllocFailure)
}

// Enqueue pushes item, yielding while the queue is full or its allocator is
// exhausted. It panics on errors that no amount of waiting can fix, such as a
// nil item or a missing allocator.
func (l *Locked[T]) Enqueue(item *T) {
	for {
		err := l.TryEnqueue(item)
		if err == nil {
			return
		}
		if !retryable(err) {
			panic(err)
		}
		runtime.Gosched()
	}
}

// Dequeue pops the front item. ok is false when the queue is empty.
func (l *Locked[T]) Dequeue() (item *T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, err := l.q.Pop()
	return item, err == nil
}

// UsedSlots is the number of queued items.
func (l *Locked[T]) UsedSlots() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, _ := l.q.Count()
	return n
}

// FreeSlots is how many more items fit before the capacity bound.
// An unbounded queue reports math.MaxUint64 minus its length.
func (l *Locked[T]) FreeSlots() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.q.Stats()
	if st.Capacity == 0 {
		return math.MaxUint64 - st.Total()
	}
	if st.Total() >= st.Capacity {
		return 0
	}
	return st.Capacity - st.Total()
}

// Stats snapshots the wrapped queue.
func (l *Locked[T]) Stats() ezq.Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Stats()
}

// Close drains the queue through ezq.Queue.Destroy.
func (l *Locked[T]) Close(cleanup ezq.CleanupFunc[T], arg any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Destroy(cleanup, arg)
}
