package ezq

import (
	"go.uber.org/zap"
)

// DefaultFixedCapacity is the ring size used when none is given.
const DefaultFixedCapacity = 16

var nopLogger = zap.NewNop()

// Queue is a FIFO queue of item references that fills a fixed ring first and
// spills into an allocator-backed overflow list only once the ring is full.
//
// Every pop refills the vacated ring slot from the front of the overflow
// list, so the list only ever holds items while the ring is completely full.
//
// The zero value is an empty queue with DefaultFixedCapacity ring slots, no
// capacity bound and no allocator. A Queue is not safe for concurrent use;
// see package lockedq for a mutex-guarded wrapper.
type Queue[T any] struct {
	ring     ring[T]
	overflow overflowList[T]
	capacity uint64
	alloc    AllocFunc[T]
	release  ReleaseFunc[T]

	log     *zap.Logger
	metrics *queueMetrics
}

// New builds an initialized queue with fixedCapacity ring slots.
// It only fails when metrics registration fails.
func New[T any](fixedCapacity int, opts ...Option[T]) (*Queue[T], error) {
	o := applyOptions(opts...)

	q := &Queue[T]{log: o.logger}
	if o.registerer != nil {
		m, err := newQueueMetrics(o.registerer, o.name)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		q.metrics = m
		if q.log != nil {
			q.log = q.log.With(zap.String("queue", o.name))
		}
	}

	if err := q.Init(fixedCapacity, o.capacity, o.alloc, o.release); err != nil {
		return nil, err
	}
	return q, nil
}

// Init resets q to an empty queue with fixedCapacity ring slots.
// A capacity of zero leaves the queue unbounded. When alloc is nil the queue
// never overflows and a push onto a full ring fails with ErrNoAllocFunction.
// Logger and metrics configured through New are kept.
func (q *Queue[T]) Init(fixedCapacity int, capacity uint64, alloc AllocFunc[T], release ReleaseFunc[T]) error {
	if q == nil {
		return ErrNullQueue
	}
	if fixedCapacity <= 0 {
		fixedCapacity = DefaultFixedCapacity
	}
	q.ring.init(fixedCapacity)
	q.overflow.reset()
	q.capacity = capacity
	q.alloc = alloc
	q.release = release
	if q.metrics != nil {
		q.metrics.setSize(0, 0)
	}
	return nil
}

// lazyInit prepares a zero-value queue.
func (q *Queue[T]) lazyInit() {
	if q.ring.slots == nil {
		q.ring.init(DefaultFixedCapacity)
	}
}

func (q *Queue[T]) logger() *zap.Logger {
	if q.log == nil {
		return nopLogger
	}
	return q.log
}

func (q *Queue[T]) total() uint64 {
	return uint64(q.ring.count) + uint64(q.overflow.count)
}

func (q *Queue[T]) reject(s Status) error {
	if q.metrics != nil {
		q.metrics.recordReject(s)
	}
	return s
}

// Push appends item at the back of the queue. On error the queue is unchanged.
func (q *Queue[T]) Push(item *T) error {
	if q == nil {
		return ErrNullQueue
	}
	if item == nil {
		return q.reject(StatusNullItem)
	}
	q.lazyInit()

	if q.capacity > 0 && q.total() >= q.capacity {
		return q.reject(StatusFull)
	}

	if !q.ring.full() {
		q.ring.push(item)
		if q.metrics != nil {
			q.metrics.recordPush(false, q.ring.count, q.overflow.count)
		}
		return nil
	}

	if q.alloc == nil {
		return q.reject(StatusNoAllocFunction)
	}
	n, err := q.alloc()
	if err != nil || n == nil {
		if n != nil && q.release != nil {
			q.release(n)
		}
		q.logger().Warn("overflow node allocation failed",
			zap.Int("ring", q.ring.count),
			zap.Int("overflow", q.overflow.count),
			zap.Error(err))
		if q.metrics != nil {
			q.metrics.recordReject(StatusAllocFailure)
		}
		return newAllocError(err)
	}

	n.item = item
	q.overflow.append(n)
	if q.overflow.count == 1 {
		q.logger().Debug("ring saturated, spilling into overflow list",
			zap.Int("fixed_capacity", q.ring.size()))
	}
	if q.metrics != nil {
		q.metrics.recordPush(true, q.ring.count, q.overflow.count)
	}
	return nil
}

// PopInto removes the front item and stores it in *out. On error neither the
// queue nor *out is modified.
func (q *Queue[T]) PopInto(out **T) error {
	if q == nil {
		return ErrNullQueue
	}
	if out == nil {
		return q.reject(StatusNullOut)
	}
	q.lazyInit()

	if q.total() == 0 {
		return q.reject(StatusEmpty)
	}
	if q.overflow.count > 0 && q.release == nil {
		return q.reject(StatusNoFreeFunction)
	}

	item := q.ring.pop()

	migrated := false
	if n := q.overflow.unlinkFront(); n != nil {
		q.ring.refill(n.item)
		q.release(n)
		migrated = true
		if q.overflow.count == 0 {
			q.logger().Debug("overflow list drained")
		}
	}

	*out = item
	if q.metrics != nil {
		q.metrics.recordPop(migrated, q.ring.count, q.overflow.count)
	}
	return nil
}

// Pop removes and returns the front item.
func (q *Queue[T]) Pop() (*T, error) {
	var item *T
	if err := q.PopInto(&item); err != nil {
		return nil, err
	}
	return item, nil
}

// Count returns the number of items held across both tiers.
func (q *Queue[T]) Count() (uint64, error) {
	if q == nil {
		return 0, ErrNullQueue
	}
	return q.total(), nil
}

// Len is Count without the error; a nil queue has length 0.
func (q *Queue[T]) Len() int {
	if q == nil {
		return 0
	}
	return int(q.total())
}

// Destroy drains the queue front to back, handing each item to cleanup (when
// non-nil) together with arg and releasing every overflow node. The queue is
// left empty with its configuration intact, ready for reuse or Init.
func (q *Queue[T]) Destroy(cleanup CleanupFunc[T], arg any) error {
	if q == nil {
		return ErrNullQueue
	}

	var items, nodes int
	for q.ring.count > 0 {
		item := q.ring.pop()
		items++
		if cleanup != nil {
			cleanup(item, arg)
		}
	}
	for n := q.overflow.unlinkFront(); n != nil; n = q.overflow.unlinkFront() {
		item := n.item
		if q.release != nil {
			q.release(n)
		}
		nodes++
		items++
		if cleanup != nil {
			cleanup(item, arg)
		}
	}

	if q.ring.slots != nil {
		q.ring.init(q.ring.size())
	}
	q.overflow.reset()
	if q.metrics != nil {
		q.metrics.setSize(0, 0)
	}

	q.logger().Debug("queue destroyed",
		zap.Int("items", items),
		zap.Int("nodes_released", nodes),
		zap.Bool("cleanup", cleanup != nil))
	return nil
}

// State reports which occupancy state q is in.
func (q *Queue[T]) State() State {
	if q == nil || q.ring.slots == nil {
		return StateUninitialized
	}
	switch {
	case q.overflow.count > 0:
		return StateOverflowing
	case q.ring.count == 0:
		return StateEmpty
	case q.ring.full():
		return StateRingFull
	default:
		return StateRingOnly
	}
}

// Stats returns a snapshot of both tiers.
func (q *Queue[T]) Stats() Stats {
	if q == nil {
		return Stats{}
	}
	size := q.ring.size()
	if size == 0 {
		size = DefaultFixedCapacity
	}
	return Stats{
		RingCount:     q.ring.count,
		OverflowCount: q.overflow.count,
		FixedCapacity: size,
		Capacity:      q.capacity,
		State:         q.State(),
	}
}
