// Package ezq provides a single-threaded FIFO queue of item references built
// from two tiers: a fixed ring that is sized once and never allocates, and an
// overflow list whose nodes come from a caller-injected allocator.
//
// # Tiers
//
// Push always targets the ring. Only when every ring slot is taken does it
// allocate an overflow node. Pop always takes from the ring front and, if the
// overflow list is non-empty, immediately moves the list's front item into
// the slot it just vacated:
//
//	q, _ := ezq.New[Job](16, ezq.WithAllocator[Job](ezq.HeapAllocator[Job]{}))
//	_ = q.Push(&job)
//	next, err := q.Pop()
//
// # Allocators
//
// Overflow is opt-in. A queue without an allocate capability rejects a push
// onto a full ring with ErrNoAllocFunction; a queue holding overflow nodes
// but lacking a release capability rejects pops with ErrNoFreeFunction.
// HeapAllocator uses the Go heap, Arena draws from a fixed pool, and any pair
// of AllocFunc/ReleaseFunc can be registered through WithAllocFunc and
// WithReleaseFunc.
//
// # Errors
//
// Every operation returns a Status-valued error (or nil) and leaves the queue
// unchanged on failure. Use errors.Is with the Err* sentinels or StatusOf.
//
// # Concurrency
//
// Queue has no internal locking. Callers sharing a queue between goroutines
// must guard every call with one lock, as package lockedq does.
package ezq
