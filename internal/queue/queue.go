package queue

// QueueValidationInterface is a *type constraint* for anything the testbench
// can drive. Items are pointers; a nil item is never enqueued.
type QueueValidationInterface[T any] interface {
	// Enqueue adds an element to the queue and blocks while it cannot be accepted.
	Enqueue(*T)

	// Dequeue removes and returns the oldest element, or nil and false when empty.
	Dequeue() (*T, bool)

	// FreeSlots returns how many more elements can be enqueued before the queue is full.
	FreeSlots() uint64

	// UsedSlots returns how many elements are currently queued.
	UsedSlots() uint64
}
