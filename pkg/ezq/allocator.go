package ezq

// Node wraps one item reference while it waits in the overflow list.
// Nodes are produced by an allocator and handed back to it once the item has
// migrated into the ring.
type Node[T any] struct {
	item *T
	next *Node[T]

	// slot is the owning arena index, or -1 for nodes that do not belong to an arena.
	slot int
}

func (n *Node[T]) reset() {
	n.item = nil
	n.next = nil
}

// AllocFunc produces storage for one overflow node. Returning a nil node or a
// non-nil error is an allocation failure.
type AllocFunc[T any] func() (*Node[T], error)

// ReleaseFunc takes back a node previously produced by the matching AllocFunc.
type ReleaseFunc[T any] func(*Node[T])

// CleanupFunc is invoked by Destroy for every item still held by the queue.
type CleanupFunc[T any] func(item *T, arg any)

// Allocator bundles both overflow capabilities.
type Allocator[T any] interface {
	Allocate() (*Node[T], error)
	Release(*Node[T])
}

// HeapAllocator allocates overflow nodes from the Go heap.
type HeapAllocator[T any] struct{}

func (HeapAllocator[T]) Allocate() (*Node[T], error) {
	return &Node[T]{slot: -1}, nil
}

func (HeapAllocator[T]) Release(n *Node[T]) {
	if n != nil {
		n.reset()
	}
}
