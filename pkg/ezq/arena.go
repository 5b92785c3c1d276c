package ezq

import "github.com/zeebo/errs"

// ErrArenaExhausted is the cause reported when every arena slot is in use.
var ErrArenaExhausted = errs.New("arena exhausted")

// Arena is a fixed pool of overflow nodes addressed by stable slot indices.
// It never touches the heap after construction, which makes a queue backed by
// it fully bounded in memory. Like the queue itself it is not safe for
// concurrent use.
type Arena[T any] struct {
	nodes []Node[T]
	free  []int // stack of free slot indices
	inUse []bool
}

// NewArena returns an arena holding slots nodes. A non-positive slots value
// yields an arena that fails every allocation.
func NewArena[T any](slots int) *Arena[T] {
	if slots < 0 {
		slots = 0
	}
	a := &Arena[T]{
		nodes: make([]Node[T], slots),
		free:  make([]int, slots),
		inUse: make([]bool, slots),
	}
	// Lowest index on top so slots are handed out in order.
	for i := 0; i < slots; i++ {
		a.nodes[i].slot = i
		a.free[i] = slots - 1 - i
	}
	return a
}

// Allocate hands out a free node.
func (a *Arena[T]) Allocate() (*Node[T], error) {
	if len(a.free) == 0 {
		return nil, ErrArenaExhausted
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.inUse[idx] = true
	return &a.nodes[idx], nil
}

// Release returns n to the arena. Nodes from elsewhere and double releases
// are ignored.
func (a *Arena[T]) Release(n *Node[T]) {
	if n == nil || n.slot < 0 || n.slot >= len(a.nodes) || &a.nodes[n.slot] != n {
		return
	}
	if !a.inUse[n.slot] {
		return
	}
	n.reset()
	a.inUse[n.slot] = false
	a.free = append(a.free, n.slot)
}

// Slots is the total number of nodes in the arena.
func (a *Arena[T]) Slots() int { return len(a.nodes) }

// Available is the number of nodes that can still be allocated.
func (a *Arena[T]) Available() int { return len(a.free) }

// InUse is the number of nodes currently handed out.
func (a *Arena[T]) InUse() int { return len(a.nodes) - len(a.free) }
