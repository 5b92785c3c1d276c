package ezq

import "errors"

var errFakeAllocEmpty = errors.New("fake allocator: no prepared node")

// fakeAllocator hands out prepared nodes in LIFO order and records every
// release. Each test builds its own.
type fakeAllocator[T any] struct {
	stack    []*Node[T]
	allocs   int
	released []*Node[T]
}

// prepare pushes n fresh nodes so the next n allocations succeed.
func (f *fakeAllocator[T]) prepare(n int) {
	for i := 0; i < n; i++ {
		f.stack = append(f.stack, new(Node[T]))
	}
}

func (f *fakeAllocator[T]) Allocate() (*Node[T], error) {
	if len(f.stack) == 0 {
		return nil, errFakeAllocEmpty
	}
	n := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	f.allocs++
	return n, nil
}

func (f *fakeAllocator[T]) Release(n *Node[T]) {
	f.released = append(f.released, n)
}

func (f *fakeAllocator[T]) outstanding() int {
	return f.allocs - len(f.released)
}
