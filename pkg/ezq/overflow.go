package ezq

// overflowList is the dynamic tier: a singly linked FIFO of allocator-owned
// nodes. head == nil exactly when count == 0.
type overflowList[T any] struct {
	head  *Node[T]
	tail  *Node[T]
	count int
}

func (l *overflowList[T]) append(n *Node[T]) {
	n.next = nil
	if l.tail == nil {
		l.head = n
	} else {
		l.tail.next = n
	}
	l.tail = n
	l.count++
}

// unlinkFront detaches and returns the head node. The caller owns it
// afterwards and must release it.
func (l *overflowList[T]) unlinkFront() *Node[T] {
	n := l.head
	if n == nil {
		return nil
	}
	l.head = n.next
	if l.head == nil {
		l.tail = nil
	}
	n.next = nil
	l.count--
	return n
}

func (l *overflowList[T]) reset() {
	l.head = nil
	l.tail = nil
	l.count = 0
}
