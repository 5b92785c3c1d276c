package ezq

// ring is the fixed tier: a circular slab of item references sized once at
// init. A nil slot is vacant.
type ring[T any] struct {
	slots []*T
	front int
	count int
}

func (r *ring[T]) init(size int) {
	if cap(r.slots) == size {
		r.slots = r.slots[:size]
		clear(r.slots)
	} else {
		r.slots = make([]*T, size)
	}
	r.front = 0
	r.count = 0
}

func (r *ring[T]) size() int { return len(r.slots) }

func (r *ring[T]) full() bool { return r.count == len(r.slots) }

// back is the next insertion slot.
func (r *ring[T]) back() int {
	return (r.front + r.count) % len(r.slots)
}

// push requires !r.full().
func (r *ring[T]) push(item *T) {
	r.slots[r.back()] = item
	r.count++
}

// pop requires r.count > 0.
func (r *ring[T]) pop() *T {
	item := r.slots[r.front]
	r.slots[r.front] = nil
	r.front = (r.front + 1) % len(r.slots)
	r.count--
	return item
}

// refill puts item into the slot vacated by the preceding pop. After a pop on
// a full ring that slot is also the back slot.
func (r *ring[T]) refill(item *T) {
	idx := (r.front - 1 + len(r.slots)) % len(r.slots)
	r.slots[idx] = item
	r.count++
}
