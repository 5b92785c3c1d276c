package ezq

// State is the occupancy state of a queue.
type State uint8

const (
	StateUninitialized State = iota
	StateEmpty
	StateRingOnly    // 0 < ring count < fixed capacity, overflow list empty
	StateRingFull    // ring full, overflow list empty
	StateOverflowing // ring full, overflow list non-empty
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateEmpty:
		return "empty"
	case StateRingOnly:
		return "ring-only"
	case StateRingFull:
		return "ring-full"
	case StateOverflowing:
		return "overflowing"
	default:
		return "invalid"
	}
}

// Stats is a point-in-time view of a queue's tiers.
type Stats struct {
	RingCount     int
	OverflowCount int
	FixedCapacity int
	Capacity      uint64 // 0 when unbounded
	State         State
}

// Total is the number of items held across both tiers.
func (s Stats) Total() uint64 {
	return uint64(s.RingCount) + uint64(s.OverflowCount)
}
