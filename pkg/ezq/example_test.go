package ezq_test

import (
	"errors"
	"fmt"

	"github.com/i5heu/ezqueue/pkg/ezq"
)

func Example() {
	q, err := ezq.New[int](16, ezq.WithAllocator[int](ezq.HeapAllocator[int]{}))
	if err != nil {
		panic(err)
	}

	values := make([]int, 20)
	for i := range values {
		values[i] = i + 1
		if err := q.Push(&values[i]); err != nil {
			panic(err)
		}
	}
	st := q.Stats()
	fmt.Println(st.RingCount, st.OverflowCount, st.State)

	first, _ := q.Pop()
	fmt.Println(*first, q.Stats().OverflowCount)

	for q.Len() > 0 {
		_, _ = q.Pop()
	}
	_, err = q.Pop()
	fmt.Println(errors.Is(err, ezq.ErrEmpty))

	// Output:
	// 16 4 overflowing
	// 1 3
	// true
}

func ExampleQueue_Destroy() {
	q, _ := ezq.New[string](2, ezq.WithAllocator[string](ezq.NewArena[string](8)))
	for _, s := range []string{"a", "b", "c"} {
		s := s
		_ = q.Push(&s)
	}

	_ = q.Destroy(func(item *string, arg any) {
		fmt.Printf("%s%s ", arg, *item)
	}, "closing ")
	fmt.Println(q.Len())

	// Output: closing a closing b closing c 0
}
