package main

import (
	"errors"
	"flag"
	"log"

	"github.com/i5heu/ezqueue/pkg/ezq"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// countingAllocator hands out heap nodes and keeps track of how many are live.
type countingAllocator struct {
	heap      ezq.HeapAllocator[int]
	log       *zap.Logger
	allocated int
	released  int
}

func (c *countingAllocator) Allocate() (*ezq.Node[int], error) {
	n, err := c.heap.Allocate()
	if err != nil {
		return nil, err
	}
	c.allocated++
	c.log.Debug("node allocated", zap.Int("live", c.live()))
	return n, nil
}

func (c *countingAllocator) Release(n *ezq.Node[int]) {
	c.heap.Release(n)
	c.released++
	c.log.Debug("node released", zap.Int("live", c.live()))
}

func (c *countingAllocator) live() int { return c.allocated - c.released }

type report struct {
	pushed       int
	peakOverflow int
	allocated    int
	released     int
}

// run pushes items values through a queue with ringSize slots, pops them back
// and checks they come out in order.
func run(logger *zap.Logger, items, ringSize int) (report, error) {
	alloc := &countingAllocator{log: logger.Named("alloc")}
	q, err := ezq.New[int](ringSize,
		ezq.WithAllocator[int](alloc),
		ezq.WithLogger[int](logger.Named("queue")))
	if err != nil {
		return report{}, err
	}

	var r report
	values := make([]int, items)
	for i := range values {
		values[i] = i
		if err := q.Push(&values[i]); err != nil {
			return r, errs.New("push %d: %w", i, err)
		}
		r.pushed++
		r.peakOverflow = max(r.peakOverflow, q.Stats().OverflowCount)
	}
	logger.Info("queue filled", zap.Stringer("state", q.State()), zap.Int("len", q.Len()))

	for want := 0; want < items; want++ {
		got, err := q.Pop()
		if err != nil {
			return r, errs.New("pop %d: %w", want, err)
		}
		if *got != want {
			return r, errs.New("out of order: got %d, want %d", *got, want)
		}
	}
	if _, err := q.Pop(); !errors.Is(err, ezq.ErrEmpty) {
		return r, errs.New("drained queue returned %v", err)
	}

	if err := q.Destroy(nil, nil); err != nil {
		return r, err
	}
	r.allocated, r.released = alloc.allocated, alloc.released
	if alloc.live() != 0 {
		return r, errs.New("%d overflow nodes leaked", alloc.live())
	}
	return r, nil
}

func main() {
	items := flag.Int("items", 32, "Number of items to push")
	ringSize := flag.Int("ring", ezq.DefaultFixedCapacity, "Fixed ring capacity")
	verbose := flag.Bool("v", false, "Log every allocation and release")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !*verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		log.Panicf("could not create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	r, err := run(logger, *items, *ringSize)
	if err != nil {
		logger.Fatal("demo failed", zap.Error(err))
	}
	logger.Info("all items returned in order",
		zap.Int("pushed", r.pushed),
		zap.Int("peak_overflow", r.peakOverflow),
		zap.Int("allocated", r.allocated),
		zap.Int("released", r.released))
}
