package testbench

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i5heu/ezqueue/internal/queue"
	"github.com/zeebo/errs"
)

// Config is only about concurrency: how many producers, how many consumers.
type Config struct {
	NumProducers int `yaml:"producers" json:"producers"`
	NumConsumers int `yaml:"consumers" json:"consumers"`
}

// RunTimedTest spawns producers and consumers that run for the specified
// duration, measuring how many messages are actually enqueued/dequeued
// in that window. Once the context expires, producers stop and consumers
// drain any remaining messages in the queue.
// Returns the total messages enqueued, total consumed, and the actual elapsed time.
func RunTimedTest[T any, Q queue.QueueValidationInterface[T]](
	q Q,
	cfg Config,
	testDuration time.Duration,
	valueGenerator func(int) *T,
) (producedCount int64, consumedCount int64, elapsed time.Duration) {

	ctx, cancel := context.WithTimeout(context.Background(), testDuration)
	defer cancel()

	var totalProduced atomic.Int64
	var totalConsumed atomic.Int64
	var msgIndex atomic.Int64
	var productionDone atomic.Bool
	var producersFinished atomic.Bool

	start := time.Now()

	go func() {
		<-ctx.Done()
		productionDone.Store(true)
	}()

	var prodWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)
	for i := 0; i < cfg.NumProducers; i++ {
		go func() {
			defer prodWg.Done()
			for !productionDone.Load() {
				idx := msgIndex.Add(1) - 1
				q.Enqueue(valueGenerator(int(idx)))
				totalProduced.Add(1)
			}
		}()
	}

	var consWg sync.WaitGroup
	consWg.Add(cfg.NumConsumers)
	for i := 0; i < cfg.NumConsumers; i++ {
		go func() {
			defer consWg.Done()
			for {
				if _, ok := q.Dequeue(); ok {
					totalConsumed.Add(1)
					continue
				}
				// Empty: done once every producer has returned and nothing is left.
				if producersFinished.Load() && q.UsedSlots() == 0 {
					return
				}
				runtime.Gosched()
			}
		}()
	}

	<-ctx.Done()
	prodWg.Wait()
	producersFinished.Store(true)
	consWg.Wait()

	elapsed = time.Since(start)
	return totalProduced.Load(), totalConsumed.Load(), elapsed
}

// Sequenced is the item type used by RunCountedTest.
type Sequenced struct {
	Producer int
	Seq      int
}

// RunCountedTest pushes exactly perProducer items from each producer and
// verifies that every item is consumed exactly once and that items from the
// same producer arrive in the order they were produced.
func RunCountedTest[Q queue.QueueValidationInterface[Sequenced]](q Q, cfg Config, perProducer int) error {
	if cfg.NumProducers <= 0 || cfg.NumConsumers <= 0 {
		return errs.New("need at least one producer and one consumer, got %d/%d",
			cfg.NumProducers, cfg.NumConsumers)
	}

	total := int64(cfg.NumProducers * perProducer)

	var prodWg sync.WaitGroup
	prodWg.Add(cfg.NumProducers)
	for p := 0; p < cfg.NumProducers; p++ {
		go func(p int) {
			defer prodWg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(&Sequenced{Producer: p, Seq: i})
			}
		}(p)
	}

	var consumed atomic.Int64
	results := make(chan []Sequenced, cfg.NumConsumers)
	for c := 0; c < cfg.NumConsumers; c++ {
		go func() {
			var got []Sequenced
			for consumed.Load() < total {
				item, ok := q.Dequeue()
				if !ok {
					runtime.Gosched()
					continue
				}
				got = append(got, *item)
				consumed.Add(1)
			}
			results <- got
		}()
	}

	prodWg.Wait()

	seen := make([][]bool, cfg.NumProducers)
	for p := range seen {
		seen[p] = make([]bool, perProducer)
	}
	var firstErr error
	for c := 0; c < cfg.NumConsumers; c++ {
		last := make(map[int]int)
		for _, it := range <-results {
			if firstErr != nil {
				continue
			}
			if it.Producer < 0 || it.Producer >= cfg.NumProducers || it.Seq < 0 || it.Seq >= perProducer {
				firstErr = errs.New("unexpected item %+v", it)
				continue
			}
			if seen[it.Producer][it.Seq] {
				firstErr = errs.New("item %+v consumed twice", it)
				continue
			}
			seen[it.Producer][it.Seq] = true
			if prev, ok := last[it.Producer]; ok && it.Seq <= prev {
				firstErr = errs.New("producer %d reordered: %d after %d", it.Producer, it.Seq, prev)
				continue
			}
			last[it.Producer] = it.Seq
		}
	}
	if firstErr != nil {
		return firstErr
	}
	for p := range seen {
		for i, ok := range seen[p] {
			if !ok {
				return errs.New("item producer=%d seq=%d never consumed", p, i)
			}
		}
	}
	if n := q.UsedSlots(); n != 0 {
		return errs.New("%d items left in queue", n)
	}
	return nil
}
