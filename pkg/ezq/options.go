package ezq

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a queue built by New.
type Option[T any] func(*options[T])

type options[T any] struct {
	capacity uint64
	alloc    AllocFunc[T]
	release  ReleaseFunc[T]
	logger   *zap.Logger

	// registerer is optional; when set the queue exports Prometheus metrics
	// labelled with name.
	registerer prometheus.Registerer
	name       string
}

// WithCapacity bounds the total number of items across both tiers.
// Zero means unbounded.
func WithCapacity[T any](capacity uint64) Option[T] {
	return func(o *options[T]) {
		o.capacity = capacity
	}
}

// WithAllocator registers both overflow capabilities from a.
func WithAllocator[T any](a Allocator[T]) Option[T] {
	return func(o *options[T]) {
		if a == nil {
			return
		}
		o.alloc = a.Allocate
		o.release = a.Release
	}
}

// WithAllocFunc registers only the allocate capability.
func WithAllocFunc[T any](fn AllocFunc[T]) Option[T] {
	return func(o *options[T]) {
		o.alloc = fn
	}
}

// WithReleaseFunc registers only the release capability.
func WithReleaseFunc[T any](fn ReleaseFunc[T]) Option[T] {
	return func(o *options[T]) {
		o.release = fn
	}
}

// WithLogger sets the logger used for tier transitions and teardown.
func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(o *options[T]) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports queue metrics to reg under the given queue label.
// A nil registerer or empty name leaves metrics disabled.
func WithMetrics[T any](reg prometheus.Registerer, name string) Option[T] {
	return func(o *options[T]) {
		if reg != nil && name != "" {
			o.registerer = reg
			o.name = name
		}
	}
}

func applyOptions[T any](opts ...Option[T]) *options[T] {
	o := &options[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
