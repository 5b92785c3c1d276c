// Package config describes benchmark profiles: which queue variants to build
// and which producer/consumer mixes to drive them with.
package config

import (
	"os"
	"time"

	"github.com/i5heu/ezqueue/internal/testbench"
	"github.com/i5heu/ezqueue/pkg/ezq"
	"github.com/zeebo/errs"
	"gopkg.in/yaml.v3"
)

// Config is an alias for testbench.Config. This allows other programs to import
// the concurrency settings without pulling in the entire testbench package.
type Config = testbench.Config

// Allocator names accepted in a Variant.
const (
	AllocatorHeap  = "heap"
	AllocatorArena = "arena"
	AllocatorNone  = "none"
)

// Variant is one queue configuration under test.
type Variant struct {
	Name          string `yaml:"name" json:"name"`
	FixedCapacity int    `yaml:"fixed_capacity" json:"fixed_capacity"`
	Capacity      uint64 `yaml:"capacity" json:"capacity"`
	Allocator     string `yaml:"allocator" json:"allocator"`
	ArenaSlots    int    `yaml:"arena_slots" json:"arena_slots,omitempty"`
}

// Profile is a complete benchmark run description.
type Profile struct {
	Variants    []Variant     `yaml:"variants"`
	Concurrency []Config      `yaml:"concurrency"`
	Iterations  int           `yaml:"iterations"`
	Duration    time.Duration `yaml:"duration"`
}

// Default is the built-in profile used when no file is given.
func Default() Profile {
	return Profile{
		Variants: []Variant{
			{Name: "ring16-heap", FixedCapacity: 16, Allocator: AllocatorHeap},
			{Name: "ring1024-heap", FixedCapacity: 1024, Allocator: AllocatorHeap},
			{Name: "ring16-arena", FixedCapacity: 16, Allocator: AllocatorArena, ArenaSlots: 4096},
			{Name: "ring1024-bounded", FixedCapacity: 1024, Capacity: 1024, Allocator: AllocatorNone},
		},
		Concurrency: []Config{
			{NumProducers: 2, NumConsumers: 2},
			{NumProducers: 10, NumConsumers: 10},
			{NumProducers: 50, NumConsumers: 50},
		},
		Iterations: 5,
		Duration:   5 * time.Second,
	}
}

// Load reads a YAML profile from path. Fields left out fall back to Default.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errs.Wrap(err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML profile.
func Parse(raw []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, errs.New("could not parse profile: %w", err)
	}

	def := Default()
	if len(p.Variants) == 0 {
		p.Variants = def.Variants
	}
	if len(p.Concurrency) == 0 {
		p.Concurrency = def.Concurrency
	}
	if p.Iterations == 0 {
		p.Iterations = def.Iterations
	}
	if p.Duration == 0 {
		p.Duration = def.Duration
	}

	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate reports the first problem found in p.
func (p Profile) Validate() error {
	if len(p.Variants) == 0 {
		return errs.New("profile has no variants")
	}
	names := make(map[string]struct{}, len(p.Variants))
	for i, v := range p.Variants {
		if v.Name == "" {
			return errs.New("variant %d has no name", i)
		}
		if _, dup := names[v.Name]; dup {
			return errs.New("duplicate variant name %q", v.Name)
		}
		names[v.Name] = struct{}{}
		if v.FixedCapacity < 0 {
			return errs.New("variant %q: fixed_capacity must not be negative", v.Name)
		}
		switch v.Allocator {
		case AllocatorHeap, AllocatorNone, "":
		case AllocatorArena:
			if v.ArenaSlots <= 0 {
				return errs.New("variant %q: arena allocator needs arena_slots > 0", v.Name)
			}
		default:
			return errs.New("variant %q: unknown allocator %q", v.Name, v.Allocator)
		}
	}
	for i, c := range p.Concurrency {
		if c.NumProducers <= 0 || c.NumConsumers <= 0 {
			return errs.New("concurrency entry %d needs producers and consumers > 0", i)
		}
	}
	if p.Iterations < 0 {
		return errs.New("iterations must not be negative")
	}
	if p.Duration < 0 {
		return errs.New("duration must not be negative")
	}
	return nil
}

// NewQueue builds the queue described by v. Extra options are applied after
// the ones derived from v.
func NewQueue[T any](v Variant, opts ...ezq.Option[T]) (*ezq.Queue[T], error) {
	base := []ezq.Option[T]{ezq.WithCapacity[T](v.Capacity)}
	switch v.Allocator {
	case AllocatorHeap:
		base = append(base, ezq.WithAllocator[T](ezq.HeapAllocator[T]{}))
	case AllocatorArena:
		base = append(base, ezq.WithAllocator[T](ezq.NewArena[T](v.ArenaSlots)))
	case AllocatorNone, "":
	default:
		return nil, errs.New("unknown allocator %q", v.Allocator)
	}
	return ezq.New[T](v.FixedCapacity, append(base, opts...)...)
}
