package pool

import (
	"runtime"

	"github.com/nexuslabs/exec-pool/queue"
)

// Fallback and named-preset constants ported verbatim from
// original_source/src/exec/builder.cpp.
const (
	fallbackMaxWorkers  = 16
	fallbackMinWorkers  = 1
	fallbackInitWorkers = 8

	ioBoundMaxWorkers  = 200
	ioBoundInitWorkers = 30
)

// Builder assembles a Config fluently, mirroring
// nexus::exec::thread::ThreadPool::Builder.
type Builder struct {
	cfg Config
}

// NewBuilder starts from a zero Config (FIFO policy, zero
// workers); callers typically start from one of the named presets
// below instead.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Policy(p queue.PolicyKind) *Builder {
	b.cfg.Policy = p
	return b
}

func (b *Builder) MaxWorkers(n int) *Builder {
	b.cfg.MaxWorkers = n
	return b
}

func (b *Builder) MinWorkers(n int) *Builder {
	b.cfg.MinWorkers = n
	return b
}

func (b *Builder) InitWorkers(n int) *Builder {
	b.cfg.InitWorkers = n
	return b
}

func (b *Builder) RemoveCancelled(flag bool) *Builder {
	b.cfg.RemoveCancelled = flag
	return b
}

func (b *Builder) PanicHandler(h PanicHandler) *Builder {
	b.cfg.PanicHandler = h
	return b
}

func (b *Builder) Metrics(m Metrics) *Builder {
	b.cfg.Metrics = m
	return b
}

func (b *Builder) Logger(l Logger) *Builder {
	b.cfg.Logger = l
	return b
}

// Config returns the Config accumulated so far, without building a
// pool.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build validates the accumulated Config and constructs a ThreadPool.
func (b *Builder) Build() (*ThreadPool, error) {
	return New(b.cfg)
}

func numCPU() int {
	n := runtime.NumCPU()
	if n <= 0 {
		return fallbackMaxWorkers
	}
	return n
}

// Blank returns a builder with the fallback constants and FIFO policy,
// matching nexus::exec::blank_builder.
func Blank() *Builder {
	return NewBuilder().
		Policy(queue.FIFO).
		MaxWorkers(fallbackMaxWorkers).
		MinWorkers(fallbackMinWorkers).
		InitWorkers(fallbackInitWorkers).
		RemoveCancelled(false)
}

// Common returns a builder sized to the machine's CPU count, matching
// nexus::exec::default_builder.
func Common() *Builder {
	n := numCPU()
	return Blank().MaxWorkers(n).InitWorkers(n / 2)
}

// CPUBound returns a builder tuned for compute-heavy tasks, matching
// nexus::exec::cpu_bound_builder.
func CPUBound() *Builder {
	n := numCPU()
	return Blank().MaxWorkers(n/2 + 1).InitWorkers(n / 2)
}

// IOBound returns a builder tuned for blocking I/O tasks, matching
// nexus::exec::io_bound_builder.
func IOBound() *Builder {
	return Blank().MaxWorkers(ioBoundMaxWorkers).InitWorkers(ioBoundInitWorkers)
}

// TimeBound returns a builder tuned for timers/periodic work, matching
// nexus::exec::time_bound_builder.
func TimeBound() *Builder {
	n := numCPU()
	return Blank().MaxWorkers(n / 2).InitWorkers(n / 2)
}
