package transcode

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/half"
)

// ErrAllocation is returned when a Provider cannot supply a buffer.
var ErrAllocation = errors.New("transcode: buffer allocation failed")

// MemoryLimitError is returned when an allocation would exceed a Pool's
// memory limit. It matches ErrAllocation with errors.Is.
type MemoryLimitError struct {
	Requested int64
	Current   int64
	Limit     int64
}

func (e *MemoryLimitError) Error() string {
	return fmt.Sprintf("transcode: memory limit exceeded (requested %d bytes, %d of %d in use)",
		e.Requested, e.Current, e.Limit)
}

func (e *MemoryLimitError) Is(target error) bool { return target == ErrAllocation }

// Provider supplies temporary pixel buffers. Every buffer obtained from
// Allocate must be handed back to Release exactly once.
type Provider interface {
	Allocate(pt exr.PixelType, channels, width, height int) (*PixelBuffer, error)
	Release(b *PixelBuffer)
}

// Size classes are powers of two elements from 2^minClass to 2^maxClass;
// larger buffers are allocated directly and left to the garbage collector.
const (
	minClass = 12
	maxClass = 26
)

// classPools holds one sync.Pool per size class for one element type.
type classPools[T float32 | half.Half] struct {
	pools [maxClass - minClass + 1]sync.Pool
}

// class returns the size class index for n elements, or -1 if n is too
// large for any class.
func class(n int) int {
	c := minClass
	if n > 1 {
		c = max(bits.Len(uint(n-1)), minClass)
	}
	if c > maxClass {
		return -1
	}
	return c - minClass
}

func (p *classPools[T]) get(n int) ([]T, bool) {
	c := class(n)
	if c < 0 {
		return make([]T, n), false
	}
	if v, ok := p.pools[c].Get().(*[]T); ok {
		s := (*v)[:n]
		clear(s)
		return s, true
	}
	return make([]T, n, 1<<(c+minClass)), false
}

func (p *classPools[T]) put(s []T) {
	c := class(cap(s))
	if c < 0 || cap(s) != 1<<(c+minClass) {
		return
	}
	s = s[:cap(s)]
	p.pools[c].Put(&s)
}

// Pool is a Provider that recycles storage by size class and can enforce a
// memory limit. It is safe for concurrent use.
type Pool struct {
	floats classPools[float32]
	halves classPools[half.Half]

	memoryUsed  atomic.Int64 // bytes handed out and not yet released
	memoryLimit atomic.Int64 // 0 = unlimited
	allocCount  atomic.Int64
	hitCount    atomic.Int64
	missCount   atomic.Int64
}

// NewPool creates a pool with the given memory limit in bytes; 0 means
// no limit.
func NewPool(limit int64) *Pool {
	p := &Pool{}
	p.memoryLimit.Store(limit)
	return p
}

// SetMemoryLimit sets the limit and returns the previous one.
func (p *Pool) SetMemoryLimit(limit int64) int64 {
	return p.memoryLimit.Swap(limit)
}

// MemoryUsed returns the bytes currently allocated and not released.
func (p *Pool) MemoryUsed() int64 { return p.memoryUsed.Load() }

// Stats returns the number of allocations, pool hits and pool misses.
func (p *Pool) Stats() (allocs, hits, misses int64) {
	return p.allocCount.Load(), p.hitCount.Load(), p.missCount.Load()
}

// ResetStats zeroes the statistics.
func (p *Pool) ResetStats() {
	p.allocCount.Store(0)
	p.hitCount.Store(0)
	p.missCount.Store(0)
}

// Allocate returns a zeroed top-down buffer.
func (p *Pool) Allocate(pt exr.PixelType, channels, width, height int) (*PixelBuffer, error) {
	if err := checkFormat(pt, channels, width, height); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	n := width * height * channels
	bytes := int64(n * pt.Size())
	if limit := p.memoryLimit.Load(); limit > 0 {
		if cur := p.memoryUsed.Add(bytes); cur > limit {
			p.memoryUsed.Add(-bytes)
			return nil, &MemoryLimitError{Requested: bytes, Current: cur - bytes, Limit: limit}
		}
	} else {
		p.memoryUsed.Add(bytes)
	}
	p.allocCount.Add(1)

	b := &PixelBuffer{Type: pt, Channels: channels, Width: width, Height: height, rowStep: width * channels}
	var hit bool
	if pt == exr.PixelTypeFloat {
		b.Float, hit = p.floats.get(n)
	} else {
		b.Half, hit = p.halves.get(n)
	}
	if hit {
		p.hitCount.Add(1)
	} else {
		p.missCount.Add(1)
	}
	return b, nil
}

// Release returns the storage of a buffer obtained from Allocate. The
// buffer and every view of it must not be used afterwards. Releasing a
// buffer again does nothing.
func (p *Pool) Release(b *PixelBuffer) {
	if b == nil || (b.Float == nil && b.Half == nil) {
		return
	}
	p.memoryUsed.Add(-int64(b.size() * b.Type.Size()))
	if b.Float != nil {
		p.floats.put(b.Float)
	}
	if b.Half != nil {
		p.halves.put(b.Half)
	}
	b.Float, b.Half = nil, nil
}
