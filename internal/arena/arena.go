// Package arena implements the stable-handle, typed-pool memory model that
// backs every entity in the IR: blocks, instructions, constant expressions,
// globals, uses and jump-targets each live in their own Pool, addressed by a
// Handle that stays valid across unrelated inserts and is only invalidated by
// an explicit Free. Allocation favors simple slice-backed storage over
// anything fancier; the one piece of ceremony this domain needs beyond that
// is a disposed bit per slot and a deferred free queue.
package arena

import (
	"fmt"

	"github.com/pkg/errors"
)

// Handle addresses one entity inside a single Pool. The zero Handle is the
// pool's null sentinel; Index 0 is reserved so that zero values never alias
// a live entity.
type Handle struct {
	Index uint32
}

// Null is the sentinel handle shared by every pool.
var Null = Handle{Index: 0}

// IsNull reports whether h is the pool's null sentinel.
func (h Handle) IsNull() bool { return h.Index == 0 }

func (h Handle) String() string {
	if h.IsNull() {
		return "<null>"
	}
	return fmt.Sprintf("#%d", h.Index)
}

// ErrAlreadyDisposed is returned by Dispose when called twice on the same
// handle; it wraps the offending handle for diagnostics via errors.Cause.
type ErrAlreadyDisposed struct {
	Handle Handle
}

func (e *ErrAlreadyDisposed) Error() string {
	return fmt.Sprintf("arena: handle %s already disposed", e.Handle)
}

// slot is one element of a Pool's backing store.
type slot[T any] struct {
	value    T
	disposed bool
	occupied bool
}

// Pool is a typed arena for one entity class. It allocates monotonically
// (handles are never reused while the entity is reachable) and defers
// actual storage reclamation to FreeDisposed.
type Pool[T any] struct {
	slots []slot[T]
}

// NewPool creates an empty pool. Index 0 is pre-occupied by the null
// sentinel slot so that Handle{} never aliases a real entity.
func NewPool[T any]() *Pool[T] {
	p := &Pool[T]{slots: make([]slot[T], 1)}
	return p
}

// Allocate inserts obj into the pool and returns its stable handle.
func (p *Pool[T]) Allocate(obj T) Handle {
	p.slots = append(p.slots, slot[T]{value: obj, occupied: true})
	return Handle{Index: uint32(len(p.slots) - 1)}
}

// TryDeref returns a pointer to the entity addressed by h, or nil if h is
// null, out of range, or the slot has been freed. A disposed entity that
// has not been freed yet is still returned.
func (p *Pool[T]) TryDeref(h Handle) *T {
	if h.IsNull() || int(h.Index) >= len(p.slots) {
		return nil
	}
	s := &p.slots[h.Index]
	if !s.occupied {
		return nil
	}
	return &s.value
}

// Deref is TryDeref but panics on an invalid (null, out-of-range or freed)
// handle; used at call sites that know the slot has not been freed (e.g.
// following a back-pointer, or reading a disposed entity's flags).
func (p *Pool[T]) Deref(h Handle) *T {
	v := p.TryDeref(h)
	if v == nil {
		panic(fmt.Sprintf("arena: Deref on invalid handle %s", h))
	}
	return v
}

// IsLive reports whether h currently addresses a non-disposed entity.
func (p *Pool[T]) IsLive(h Handle) bool {
	if h.IsNull() || int(h.Index) >= len(p.slots) {
		return false
	}
	s := &p.slots[h.Index]
	return s.occupied && !s.disposed
}

// Dispose flips the disposed bit without reclaiming storage. Returns
// ErrAlreadyDisposed if h was already disposed. Callers are responsible for
// unlinking h from whatever rings/lists reference it before calling this --
// Pool only tracks liveness, not graph structure.
func (p *Pool[T]) Dispose(h Handle) error {
	if h.IsNull() || int(h.Index) >= len(p.slots) {
		return errors.Wrapf(&ErrAlreadyDisposed{Handle: h}, "Dispose: invalid handle")
	}
	s := &p.slots[h.Index]
	if !s.occupied || s.disposed {
		return &ErrAlreadyDisposed{Handle: h}
	}
	s.disposed = true
	return nil
}

// Free actually reclaims a disposed slot's storage (zeroing the value so the
// GC can collect anything it references). It is the low-level counterpart
// to DisposeQueue.Drain and is normally only called through it.
func (p *Pool[T]) Free(h Handle) {
	if h.IsNull() || int(h.Index) >= len(p.slots) {
		return
	}
	s := &p.slots[h.Index]
	var zero T
	s.value = zero
	s.occupied = false
	s.disposed = false
}

// Len returns the number of currently live (allocated, non-disposed)
// entities.
func (p *Pool[T]) Len() int {
	n := 0
	for i := range p.slots {
		if i == 0 {
			continue
		}
		if p.slots[i].occupied && !p.slots[i].disposed {
			n++
		}
	}
	return n
}

// Capacity returns the number of slots backing the pool, including disposed
// and freed ones (i.e. the high-water mark of Index+1).
func (p *Pool[T]) Capacity() int { return len(p.slots) }

// Iter calls f for every live entity in handle order. Stops early if f
// returns false.
func (p *Pool[T]) Iter(f func(Handle, *T) bool) {
	for i := 1; i < len(p.slots); i++ {
		s := &p.slots[i]
		if !s.occupied || s.disposed {
			continue
		}
		if !f(Handle{Index: uint32(i)}, &s.value) {
			return
		}
	}
}

// Retain keeps only the entities for which keep returns true, freeing the
// storage of everything else immediately (no deferred dispose queue
// involved). Used by Module.MarkAndSweep, the supplemental whole-arena
// collector described in SPEC_FULL.md.
func (p *Pool[T]) Retain(keep func(Handle) bool) {
	for i := 1; i < len(p.slots); i++ {
		s := &p.slots[i]
		if !s.occupied || s.disposed {
			continue
		}
		if !keep(Handle{Index: uint32(i)}) {
			var zero T
			s.value = zero
			s.occupied = false
		}
	}
}

// DisposeQueue is the FIFO of handles awaiting reclamation for a single
// Pool. It is generic over nothing in particular; the owner keeps one
// queue per pool (ir.IRAllocs holds one for each entity class), since
// disposal always targets a single concrete entity class.
type DisposeQueue struct {
	handles []Handle
}

// Default soft-target bounds: clamp(total_live/8, 256, 8192), hard cap
// 16384.
const (
	softTargetMin = 256
	softTargetMax = 8192
	hardCap       = 16384
)

// Push enqueues a disposed handle.
func (q *DisposeQueue) Push(h Handle) {
	q.handles = append(q.handles, h)
}

// Len reports the number of handles currently queued.
func (q *DisposeQueue) Len() int { return len(q.handles) }

// softTarget computes clamp(totalLive/8, softTargetMin, softTargetMax).
func softTarget(totalLive int) int {
	t := totalLive / 8
	if t < softTargetMin {
		t = softTargetMin
	}
	if t > softTargetMax {
		t = softTargetMax
	}
	return t
}

// Drain removes every queued handle, calling free(h) for each, then shrinks
// the queue's backing array toward softTarget(totalLive), never exceeding
// hardCap. free is supplied by the caller since a DisposeQueue is untyped
// (it only stores handles, not the pool that owns them).
func (q *DisposeQueue) Drain(totalLive int, free func(Handle)) {
	for _, h := range q.handles {
		free(h)
	}
	q.handles = q.handles[:0]
	target := softTarget(totalLive)
	if target > hardCap {
		target = hardCap
	}
	if cap(q.handles) > target {
		shrunk := make([]Handle, 0, target)
		q.handles = shrunk
	}
}
