package arena

import "testing"

func TestPoolAllocateAndDeref(t *testing.T) {
	p := NewPool[string]()
	h := p.Allocate("hello")
	if h.IsNull() {
		t.Fatal("Allocate returned null handle")
	}
	got := p.TryDeref(h)
	if got == nil || *got != "hello" {
		t.Fatalf("TryDeref = %v, want hello", got)
	}
	if p.Len() != 1 {
		t.Fatalf("Len = %d, want 1", p.Len())
	}
}

func TestPoolNullHandleNeverAliasesLiveEntity(t *testing.T) {
	p := NewPool[int]()
	if p.TryDeref(Null) != nil {
		t.Fatal("TryDeref(Null) should be nil on an empty pool")
	}
	h := p.Allocate(42)
	if h == Null {
		t.Fatal("first allocation must not reuse the null handle")
	}
}

func TestPoolDisposeThenFreeInvalidatesHandle(t *testing.T) {
	p := NewPool[int]()
	h := p.Allocate(7)

	if err := p.Dispose(h); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if p.IsLive(h) {
		t.Fatal("handle should not be live once disposed, even before Free")
	}
	if p.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after dispose", p.Len())
	}

	if err := p.Dispose(h); err == nil {
		t.Fatal("double dispose should return ErrAlreadyDisposed")
	}

	p.Free(h)
	if p.TryDeref(h) != nil {
		t.Fatal("TryDeref after Free must be nil")
	}
}

func TestPoolHandlesStableAcrossUnrelatedInserts(t *testing.T) {
	p := NewPool[int]()
	a := p.Allocate(1)
	b := p.Allocate(2)
	c := p.Allocate(3)

	if *p.Deref(a) != 1 || *p.Deref(b) != 2 || *p.Deref(c) != 3 {
		t.Fatal("handles should remain stable across unrelated inserts")
	}
}

func TestPoolIterSkipsDisposed(t *testing.T) {
	p := NewPool[int]()
	a := p.Allocate(1)
	_ = p.Allocate(2)
	p.Dispose(a)

	var seen []int
	p.Iter(func(h Handle, v *int) bool {
		seen = append(seen, *v)
		return true
	})
	if len(seen) != 1 || seen[0] != 2 {
		t.Fatalf("Iter saw %v, want [2]", seen)
	}
}

func TestPoolRetain(t *testing.T) {
	p := NewPool[int]()
	a := p.Allocate(1)
	b := p.Allocate(2)
	p.Retain(func(h Handle) bool { return h == a })
	if !p.IsLive(a) {
		t.Fatal("a should survive Retain")
	}
	if p.IsLive(b) {
		t.Fatal("b should not survive Retain")
	}
}

func TestDisposeQueueDrainShrinksTowardSoftTarget(t *testing.T) {
	p := NewPool[int]()
	var q DisposeQueue

	// Allocate a large burst, then dispose all of it, so the queue
	// holds far more handles than the soft target.
	const burst = 20000
	handles := make([]Handle, burst)
	for i := 0; i < burst; i++ {
		handles[i] = p.Allocate(i)
	}
	for i := 0; i < burst; i++ {
		if err := p.Dispose(handles[i]); err != nil {
			t.Fatalf("Dispose: %v", err)
		}
		q.Push(handles[i])
	}
	if q.Len() != burst {
		t.Fatalf("Len = %d, want %d", q.Len(), burst)
	}

	q.Drain(p.Len(), p.Free)

	if q.Len() != 0 {
		t.Fatalf("queue should be empty after Drain, got %d", q.Len())
	}
	if cap(q.handles) > hardCap {
		t.Fatalf("queue backing capacity %d exceeds hard cap %d", cap(q.handles), hardCap)
	}
}

func TestSoftTargetClamped(t *testing.T) {
	if got := softTarget(0); got != softTargetMin {
		t.Fatalf("softTarget(0) = %d, want %d", got, softTargetMin)
	}
	if got := softTarget(1_000_000); got != softTargetMax {
		t.Fatalf("softTarget(huge) = %d, want %d", got, softTargetMax)
	}
	if got := softTarget(8000); got != 1000 {
		t.Fatalf("softTarget(8000) = %d, want 1000", got)
	}
}
