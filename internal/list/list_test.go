package list

import "testing"

// intStore is a minimal Store[int] backed by a map, standing in for an
// arena.Pool-backed object during unit tests. Handle 0 is null.
type intStore struct {
	links map[int]Link[int]
}

func newIntStore() *intStore { return &intStore{links: make(map[int]Link[int])} }

func (s *intStore) LoadLink(h int) Link[int]     { return s.links[h] }
func (s *intStore) StoreLink(h int, l Link[int]) { s.links[h] = l }

func TestSequenceListPushBackAndIterate(t *testing.T) {
	s := newIntStore()
	// handles: 1=head, 2=tail, 3,4,5=payload nodes
	l := NewSequenceList[int](s, nil, 1, 2, 0)

	for _, h := range []int{3, 4, 5} {
		if err := l.PushBack(h); err != nil {
			t.Fatalf("PushBack(%d): %v", h, err)
		}
	}
	got := l.ToSlice()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("ToSlice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if l.Len() != 3 {
		t.Fatalf("Len = %d, want 3", l.Len())
	}
	if l.Front() != 3 || l.Back() != 5 {
		t.Fatalf("Front/Back = %d/%d, want 3/5", l.Front(), l.Back())
	}
}

func TestSequenceListPushFrontAndInsertBefore(t *testing.T) {
	s := newIntStore()
	l := NewSequenceList[int](s, nil, 1, 2, 0)
	l.PushBack(3)
	l.PushFront(4) // [4, 3]
	l.InsertBefore(3, 5) // [4, 5, 3]

	got := l.ToSlice()
	want := []int{4, 5, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice = %v, want %v", got, want)
		}
	}
}

func TestSequenceListUnplug(t *testing.T) {
	s := newIntStore()
	l := NewSequenceList[int](s, nil, 1, 2, 0)
	l.PushBack(3)
	l.PushBack(4)
	l.PushBack(5)

	if err := l.Unplug(4); err != nil {
		t.Fatalf("Unplug: %v", err)
	}
	got := l.ToSlice()
	if len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Fatalf("ToSlice after unplug = %v, want [3 5]", got)
	}
	if l.Len() != 2 {
		t.Fatalf("Len = %d, want 2", l.Len())
	}
}

func TestSequenceListRejectsSelfLoop(t *testing.T) {
	s := newIntStore()
	l := NewSequenceList[int](s, nil, 1, 2, 0)
	if err := l.InsertAfter(1, 1); err == nil {
		t.Fatal("expected ErrSelfLoop when inserting a node after itself")
	}
}

func TestSequenceListUnplugRejectsSentinel(t *testing.T) {
	s := newIntStore()
	l := NewSequenceList[int](s, nil, 1, 2, 0)
	if err := l.Unplug(1); err == nil {
		t.Fatal("expected error unplugging the head sentinel")
	}
}

type countingHooks struct {
	pushNext, pushPrev, unplug int
}

func (h *countingHooks) OnPushNext(curr, next int) error { h.pushNext++; return nil }
func (h *countingHooks) OnPushPrev(curr, prev int) error { h.pushPrev++; return nil }
func (h *countingHooks) OnUnplug(curr int) error         { h.unplug++; return nil }

func TestSequenceListHooksFireOnEveryLinkChange(t *testing.T) {
	s := newIntStore()
	hooks := &countingHooks{}
	l := NewSequenceList[int](s, hooks, 1, 2, 0)
	l.PushBack(3)
	l.PushFront(4)
	l.Unplug(3)

	if hooks.pushPrev != 1 || hooks.pushNext != 1 || hooks.unplug != 1 {
		t.Fatalf("hook counts = %+v, want one of each", hooks)
	}
}

func TestRingListPushAndUnplug(t *testing.T) {
	s := newIntStore()
	r := NewRingList[int](s, nil, 1, 0)

	if !r.Empty() {
		t.Fatal("new ring should be empty")
	}
	r.PushBack(2)
	r.PushBack(3)
	r.PushBack(4)
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}

	members := map[int]bool{}
	r.ForEach(func(h int) bool {
		members[h] = true
		return true
	})
	for _, h := range []int{2, 3, 4} {
		if !members[h] {
			t.Fatalf("ring missing member %d: %v", h, members)
		}
	}

	if err := r.Unplug(3); err != nil {
		t.Fatalf("Unplug: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len after unplug = %d, want 2", r.Len())
	}
	if r.IsSingle() {
		t.Fatal("ring with 2 members should not report IsSingle")
	}
}

func TestRingListIsSingle(t *testing.T) {
	s := newIntStore()
	r := NewRingList[int](s, nil, 1, 0)
	r.PushBack(2)
	if !r.IsSingle() {
		t.Fatal("ring with exactly one member should report IsSingle")
	}
}
