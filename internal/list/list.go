// Package list implements two generic intrusive-list flavors: a sequence
// list with distinct head/tail sentinels (blocks in a function,
// instructions in a block) and a single-sentinel ring (a value's
// UserList, a block's PredList). Nodes live inside arena-pooled objects --
// this package never owns anything, it only reads and writes link fields
// through the Store interface, working over a generic slab rather than
// owning storage itself.
package list

import "fmt"

// Link is the prev/next pair every list node carries. A Link with Next/Prev
// both zero-valued (the handle package's null sentinel analogue) terminates
// traversal; callers supply their own null value as the null argument of
// NewSequenceList/NewRingList.
type Link[H comparable] struct {
	Prev H
	Next H
}

// Node is implemented by whatever arena handle type a list is built over
// (e.g. InstID, BlockID, UseID), exposing its null value. Invariant
// maintenance on link changes goes through Hooks, not through Node.
type Node[H comparable] interface {
	comparable
	// Null is the sentinel "no handle" value for H (e.g. arena.Handle{}).
	Null() H
}

// Store abstracts "the thing link fields live inside" -- normally an
// arena.Pool[T] dereference. A Store must support loading and storing a
// node's Link by handle.
type Store[H comparable] interface {
	LoadLink(h H) Link[H]
	StoreLink(h H, l Link[H])
}

// Hooks lets the owner of a list react to structural changes. Every hook
// receives the handles involved and is called before the links change
// (before linking for push, before unlinking for unplug), so
// implementations can enforce invariants like
// parent-pointer maintenance. A hook may reject the mutation by returning
// a non-nil error; the list leaves its state unmodified and returns the
// same error to the caller that initiated the change.
type Hooks[H comparable] interface {
	OnPushNext(curr, next H) error
	OnPushPrev(curr, prev H) error
	OnUnplug(curr H) error
}

// NopHooks satisfies Hooks when no parent-pointer bookkeeping is needed.
type NopHooks[H comparable] struct{}

func (NopHooks[H]) OnPushNext(curr, next H) error { return nil }
func (NopHooks[H]) OnPushPrev(curr, prev H) error { return nil }
func (NopHooks[H]) OnUnplug(curr H) error         { return nil }

// ErrSelfLoop is returned when an insert would link a node to itself,
// guarding against a trivial but easy ring corruption.
type ErrSelfLoop[H comparable] struct{ Handle H }

func (e ErrSelfLoop[H]) Error() string {
	return fmt.Sprintf("list: refusing to link node %v to itself", e.Handle)
}

// SequenceList is a doubly-linked list with distinct, payload-less head
// and tail sentinels, used for instructions-in-block and
// blocks-in-function.
type SequenceList[H comparable] struct {
	store Store[H]
	hooks Hooks[H]
	head  H
	tail  H
	null  H
	size  int
}

// NewSequenceList creates a list whose head/tail sentinels are the supplied
// handles; the caller is responsible for having allocated two sentinel
// objects in the owning arena, and this call links them head<->tail
// (mirroring SlabRefList::from_slab in slablist.rs).
func NewSequenceList[H comparable](store Store[H], hooks Hooks[H], head, tail, null H) *SequenceList[H] {
	if hooks == nil {
		hooks = NopHooks[H]{}
	}
	store.StoreLink(head, Link[H]{Prev: null, Next: tail})
	store.StoreLink(tail, Link[H]{Prev: head, Next: null})
	return &SequenceList[H]{store: store, hooks: hooks, head: head, tail: tail, null: null}
}

func (l *SequenceList[H]) Len() int    { return l.size }
func (l *SequenceList[H]) Empty() bool { return l.size == 0 }
func (l *SequenceList[H]) Head() H     { return l.head }
func (l *SequenceList[H]) Tail() H     { return l.tail }

// Front returns the first non-sentinel node, or the null handle if empty.
func (l *SequenceList[H]) Front() H {
	n := l.store.LoadLink(l.head).Next
	if n == l.tail {
		return l.null
	}
	return n
}

// Back returns the last non-sentinel node, or the null handle if empty.
func (l *SequenceList[H]) Back() H {
	p := l.store.LoadLink(l.tail).Prev
	if p == l.head {
		return l.null
	}
	return p
}

// Next returns the node after h (which may be the tail sentinel).
func (l *SequenceList[H]) Next(h H) H { return l.store.LoadLink(h).Next }

// Prev returns the node before h (which may be the head sentinel).
func (l *SequenceList[H]) Prev(h H) H { return l.store.LoadLink(h).Prev }

// InsertAfter splices newNode directly after ref, which must already be a
// member of the list (a sentinel counts).
func (l *SequenceList[H]) InsertAfter(ref, newNode H) error {
	if ref == newNode {
		return ErrSelfLoop[H]{Handle: ref}
	}
	if err := l.hooks.OnPushNext(ref, newNode); err != nil {
		return err
	}
	refLink := l.store.LoadLink(ref)
	next := refLink.Next
	l.store.StoreLink(newNode, Link[H]{Prev: ref, Next: next})
	l.store.StoreLink(ref, Link[H]{Prev: refLink.Prev, Next: newNode})
	nextLink := l.store.LoadLink(next)
	nextLink.Prev = newNode
	l.store.StoreLink(next, nextLink)
	l.size++
	return nil
}

// InsertBefore splices newNode directly before ref, which must already be a
// member of the list (a sentinel counts).
func (l *SequenceList[H]) InsertBefore(ref, newNode H) error {
	if ref == newNode {
		return ErrSelfLoop[H]{Handle: ref}
	}
	if err := l.hooks.OnPushPrev(ref, newNode); err != nil {
		return err
	}
	refLink := l.store.LoadLink(ref)
	prev := refLink.Prev
	l.store.StoreLink(newNode, Link[H]{Prev: prev, Next: ref})
	l.store.StoreLink(ref, Link[H]{Prev: newNode, Next: refLink.Next})
	prevLink := l.store.LoadLink(prev)
	prevLink.Next = newNode
	l.store.StoreLink(prev, prevLink)
	l.size++
	return nil
}

// PushBack appends newNode just before the tail sentinel.
func (l *SequenceList[H]) PushBack(newNode H) error {
	return l.InsertBefore(l.tail, newNode)
}

// PushFront prepends newNode just after the head sentinel.
func (l *SequenceList[H]) PushFront(newNode H) error {
	return l.InsertAfter(l.head, newNode)
}

// Unplug removes node from the list. node must not be a sentinel.
func (l *SequenceList[H]) Unplug(node H) error {
	if node == l.head || node == l.tail {
		return fmt.Errorf("list: cannot unplug a sentinel node")
	}
	if err := l.hooks.OnUnplug(node); err != nil {
		return err
	}
	link := l.store.LoadLink(node)
	prevLink := l.store.LoadLink(link.Prev)
	prevLink.Next = link.Next
	l.store.StoreLink(link.Prev, prevLink)
	nextLink := l.store.LoadLink(link.Next)
	nextLink.Prev = link.Prev
	l.store.StoreLink(link.Next, nextLink)
	l.size--
	return nil
}

// ForEach walks the list front to back, stopping early if f returns false.
// The sentinels are never visited.
func (l *SequenceList[H]) ForEach(f func(H) bool) {
	for cur := l.Front(); cur != l.null && cur != l.tail; cur = l.Next(cur) {
		if !f(cur) {
			return
		}
	}
}

// ToSlice materializes the list's non-sentinel members in order.
func (l *SequenceList[H]) ToSlice() []H {
	out := make([]H, 0, l.size)
	l.ForEach(func(h H) bool {
		out = append(out, h)
		return true
	})
	return out
}

// RingList is a single-sentinel, logically-unordered set with O(1)
// insert/remove, used for UserList and PredList. It is implemented as a
// SequenceList whose head and tail sentinel are the same handle, which is
// exactly how an intrusive ring degenerates from a two-sentinel sequence
// list.
type RingList[H comparable] struct {
	seq      *SequenceList[H]
	sentinel H
}

// NewRingList creates a ring rooted at sentinel, which the caller must have
// already allocated; this call links it to itself (Next == Prev == sentinel).
func NewRingList[H comparable](store Store[H], hooks Hooks[H], sentinel, null H) *RingList[H] {
	store.StoreLink(sentinel, Link[H]{Prev: sentinel, Next: sentinel})
	return &RingList[H]{
		seq:      &SequenceList[H]{store: store, hooks: hooksOrNop(hooks), head: sentinel, tail: sentinel, null: null},
		sentinel: sentinel,
	}
}

func hooksOrNop[H comparable](h Hooks[H]) Hooks[H] {
	if h == nil {
		return NopHooks[H]{}
	}
	return h
}

func (r *RingList[H]) Len() int        { return r.seq.size }
func (r *RingList[H]) Empty() bool     { return r.seq.size == 0 }
func (r *RingList[H]) Sentinel() H     { return r.sentinel }
func (r *RingList[H]) Next(h H) H      { return r.seq.store.LoadLink(h).Next }
func (r *RingList[H]) Prev(h H) H      { return r.seq.store.LoadLink(h).Prev }
func (r *RingList[H]) PushBack(h H) error {
	// Insert just before the sentinel, i.e. at the "tail" of the ring as
	// seen from the sentinel's perspective.
	return r.seq.InsertBefore(r.sentinel, h)
}
func (r *RingList[H]) Unplug(h H) error { return r.seq.Unplug(h) }

// ForEach walks every member of the ring (never the sentinel), stopping
// early if f returns false.
func (r *RingList[H]) ForEach(f func(H) bool) {
	null := r.seq.null
	for cur := r.Next(r.sentinel); cur != null && cur != r.sentinel; cur = r.Next(cur) {
		if !f(cur) {
			return
		}
	}
}

// ToSlice materializes the ring's members in ring-walk order; callers
// must not depend on this order being insertion order.
func (r *RingList[H]) ToSlice() []H {
	out := make([]H, 0, r.seq.size)
	r.ForEach(func(h H) bool {
		out = append(out, h)
		return true
	})
	return out
}

// IsSingle reports whether the ring has exactly one member.
func (r *RingList[H]) IsSingle() bool { return r.seq.size == 1 }
