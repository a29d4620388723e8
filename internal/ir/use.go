package ir

import "github.com/medihbt/remusys-ir-go/internal/list"

// UseKind tags what role a Use plays in its user's operand layout: one
// variant per distinct operand position across every instruction and
// constant-expression shape (ArrayElem/StructField/VecElem cover
// aggregate ConstExpr operands).
type UseKind int

const (
	UseSentinel UseKind = iota
	UseBinOpLhs
	UseBinOpRhs
	UseCallCallee
	UseCallArg // index carried on Use.Index
	UseCastFrom
	UseCmpLhs
	UseCmpRhs
	UseGepBase
	UseGepIndex
	UseLoadSource
	UseStoreSource
	UseStoreTarget
	UseIndexExtractAggr
	UseIndexExtractIndex
	UseFieldExtractAggr
	UseIndexInsertAggr
	UseIndexInsertElem
	UseIndexInsertIndex
	UseFieldInsertAggr
	UseFieldInsertElem
	UsePhiIncomingBlock
	UsePhiIncomingValue
	UseSelectCond
	UseSelectThen
	UseSelectElse
	UseBranchCond
	UseSwitchCond
	UseRetValue
	UseAmoRmwPtr
	UseAmoRmwVal
	UseGlobalInit
	UseArrayElem
	UseStructField
	UseVecElem
	UseDisposed
)

func (k UseKind) IsPhiIncoming() bool {
	return k == UsePhiIncomingBlock || k == UsePhiIncomingValue
}

// IsInstOperand reports whether k can only appear as an instruction
// operand: everything except the sentinel and the non-instruction
// (global/const-expr) operand kinds.
func (k UseKind) IsInstOperand() bool {
	switch k {
	case UseSentinel, UseGlobalInit, UseArrayElem, UseStructField, UseVecElem:
		return false
	default:
		return true
	}
}

// Use is one edge in the use-def graph: {kind, user, operand, ring links}.
// Index carries the variadic-slot index for kinds like UseCallArg,
// UseGepIndex and UsePhiIncomingBlock/Value where a single UseKind covers
// an indexed family of slots.
type Use struct {
	Kind    UseKind
	Index   uint32
	User    UserID
	HasUser bool
	Operand ValueSSA
}

func newSentinelUse() Use { return Use{Kind: UseSentinel} }

func (u *Use) IsDisposed() bool { return u.Kind == UseDisposed }

// useStore adapts IRAllocs.Uses into list.Store[UseID] so UserList rings can
// be built with internal/list's generic SequenceList/RingList.
type useStore struct{ allocs *IRAllocs }

func (s useStore) LoadLink(h UseID) list.Link[UseID] {
	return s.allocs.useLinks[h.H]
}
func (s useStore) StoreLink(h UseID, l list.Link[UseID]) {
	s.allocs.useLinks[h.H] = l
}

// UserList is the ring of every Use currently pointing at one value,
// rooted at a sentinel Use this value owns.
type UserList struct {
	Sentinel UseID
	ring     *list.RingList[UseID]
}

// newUserList allocates a sentinel Use in allocs and returns the ring
// rooted at it. The owner argument is the value this list belongs to,
// recorded on the sentinel's Operand so debugging tools can find the home
// value from a bare UseID.
func newUserList(allocs *IRAllocs, owner ValueSSA) UserList {
	sentinelUse := newSentinelUse()
	sentinelUse.Operand = owner
	h := allocs.Uses.Allocate(sentinelUse)
	sid := UseID{H: h}
	allocs.useLinks[h] = list.Link[UseID]{Prev: sid, Next: sid}
	return UserList{
		Sentinel: sid,
		ring:     list.NewRingList[UseID](useStore{allocs}, nil, sid, NullUseID),
	}
}

func (ul UserList) Len() int          { return ul.ring.Len() }
func (ul UserList) Empty() bool       { return ul.ring.Empty() }
func (ul UserList) ForEach(f func(UseID) bool) { ul.ring.ForEach(f) }
func (ul UserList) ToSlice() []UseID  { return ul.ring.ToSlice() }

// AllocUse creates a new, as-yet-unlinked Use of the given kind belonging
// to user, and immediately links it into operand's UserList (if operand
// traces): construct the Use, then call SetOperand.
func AllocUse(allocs *IRAllocs, user UserID, kind UseKind, index uint32, operand ValueSSA) UseID {
	u := Use{Kind: kind, Index: index, User: user, HasUser: true}
	h := allocs.Uses.Allocate(u)
	id := UseID{H: h}
	allocs.useLinks[h] = list.Link[UseID]{}
	SetOperand(allocs, id, operand)
	return id
}

// SetOperand is a no-op if identical; otherwise it unlinks from the
// current operand's ring, stores v, then links into v's ring. Silently
// does nothing when v doesn't trace (no UserList to join).
func SetOperand(allocs *IRAllocs, id UseID, v ValueSSA) {
	u := allocs.Uses.Deref(id.H)
	if u.Operand.Equal(v) {
		return
	}
	unlinkUseFromOperandRing(allocs, id, u)
	u.Operand = v
	if ul, ok := allocs.userListOf(v); ok {
		_ = ul.ring.PushBack(id)
	}
}

// ReplaceAllUsesWith retargets every Use currently pointing at from to
// newVal, leaving from with an empty UserList. Safe to call with newVal
// equal to from (a no-op) or with a from that has no uses. Callers walk a
// snapshot of the UserList since SetOperand mutates the ring as it goes.
func ReplaceAllUsesWith(allocs *IRAllocs, from, newVal ValueSSA) {
	ul, ok := allocs.userListOf(from)
	if !ok {
		return
	}
	for _, useID := range ul.ToSlice() {
		SetOperand(allocs, useID, newVal)
	}
}

// CleanOperand unlinks the current operand and resets it to None.
func CleanOperand(allocs *IRAllocs, id UseID) {
	u := allocs.Uses.Deref(id.H)
	unlinkUseFromOperandRing(allocs, id, u)
	u.Operand = None
}

func unlinkUseFromOperandRing(allocs *IRAllocs, id UseID, u *Use) {
	if u.Operand.IsNone() {
		return
	}
	if ul, ok := allocs.userListOf(u.Operand); ok {
		_ = ul.ring.Unplug(id)
	}
}

// DisposeUse marks id Disposed, unlinks it, clears user/operand, and
// enqueues it for free.
func DisposeUse(allocs *IRAllocs, id UseID) {
	u := allocs.Uses.Deref(id.H)
	if u.IsDisposed() {
		return
	}
	unlinkUseFromOperandRing(allocs, id, u)
	u.Kind = UseDisposed
	u.HasUser = false
	u.Operand = None
	if err := allocs.Uses.Dispose(id.H); err == nil {
		allocs.useDispose.Push(id.H)
	}
}
