package ir

import "github.com/medihbt/remusys-ir-go/internal/list"

// JumpTargetKind tags which edge of a terminator a JumpTarget represents.
type JumpTargetKind int

const (
	JTSentinel JumpTargetKind = iota
	JTJump
	JTBrThen
	JTBrElse
	JTSwitchDefault
	JTSwitchCase // case index carried on JumpTarget.CaseIndex
)

// JumpTarget is one control-flow edge: {kind, terminator, block, ring
// links}, the dual of Use for CFG edges.
type JumpTarget struct {
	Kind        JumpTargetKind
	CaseIndex   uint32
	Terminator  InstID
	HasTerm     bool
	Block       BlockID
	HasBlock    bool
	CaseValue   ConstData // only meaningful when Kind == JTSwitchCase
}

func newSentinelJumpTarget() JumpTarget { return JumpTarget{Kind: JTSentinel} }

func (jt *JumpTarget) IsDisposed() bool { return jt.Kind == JTSentinel && !jt.HasTerm && !jt.HasBlock }

type jtStore struct{ allocs *IRAllocs }

func (s jtStore) LoadLink(h JumpTargetID) list.Link[JumpTargetID] {
	return s.allocs.jtLinks[h.H]
}
func (s jtStore) StoreLink(h JumpTargetID, l list.Link[JumpTargetID]) {
	s.allocs.jtLinks[h.H] = l
}

// PredList is the ring of JumpTargets whose Block points at one basic
// block -- the block's predecessor set.
type PredList struct {
	Sentinel JumpTargetID
	ring     *list.RingList[JumpTargetID]
}

func newPredList(allocs *IRAllocs) PredList {
	h := allocs.JumpTargets.Allocate(newSentinelJumpTarget())
	sid := JumpTargetID{H: h}
	allocs.jtLinks[h] = list.Link[JumpTargetID]{Prev: sid, Next: sid}
	return PredList{
		Sentinel: sid,
		ring:     list.NewRingList[JumpTargetID](jtStore{allocs}, nil, sid, NullJumpTargetID),
	}
}

func (pl PredList) Len() int               { return pl.ring.Len() }
func (pl PredList) Empty() bool            { return pl.ring.Empty() }
func (pl PredList) ForEach(f func(JumpTargetID) bool) { pl.ring.ForEach(f) }
func (pl PredList) ToSlice() []JumpTargetID { return pl.ring.ToSlice() }

// AllocJumpTarget creates a terminator edge and immediately links it into
// target's predecessor ring (if target is non-null).
func AllocJumpTarget(allocs *IRAllocs, term InstID, kind JumpTargetKind, caseIdx uint32, target BlockID) JumpTargetID {
	jt := JumpTarget{Kind: kind, CaseIndex: caseIdx, Terminator: term, HasTerm: true}
	h := allocs.JumpTargets.Allocate(jt)
	id := JumpTargetID{H: h}
	allocs.jtLinks[h] = list.Link[JumpTargetID]{}
	SetBlock(allocs, id, target)
	return id
}

// SetBlock unlinks from the old block's preds, updates, then relinks
// into the new block's preds.
func SetBlock(allocs *IRAllocs, id JumpTargetID, block BlockID) {
	jt := allocs.JumpTargets.Deref(id.H)
	if jt.HasBlock && jt.Block == block {
		return
	}
	unlinkJumpTargetFromPreds(allocs, id, jt)
	jt.Block = block
	jt.HasBlock = !block.IsNull()
	if jt.HasBlock {
		bb := allocs.Blocks.Deref(block.H)
		_ = bb.Preds.ring.PushBack(id)
	}
}

func unlinkJumpTargetFromPreds(allocs *IRAllocs, id JumpTargetID, jt *JumpTarget) {
	if !jt.HasBlock {
		return
	}
	if bb := allocs.Blocks.TryDeref(jt.Block.H); bb != nil {
		_ = bb.Preds.ring.Unplug(id)
	}
	jt.HasBlock = false
}

// DisposeJumpTarget unlinks jt from its block's preds and enqueues it for
// free. The caller is responsible for having already removed it from the
// owning terminator's jts set.
func DisposeJumpTarget(allocs *IRAllocs, id JumpTargetID) {
	jt := allocs.JumpTargets.Deref(id.H)
	unlinkJumpTargetFromPreds(allocs, id, jt)
	jt.HasTerm = false
	jt.Terminator = NullInstID
	if err := allocs.JumpTargets.Dispose(id.H); err == nil {
		allocs.jtDispose.Push(id.H)
	}
}
