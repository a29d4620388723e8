package ir

import "github.com/medihbt/remusys-ir-go/internal/list"

// BasicBlock holds an instruction sequence split into a phi prefix and a
// body, a predecessor ring, and the UserList of its own ValueSSA (its
// "address" used by Phi incoming-block operands and, eventually, indirect
// branches). Section layout invariant: head sentinel, zero or more Phi,
// exactly one PhiEnd marker, zero or more body instructions, exactly one
// terminator, tail sentinel.
type BasicBlock struct {
	ParentFunc FuncID
	HasParent  bool
	Preds      PredList
	Insts      *list.SequenceList[InstID]
	PhiEnd     InstID
	Users      UserList
	Disposed   bool

	headSentinel InstID
	tailSentinel InstID
}

// blockInstHooks maintains the ParentBB back-pointer on every instruction
// as it's linked into / unlinked from a block's instruction list:
// on_push_next/prev copy the parent-block pointer, on_unplug clears it.
type blockInstHooks struct {
	allocs *IRAllocs
	block  BlockID
}

func (h blockInstHooks) OnPushNext(curr, next InstID) error {
	if inst := h.allocs.Insts.TryDeref(next.H); inst != nil {
		inst.ParentBB = h.block
	}
	return nil
}
func (h blockInstHooks) OnPushPrev(curr, prev InstID) error {
	if inst := h.allocs.Insts.TryDeref(prev.H); inst != nil {
		inst.ParentBB = h.block
	}
	return nil
}
func (h blockInstHooks) OnUnplug(curr InstID) error {
	if inst := h.allocs.Insts.TryDeref(curr.H); inst != nil {
		inst.ParentBB = NullBlockID
	}
	return nil
}

// NewBlock allocates a block with its sentinels, PhiEnd marker, preds ring
// and UserList: a fresh UserList and PredList sentinel, plus a PhiEnd
// instruction.
func NewBlock(allocs *IRAllocs) BlockID {
	headH := allocs.Insts.Allocate(InstObj{})
	tailH := allocs.Insts.Allocate(InstObj{})
	headID, tailID := InstID{H: headH}, InstID{H: tailH}

	bb := &BasicBlock{headSentinel: headID, tailSentinel: tailID}
	blockH := allocs.Blocks.Allocate(BasicBlock{})
	blockID := BlockID{H: blockH}

	bb.Preds = newPredList(allocs)
	bb.Users = newUserList(allocs, FromBlock(blockID))
	bb.Insts = list.NewSequenceList[InstID](instStore{allocs}, blockInstHooks{allocs, blockID}, headID, tailID, NullInstID)

	phiEnd := newInstCommon(OpPhiEnd, allocs.TypeCtx.Void())
	phiEndH := allocs.Insts.Allocate(phiEnd)
	bb.PhiEnd = InstID{H: phiEndH}
	_ = bb.Insts.PushBack(bb.PhiEnd)

	*allocs.Blocks.Deref(blockH) = *bb
	return blockID
}

// sectionOf classifies where in the block an instruction sits relative to
// PhiEnd, used to enforce the phi/body/terminator ordering invariant on
// every insert.
type section int

const (
	sectionPhi section = iota
	sectionPhiEndMarker
	sectionBody
	sectionTerminator
)

func sectionOf(op Opcode) section {
	switch {
	case op == OpPhi:
		return sectionPhi
	case op == OpPhiEnd:
		return sectionPhiEndMarker
	case op.IsTerminator():
		return sectionTerminator
	default:
		return sectionBody
	}
}

// CheckInsertAt reports whether inserting an instruction of the given
// opcode immediately before ref is legal under the block section
// invariant: phis only before PhiEnd, terminator only as the very last
// instruction.
func (bb *BasicBlock) CheckInsertAt(allocs *IRAllocs, opcode Opcode, ref InstID) bool {
	sec := sectionOf(opcode)
	switch sec {
	case sectionPhi:
		// Must land before PhiEnd, i.e. ref must be PhiEnd or another Phi.
		if ref == bb.PhiEnd {
			return true
		}
		refInst := allocs.Insts.TryDeref(ref.H)
		return refInst != nil && refInst.Opcode == OpPhi
	case sectionTerminator:
		// Must land at the very end, i.e. ref must be the tail sentinel.
		return ref == bb.tailSentinel
	case sectionBody:
		// Must not land before PhiEnd or at/after an existing terminator.
		refInst := allocs.Insts.TryDeref(ref.H)
		if refInst != nil && (refInst.Opcode == OpPhi || refInst.Opcode == OpPhiEnd) {
			return false
		}
		if ref == bb.tailSentinel && !bb.Terminator(allocs).IsNull() {
			return false
		}
		return true
	default:
		return false
	}
}

// Terminator returns the block's terminator instruction, or NullInstID if
// it has none yet.
func (bb *BasicBlock) Terminator(allocs *IRAllocs) InstID {
	back := bb.Insts.Back()
	if back.IsNull() {
		return NullInstID
	}
	inst := allocs.Insts.TryDeref(back.H)
	if inst != nil && inst.Opcode.IsTerminator() {
		return back
	}
	return NullInstID
}

// Phis returns the block's phi instructions in order.
func (bb *BasicBlock) Phis(allocs *IRAllocs) []InstID {
	var out []InstID
	bb.Insts.ForEach(func(id InstID) bool {
		if id == bb.PhiEnd {
			return false
		}
		out = append(out, id)
		return true
	})
	return out
}

// Body returns the non-phi, non-terminator instructions in order.
func (bb *BasicBlock) Body(allocs *IRAllocs) []InstID {
	var out []InstID
	inPhi := true
	bb.Insts.ForEach(func(id InstID) bool {
		if id == bb.PhiEnd {
			inPhi = false
			return true
		}
		if inPhi {
			return true
		}
		inst := allocs.Insts.TryDeref(id.H)
		if inst != nil && inst.Opcode.IsTerminator() {
			return true
		}
		out = append(out, id)
		return true
	})
	return out
}
