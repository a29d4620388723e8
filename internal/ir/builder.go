package ir

import (
	"github.com/medihbt/remusys-ir-go/internal/irerr"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// IRBuilder is the module construction façade: it holds a focus
// {func, block} and every mutation a caller performs routes through it
// so invariants (section ordering, use-def linkage, parent pointers)
// stay intact by construction. Unlike an AST-lowering builder, there is
// no SSA variable-stack or incomplete-phi bookkeeping here -- callers
// already hand it SSA values directly.
type IRBuilder struct {
	Module       *Module
	FocusFunc    FuncID
	FocusBlock   BlockID
	hasFocusFunc bool
	hasFocusBlk  bool
}

func NewIRBuilder(m *Module) *IRBuilder { return &IRBuilder{Module: m} }

// SetFocus points subsequent insertions at fn/block. Passing NullBlockID
// clears the block focus while keeping the function.
func (b *IRBuilder) SetFocus(fn FuncID, block BlockID) {
	b.FocusFunc, b.hasFocusFunc = fn, !fn.IsNull()
	b.FocusBlock, b.hasFocusBlk = block, !block.IsNull()
}

func (b *IRBuilder) requireBlock() (*BasicBlock, error) {
	if !b.hasFocusBlk {
		return nil, irerr.NewConstructionErr(irerr.CodeNullFocus, "no block is focused")
	}
	bb := b.Module.Allocs.Blocks.TryDeref(b.FocusBlock.H)
	if bb == nil {
		return nil, irerr.NewConstructionErr(irerr.CodeNullFocus, "focused block handle is stale")
	}
	return bb, nil
}

// insertBefore inserts instID immediately before ref in the focused block,
// enforcing the phi/body/terminator section invariant.
func (b *IRBuilder) insertBefore(ref InstID, instID InstID, opcode Opcode) error {
	bb, err := b.requireBlock()
	if err != nil {
		return err
	}
	if !bb.CheckInsertAt(b.Module.Allocs, opcode, ref) {
		return irerr.NewConstructionErr(irerr.CodeInsertInPhiSection, "instruction does not respect block section ordering")
	}
	return bb.Insts.InsertBefore(ref, instID)
}

// InsertInst inserts instID at the end of the appropriate section for its
// opcode: phis go just before PhiEnd, terminators go at the very end
// (there must be none already), everything else goes just before the
// terminator (or at the end if none yet).
func (b *IRBuilder) InsertInst(instID InstID) error {
	bb, err := b.requireBlock()
	if err != nil {
		return err
	}
	allocs := b.Module.Allocs
	inst := allocs.Insts.Deref(instID.H)
	switch sectionOf(inst.Opcode) {
	case sectionPhi:
		return b.insertBefore(bb.PhiEnd, instID, inst.Opcode)
	case sectionTerminator:
		if term := bb.Terminator(allocs); !term.IsNull() {
			return irerr.NewConstructionErr(irerr.CodeMultipleTerminators, "block already has a terminator")
		}
		return bb.Insts.PushBack(instID)
	default:
		if term := bb.Terminator(allocs); !term.IsNull() {
			return b.insertBefore(term, instID, inst.Opcode)
		}
		return bb.Insts.PushBack(instID)
	}
}

// RemoveInst unplugs instID from its block and disposes it.
func (b *IRBuilder) RemoveInst(instID InstID) error {
	allocs := b.Module.Allocs
	inst := allocs.Insts.Deref(instID.H)
	bb := allocs.Blocks.Deref(inst.ParentBB.H)
	if err := bb.Insts.Unplug(instID); err != nil {
		return err
	}
	DisposeInst(allocs, instID)
	return nil
}

func (b *IRBuilder) alloc(opcode Opcode, retType types.ID) InstID {
	h := b.Module.Allocs.Insts.Allocate(newInstCommon(opcode, retType))
	id := InstID{H: h}
	inst := b.Module.Allocs.Insts.Deref(h)
	inst.Users = newUserList(b.Module.Allocs, FromInst(id))
	return id
}

// FocusSetUnreachable appends an `unreachable` terminator to the focused
// block.
func (b *IRBuilder) FocusSetUnreachable() (InstID, error) {
	id := b.alloc(OpUnreachable, b.Module.TypeCtx.Void())
	return id, b.InsertInst(id)
}

// FocusSetReturn appends a `ret` terminator; pass ValueSSA{} (None) for a
// void return.
func (b *IRBuilder) FocusSetReturn(retVal ValueSSA) (InstID, error) {
	id := b.alloc(OpRet, b.Module.TypeCtx.Void())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	if !retVal.IsNone() {
		inst.RetVal = AllocUse(b.Module.Allocs, UserFromInst(id), UseRetValue, 0, retVal)
		inst.HasRetVal = true
	}
	return id, b.InsertInst(id)
}

// FocusSetJump appends a `jump` terminator to target.
func (b *IRBuilder) FocusSetJump(target BlockID) (InstID, error) {
	id := b.alloc(OpJump, b.Module.TypeCtx.Void())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.JTJump = AllocJumpTarget(b.Module.Allocs, id, JTJump, 0, target)
	return id, b.InsertInst(id)
}

// FocusSetBranch appends a `br` terminator.
func (b *IRBuilder) FocusSetBranch(cond ValueSSA, thenBB, elseBB BlockID) (InstID, error) {
	id := b.alloc(OpBr, b.Module.TypeCtx.Void())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Cond = AllocUse(b.Module.Allocs, UserFromInst(id), UseBranchCond, 0, cond)
	inst.JTThen = AllocJumpTarget(b.Module.Allocs, id, JTBrThen, 0, thenBB)
	inst.JTElse = AllocJumpTarget(b.Module.Allocs, id, JTBrElse, 0, elseBB)
	return id, b.InsertInst(id)
}

// SwitchCase is one arm of a switch terminator.
type SwitchCase struct {
	Value ConstData
	Block BlockID
}

// FocusSetSwitch appends a `switch` terminator. Duplicate case values are
// a validator error, not rejected here: structural invariant violations
// are caught by the validator rather than the builder.
func (b *IRBuilder) FocusSetSwitch(discrim ValueSSA, defaultBB BlockID, cases []SwitchCase) (InstID, error) {
	id := b.alloc(OpSwitch, b.Module.TypeCtx.Void())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Discrim = AllocUse(b.Module.Allocs, UserFromInst(id), UseSwitchCond, 0, discrim)
	inst.JTDefault = AllocJumpTarget(b.Module.Allocs, id, JTSwitchDefault, 0, defaultBB)
	inst.Cases = make([]JumpTargetID, len(cases))
	for i, c := range cases {
		jtID := AllocJumpTarget(b.Module.Allocs, id, JTSwitchCase, uint32(i), c.Block)
		jt := b.Module.Allocs.JumpTargets.Deref(jtID.H)
		jt.CaseValue = c.Value
		inst.Cases[i] = jtID
	}
	return id, b.InsertInst(id)
}

// FocusReplaceTerminatorWith removes the current terminator (if any) and
// runs build, which is expected to install a new one via one of the
// FocusSet* terminator builders.
func (b *IRBuilder) FocusReplaceTerminatorWith(build func(*IRBuilder) (InstID, error)) (InstID, error) {
	bb, err := b.requireBlock()
	if err != nil {
		return NullInstID, err
	}
	if term := bb.Terminator(b.Module.Allocs); !term.IsNull() {
		if err := b.RemoveInst(term); err != nil {
			return NullInstID, err
		}
	}
	return build(b)
}

// SplitBlock splits the focused block at its terminator: a new block is
// created immediately after it, the old block's terminator moves onto the
// new block, and the old block gets a fresh `jump` to it.
func (b *IRBuilder) SplitBlock() (BlockID, error) {
	bb, err := b.requireBlock()
	if err != nil {
		return NullBlockID, err
	}
	allocs := b.Module.Allocs
	term := bb.Terminator(allocs)
	newBB := NewBlock(allocs)

	fn := allocs.Funcs.Deref(b.FocusFunc.H)
	_ = fn.Body.Blocks.InsertAfter(b.FocusBlock, newBB)

	if !term.IsNull() {
		if err := bb.Insts.Unplug(term); err != nil {
			return NullBlockID, err
		}
		newBBObj := allocs.Blocks.Deref(newBB.H)
		_ = newBBObj.Insts.PushBack(term)
		inst := allocs.Insts.Deref(term.H)
		inst.ParentBB = newBB
	}

	oldFocus := b.FocusBlock
	b.SetFocus(b.FocusFunc, oldFocus)
	if _, err := b.FocusSetJump(newBB); err != nil {
		return NullBlockID, err
	}
	return newBB, nil
}

// --- Per-instruction builders: one per instruction variant, each
// returning a fully-formed InstObj with all invariants satisfied on
// build. Each allocates the instruction, wires its operands through
// AllocUse so the use-def graph is correct from construction, then
// inserts it at the builder's focus. ---

func (b *IRBuilder) BuildAlloca(pointeeTy types.ID, alignLog2 uint8) (InstID, error) {
	id := b.alloc(OpAlloca, b.Module.TypeCtx.Ptr())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.PointeeTy = pointeeTy
	inst.AlignLog2 = alignLog2
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildLoad(source ValueSSA, pointeeTy types.ID, alignLog2 uint8) (InstID, error) {
	id := b.alloc(OpLoad, pointeeTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Source = AllocUse(b.Module.Allocs, UserFromInst(id), UseLoadSource, 0, source)
	inst.AlignLog2 = alignLog2
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildStore(sourceTy types.ID, src, dst ValueSSA, alignLog2 uint8) (InstID, error) {
	id := b.alloc(OpStore, b.Module.TypeCtx.Void())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.SourceTy = sourceTy
	inst.Source = AllocUse(b.Module.Allocs, UserFromInst(id), UseStoreSource, 0, src)
	inst.Dst = AllocUse(b.Module.Allocs, UserFromInst(id), UseStoreTarget, 0, dst)
	inst.AlignLog2 = alignLog2
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildAmoRmw(op AmoRmwOp, ptr, val ValueSSA, retTy types.ID, ordering int, scope string) (InstID, error) {
	id := b.alloc(OpAmoRmw, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.AmoOp = op
	inst.AmoPtr = AllocUse(b.Module.Allocs, UserFromInst(id), UseAmoRmwPtr, 0, ptr)
	inst.AmoVal = AllocUse(b.Module.Allocs, UserFromInst(id), UseAmoRmwVal, 0, val)
	inst.Ordering = ordering
	inst.Scope = scope
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildBinOp(op BinOpKind, lhs, rhs ValueSSA, retTy types.ID) (InstID, error) {
	id := b.alloc(OpBinOp, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.BinKind = op
	inst.Lhs = AllocUse(b.Module.Allocs, UserFromInst(id), UseBinOpLhs, 0, lhs)
	inst.Rhs = AllocUse(b.Module.Allocs, UserFromInst(id), UseBinOpRhs, 0, rhs)
	return id, b.InsertInst(id)
}

func (b *IRBuilder) buildCmp(opcode Opcode, cond CmpCond, lhs, rhs ValueSSA, retTy types.ID) (InstID, error) {
	id := b.alloc(opcode, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.CmpKind = cond
	inst.Lhs = AllocUse(b.Module.Allocs, UserFromInst(id), UseCmpLhs, 0, lhs)
	inst.Rhs = AllocUse(b.Module.Allocs, UserFromInst(id), UseCmpRhs, 0, rhs)
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildIcmp(cond CmpCond, lhs, rhs ValueSSA, retTy types.ID) (InstID, error) {
	return b.buildCmp(OpIcmp, cond, lhs, rhs, retTy)
}

func (b *IRBuilder) BuildFcmp(cond CmpCond, lhs, rhs ValueSSA, retTy types.ID) (InstID, error) {
	return b.buildCmp(OpFcmp, cond, lhs, rhs, retTy)
}

func (b *IRBuilder) BuildCast(op CastOp, from ValueSSA, fromTy, intoTy types.ID) (InstID, error) {
	id := b.alloc(OpCast, intoTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.CastKind = op
	inst.FromTy = fromTy
	inst.CastFrom = AllocUse(b.Module.Allocs, UserFromInst(id), UseCastFrom, 0, from)
	return id, b.InsertInst(id)
}

// BuildPhi creates an empty phi; use AddIncoming to populate it before (or
// after) inserting, then InsertInst to place it.
func (b *IRBuilder) BuildPhi(ty types.ID) InstID {
	return b.alloc(OpPhi, ty)
}

// AddIncoming appends one (block, value) pair to a phi's incomings,
// represented as two adjacent Uses.
func (b *IRBuilder) AddIncoming(phi InstID, block BlockID, value ValueSSA) {
	inst := b.Module.Allocs.Insts.Deref(phi.H)
	idx := uint32(len(inst.Incomings))
	blockUse := AllocUse(b.Module.Allocs, UserFromInst(phi), UsePhiIncomingBlock, idx, FromBlock(block))
	valueUse := AllocUse(b.Module.Allocs, UserFromInst(phi), UsePhiIncomingValue, idx, value)
	inst.Incomings = append(inst.Incomings, PhiIncoming{BlockUse: blockUse, ValueUse: valueUse})
}

func (b *IRBuilder) BuildSelect(cond, then, els ValueSSA, retTy types.ID) (InstID, error) {
	id := b.alloc(OpSelect, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Cond = AllocUse(b.Module.Allocs, UserFromInst(id), UseSelectCond, 0, cond)
	inst.SelThen = AllocUse(b.Module.Allocs, UserFromInst(id), UseSelectThen, 0, then)
	inst.SelElse = AllocUse(b.Module.Allocs, UserFromInst(id), UseSelectElse, 0, els)
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildCall(callee ValueSSA, calleeTy types.ID, args []ValueSSA, retTy types.ID, isTailCall, isVararg bool) (InstID, error) {
	id := b.alloc(OpCall, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.CalleeTy = calleeTy
	inst.IsTailCall = isTailCall
	inst.IsVararg = isVararg
	inst.Callee = AllocUse(b.Module.Allocs, UserFromInst(id), UseCallCallee, 0, callee)
	inst.Args = make([]UseID, len(args))
	for i, a := range args {
		inst.Args[i] = AllocUse(b.Module.Allocs, UserFromInst(id), UseCallArg, uint32(i), a)
	}
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildGEP(base ValueSSA, indices []ValueSSA, initialTy, finalTy types.ID) (InstID, error) {
	id := b.alloc(OpGEP, b.Module.TypeCtx.Ptr())
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.InitialTy = initialTy
	inst.FinalTy = finalTy
	inst.Base = AllocUse(b.Module.Allocs, UserFromInst(id), UseGepBase, 0, base)
	inst.Indices = make([]UseID, len(indices))
	for i, idx := range indices {
		inst.Indices[i] = AllocUse(b.Module.Allocs, UserFromInst(id), UseGepIndex, uint32(i), idx)
	}
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildIndexExtract(aggr, index ValueSSA, retTy types.ID) (InstID, error) {
	id := b.alloc(OpIndexExtract, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Aggr = AllocUse(b.Module.Allocs, UserFromInst(id), UseIndexExtractAggr, 0, aggr)
	inst.Index = AllocUse(b.Module.Allocs, UserFromInst(id), UseIndexExtractIndex, 0, index)
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildIndexInsert(aggr, elem, index ValueSSA, aggrTy types.ID) (InstID, error) {
	id := b.alloc(OpIndexInsert, aggrTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Aggr = AllocUse(b.Module.Allocs, UserFromInst(id), UseIndexInsertAggr, 0, aggr)
	inst.Elem = AllocUse(b.Module.Allocs, UserFromInst(id), UseIndexInsertElem, 0, elem)
	inst.Index = AllocUse(b.Module.Allocs, UserFromInst(id), UseIndexInsertIndex, 0, index)
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildFieldExtract(aggr ValueSSA, fieldIdx uint32, retTy types.ID) (InstID, error) {
	id := b.alloc(OpFieldExtract, retTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Aggr = AllocUse(b.Module.Allocs, UserFromInst(id), UseFieldExtractAggr, 0, aggr)
	inst.FieldIdx = fieldIdx
	return id, b.InsertInst(id)
}

func (b *IRBuilder) BuildFieldInsert(aggr, elem ValueSSA, fieldIdx uint32, aggrTy types.ID) (InstID, error) {
	id := b.alloc(OpFieldInsert, aggrTy)
	inst := b.Module.Allocs.Insts.Deref(id.H)
	inst.Aggr = AllocUse(b.Module.Allocs, UserFromInst(id), UseFieldInsertAggr, 0, aggr)
	inst.Elem = AllocUse(b.Module.Allocs, UserFromInst(id), UseFieldInsertElem, 0, elem)
	inst.FieldIdx = fieldIdx
	return id, b.InsertInst(id)
}
