package transform

import (
	"github.com/medihbt/remusys-ir-go/internal/cfg"
	"github.com/medihbt/remusys-ir-go/internal/ir"
)

// BasicDCE removes unreachable blocks and then, within what remains,
// instructions nothing observable depends on: two sweeps over one
// function, each cheap enough to run after every other pass.
type BasicDCE struct{}

func (BasicDCE) Name() string { return "basic-dce" }

func (p BasicDCE) RunOnFunc(order InstOrdering, module *ir.Module, fn ir.FuncID) (bool, error) {
	allocs := module.Allocs
	changed := false

	removedBlocks, err := pruneUnreachableBlocks(order, allocs, fn)
	if err != nil {
		return changed, err
	}
	changed = changed || removedBlocks

	removedInsts := sweepDeadInstructions(order, allocs, fn)
	changed = changed || removedInsts

	return changed, nil
}

// pruneUnreachableBlocks walks the CFG forward from the entry block and
// disposes everything a pre-order DFS never touches.
func pruneUnreachableBlocks(order InstOrdering, allocs *ir.IRAllocs, fn ir.FuncID) (bool, error) {
	seq, err := cfg.NewDfsSeq(allocs, fn, cfg.Pre)
	if err != nil {
		return false, err
	}
	reachable := make(map[ir.BlockID]bool, len(seq.Nodes))
	for _, n := range seq.Nodes {
		reachable[n.Block] = true
	}

	fnObj := allocs.Funcs.Deref(fn.H)
	changed := false
	for _, bid := range fnObj.Body.Blocks.ToSlice() {
		if reachable[bid] {
			continue
		}
		if err := fnObj.Body.Blocks.Unplug(bid); err != nil {
			return changed, err
		}
		ir.DisposeBlock(allocs, bid)
		order.InvalidateBlock(bid)
		changed = true
	}
	return changed, nil
}

// hasSideEffect reports whether an instruction's effect is observable
// beyond its own result value, and so must survive DCE regardless of
// whether anything uses its result.
func hasSideEffect(op ir.Opcode) bool {
	switch op {
	case ir.OpStore, ir.OpAmoRmw, ir.OpCall:
		return true
	default:
		return op.IsTerminator()
	}
}

// sweepDeadInstructions mark-and-sweeps the instructions of every
// remaining block: side-effecting instructions and terminators seed the
// live set, liveness propagates backward across operand edges (including
// through constant-expression elements), and everything unmarked is
// removed.
func sweepDeadInstructions(order InstOrdering, allocs *ir.IRAllocs, fn ir.FuncID) bool {
	fnObj := allocs.Funcs.Deref(fn.H)
	liveInst := map[ir.InstID]bool{}
	liveExpr := map[ir.ExprID]bool{}
	var worklist []ir.InstID

	markValue := func(v ir.ValueSSA) {
		markValueInto(allocs, v, liveInst, liveExpr, &worklist)
	}

	fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
		bb := allocs.Blocks.Deref(bid.H)
		bb.Insts.ForEach(func(iid ir.InstID) bool {
			inst := allocs.Insts.TryDeref(iid.H)
			if inst == nil || inst.Disposed {
				return true
			}
			if inst.Opcode == ir.OpPhiEnd || hasSideEffect(inst.Opcode) {
				if !liveInst[iid] {
					liveInst[iid] = true
					worklist = append(worklist, iid)
				}
			}
			return true
		})
		return true
	})

	for len(worklist) > 0 {
		id := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		inst := allocs.Insts.TryDeref(id.H)
		if inst == nil {
			continue
		}
		for _, useID := range inst.Operands() {
			if useID.IsNull() {
				continue
			}
			u := allocs.Uses.TryDeref(useID.H)
			if u == nil {
				continue
			}
			markValue(u.Operand)
		}
	}

	changed := false
	fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
		bb := allocs.Blocks.Deref(bid.H)
		for _, iid := range bb.Insts.ToSlice() {
			inst := allocs.Insts.TryDeref(iid.H)
			if inst == nil || inst.Disposed {
				continue
			}
			if inst.Opcode == ir.OpPhiEnd || hasSideEffect(inst.Opcode) || liveInst[iid] {
				continue
			}
			_ = bb.Insts.Unplug(iid)
			ir.DisposeInst(allocs, iid)
			order.OnInstRemove(bid, iid)
			changed = true
		}
		return true
	})
	return changed
}

// markValueInto marks v and, transitively, every ClassInst/ClassConstExpr
// value reachable from it, pushing newly-discovered instructions onto
// worklist for the caller's traversal.
func markValueInto(allocs *ir.IRAllocs, v ir.ValueSSA, liveInst map[ir.InstID]bool, liveExpr map[ir.ExprID]bool, worklist *[]ir.InstID) {
	switch v.Class {
	case ir.ClassInst:
		if !liveInst[v.Inst] {
			liveInst[v.Inst] = true
			*worklist = append(*worklist, v.Inst)
		}
	case ir.ClassConstExpr:
		if liveExpr[v.Expr] {
			return
		}
		liveExpr[v.Expr] = true
		expr := allocs.Exprs.TryDeref(v.Expr.H)
		if expr == nil {
			return
		}
		for _, useID := range expr.Elems {
			u := allocs.Uses.TryDeref(useID.H)
			if u == nil {
				continue
			}
			markValueInto(allocs, u.Operand, liveInst, liveExpr, worklist)
		}
	}
}
