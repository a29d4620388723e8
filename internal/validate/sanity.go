// Package validate implements a two-layer IR checker: a cheap structural
// sanity pass and a typed semantic pass, both reporting
// irerr.Location-tagged diagnostics.
package validate

import (
	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/irerr"
)

func instLoc(id ir.InstID) irerr.Location {
	return irerr.Location{Kind: irerr.LocInst, Handle: id.H.Index}
}
func blockLoc(id ir.BlockID) irerr.Location {
	return irerr.Location{Kind: irerr.LocBlock, Handle: id.H.Index}
}
func funcLoc(id ir.FuncID) irerr.Location {
	return irerr.Location{Kind: irerr.LocFunc, Handle: id.H.Index}
}
func useLoc(id ir.UseID) irerr.Location {
	return irerr.Location{Kind: irerr.LocUse, Handle: id.H.Index}
}
func jtLoc(id ir.JumpTargetID) irerr.Location {
	return irerr.Location{Kind: irerr.LocJumpTarget, Handle: id.H.Index}
}

// SanityCheck walks every live block/instruction reachable from m's
// registered functions and verifies that operand Uses are live, jump
// targets lead to a block of the same function, parent back-pointers,
// section ordering and phi operand shape. It does not walk the UserLists
// or PredLists to confirm each Use or JumpTarget is in its operand's or
// target's ring. It collects every violation rather than stopping at the
// first.
func SanityCheck(m *ir.Module) []error {
	var errs []error
	for _, name := range m.Symbols() {
		if fn, ok := m.GetFuncByName(name); ok {
			errs = append(errs, sanityCheckFunc(m, fn)...)
		}
	}
	return errs
}

// AssertModuleSane panics on the first sanity violation -- a debug-build
// assertion wrapper around SanityCheck.
func AssertModuleSane(m *ir.Module) {
	if errs := SanityCheck(m); len(errs) > 0 {
		panic(errs[0])
	}
}

func sanityCheckFunc(m *ir.Module, fn ir.FuncID) []error {
	var errs []error
	fnObj := m.Allocs.Funcs.Deref(fn.H)
	if !fnObj.HasBody {
		return nil
	}
	seenEntry := false
	fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
		if !seenEntry {
			if bid != fnObj.Body.Entry {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeBlockNotInParentFunc, funcLoc(fn),
					"entry block is not first in the function's block list",
				))
			}
			seenEntry = true
		}
		bb := m.Allocs.Blocks.TryDeref(bid.H)
		if bb != nil && bb.HasParent && bb.ParentFunc != fn {
			errs = append(errs, irerr.NewSanityErr(
				irerr.CodeBlockNotInParentFunc, blockLoc(bid),
				"block's ParentFunc does not match the function it is linked into",
			))
		}
		errs = append(errs, sanityCheckBlock(m, bid)...)
		return true
	})
	return errs
}

func sanityCheckBlock(m *ir.Module, bid ir.BlockID) []error {
	var errs []error
	bb := m.Allocs.Blocks.Deref(bid.H)
	if bb.Disposed {
		return nil
	}

	insts := bb.Insts.ToSlice()
	sawPhiEnd := false
	terminatorCount := 0

	for i, iid := range insts {
		inst := m.Allocs.Insts.TryDeref(iid.H)
		if inst == nil || inst.Disposed {
			errs = append(errs, irerr.NewSanityErr(
				irerr.CodeUseNotInOperandRing, instLoc(iid),
				"instruction list references a disposed/stale handle",
			))
			continue
		}
		if inst.ParentBB != bid {
			errs = append(errs, irerr.NewSanityErr(
				irerr.CodeInstNotInParentBlock, instLoc(iid),
				"instruction's ParentBB does not match its owning block",
			))
		}
		switch {
		case iid == bb.PhiEnd:
			sawPhiEnd = true
		case inst.Opcode == ir.OpPhi:
			if sawPhiEnd {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodePhiAfterPhiEnd, instLoc(iid),
					"phi instruction found after the PhiEnd marker",
				))
			}
			if len(inst.Incomings) != bb.Preds.Len() {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodePhiPredMismatch, instLoc(iid),
					"phi incoming count does not match predecessor count",
				))
			}
		case inst.Opcode.IsTerminator():
			terminatorCount++
			if i != len(insts)-1 {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeTerminatorNotLast, instLoc(iid),
					"terminator is not the last instruction in its block",
				))
			}
		}
		for _, u := range inst.Operands() {
			if u.IsNull() {
				continue
			}
			use := m.Allocs.Uses.TryDeref(u.H)
			if use == nil || use.IsDisposed() {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeUseNotInOperandRing, useLoc(u),
					"operand Use is disposed or missing",
				))
			}
		}
		for _, jid := range inst.JumpTargets() {
			if jid.IsNull() {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeJumpTargetNullBlock, instLoc(iid),
					"terminator has a null jump target",
				))
				continue
			}
			jt := m.Allocs.JumpTargets.TryDeref(jid.H)
			if jt == nil || !jt.HasBlock {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeJumpTargetNullBlock, jtLoc(jid),
					"jump target has no live destination block",
				))
				continue
			}
			targetBB := m.Allocs.Blocks.TryDeref(jt.Block.H)
			if targetBB == nil || !targetBB.HasParent || targetBB.ParentFunc != bb.ParentFunc {
				errs = append(errs, irerr.NewSanityErr(
					irerr.CodeJumpTargetCrossFunction, jtLoc(jid),
					"jump target's block belongs to a different function",
				))
			}
		}
	}
	if !sawPhiEnd {
		errs = append(errs, irerr.NewSanityErr(
			irerr.CodeMissingPhiEnd, blockLoc(bid),
			"block is missing its PhiEnd marker",
		))
	}
	switch terminatorCount {
	case 0:
		errs = append(errs, irerr.NewSanityErr(
			irerr.CodeMissingTerminator, blockLoc(bid),
			"block has no terminator",
		))
	default:
		if terminatorCount > 1 {
			errs = append(errs, irerr.NewSanityErr(
				irerr.CodeMultipleTerminators, blockLoc(bid),
				"block has more than one terminator",
			))
		}
	}
	return errs
}
