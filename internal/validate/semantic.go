package validate

import (
	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/irerr"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// InstCheckCtx is the semantic (layer-2) checker: for every instruction
// it verifies operand types against the opcode's contract, every
// terminator's jump targets are non-null and same-function, and every
// phi's incoming-block set equals its parent's predecessor set.
type InstCheckCtx struct {
	Module *ir.Module
}

func NewInstCheckCtx(m *ir.Module) *InstCheckCtx { return &InstCheckCtx{Module: m} }

// CheckModule runs the semantic pass over every registered function,
// returning every violation found.
func (c *InstCheckCtx) CheckModule() []error {
	var errs []error
	for _, name := range c.Module.Symbols() {
		fn, ok := c.Module.GetFuncByName(name)
		if !ok {
			continue
		}
		fnObj := c.Module.Allocs.Funcs.Deref(fn.H)
		if !fnObj.HasBody {
			continue
		}
		fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
			errs = append(errs, c.checkBlock(bid)...)
			return true
		})
	}
	return errs
}

func (c *InstCheckCtx) checkBlock(bid ir.BlockID) []error {
	var errs []error
	tc := c.Module.TypeCtx
	bb := c.Module.Allocs.Blocks.Deref(bid.H)
	if bb.Disposed {
		return nil
	}
	bb.Insts.ForEach(func(iid ir.InstID) bool {
		inst := c.Module.Allocs.Insts.TryDeref(iid.H)
		if inst == nil {
			return true
		}
		errs = append(errs, c.checkInst(tc, bid, bb, iid, inst)...)
		return true
	})
	return errs
}

func operandType(allocs *ir.IRAllocs, u ir.UseID) types.ID {
	use := allocs.Uses.TryDeref(u.H)
	if use == nil {
		return types.Invalid
	}
	return use.Operand.Type(allocs)
}

func (c *InstCheckCtx) checkInst(tc *types.Context, bid ir.BlockID, bb *ir.BasicBlock, iid ir.InstID, inst *ir.InstObj) []error {
	var errs []error
	allocs := c.Module.Allocs
	typeErr := func(kind, expected, found string) {
		errs = append(errs, irerr.NewTypeMismatchErr(instLoc(iid), kind, expected, found))
	}

	switch inst.Opcode {
	case ir.OpBinOp:
		lt, rt := operandType(allocs, inst.Lhs), operandType(allocs, inst.Rhs)
		if !tc.Equal(lt, rt) {
			typeErr("rhs", tc.String(lt), tc.String(rt))
		}
		if !tc.Equal(lt, inst.RetType) {
			typeErr("result", tc.String(inst.RetType), tc.String(lt))
		}
	case ir.OpIcmp, ir.OpFcmp:
		lt, rt := operandType(allocs, inst.Lhs), operandType(allocs, inst.Rhs)
		if !tc.Equal(lt, rt) {
			typeErr("rhs", tc.String(lt), tc.String(rt))
		}
	case ir.OpCast:
		if !ir.CastIsWidthValid(tc, inst.CastKind, inst.FromTy, inst.RetType) {
			typeErr("cast", "a width-compatible pair", tc.String(inst.FromTy)+"->"+tc.String(inst.RetType))
		}
	case ir.OpLoad:
		if tc.Kind(operandType(allocs, inst.Source)) != types.KindPtr {
			typeErr("source", "ptr", tc.String(operandType(allocs, inst.Source)))
		}
	case ir.OpStore:
		st := operandType(allocs, inst.Source)
		if !tc.Equal(st, inst.SourceTy) {
			typeErr("src", tc.String(inst.SourceTy), tc.String(st))
		}
		if tc.Kind(operandType(allocs, inst.Dst)) != types.KindPtr {
			typeErr("dst", "ptr", tc.String(operandType(allocs, inst.Dst)))
		}
	case ir.OpSelect:
		tt, et := operandType(allocs, inst.SelThen), operandType(allocs, inst.SelElse)
		if !tc.Equal(tt, et) {
			typeErr("else", tc.String(tt), tc.String(et))
		}
	case ir.OpGEP:
		if tc.Kind(operandType(allocs, inst.Base)) != types.KindPtr {
			typeErr("base", "ptr", tc.String(operandType(allocs, inst.Base)))
		}
		resolved, ok := ir.GEPResolveFinalType(tc, inst.InitialTy, len(inst.Indices), func(pos int) (int, bool) {
			if pos < 0 || pos >= len(inst.Indices) {
				return 0, false
			}
			use := allocs.Uses.TryDeref(inst.Indices[pos].H)
			if use == nil || use.Operand.Class != ir.ClassConstData || use.Operand.Const.IsFP {
				return 0, false
			}
			return int(use.Operand.Const.Bits), true
		})
		if !ok {
			errs = append(errs, irerr.NewSanityErr(irerr.CodeGepTypeChain, instLoc(iid),
				"GEP index sequence does not resolve initial_ty through every aggregate level"))
		} else if !tc.Equal(resolved, inst.FinalTy) {
			typeErr("final_ty", tc.String(inst.FinalTy), tc.String(resolved))
		}
	case ir.OpPhi:
		errs = append(errs, c.checkPhiPreds(bid, bb, iid, inst)...)
		for _, in := range inst.Incomings {
			vt := operandType(allocs, in.ValueUse)
			if !tc.Equal(vt, inst.RetType) {
				typeErr("incoming", tc.String(inst.RetType), tc.String(vt))
			}
		}
	case ir.OpSwitch:
		errs = append(errs, c.checkSwitchCases(iid, inst)...)
	}

	for _, jid := range inst.JumpTargets() {
		if jid.IsNull() {
			errs = append(errs, irerr.NewSanityErr(irerr.CodeJumpTargetNullTerminator, instLoc(iid),
				"terminator has a null JumpTarget slot"))
			continue
		}
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt == nil || !jt.HasBlock {
			continue
		}
		if target := allocs.Blocks.TryDeref(jt.Block.H); target == nil || !target.HasParent || target.ParentFunc != bb.ParentFunc {
			errs = append(errs, irerr.NewSanityErr(irerr.CodeJumpTargetCrossFunction, jtLoc(jid),
				"jump target's block belongs to a different function"))
		}
	}
	return errs
}

func (c *InstCheckCtx) checkPhiPreds(bid ir.BlockID, bb *ir.BasicBlock, iid ir.InstID, inst *ir.InstObj) []error {
	allocs := c.Module.Allocs
	preds := map[ir.BlockID]bool{}
	bb.Preds.ForEach(func(jid ir.JumpTargetID) bool {
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt != nil {
			preds[blockOfPred(allocs, jt)] = true
		}
		return true
	})

	incoming := map[ir.BlockID]bool{}
	for _, in := range inst.Incomings {
		use := allocs.Uses.TryDeref(in.BlockUse.H)
		if use == nil || use.Operand.Class != ir.ClassBlock {
			continue
		}
		incoming[use.Operand.Block] = true
	}

	var errs []error
	if len(incoming) != len(preds) {
		errs = append(errs, irerr.NewSanityErr(irerr.CodePhiPredMismatch, instLoc(iid),
			"phi incoming-block set does not equal predecessor set"))
		return errs
	}
	for b := range incoming {
		if !preds[b] {
			errs = append(errs, irerr.NewSanityErr(irerr.CodePhiPredMismatch, instLoc(iid),
				"phi incoming block is not a predecessor of its parent block"))
			break
		}
	}
	return errs
}

func blockOfPred(allocs *ir.IRAllocs, jt *ir.JumpTarget) ir.BlockID {
	if !jt.HasTerm {
		return ir.NullBlockID
	}
	term := allocs.Insts.TryDeref(jt.Terminator.H)
	if term == nil {
		return ir.NullBlockID
	}
	return term.ParentBB
}

func (c *InstCheckCtx) checkSwitchCases(iid ir.InstID, inst *ir.InstObj) []error {
	var errs []error
	allocs := c.Module.Allocs
	seen := map[uint64]bool{}
	for _, jid := range inst.Cases {
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt == nil {
			continue
		}
		key := jt.CaseValue.Bits
		if seen[key] {
			errs = append(errs, irerr.NewSanityErr(irerr.CodeDuplicatedSwitchCase, instLoc(iid),
				"switch has two cases with the same discriminator value"))
		}
		seen[key] = true
	}
	return errs
}
