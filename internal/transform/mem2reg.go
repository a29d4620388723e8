package transform

import (
	"github.com/medihbt/remusys-ir-go/internal/cfg"
	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// Mem2Reg promotes alloca/load/store triples to SSA values. It tries
// three cheap special cases before falling back to full dominance-frontier
// SSA construction: an alloca nothing ever stores to, an alloca stored to
// exactly once, and an alloca confined to a single block.
type Mem2Reg struct{}

func (Mem2Reg) Name() string { return "mem2reg" }

func (p Mem2Reg) RunOnFunc(order InstOrdering, module *ir.Module, fn ir.FuncID) (bool, error) {
	allocs := module.Allocs
	fnObj := allocs.Funcs.Deref(fn.H)
	changed := false

	for {
		candidate, ok := findPromotableAlloca(allocs, fnObj)
		if !ok {
			break
		}
		if err := promoteAlloca(order, module, fn, candidate); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// allocaUses is every load/store instruction whose pointer operand is the
// alloca itself, split by kind; candidates with any other use of the
// pointer (e.g. it escapes into a GEP or a call argument) are left alone.
type allocaUses struct {
	loads   []ir.InstID
	stores  []ir.InstID
	escapes bool
}

func collectAllocaUses(allocs *ir.IRAllocs, alloca ir.InstID) allocaUses {
	var out allocaUses
	inst := allocs.Insts.Deref(alloca.H)
	for _, useID := range inst.Users.ToSlice() {
		u := allocs.Uses.TryDeref(useID.H)
		if u == nil || !u.HasUser || u.User.Class != ir.ClassInst {
			out.escapes = true
			continue
		}
		user := allocs.Insts.TryDeref(u.User.Inst.H)
		if user == nil {
			out.escapes = true
			continue
		}
		switch {
		case user.Opcode == ir.OpLoad && u.Kind == ir.UseLoadSource:
			out.loads = append(out.loads, u.User.Inst)
		case user.Opcode == ir.OpStore && u.Kind == ir.UseStoreTarget:
			out.stores = append(out.stores, u.User.Inst)
		default:
			out.escapes = true
		}
	}
	return out
}

// findPromotableAlloca returns the first alloca in fn whose every use is a
// plain load or store of it (never stored-to-as-value, never GEP'd into),
// and whose pointee is a scalar (aggregates need field-sensitive
// promotion this pass doesn't attempt).
func findPromotableAlloca(allocs *ir.IRAllocs, fnObj *ir.FuncObj) (ir.InstID, bool) {
	var found ir.InstID
	ok := false
	fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
		bb := allocs.Blocks.Deref(bid.H)
		bb.Insts.ForEach(func(iid ir.InstID) bool {
			inst := allocs.Insts.TryDeref(iid.H)
			if inst == nil || inst.Disposed || inst.Opcode != ir.OpAlloca {
				return true
			}
			switch allocs.TypeCtx.Kind(inst.PointeeTy) {
			case types.KindInt, types.KindFloat, types.KindPtr:
			default:
				return true
			}
			uses := collectAllocaUses(allocs, iid)
			if uses.escapes {
				return true
			}
			found, ok = iid, true
			return false
		})
		return !ok
	})
	return found, ok
}

// promoteAlloca dispatches to the cheapest strategy that applies: no
// stores, a single store, confinement to one block, or the general
// dominance-frontier construction.
func promoteAlloca(order InstOrdering, module *ir.Module, fn ir.FuncID, alloca ir.InstID) error {
	allocs := module.Allocs
	uses := collectAllocaUses(allocs, alloca)
	undef := ir.FromAggrZero(allocs.Insts.Deref(alloca.H).PointeeTy)

	if len(uses.stores) == 0 {
		return promoteNoStore(order, allocs, alloca, uses, undef)
	}
	if len(uses.stores) == 1 {
		if ok, err := tryPromoteSingleStore(order, module, fn, alloca, uses, undef); ok || err != nil {
			return err
		}
	}
	if ok, err := tryPromoteSingleBlock(order, allocs, alloca, uses, undef); ok || err != nil {
		return err
	}
	return promoteGeneral(order, module, fn, alloca, uses, undef)
}

// promoteNoStore: every load reads whatever an uninitialized alloca holds,
// modeled as the pointee's zero value. Decision recorded in DESIGN.md.
func promoteNoStore(order InstOrdering, allocs *ir.IRAllocs, alloca ir.InstID, uses allocaUses, undef ir.ValueSSA) error {
	for _, load := range uses.loads {
		block := allocs.Insts.Deref(load.H).ParentBB
		ir.ReplaceAllUsesWith(allocs, ir.FromInst(load), undef)
		removeInst(order, allocs, block, load)
	}
	block := allocs.Insts.Deref(alloca.H).ParentBB
	removeInst(order, allocs, block, alloca)
	return nil
}

// tryPromoteSingleStore handles the case where the alloca is stored to
// exactly once: every load dominated by that store reads its value
// directly; a load not dominated by it would read undefined memory (dead
// code in any verified program), so in that case it returns false and
// promoteAlloca falls back to the single-block and general strategies.
func tryPromoteSingleStore(order InstOrdering, module *ir.Module, fn ir.FuncID, alloca ir.InstID, uses allocaUses, undef ir.ValueSSA) (bool, error) {
	allocs := module.Allocs
	dom, err := cfg.BuildDominatorTree(allocs, fn)
	if err != nil {
		return false, err
	}
	store := uses.stores[0]
	storeInst := allocs.Insts.Deref(store.H)
	storeBlock := storeInst.ParentBB
	storeUse := allocs.Uses.Deref(storeInst.Source.H)
	storedVal := storeUse.Operand

	for _, load := range uses.loads {
		loadBlock := allocs.Insts.Deref(load.H).ParentBB
		if loadBlock == storeBlock {
			if !order.Precedes(allocs, storeBlock, store, load) {
				return false, nil
			}
			continue
		}
		if !dom.Dominates(storeBlock, loadBlock) {
			return false, nil
		}
	}

	for _, load := range uses.loads {
		block := allocs.Insts.Deref(load.H).ParentBB
		ir.ReplaceAllUsesWith(allocs, ir.FromInst(load), storedVal)
		removeInst(order, allocs, block, load)
	}
	removeInst(order, allocs, storeBlock, store)
	removeInst(order, allocs, allocs.Insts.Deref(alloca.H).ParentBB, alloca)
	return true, nil
}

// tryPromoteSingleBlock handles an alloca whose every load and store live
// in one block: a linear forward scan tracking the most recent stored
// value (or undef before the first store) resolves every load without
// touching the CFG at all.
func tryPromoteSingleBlock(order InstOrdering, allocs *ir.IRAllocs, alloca ir.InstID, uses allocaUses, undef ir.ValueSSA) (bool, error) {
	block := allocs.Insts.Deref(alloca.H).ParentBB
	for _, store := range uses.stores {
		if allocs.Insts.Deref(store.H).ParentBB != block {
			return false, nil
		}
	}
	for _, load := range uses.loads {
		if allocs.Insts.Deref(load.H).ParentBB != block {
			return false, nil
		}
	}

	isStore := map[ir.InstID]bool{}
	for _, s := range uses.stores {
		isStore[s] = true
	}
	isLoad := map[ir.InstID]bool{}
	for _, l := range uses.loads {
		isLoad[l] = true
	}

	bb := allocs.Blocks.Deref(block.H)
	current := undef
	var toRemove []ir.InstID
	bb.Insts.ForEach(func(iid ir.InstID) bool {
		switch {
		case isStore[iid]:
			inst := allocs.Insts.Deref(iid.H)
			current = allocs.Uses.Deref(inst.Source.H).Operand
			toRemove = append(toRemove, iid)
		case isLoad[iid]:
			ir.ReplaceAllUsesWith(allocs, ir.FromInst(iid), current)
			toRemove = append(toRemove, iid)
		}
		return true
	})
	toRemove = append(toRemove, alloca)
	for _, iid := range toRemove {
		removeInst(order, allocs, block, iid)
	}
	return true, nil
}

// promoteGeneral is the textbook construction: place phis at the iterated
// dominance frontier of the alloca's store set, then rename every load and
// phi incoming by walking the dominator tree depth-first with a single
// value stack.
func promoteGeneral(order InstOrdering, module *ir.Module, fn ir.FuncID, alloca ir.InstID, uses allocaUses, undef ir.ValueSSA) error {
	allocs := module.Allocs
	dom, err := cfg.BuildDominatorTree(allocs, fn)
	if err != nil {
		return err
	}
	df := cfg.NewDominanceFrontier(dom, allocs)

	defBlocks := make([]ir.BlockID, 0, len(uses.stores))
	seenDef := map[ir.BlockID]bool{}
	for _, store := range uses.stores {
		b := allocs.Insts.Deref(store.H).ParentBB
		if !seenDef[b] {
			seenDef[b] = true
			defBlocks = append(defBlocks, b)
		}
	}
	phiSites := df.IteratedFrontier(defBlocks)

	ty := allocs.Insts.Deref(alloca.H).PointeeTy
	builder := ir.NewIRBuilder(module)
	phis := map[ir.BlockID]ir.InstID{}
	for _, site := range phiSites {
		builder.SetFocus(fn, site)
		phi := builder.BuildPhi(ty)
		if err := builder.InsertInst(phi); err != nil {
			return err
		}
		phis[site] = phi
		order.OnInstInsert(site, phi)
	}

	storeAt := map[ir.InstID]ir.ValueSSA{}
	for _, store := range uses.stores {
		storeInst := allocs.Insts.Deref(store.H)
		storeAt[store] = allocs.Uses.Deref(storeInst.Source.H).Operand
	}

	renamer := &mem2regRenamer{
		allocs: allocs, dom: dom,
		phis: phis, storeAt: storeAt, undef: undef,
		loads: toSet(uses.loads), stores: toSet(uses.stores),
	}
	renamer.run(fn)

	for _, phi := range phis {
		for _, pred := range renamer.predIncomings[phi] {
			builder.AddIncoming(phi, pred.block, pred.value)
		}
	}

	dedupTrivialPhis(order, allocs, phis)

	for _, load := range uses.loads {
		block := allocs.Insts.Deref(load.H).ParentBB
		removeInst(order, allocs, block, load)
	}
	for _, store := range uses.stores {
		block := allocs.Insts.Deref(store.H).ParentBB
		removeInst(order, allocs, block, store)
	}
	removeInst(order, allocs, allocs.Insts.Deref(alloca.H).ParentBB, alloca)
	return nil
}

// dedupTrivialPhis replaces any phi whose incoming values are all equal
// (aside from self-references a loop can introduce) with that shared
// value: such a phi carries no information a direct value wouldn't.
func dedupTrivialPhis(order InstOrdering, allocs *ir.IRAllocs, phis map[ir.BlockID]ir.InstID) {
	for changed := true; changed; {
		changed = false
		for block, phi := range phis {
			inst := allocs.Insts.TryDeref(phi.H)
			if inst == nil || inst.Disposed {
				continue
			}
			self := ir.FromInst(phi)
			var unique ir.ValueSSA
			hasUnique, trivial := false, true
			for _, in := range inst.Incomings {
				val := allocs.Uses.Deref(in.ValueUse.H).Operand
				if val.Equal(self) {
					continue
				}
				if !hasUnique {
					unique, hasUnique = val, true
					continue
				}
				if !val.Equal(unique) {
					trivial = false
					break
				}
			}
			if !trivial || !hasUnique {
				continue
			}
			ir.ReplaceAllUsesWith(allocs, self, unique)
			removeInst(order, allocs, block, phi)
			delete(phis, block)
			changed = true
			break
		}
	}
}

type predIncoming struct {
	block ir.BlockID
	value ir.ValueSSA
}

// mem2regRenamer walks the dominator tree depth-first maintaining one
// value-stack frame per visited block (pushed on entry, popped on exit),
// resolving every load to the top of the stack and recording every
// successor phi's incoming value for this block.
type mem2regRenamer struct {
	allocs  *ir.IRAllocs
	dom     *cfg.DominatorTree
	phis    map[ir.BlockID]ir.InstID
	storeAt map[ir.InstID]ir.ValueSSA
	undef   ir.ValueSSA
	loads   map[ir.InstID]bool
	stores  map[ir.InstID]bool

	predIncomings map[ir.InstID][]predIncoming
}

func (r *mem2regRenamer) run(fn ir.FuncID) {
	r.predIncomings = map[ir.InstID][]predIncoming{}
	fnObj := r.allocs.Funcs.Deref(fn.H)
	r.walk(fnObj.Body.Entry, r.undef)
}

func (r *mem2regRenamer) walk(block ir.BlockID, incoming ir.ValueSSA) {
	current := incoming
	if phi, ok := r.phis[block]; ok {
		current = ir.FromInst(phi)
	}

	bb := r.allocs.Blocks.Deref(block.H)
	bb.Insts.ForEach(func(iid ir.InstID) bool {
		inst := r.allocs.Insts.TryDeref(iid.H)
		if inst == nil {
			return true
		}
		switch {
		case r.stores[iid]:
			current = r.storeAt[iid]
		case r.loads[iid]:
			ir.ReplaceAllUsesWith(r.allocs, ir.FromInst(iid), current)
		}
		return true
	})

	for _, succ := range cfgSuccessors(r.allocs, block) {
		if phi, ok := r.phis[succ]; ok {
			r.predIncomings[phi] = append(r.predIncomings[phi], predIncoming{block: block, value: current})
		}
	}

	for _, child := range r.dom.Children(block) {
		r.walk(child, current)
	}
}

// cfgSuccessors exposes the successor edges promoteGeneral's renamer needs
// without reaching into package cfg's unexported helper: it reads the
// same terminator/JumpTarget shape directly.
func cfgSuccessors(allocs *ir.IRAllocs, block ir.BlockID) []ir.BlockID {
	bb := allocs.Blocks.TryDeref(block.H)
	if bb == nil {
		return nil
	}
	term := bb.Terminator(allocs)
	if term.IsNull() {
		return nil
	}
	inst := allocs.Insts.TryDeref(term.H)
	if inst == nil {
		return nil
	}
	var out []ir.BlockID
	for _, jid := range inst.JumpTargets() {
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt != nil && jt.HasBlock {
			out = append(out, jt.Block)
		}
	}
	return out
}

func toSet(ids []ir.InstID) map[ir.InstID]bool {
	out := make(map[ir.InstID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// removeInst unplugs and disposes inst, notifying order so its cache (if
// any) drops the stale position.
func removeInst(order InstOrdering, allocs *ir.IRAllocs, block ir.BlockID, inst ir.InstID) {
	bb := allocs.Blocks.Deref(block.H)
	_ = bb.Insts.Unplug(inst)
	ir.DisposeInst(allocs, inst)
	order.OnInstRemove(block, inst)
}
