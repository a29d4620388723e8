package ir

import (
	"github.com/medihbt/remusys-ir-go/internal/arena"
	"github.com/medihbt/remusys-ir-go/internal/list"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// IRAllocs is the bundle of every per-class pool a module owns, plus the
// link storage the intrusive lists need and a dispose queue per pool.
type IRAllocs struct {
	TypeCtx *types.Context

	Blocks      *arena.Pool[BasicBlock]
	Insts       *arena.Pool[InstObj]
	Exprs       *arena.Pool[ConstExpr]
	Globals     *arena.Pool[GlobalVar]
	Funcs       *arena.Pool[FuncObj]
	Uses        *arena.Pool[Use]
	JumpTargets *arena.Pool[JumpTarget]

	blockLinks map[arena.Handle]list.Link[BlockID]
	instLinks  map[arena.Handle]list.Link[InstID]
	useLinks   map[arena.Handle]list.Link[UseID]
	jtLinks    map[arena.Handle]list.Link[JumpTargetID]

	blockDispose arena.DisposeQueue
	instDispose  arena.DisposeQueue
	exprDispose  arena.DisposeQueue
	globalDispose arena.DisposeQueue
	funcDispose  arena.DisposeQueue
	useDispose   arena.DisposeQueue
	jtDispose    arena.DisposeQueue
}

// NewIRAllocs creates an empty allocation bundle over the given type
// context, which is shared read-only by every pass in a module.
func NewIRAllocs(tc *types.Context) *IRAllocs {
	return &IRAllocs{
		TypeCtx:     tc,
		Blocks:      arena.NewPool[BasicBlock](),
		Insts:       arena.NewPool[InstObj](),
		Exprs:       arena.NewPool[ConstExpr](),
		Globals:     arena.NewPool[GlobalVar](),
		Funcs:       arena.NewPool[FuncObj](),
		Uses:        arena.NewPool[Use](),
		JumpTargets: arena.NewPool[JumpTarget](),

		blockLinks: make(map[arena.Handle]list.Link[BlockID]),
		instLinks:  make(map[arena.Handle]list.Link[InstID]),
		useLinks:   make(map[arena.Handle]list.Link[UseID]),
		jtLinks:    make(map[arena.Handle]list.Link[JumpTargetID]),
	}
}

// userListOf returns the UserList a traceable ValueSSA owns, if any.
func (a *IRAllocs) userListOf(v ValueSSA) (UserList, bool) {
	switch v.Class {
	case ClassConstExpr:
		return a.Exprs.Deref(v.Expr.H).Users, true
	case ClassFuncArg:
		fn := a.Funcs.Deref(v.Func.H)
		if v.ArgIdx < 0 || v.ArgIdx >= len(fn.Args) {
			return UserList{}, false
		}
		return fn.Args[v.ArgIdx].Users, true
	case ClassBlock:
		return a.Blocks.Deref(v.Block.H).Users, true
	case ClassInst:
		return a.Insts.Deref(v.Inst.H).Users, true
	case ClassGlobal:
		return a.Globals.Deref(v.Global.H).Users, true
	default:
		return UserList{}, false
	}
}

// FreeDisposed drains every pool's dispose queue: the low-level GC
// primitive behind the GC API's free_disposed step.
func (a *IRAllocs) FreeDisposed() {
	a.blockDispose.Drain(a.Blocks.Len(), func(h arena.Handle) { a.Blocks.Free(h) })
	a.instDispose.Drain(a.Insts.Len(), func(h arena.Handle) { a.Insts.Free(h) })
	a.exprDispose.Drain(a.Exprs.Len(), func(h arena.Handle) { a.Exprs.Free(h) })
	a.globalDispose.Drain(a.Globals.Len(), func(h arena.Handle) { a.Globals.Free(h) })
	a.funcDispose.Drain(a.Funcs.Len(), func(h arena.Handle) { a.Funcs.Free(h) })
	a.useDispose.Drain(a.Uses.Len(), func(h arena.Handle) { a.Uses.Free(h) })
	a.jtDispose.Drain(a.JumpTargets.Len(), func(h arena.Handle) { a.JumpTargets.Free(h) })
}

// DisposeBlock cascades: disposes the instruction list (including
// PhiEnd and sentinels) and the preds ring, then the block itself.
func DisposeBlock(allocs *IRAllocs, id BlockID) {
	bb := allocs.Blocks.Deref(id.H)
	if bb.Disposed {
		return
	}
	for _, inst := range bb.Insts.ToSlice() {
		DisposeInst(allocs, inst)
	}
	DisposeInst(allocs, bb.headSentinel)
	DisposeInst(allocs, bb.tailSentinel)
	bb.Preds.ForEach(func(jt JumpTargetID) bool {
		DisposeJumpTarget(allocs, jt)
		return true
	})
	bb.Disposed = true
	if err := allocs.Blocks.Dispose(id.H); err == nil {
		allocs.blockDispose.Push(id.H)
	}
}

// DisposeInst disposes an instruction's operand Uses and its JumpTargets
// (if a terminator) before disposing it. Its own UserList is left as it
// is: Uses elsewhere that point at the instruction stay linked.
func DisposeInst(allocs *IRAllocs, id InstID) {
	inst := allocs.Insts.Deref(id.H)
	if inst.Disposed {
		return
	}
	for _, u := range inst.Operands() {
		if !u.IsNull() {
			DisposeUse(allocs, u)
		}
	}
	for _, jt := range inst.JumpTargets() {
		if !jt.IsNull() {
			DisposeJumpTarget(allocs, jt)
		}
	}
	inst.Disposed = true
	if err := allocs.Insts.Dispose(id.H); err == nil {
		allocs.instDispose.Push(id.H)
	}
}

// DisposeFunction cascades: disposes every block of the body, if present.
// The arguments and their UserLists are left as they are.
func DisposeFunction(allocs *IRAllocs, id FuncID) {
	fn := allocs.Funcs.Deref(id.H)
	if fn.Disposed {
		return
	}
	if fn.HasBody {
		for _, block := range fn.Body.Blocks.ToSlice() {
			DisposeBlock(allocs, block)
		}
	}
	fn.Disposed = true
	if err := allocs.Funcs.Dispose(id.H); err == nil {
		allocs.funcDispose.Push(id.H)
	}
}

// DisposeGlobal disposes a global's init Use (if any) and the global
// itself.
func DisposeGlobal(allocs *IRAllocs, id GlobalID) {
	g := allocs.Globals.Deref(id.H)
	if g.Disposed {
		return
	}
	if g.HasInit {
		DisposeUse(allocs, g.Init)
	}
	g.Disposed = true
	if err := allocs.Globals.Dispose(id.H); err == nil {
		allocs.globalDispose.Push(id.H)
	}
}
