package ir

import (
	"github.com/medihbt/remusys-ir-go/internal/arena"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// Module is the top-level container: the type context, the allocation
// bundle, and the symbol table.
type Module struct {
	Name    string
	Arch    string
	TypeCtx *types.Context
	Allocs  *IRAllocs

	globalsByName map[string]GlobalID
	funcsByName   map[string]FuncID
	exported      map[string]bool
}

// NewModule creates an empty module targeting arch, with pointerWidthBytes
// passed through to its TypeContext: pointer width is a context
// parameter, never hard-coded.
func NewModule(name, arch string, pointerWidthBytes int) *Module {
	tc := types.NewContext(pointerWidthBytes)
	return &Module{
		Name:          name,
		Arch:          arch,
		TypeCtx:       tc,
		Allocs:        NewIRAllocs(tc),
		globalsByName: make(map[string]GlobalID),
		funcsByName:   make(map[string]FuncID),
		exported:      make(map[string]bool),
	}
}

func (m *Module) SetName(name string) { m.Name = name }

// RegisterGlobal makes g findable by name. A global may be pinned (live
// but nameless) by simply never calling this.
func (m *Module) RegisterGlobal(name string, g GlobalID, exported bool) {
	m.globalsByName[name] = g
	if exported {
		m.exported[name] = true
	}
}

func (m *Module) RegisterFunc(name string, f FuncID, exported bool) {
	m.funcsByName[name] = f
	if exported {
		m.exported[name] = true
	}
}

func (m *Module) GetGlobalByName(name string) (GlobalID, bool) {
	id, ok := m.globalsByName[name]
	return id, ok
}

func (m *Module) GetFuncByName(name string) (FuncID, bool) {
	id, ok := m.funcsByName[name]
	return id, ok
}

func (m *Module) IsExported(name string) bool { return m.exported[name] }

// Symbols returns every registered global name, in no particular order.
func (m *Module) Symbols() []string {
	out := make([]string, 0, len(m.globalsByName)+len(m.funcsByName))
	for name := range m.globalsByName {
		out = append(out, name)
	}
	for name := range m.funcsByName {
		out = append(out, name)
	}
	return out
}

// GCSession is a begin_gc().finish() scoping wrapper so call sites read
// as a two-step ceremony even though, today, finish is the only step.
type GCSession struct{ module *Module }

func (m *Module) BeginGC() *GCSession { return &GCSession{module: m} }

// Finish drains the dispose queue.
func (s *GCSession) Finish() { s.module.Allocs.FreeDisposed() }

// MarkAndSweep is the supplemental whole-arena collector: rather than
// rely solely on the caller having disposed every unreachable entity, it
// walks every
// live root (registered globals/funcs plus everything reachable from their
// bodies/initializers) and retains only what was marked, freeing the rest
// immediately. It is strictly additive to the dispose-queue model -- it
// never changes Dispose/Free timing for entities the caller already
// manages by hand, and is meant to be run on demand (e.g. before a full
// dump or after a bulk transform), not on every mutation.
func (m *Module) MarkAndSweep() {
	live := newLiveSet()
	for _, id := range m.globalsByName {
		markGlobal(m.Allocs, live, id)
	}
	for _, id := range m.funcsByName {
		markFunc(m.Allocs, live, id)
	}

	m.Allocs.Blocks.Retain(func(h arena.Handle) bool { return live.blocks[BlockID{H: h}] })
	m.Allocs.Insts.Retain(func(h arena.Handle) bool { return live.insts[InstID{H: h}] })
	m.Allocs.Exprs.Retain(func(h arena.Handle) bool { return live.exprs[ExprID{H: h}] })
	m.Allocs.Globals.Retain(func(h arena.Handle) bool { return live.globals[GlobalID{H: h}] })
	m.Allocs.Funcs.Retain(func(h arena.Handle) bool { return live.funcs[FuncID{H: h}] })
	m.Allocs.Uses.Retain(func(h arena.Handle) bool { return live.uses[UseID{H: h}] })
	m.Allocs.JumpTargets.Retain(func(h arena.Handle) bool { return live.jts[JumpTargetID{H: h}] })
}

type liveSet struct {
	blocks  map[BlockID]bool
	insts   map[InstID]bool
	exprs   map[ExprID]bool
	globals map[GlobalID]bool
	funcs   map[FuncID]bool
	uses    map[UseID]bool
	jts     map[JumpTargetID]bool
}

func newLiveSet() *liveSet {
	return &liveSet{
		blocks: map[BlockID]bool{}, insts: map[InstID]bool{}, exprs: map[ExprID]bool{},
		globals: map[GlobalID]bool{}, funcs: map[FuncID]bool{}, uses: map[UseID]bool{},
		jts: map[JumpTargetID]bool{},
	}
}

func markUse(allocs *IRAllocs, live *liveSet, id UseID) {
	if id.IsNull() || live.uses[id] {
		return
	}
	live.uses[id] = true
	u := allocs.Uses.TryDeref(id.H)
	if u == nil {
		return
	}
	markValue(allocs, live, u.Operand)
}

func markValue(allocs *IRAllocs, live *liveSet, v ValueSSA) {
	switch v.Class {
	case ClassConstExpr:
		markExpr(allocs, live, v.Expr)
	case ClassBlock:
		markBlockShallow(live, v.Block)
	case ClassInst:
		markInstShallow(allocs, live, v.Inst)
	case ClassGlobal:
		live.globals[v.Global] = true
	}
}

func markExpr(allocs *IRAllocs, live *liveSet, id ExprID) {
	if id.IsNull() || live.exprs[id] {
		return
	}
	live.exprs[id] = true
	e := allocs.Exprs.TryDeref(id.H)
	if e == nil {
		return
	}
	for _, u := range e.Elems {
		markUse(allocs, live, u)
	}
}

// markInstShallow marks an instruction referenced as a *value* (e.g. a phi
// operand) without re-walking its own operands; the owning block's full
// walk in markBlock is what actually traces its operands.
func markInstShallow(allocs *IRAllocs, live *liveSet, id InstID) {
	live.insts[id] = true
}

func markBlockShallow(live *liveSet, id BlockID) {
	live.blocks[id] = true
}

func markGlobal(allocs *IRAllocs, live *liveSet, id GlobalID) {
	if id.IsNull() || live.globals[id] {
		return
	}
	live.globals[id] = true
	g := allocs.Globals.TryDeref(id.H)
	if g == nil || !g.HasInit {
		return
	}
	markUse(allocs, live, g.Init)
}

func markFunc(allocs *IRAllocs, live *liveSet, id FuncID) {
	if id.IsNull() || live.funcs[id] {
		return
	}
	live.funcs[id] = true
	fn := allocs.Funcs.TryDeref(id.H)
	if fn == nil || !fn.HasBody {
		return
	}
	fn.Body.Blocks.ForEach(func(bid BlockID) bool {
		markBlock(allocs, live, bid)
		return true
	})
}

func markBlock(allocs *IRAllocs, live *liveSet, id BlockID) {
	live.blocks[id] = true
	bb := allocs.Blocks.TryDeref(id.H)
	if bb == nil {
		return
	}
	bb.Insts.ForEach(func(iid InstID) bool {
		markInst(allocs, live, iid)
		return true
	})
	bb.Preds.ForEach(func(jid JumpTargetID) bool {
		live.jts[jid] = true
		return true
	})
}

func markInst(allocs *IRAllocs, live *liveSet, id InstID) {
	live.insts[id] = true
	inst := allocs.Insts.TryDeref(id.H)
	if inst == nil {
		return
	}
	for _, u := range inst.Operands() {
		if !u.IsNull() {
			markUse(allocs, live, u)
		}
	}
	for _, jid := range inst.JumpTargets() {
		if !jid.IsNull() {
			live.jts[jid] = true
		}
	}
}
