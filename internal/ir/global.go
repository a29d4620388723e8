package ir

import "github.com/medihbt/remusys-ir-go/internal/types"

// GlobalVar is a module-level storage location: {name, init Use,
// readonly, align_log2}. Its ValueSSA type is always a pointer to ValTy
// (globals are addressed, never held by value).
type GlobalVar struct {
	Name      string
	Exported  bool
	ValTy     types.ID
	Init      UseID
	HasInit   bool
	Readonly  bool
	AlignLog2 uint8
	Users     UserList
	Disposed  bool
}

// NewGlobal declares a global of type valTy with no initializer. Use
// SetInit to attach one (e.g. a ConstData or ConstExpr literal).
func NewGlobal(allocs *IRAllocs, name string, valTy types.ID, readonly bool) GlobalID {
	h := allocs.Globals.Allocate(GlobalVar{})
	id := GlobalID{H: h}
	g := allocs.Globals.Deref(h)
	g.Name = name
	g.ValTy = valTy
	g.Readonly = readonly
	g.Users = newUserList(allocs, FromGlobal(id))
	return id
}

// SetInit attaches or replaces a global's initializer value, routing
// through AllocUse/SetOperand so the use-def graph stays consistent.
func SetInit(allocs *IRAllocs, id GlobalID, v ValueSSA) {
	g := allocs.Globals.Deref(id.H)
	if !g.HasInit {
		g.Init = AllocUse(allocs, UserFromGlobal(id), UseGlobalInit, 0, v)
		g.HasInit = true
		return
	}
	SetOperand(allocs, g.Init, v)
}
