package ir

import "github.com/medihbt/remusys-ir-go/internal/types"

// ConstExpr is an aggregate constant expression (a struct/array/vector
// literal built from other ValueSSA operands) -- the one ValueSSA variant
// with no unique-reference semantics: the same expression may be pointed
// at by many Uses across many UserLists. It is
// nonetheless a User of its own element Uses, since those elements must
// trace into the use-def graph like any other operand.
type ConstExpr struct {
	Ty       types.ID
	Elems    []UseID
	Users    UserList
	Disposed bool
}

// NewConstExpr builds an aggregate constant of type ty from elems, wiring
// each element through AllocUse with the appropriate UseKind depending on
// ty's shape.
func NewConstExpr(allocs *IRAllocs, ty types.ID, elems []ValueSSA) ExprID {
	h := allocs.Exprs.Allocate(ConstExpr{Ty: ty})
	id := ExprID{H: h}
	e := allocs.Exprs.Deref(h)
	e.Users = newUserList(allocs, FromConstExpr(id))

	kind := UseArrayElem
	switch allocs.TypeCtx.Kind(ty) {
	case types.KindStruct, types.KindStructAlias:
		kind = UseStructField
	case types.KindFixVec:
		kind = UseVecElem
	}
	e.Elems = make([]UseID, len(elems))
	for i, v := range elems {
		e.Elems[i] = AllocUse(allocs, UserFromExpr(id), kind, uint32(i), v)
	}
	return id
}
