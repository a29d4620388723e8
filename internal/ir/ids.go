// Package ir is the SSA-form program graph: values, instructions, blocks,
// functions, globals and the module that owns them all. Every entity is
// arena-pooled and referenced by a stable handle (internal/arena), and the
// use-def / control-flow edges are maintained as intrusive rings
// (internal/list) rather than pointer-chasing slices.
package ir

import "github.com/medihbt/remusys-ir-go/internal/arena"

// Each entity class gets its own ID type so a BlockID and an InstID can
// never be confused even though both wrap an arena.Handle, mirroring the
// original Rust's newtype-per-pool IDs (BlockID, InstID, ExprID, ...).

type BlockID struct{ H arena.Handle }
type InstID struct{ H arena.Handle }
type FuncID struct{ H arena.Handle }
type GlobalID struct{ H arena.Handle }
type ExprID struct{ H arena.Handle }
type UseID struct{ H arena.Handle }
type JumpTargetID struct{ H arena.Handle }

func (id BlockID) IsNull() bool       { return id.H.IsNull() }
func (id InstID) IsNull() bool        { return id.H.IsNull() }
func (id FuncID) IsNull() bool        { return id.H.IsNull() }
func (id GlobalID) IsNull() bool      { return id.H.IsNull() }
func (id ExprID) IsNull() bool        { return id.H.IsNull() }
func (id UseID) IsNull() bool         { return id.H.IsNull() }
func (id JumpTargetID) IsNull() bool  { return id.H.IsNull() }

var (
	NullBlockID       = BlockID{H: arena.Null}
	NullInstID        = InstID{H: arena.Null}
	NullFuncID        = FuncID{H: arena.Null}
	NullGlobalID      = GlobalID{H: arena.Null}
	NullExprID        = ExprID{H: arena.Null}
	NullUseID         = UseID{H: arena.Null}
	NullJumpTargetID  = JumpTargetID{H: arena.Null}
)

// ValueClass discriminates the ValueSSA sum type (spec'd data model §3).
type ValueClass int

const (
	ClassNone ValueClass = iota
	ClassConstData
	ClassConstExpr
	ClassAggrZero
	ClassFuncArg
	ClassBlock
	ClassInst
	ClassGlobal
)

func (c ValueClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassConstData:
		return "const-data"
	case ClassConstExpr:
		return "const-expr"
	case ClassAggrZero:
		return "aggr-zero"
	case ClassFuncArg:
		return "func-arg"
	case ClassBlock:
		return "block"
	case ClassInst:
		return "inst"
	case ClassGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// UserID names an entity that owns operand Uses -- i.e. it can appear as
// Use.User. Only instructions, globals (their init Use) and constant
// expressions (their element Uses) are users; blocks and plain values are
// never users, only operands.
type UserID struct {
	Class ValueClass // ClassInst, ClassGlobal, or ClassConstExpr
	Inst  InstID
	Global GlobalID
	Expr  ExprID
}

func UserFromInst(id InstID) UserID     { return UserID{Class: ClassInst, Inst: id} }
func UserFromGlobal(id GlobalID) UserID { return UserID{Class: ClassGlobal, Global: id} }
func UserFromExpr(id ExprID) UserID     { return UserID{Class: ClassConstExpr, Expr: id} }

func (u UserID) ToValue() ValueSSA {
	switch u.Class {
	case ClassInst:
		return ValueSSA{Class: ClassInst, Inst: u.Inst}
	case ClassGlobal:
		return ValueSSA{Class: ClassGlobal, Global: u.Global}
	case ClassConstExpr:
		return ValueSSA{Class: ClassConstExpr, Expr: u.Expr}
	default:
		return ValueSSA{}
	}
}
