package ir

import "github.com/medihbt/remusys-ir-go/internal/types"

// ConstData is a scalar constant literal: an integer (stored as raw bits,
// truncated/sign-extended per Ty on read) or an IEEE float. Aggregate
// constants are built from ConstExpr instead.
type ConstData struct {
	Ty    types.ID
	Bits  uint64
	Float float64
	IsFP  bool
}

func IntConst(ty types.ID, bits uint64) ConstData   { return ConstData{Ty: ty, Bits: bits} }
func FloatConst(ty types.ID, v float64) ConstData   { return ConstData{Ty: ty, Float: v, IsFP: true} }

// ValueSSA is the sum type over every kind of SSA operand: None,
// ConstData, ConstExpr, AggrZero, FuncArg, Block, Inst, Global. Go has no
// native sum type, so this is a tagged struct with one active field group
// per Class, a discriminant tag plus payload fields.
type ValueSSA struct {
	Class ValueClass

	Const  ConstData // ClassConstData
	Expr   ExprID    // ClassConstExpr
	AggrTy types.ID  // ClassAggrZero: the zero-valued aggregate's type

	Func   FuncID // ClassFuncArg
	ArgIdx int    // ClassFuncArg

	Block  BlockID  // ClassBlock
	Inst   InstID   // ClassInst
	Global GlobalID // ClassGlobal
}

// None is the canonical empty value -- the zero ValueSSA.
var None = ValueSSA{}

func FromConst(c ConstData) ValueSSA          { return ValueSSA{Class: ClassConstData, Const: c} }
func FromConstExpr(id ExprID) ValueSSA        { return ValueSSA{Class: ClassConstExpr, Expr: id} }
func FromAggrZero(ty types.ID) ValueSSA       { return ValueSSA{Class: ClassAggrZero, AggrTy: ty} }
func FromFuncArg(f FuncID, idx int) ValueSSA  { return ValueSSA{Class: ClassFuncArg, Func: f, ArgIdx: idx} }
func FromBlock(id BlockID) ValueSSA           { return ValueSSA{Class: ClassBlock, Block: id} }
func FromInst(id InstID) ValueSSA             { return ValueSSA{Class: ClassInst, Inst: id} }
func FromGlobal(id GlobalID) ValueSSA         { return ValueSSA{Class: ClassGlobal, Global: id} }

func (v ValueSSA) IsNone() bool { return v.Class == ClassNone }

// CanTrace reports whether v participates in the use-def graph -- i.e.
// whether it owns a UserList that Uses can be linked into. ConstData and
// AggrZero are value-equal literals with no identity, so they never trace.
func (v ValueSSA) CanTrace() bool {
	switch v.Class {
	case ClassConstExpr, ClassFuncArg, ClassBlock, ClassInst, ClassGlobal:
		return true
	default:
		return false
	}
}

// Equal is value equality, matching ValueSSA's derived Eq in the original:
// same class and same payload.
func (v ValueSSA) Equal(other ValueSSA) bool {
	if v.Class != other.Class {
		return false
	}
	switch v.Class {
	case ClassNone:
		return true
	case ClassConstData:
		return v.Const == other.Const
	case ClassConstExpr:
		return v.Expr == other.Expr
	case ClassAggrZero:
		return v.AggrTy == other.AggrTy
	case ClassFuncArg:
		return v.Func == other.Func && v.ArgIdx == other.ArgIdx
	case ClassBlock:
		return v.Block == other.Block
	case ClassInst:
		return v.Inst == other.Inst
	case ClassGlobal:
		return v.Global == other.Global
	default:
		return false
	}
}

// Type resolves v's static type without mutating the module: every
// non-None variant has a type retrievable without mutation. Block values
// have no type-system representation (they denote a label, not a datum);
// callers that need a Block's type for e.g. printing should special-case
// ClassBlock before calling Type.
func (v ValueSSA) Type(allocs *IRAllocs) types.ID {
	switch v.Class {
	case ClassConstData:
		return v.Const.Ty
	case ClassConstExpr:
		return allocs.Exprs.Deref(v.Expr.H).Ty
	case ClassAggrZero:
		return v.AggrTy
	case ClassFuncArg:
		fn := allocs.Funcs.Deref(v.Func.H)
		return fn.Args[v.ArgIdx].Ty
	case ClassInst:
		return allocs.Insts.Deref(v.Inst.H).RetType
	case ClassGlobal:
		return allocs.TypeCtx.Ptr()
	default:
		return types.Invalid
	}
}
