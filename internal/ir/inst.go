package ir

import (
	"github.com/medihbt/remusys-ir-go/internal/list"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// PhiIncoming is one (block, value) pair of a Phi, represented as two
// adjacent Uses.
type PhiIncoming struct {
	BlockUse UseID // operand is ValueSSA{Class: ClassBlock}
	ValueUse UseID
}

// InstObj is every instruction variant, modeled as one struct tagged by
// Opcode rather than as an interface implemented by one type per variant:
// Go has no sum types, and a flat struct keeps Operands()/OperandsMut()
// trivially uniform across every opcode, at the cost of a few unused
// fields per instance -- an acceptable trade-off for a pooled,
// fixed-shape object.
type InstObj struct {
	ParentBB BlockID
	Opcode   Opcode
	RetType  types.ID
	Users    UserList
	Disposed bool

	// Ret
	RetVal    UseID
	HasRetVal bool

	// Jump
	JTJump JumpTargetID

	// Br
	Cond   UseID
	JTThen JumpTargetID
	JTElse JumpTargetID

	// Switch
	Discrim   UseID
	JTDefault JumpTargetID
	Cases     []JumpTargetID

	// Alloca / Load / Store
	PointeeTy types.ID
	AlignLog2 uint8
	Source    UseID
	SourceTy  types.ID
	Dst       UseID

	// AmoRmw
	AmoOp    AmoRmwOp
	AmoPtr   UseID
	AmoVal   UseID
	Ordering int
	Scope    string

	// BinOp
	BinKind BinOpKind
	Lhs     UseID
	Rhs     UseID

	// Icmp / Fcmp
	CmpKind CmpCond

	// Cast
	CastKind CastOp
	CastFrom UseID
	FromTy   types.ID

	// Phi
	Incomings []PhiIncoming

	// Select
	SelThen UseID
	SelElse UseID

	// Call
	Callee     UseID
	CalleeTy   types.ID
	Args       []UseID
	IsTailCall bool
	IsVararg   bool

	// GEP
	Base      UseID
	Indices   []UseID
	InitialTy types.ID
	FinalTy   types.ID

	// IndexExtract/Insert, FieldExtract/Insert
	Aggr     UseID
	Elem     UseID
	Index    UseID
	FieldIdx uint32
}

func newInstCommon(opcode Opcode, retType types.ID) InstObj {
	return InstObj{Opcode: opcode, RetType: retType}
}

// Operands returns every UseID this instruction owns, in a stable,
// opcode-dependent order.
func (i *InstObj) Operands() []UseID {
	switch i.Opcode {
	case OpRet:
		if i.HasRetVal {
			return []UseID{i.RetVal}
		}
		return nil
	case OpBr:
		return []UseID{i.Cond}
	case OpSwitch:
		return []UseID{i.Discrim}
	case OpLoad:
		return []UseID{i.Source}
	case OpStore:
		return []UseID{i.Source, i.Dst}
	case OpAmoRmw:
		return []UseID{i.AmoPtr, i.AmoVal}
	case OpBinOp:
		return []UseID{i.Lhs, i.Rhs}
	case OpIcmp, OpFcmp:
		return []UseID{i.Lhs, i.Rhs}
	case OpCast:
		return []UseID{i.CastFrom}
	case OpPhi:
		out := make([]UseID, 0, len(i.Incomings)*2)
		for _, in := range i.Incomings {
			out = append(out, in.ValueUse, in.BlockUse)
		}
		return out
	case OpSelect:
		return []UseID{i.Cond, i.SelThen, i.SelElse}
	case OpCall:
		out := make([]UseID, 0, len(i.Args)+1)
		out = append(out, i.Callee)
		out = append(out, i.Args...)
		return out
	case OpGEP:
		out := make([]UseID, 0, len(i.Indices)+1)
		out = append(out, i.Base)
		out = append(out, i.Indices...)
		return out
	case OpIndexExtract:
		return []UseID{i.Aggr, i.Index}
	case OpIndexInsert:
		return []UseID{i.Aggr, i.Elem, i.Index}
	case OpFieldExtract:
		return []UseID{i.Aggr}
	case OpFieldInsert:
		return []UseID{i.Aggr, i.Elem}
	default: // Unreachable, Jump, Alloca, PhiEnd take none.
		return nil
	}
}

// JumpTargets returns every JumpTargetID a terminator owns, in source
// order: Jump has one, Br has two, Switch has default + cases.
func (i *InstObj) JumpTargets() []JumpTargetID {
	switch i.Opcode {
	case OpJump:
		return []JumpTargetID{i.JTJump}
	case OpBr:
		return []JumpTargetID{i.JTThen, i.JTElse}
	case OpSwitch:
		out := make([]JumpTargetID, 0, len(i.Cases)+1)
		out = append(out, i.JTDefault)
		out = append(out, i.Cases...)
		return out
	default:
		return nil
	}
}

// instStore adapts IRAllocs into list.Store[InstID] for the per-block
// instruction sequence list.
type instStore struct{ allocs *IRAllocs }

func (s instStore) LoadLink(h InstID) list.Link[InstID] { return s.allocs.instLinks[h.H] }
func (s instStore) StoreLink(h InstID, l list.Link[InstID]) { s.allocs.instLinks[h.H] = l }

// CastIsWidthValid applies the cast-opcode width rule table. tc is used
// to read integer bit widths and float kinds.
func CastIsWidthValid(tc *types.Context, op CastOp, from, into types.ID) bool {
	switch op {
	case CastZext, CastSext:
		return tc.Kind(from) == types.KindInt && tc.Kind(into) == types.KindInt &&
			tc.IntBits(from) <= tc.IntBits(into)
	case CastTrunc:
		return tc.Kind(from) == types.KindInt && tc.Kind(into) == types.KindInt &&
			tc.IntBits(from) >= tc.IntBits(into)
	case CastFpext:
		return tc.Kind(from) == types.KindFloat && tc.Kind(into) == types.KindFloat &&
			tc.FloatKindOf(from) == types.Ieee32 && tc.FloatKindOf(into) == types.Ieee64
	case CastFptrunc:
		return tc.Kind(from) == types.KindFloat && tc.Kind(into) == types.KindFloat &&
			tc.FloatKindOf(from) == types.Ieee64 && tc.FloatKindOf(into) == types.Ieee32
	case CastSitofp, CastUitofp:
		return tc.Kind(from) == types.KindInt && tc.Kind(into) == types.KindFloat
	case CastFptosi, CastFptoui:
		return tc.Kind(from) == types.KindFloat && tc.Kind(into) == types.KindInt
	case CastBitcast:
		fsz, fok := tc.Size(from)
		tsz, tok := tc.Size(into)
		return fok && tok && fsz*8 == tsz*8
	case CastIntToPtr:
		return tc.Kind(from) == types.KindInt && tc.Kind(into) == types.KindPtr
	case CastPtrToInt:
		return tc.Kind(from) == types.KindPtr && tc.Kind(into) == types.KindInt
	default:
		return false
	}
}

// GEPResolveFinalType walks initialTy through numIndices indices using
// GEP semantics: the first index is pointer arithmetic (stays at
// initialTy); each subsequent index dereferences one
// level of aggregation (struct field or array/vector element). constField
// reports the constant field index to use when the current type is a
// struct at index position pos (1-based, matching "subsequent indices");
// ok=false means "not a compile-time constant", which is only valid when
// the current type is not a struct. Returns the resolved final type and
// whether the whole chain was well-formed.
func GEPResolveFinalType(tc *types.Context, initialTy types.ID, numIndices int, constField func(pos int) (idx int, ok bool)) (types.ID, bool) {
	cur := initialTy
	for pos := 1; pos < numIndices; pos++ {
		switch tc.Kind(cur) {
		case types.KindStruct, types.KindStructAlias:
			idx, ok := constField(pos)
			if !ok {
				return types.Invalid, false
			}
			fields := tc.StructFields(cur)
			if idx < 0 || idx >= len(fields) {
				return types.Invalid, false
			}
			cur = fields[idx]
		case types.KindArray:
			cur, _ = tc.ArrayElem(cur)
		case types.KindFixVec:
			cur, _ = tc.FixVecElem(cur)
		default:
			return types.Invalid, false
		}
	}
	return cur, true
}
