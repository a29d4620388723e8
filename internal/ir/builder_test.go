package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-go/internal/types"
)

func newTestModule() *Module {
	return NewModule("test", "x86_64", 8)
}

func TestBuilderBuildsSimpleReturningFunction(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "answer", i32, nil)
	m.RegisterFunc("answer", fn, true)
	entry := AddBody(m.Allocs, fn)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetReturn(FromConst(IntConst(i32, 42)))
	require.NoError(t, err)

	bb := m.Allocs.Blocks.Deref(entry.H)
	term := bb.Terminator(m.Allocs)
	require.False(t, term.IsNull())
	inst := m.Allocs.Insts.Deref(term.H)
	assert.Equal(t, OpRet, inst.Opcode)
	assert.True(t, inst.HasRetVal)
}

func TestInsertInstRejectsSecondTerminator(t *testing.T) {
	m := newTestModule()
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetUnreachable()
	require.NoError(t, err)

	_, err = b.FocusSetUnreachable()
	assert.Error(t, err)
}

func TestBuildBinOpLinksUseDefGraph(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "add", i32, []types.ID{i32, i32})
	entry := AddBody(m.Allocs, fn)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	fnObj := m.Allocs.Funcs.Deref(fn.H)
	lhs := FromFuncArg(fn, 0)
	rhs := FromFuncArg(fn, 1)

	sumID, err := b.BuildBinOp(BinAdd, lhs, rhs, i32)
	require.NoError(t, err)
	_, err = b.FocusSetReturn(FromInst(sumID))
	require.NoError(t, err)

	assert.Equal(t, 1, fnObj.Args[0].Users.Len())
	assert.Equal(t, 1, fnObj.Args[1].Users.Len())

	sumInst := m.Allocs.Insts.Deref(sumID.H)
	assert.Equal(t, 1, sumInst.Users.Len())
}

func TestAddIncomingBuildsPhiOperandPairs(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "f", i32, nil)
	entry := AddBody(m.Allocs, fn)
	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)

	other := NewBlock(m.Allocs)
	phi := b.BuildPhi(i32)
	b.AddIncoming(phi, entry, FromConst(IntConst(i32, 1)))
	b.AddIncoming(phi, other, FromConst(IntConst(i32, 2)))
	require.NoError(t, b.InsertInst(phi))

	inst := m.Allocs.Insts.Deref(phi.H)
	require.Len(t, inst.Incomings, 2)
	assert.Len(t, inst.Operands(), 4)
}

func TestFocusSetSwitchWiresDefaultAndCases(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)
	def := NewBlock(m.Allocs)
	case0 := NewBlock(m.Allocs)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	id, err := b.FocusSetSwitch(FromConst(IntConst(i32, 0)), def, []SwitchCase{
		{Value: IntConst(i32, 0), Block: case0},
	})
	require.NoError(t, err)

	inst := m.Allocs.Insts.Deref(id.H)
	assert.Len(t, inst.JumpTargets(), 2)

	defBB := m.Allocs.Blocks.Deref(def.H)
	assert.Equal(t, 1, defBB.Preds.Len())
	case0BB := m.Allocs.Blocks.Deref(case0.H)
	assert.Equal(t, 1, case0BB.Preds.Len())
}

func TestSplitBlockMovesTerminatorAndInsertsJump(t *testing.T) {
	m := newTestModule()
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetUnreachable()
	require.NoError(t, err)

	newBB, err := b.SplitBlock()
	require.NoError(t, err)

	oldBB := m.Allocs.Blocks.Deref(entry.H)
	oldTerm := oldBB.Terminator(m.Allocs)
	require.False(t, oldTerm.IsNull())
	assert.Equal(t, OpJump, m.Allocs.Insts.Deref(oldTerm.H).Opcode)

	newBBObj := m.Allocs.Blocks.Deref(newBB.H)
	newTerm := newBBObj.Terminator(m.Allocs)
	require.False(t, newTerm.IsNull())
	assert.Equal(t, OpUnreachable, m.Allocs.Insts.Deref(newTerm.H).Opcode)
}

func TestRemoveInstDisposesAndUnplugs(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "f", i32, nil)
	entry := AddBody(m.Allocs, fn)
	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)

	allocaID, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)

	bb := m.Allocs.Blocks.Deref(entry.H)
	before := len(bb.Body(m.Allocs))
	require.NoError(t, b.RemoveInst(allocaID))
	after := len(bb.Body(m.Allocs))
	assert.Equal(t, before-1, after)

	inst := m.Allocs.Insts.Deref(allocaID.H)
	assert.True(t, inst.Disposed)
}

func TestBuildGEPWiresBaseAndIndices(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	arr := m.TypeCtx.InternArray(i32, 4)
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Ptr(), nil)
	entry := AddBody(m.Allocs, fn)
	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)

	alloca, err := b.BuildAlloca(arr, 2)
	require.NoError(t, err)

	gep, err := b.BuildGEP(FromInst(alloca), []ValueSSA{
		FromConst(IntConst(i32, 0)),
		FromConst(IntConst(i32, 1)),
	}, arr, i32)
	require.NoError(t, err)

	inst := m.Allocs.Insts.Deref(gep.H)
	assert.Len(t, inst.Operands(), 3)
}
