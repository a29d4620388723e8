package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/validate"
)

func retOperand(t *testing.T, allocs *ir.IRAllocs, ret ir.InstID) ir.ValueSSA {
	t.Helper()
	inst := allocs.Insts.Deref(ret.H)
	require.True(t, inst.HasRetVal)
	return allocs.Uses.Deref(inst.RetVal.H).Operand
}

func TestMem2RegSingleStoreForwardsConstant(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	alloca, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)
	_, err = b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 7)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	load, err := b.BuildLoad(ir.FromInst(alloca), i32, 2)
	require.NoError(t, err)
	ret, err := b.FocusSetReturn(ir.FromInst(load))
	require.NoError(t, err)

	order := LinearOrdering{}
	changed, err := Mem2Reg{}.RunOnFunc(order, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)

	got := retOperand(t, m.Allocs, ret)
	assert.Equal(t, ir.FromConst(ir.IntConst(i32, 7)), got)

	assert.True(t, m.Allocs.Insts.Deref(alloca.H).Disposed)
	assert.True(t, m.Allocs.Insts.Deref(load.H).Disposed)

	assert.Empty(t, validate.SanityCheck(m))
}

func TestMem2RegNoStoreYieldsAggregateZero(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	alloca, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)
	load, err := b.BuildLoad(ir.FromInst(alloca), i32, 2)
	require.NoError(t, err)
	ret, err := b.FocusSetReturn(ir.FromInst(load))
	require.NoError(t, err)

	changed, err := Mem2Reg{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)

	got := retOperand(t, m.Allocs, ret)
	assert.Equal(t, ir.FromAggrZero(i32), got)
	assert.True(t, m.Allocs.Insts.Deref(alloca.H).Disposed)
}

func TestMem2RegSingleBlockTracksLatestStore(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	alloca, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)
	_, err = b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 1)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	_, err = b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 2)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	load, err := b.BuildLoad(ir.FromInst(alloca), i32, 2)
	require.NoError(t, err)
	ret, err := b.FocusSetReturn(ir.FromInst(load))
	require.NoError(t, err)

	changed, err := Mem2Reg{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)

	got := retOperand(t, m.Allocs, ret)
	assert.Equal(t, ir.FromConst(ir.IntConst(i32, 2)), got)
}

// buildDiamondWithAlloca mirrors internal/cfg's diamond fixture, but each
// arm stores a distinct constant through a shared alloca and the merge
// block loads it back, forcing the general dominance-frontier strategy.
func buildDiamondWithAlloca(t *testing.T) (*ir.Module, ir.FuncID, ir.InstID, ir.InstID) {
	t.Helper()
	m := ir.NewModule("m", "x86_64", 8)
	i1 := m.TypeCtx.Int(1)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	fnObj := m.Allocs.Funcs.Deref(fn.H)
	left := ir.NewBlock(m.Allocs)
	right := ir.NewBlock(m.Allocs)
	merge := ir.NewBlock(m.Allocs)
	require.NoError(t, fnObj.Body.Blocks.PushBack(left))
	require.NoError(t, fnObj.Body.Blocks.PushBack(right))
	require.NoError(t, fnObj.Body.Blocks.PushBack(merge))

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	alloca, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)
	_, err = b.FocusSetBranch(ir.FromConst(ir.IntConst(i1, 1)), left, right)
	require.NoError(t, err)

	b.SetFocus(fn, left)
	_, err = b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 1)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	_, err = b.FocusSetJump(merge)
	require.NoError(t, err)

	b.SetFocus(fn, right)
	_, err = b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 2)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	_, err = b.FocusSetJump(merge)
	require.NoError(t, err)

	b.SetFocus(fn, merge)
	load, err := b.BuildLoad(ir.FromInst(alloca), i32, 2)
	require.NoError(t, err)
	_, err = b.FocusSetReturn(ir.FromInst(load))
	require.NoError(t, err)

	return m, fn, alloca, load
}

func TestMem2RegGeneralConstructionPlacesPhiAtMerge(t *testing.T) {
	m, fn, alloca, load := buildDiamondWithAlloca(t)

	changed, err := Mem2Reg{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.True(t, m.Allocs.Insts.Deref(alloca.H).Disposed)
	assert.True(t, m.Allocs.Insts.Deref(load.H).Disposed)

	fnObj := m.Allocs.Funcs.Deref(fn.H)
	var mergeBlock ir.BlockID
	fnObj.Body.Blocks.ForEach(func(bid ir.BlockID) bool {
		if m.Allocs.Blocks.Deref(bid.H).Preds.Len() == 2 {
			mergeBlock = bid
			return false
		}
		return true
	})
	require.False(t, mergeBlock.IsNull())

	phis := m.Allocs.Blocks.Deref(mergeBlock.H).Phis(m.Allocs)
	require.Len(t, phis, 1)
	phiInst := m.Allocs.Insts.Deref(phis[0].H)
	require.Len(t, phiInst.Incomings, 2)

	var values []ir.ValueSSA
	for _, in := range phiInst.Incomings {
		values = append(values, m.Allocs.Uses.Deref(in.ValueUse.H).Operand)
	}
	i32 := m.TypeCtx.Int(32)
	assert.ElementsMatch(t, []ir.ValueSSA{
		ir.FromConst(ir.IntConst(i32, 1)),
		ir.FromConst(ir.IntConst(i32, 2)),
	}, values)

	assert.Empty(t, validate.SanityCheck(m))
}
