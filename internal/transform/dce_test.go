package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/validate"
)

func TestBasicDCERemovesUnreachableBlock(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	fnObj := m.Allocs.Funcs.Deref(fn.H)
	dead := ir.NewBlock(m.Allocs)
	require.NoError(t, fnObj.Body.Blocks.PushBack(dead))

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetReturn(ir.FromConst(ir.IntConst(i32, 0)))
	require.NoError(t, err)

	b.SetFocus(fn, dead)
	_, err = b.FocusSetUnreachable()
	require.NoError(t, err)

	changed, err := BasicDCE{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.True(t, m.Allocs.Blocks.Deref(dead.H).Disposed)

	var count int
	fnObj.Body.Blocks.ForEach(func(ir.BlockID) bool { count++; return true })
	assert.Equal(t, 1, count)

	assert.Empty(t, validate.SanityCheck(m))
}

func TestBasicDCERemovesDeadArithmetic(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	dead, err := b.BuildBinOp(ir.BinAdd, ir.FromConst(ir.IntConst(i32, 1)), ir.FromConst(ir.IntConst(i32, 2)), i32)
	require.NoError(t, err)
	_, err = b.FocusSetReturn(ir.FromConst(ir.IntConst(i32, 0)))
	require.NoError(t, err)

	changed, err := BasicDCE{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, m.Allocs.Insts.Deref(dead.H).Disposed)
	assert.Empty(t, validate.SanityCheck(m))
}

func TestBasicDCEKeepsStoreEvenWithoutUsers(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)

	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	alloca, err := b.BuildAlloca(i32, 2)
	require.NoError(t, err)
	store, err := b.BuildStore(i32, ir.FromConst(ir.IntConst(i32, 9)), ir.FromInst(alloca), 2)
	require.NoError(t, err)
	_, err = b.FocusSetReturn(ir.FromConst(ir.IntConst(i32, 0)))
	require.NoError(t, err)

	changed, err := BasicDCE{}.RunOnFunc(LinearOrdering{}, m, fn)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, m.Allocs.Insts.Deref(store.H).Disposed)
	assert.False(t, m.Allocs.Insts.Deref(alloca.H).Disposed)
}
