package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookupSymbols(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "main", i32, nil)
	m.RegisterFunc("main", fn, true)
	g := NewGlobal(m.Allocs, "counter", i32, false)
	m.RegisterGlobal("counter", g, false)

	got, ok := m.GetFuncByName("main")
	require.True(t, ok)
	assert.Equal(t, fn, got)
	assert.True(t, m.IsExported("main"))
	assert.False(t, m.IsExported("counter"))

	gotG, ok := m.GetGlobalByName("counter")
	require.True(t, ok)
	assert.Equal(t, g, gotG)
}

func TestDisposeFunctionCascadesToBlocksAndInsts(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "f", i32, nil)
	entry := AddBody(m.Allocs, fn)
	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	retID, err := b.FocusSetReturn(FromConst(IntConst(i32, 0)))
	require.NoError(t, err)

	DisposeFunction(m.Allocs, fn)

	assert.True(t, m.Allocs.Funcs.Deref(fn.H).Disposed)
	assert.True(t, m.Allocs.Blocks.Deref(entry.H).Disposed)
	assert.True(t, m.Allocs.Insts.Deref(retID.H).Disposed)
}

func TestFreeDisposedDrainsQueues(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	fn := NewFunction(m.Allocs, "f", i32, nil)
	entry := AddBody(m.Allocs, fn)
	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetReturn(FromConst(IntConst(i32, 0)))
	require.NoError(t, err)

	before := m.Allocs.Insts.Len()
	DisposeFunction(m.Allocs, fn)
	m.Allocs.FreeDisposed()
	after := m.Allocs.Insts.Len()
	assert.Less(t, after, before)
}

func TestMarkAndSweepKeepsOnlyReachableEntities(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)

	liveFn := NewFunction(m.Allocs, "live", i32, nil)
	m.RegisterFunc("live", liveFn, true)
	entry := AddBody(m.Allocs, liveFn)
	b := NewIRBuilder(m)
	b.SetFocus(liveFn, entry)
	_, err := b.FocusSetReturn(FromConst(IntConst(i32, 7)))
	require.NoError(t, err)

	// An orphan block never attached to a function or reachable from any
	// registered root.
	orphan := NewBlock(m.Allocs)

	beforeBlocks := m.Allocs.Blocks.Len()
	assert.GreaterOrEqual(t, beforeBlocks, 2)

	m.MarkAndSweep()

	assert.NotNil(t, m.Allocs.Blocks.TryDeref(entry.H))
	assert.Nil(t, m.Allocs.Blocks.TryDeref(orphan.H))
}

func TestGCSessionFinishFreesDisposedEntities(t *testing.T) {
	m := newTestModule()
	i32 := m.TypeCtx.Int(32)
	g := NewGlobal(m.Allocs, "g", i32, false)
	DisposeGlobal(m.Allocs, g)

	before := m.Allocs.globalDispose.Len()
	m.BeginGC().Finish()
	after := m.Allocs.globalDispose.Len()
	assert.Less(t, after, before)
}
