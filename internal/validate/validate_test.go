package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medihbt/remusys-ir-go/internal/ir"
)

func buildModuleWithReturn(t *testing.T) *ir.Module {
	t.Helper()
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)
	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)
	_, err := b.FocusSetReturn(ir.FromConst(ir.IntConst(i32, 0)))
	require.NoError(t, err)
	return m
}

func TestSanityCheckPassesOnWellFormedFunction(t *testing.T) {
	m := buildModuleWithReturn(t)
	errs := SanityCheck(m)
	assert.Empty(t, errs)
}

func TestSanityCheckFlagsMissingTerminator(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	fn := ir.NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	m.RegisterFunc("f", fn, true)
	ir.AddBody(m.Allocs, fn)

	errs := SanityCheck(m)
	require.NotEmpty(t, errs)
}

func TestSemanticCheckFlagsBinOpTypeMismatch(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	i64 := m.TypeCtx.Int(64)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)
	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)

	sumID, err := b.BuildBinOp(ir.BinAdd, ir.FromConst(ir.IntConst(i32, 1)), ir.FromConst(ir.IntConst(i64, 2)), i32)
	require.NoError(t, err)
	_, err = b.FocusSetReturn(ir.FromInst(sumID))
	require.NoError(t, err)

	errs := NewInstCheckCtx(m).CheckModule()
	assert.NotEmpty(t, errs)
}

func TestSemanticCheckPassesOnWellFormedFunction(t *testing.T) {
	m := buildModuleWithReturn(t)
	errs := NewInstCheckCtx(m).CheckModule()
	assert.Empty(t, errs)
}

func TestSemanticCheckFlagsPhiPredMismatch(t *testing.T) {
	m := ir.NewModule("m", "x86_64", 8)
	i32 := m.TypeCtx.Int(32)
	fn := ir.NewFunction(m.Allocs, "f", i32, nil)
	m.RegisterFunc("f", fn, true)
	entry := ir.AddBody(m.Allocs, fn)
	b := ir.NewIRBuilder(m)
	b.SetFocus(fn, entry)

	phi := b.BuildPhi(i32)
	// No predecessors exist yet, but we add one incoming anyway.
	b.AddIncoming(phi, entry, ir.FromConst(ir.IntConst(i32, 1)))
	require.NoError(t, b.InsertInst(phi))
	_, err := b.FocusSetReturn(ir.FromInst(phi))
	require.NoError(t, err)

	errs := NewInstCheckCtx(m).CheckModule()
	assert.NotEmpty(t, errs)
}
