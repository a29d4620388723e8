package ir

import "testing"

func TestAllocJumpTargetLinksIntoPreds(t *testing.T) {
	m := newTestModule()
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)
	target := NewBlock(m.Allocs)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	termID, err := b.FocusSetJump(target)
	if err != nil {
		t.Fatal(err)
	}
	inst := m.Allocs.Insts.Deref(termID.H)
	jt := m.Allocs.JumpTargets.Deref(inst.JTJump.H)
	if jt.Kind != JTJump || !jt.HasBlock || jt.Block != target {
		t.Fatalf("jump target not wired correctly: %+v", jt)
	}
	targetBB := m.Allocs.Blocks.Deref(target.H)
	if targetBB.Preds.Len() != 1 {
		t.Fatalf("expected 1 pred, got %d", targetBB.Preds.Len())
	}
}

func TestSetBlockRelinksPreds(t *testing.T) {
	m := newTestModule()
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)
	a := NewBlock(m.Allocs)
	b2 := NewBlock(m.Allocs)

	builder := NewIRBuilder(m)
	builder.SetFocus(fn, entry)
	termID, err := builder.FocusSetJump(a)
	if err != nil {
		t.Fatal(err)
	}
	inst := m.Allocs.Insts.Deref(termID.H)

	SetBlock(m.Allocs, inst.JTJump, b2)

	aBB := m.Allocs.Blocks.Deref(a.H)
	bBB := m.Allocs.Blocks.Deref(b2.H)
	if aBB.Preds.Len() != 0 {
		t.Fatalf("expected a to have 0 preds after retarget, got %d", aBB.Preds.Len())
	}
	if bBB.Preds.Len() != 1 {
		t.Fatalf("expected b2 to have 1 pred after retarget, got %d", bBB.Preds.Len())
	}
}

func TestDisposeJumpTargetUnlinksFromPreds(t *testing.T) {
	m := newTestModule()
	fn := NewFunction(m.Allocs, "f", m.TypeCtx.Void(), nil)
	entry := AddBody(m.Allocs, fn)
	target := NewBlock(m.Allocs)

	b := NewIRBuilder(m)
	b.SetFocus(fn, entry)
	termID, err := b.FocusSetJump(target)
	if err != nil {
		t.Fatal(err)
	}
	inst := m.Allocs.Insts.Deref(termID.H)
	DisposeJumpTarget(m.Allocs, inst.JTJump)

	targetBB := m.Allocs.Blocks.Deref(target.H)
	if targetBB.Preds.Len() != 0 {
		t.Fatalf("expected 0 preds after dispose, got %d", targetBB.Preds.Len())
	}
}
