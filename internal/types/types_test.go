package types

import "testing"

func TestPrimitivesInternUnique(t *testing.T) {
	c := NewContext(8)
	i32a := c.Int(32)
	i32b := c.Int(32)
	if i32a != i32b {
		t.Fatal("interning the same int width twice should yield the same ID")
	}
	if c.Int(32) == c.Int(64) {
		t.Fatal("different widths should intern to different IDs")
	}
}

func TestVoidAndFuncDoNotMakeInstance(t *testing.T) {
	c := NewContext(8)
	if c.MakesInstance(c.Void()) {
		t.Fatal("Void must not make an instance")
	}
	fn := c.InternFunc(c.Void(), []ID{c.Int(32)}, false)
	if c.MakesInstance(fn) {
		t.Fatal("Func must not make an instance")
	}
	if _, ok := c.Size(fn); ok {
		t.Fatal("Size(Func) should be (_, false)")
	}
}

func TestIntSizeAndAlign(t *testing.T) {
	c := NewContext(8)
	i1 := c.Int(1)
	if sz, _ := c.Size(i1); sz != 1 {
		t.Fatalf("i1 size = %d, want 1 (byte-rounded)", sz)
	}
	i32 := c.Int(32)
	sz, _ := c.Size(i32)
	al, _ := c.Align(i32)
	if sz != 4 || al != 4 {
		t.Fatalf("i32 size/align = %d/%d, want 4/4", sz, al)
	}
}

func TestFixVecAlignmentEqualsSize(t *testing.T) {
	c := NewContext(8)
	v := c.InternFixVec(c.Int(32), 4)
	sz, _ := c.Size(v)
	al, _ := c.Align(v)
	if sz != 16 {
		t.Fatalf("FixVec size = %d, want 16", sz)
	}
	if al != sz {
		t.Fatalf("FixVec align %d should equal size %d", al, sz)
	}
}

func TestArraySizeUsesAlignedElemSize(t *testing.T) {
	c := NewContext(8)
	// struct { i8, i32 } unpacked -> size 8 (padding after i8), align 4
	st := c.InternStruct([]ID{c.Int(8), c.Int(32)}, false)
	arr := c.InternArray(st, 3)
	elemAligned, _ := c.AlignedSize(st)
	if elemAligned != 8 {
		t.Fatalf("aligned struct size = %d, want 8", elemAligned)
	}
	arrSize, _ := c.Size(arr)
	if arrSize != 24 {
		t.Fatalf("array size = %d, want 24", arrSize)
	}
	arrAlign, _ := c.Align(arr)
	if arrAlign != 4 {
		t.Fatalf("array align = %d, want 4 (element align)", arrAlign)
	}
}

func TestStructLayoutUnpacked(t *testing.T) {
	c := NewContext(8)
	// { i8, i32, i8 }: offset0=0, pad to 4 for i32 -> offset1=4, offset1+4=8
	// for field2 (i8) offset2=8, end=9; struct align = 4, struct size
	// rounds? spec says "struct size" is just the end offset accumulated
	// (no trailing pad to struct align mandated explicitly, matching the
	// original's lazy per-field cache which doesn't add one).
	st := c.InternStruct([]ID{c.Int(8), c.Int(32), c.Int(8)}, false)

	off0, _ := c.FieldOffset(st, 0)
	off1, _ := c.FieldOffset(st, 1)
	off2, _ := c.FieldOffset(st, 2)
	if off0 != 0 {
		t.Fatalf("field0 offset = %d, want 0", off0)
	}
	if off1 != 4 {
		t.Fatalf("field1 offset = %d, want 4 (aligned to 4)", off1)
	}
	if off2 != 8 {
		t.Fatalf("field2 offset = %d, want 8", off2)
	}

	align, _ := c.Align(st)
	if align != 4 {
		t.Fatalf("struct align = %d, want 4 (max field align)", align)
	}
	size, _ := c.Size(st)
	if size != 9 {
		t.Fatalf("struct size = %d, want 9", size)
	}
}

func TestStructPackedHasNoPadding(t *testing.T) {
	c := NewContext(8)
	st := c.InternStruct([]ID{c.Int(8), c.Int(32)}, true)
	off1, _ := c.FieldOffset(st, 1)
	if off1 != 1 {
		t.Fatalf("packed field1 offset = %d, want 1", off1)
	}
	align, _ := c.Align(st)
	if align != 1 {
		t.Fatalf("packed struct align = %d, want 1", align)
	}
}

func TestStructAliasResolvesToUnderlyingStruct(t *testing.T) {
	c := NewContext(8)
	st := c.InternStruct([]ID{c.Int(32), c.Int(32)}, false)
	alias := c.InternAlias("Point", st)
	if c.Kind(alias) != KindStructAlias {
		t.Fatal("alias should report KindStructAlias")
	}
	sz, _ := c.Size(alias)
	stSz, _ := c.Size(st)
	if sz != stSz {
		t.Fatalf("alias size %d should match aliasee size %d", sz, stSz)
	}
	// Same name collapses to the same ID.
	if c.InternAlias("Point", st) != alias {
		t.Fatal("re-interning the same alias name should return the same ID")
	}
}

func TestFieldOffsetOutOfRangeOnNonStruct(t *testing.T) {
	c := NewContext(8)
	if _, ok := c.FieldOffset(c.Int(32), 0); ok {
		t.Fatal("FieldOffset on a non-struct type should report ok=false")
	}
}

func TestCompositeInterningDedupesByStructure(t *testing.T) {
	c := NewContext(8)

	if c.InternFixVec(c.Int(32), 4) != c.InternFixVec(c.Int(32), 4) {
		t.Fatal("two identical FixVec shapes should intern to the same ID")
	}
	if c.InternFixVec(c.Int(32), 4) == c.InternFixVec(c.Int(32), 8) {
		t.Fatal("FixVec shapes differing by lane count should intern to different IDs")
	}

	if c.InternArray(c.Int(8), 4) != c.InternArray(c.Int(8), 4) {
		t.Fatal("two identical Array shapes should intern to the same ID")
	}
	if c.InternArray(c.Int(8), 4) == c.InternArray(c.Int(16), 4) {
		t.Fatal("Array shapes differing by element type should intern to different IDs")
	}

	st1 := c.InternStruct([]ID{c.Int(8), c.Int(32)}, false)
	st2 := c.InternStruct([]ID{c.Int(8), c.Int(32)}, false)
	if st1 != st2 {
		t.Fatal("two anonymous structs with the same fields should intern to the same ID")
	}
	if st1 == c.InternStruct([]ID{c.Int(8), c.Int(32)}, true) {
		t.Fatal("packed vs. unpacked should intern to different IDs")
	}

	fn1 := c.InternFunc(c.Int(32), []ID{c.Int(8), c.Int(16)}, false)
	fn2 := c.InternFunc(c.Int(32), []ID{c.Int(8), c.Int(16)}, false)
	if fn1 != fn2 {
		t.Fatal("two identical function signatures should intern to the same ID")
	}
	if fn1 == c.InternFunc(c.Int(32), []ID{c.Int(8), c.Int(16)}, true) {
		t.Fatal("vararg vs. non-vararg should intern to different IDs")
	}
}

func TestPointerWidthIsParameterNotHardcoded(t *testing.T) {
	c32 := NewContext(4)
	c64 := NewContext(8)
	sz32, _ := c32.Size(c32.Ptr())
	sz64, _ := c64.Size(c64.Ptr())
	if sz32 != 4 || sz64 != 8 {
		t.Fatalf("ptr sizes = %d/%d, want 4/8", sz32, sz64)
	}
}
