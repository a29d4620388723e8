// Package types implements a TypeContext: an interning pool of IR types
// plus the pure size/align/offset layout queries the rest of the IR
// treats as a black box. It is a registry the rest of the compiler looks
// values up in, constructed once and never mutated out from under a
// running pass, with lazy per-field cached struct layout.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the Type sum type.
type Kind int

const (
	KindVoid Kind = iota
	KindPtr
	KindInt
	KindFloat
	KindFixVec
	KindArray
	KindStruct
	KindStructAlias
	KindFunc
)

// FloatKind distinguishes the two IEEE float variants.
type FloatKind int

const (
	Ieee32 FloatKind = iota
	Ieee64
)

// ID is the interned handle for a Type; equality of two IDs from the
// same Context is equality of the underlying type -- equality is by
// interned handle.
type ID struct {
	index int
}

// Invalid is the ID at index -1; every interned type has an index >= 0
// (Void is interned at index 0), so it never aliases a real type.
var Invalid = ID{index: -1}

func (id ID) Valid() bool { return id.index >= 0 }

// typeData is the payload stored per interned type. Only the fields
// relevant to the type's Kind are meaningful.
type typeData struct {
	kind Kind

	intBits int // KindInt

	floatKind FloatKind // KindFloat

	fixVecScalar ID  // KindFixVec
	fixVecCount  int // KindFixVec

	arrayElem ID  // KindArray
	arrayN    int // KindArray

	structFields []ID // KindStruct
	structPacked bool // KindStruct

	aliasName    string // KindStructAlias
	aliasAliasee ID     // KindStructAlias

	funcRet     ID   // KindFunc
	funcArgs    []ID // KindFunc
	funcVararg  bool // KindFunc

	// Lazy layout cache for KindStruct, populated field-by-field as
	// FieldOffset walks further into the struct (structty.rs's
	// update_cache). offsetCache[i] holds the offset *after* field i has
	// been accounted for; cacheTop is the number of fields already
	// folded in.
	offsetCache []int
	cacheTop    int
	alignCache  int // max field alignment seen so far while building offsetCache
	sizeKnown   bool
	sizeCache   int
	alignKnown  bool
}

// Context interns every type in a module such that equality reduces to
// ID comparison, and answers the size/align/offset layout queries the
// rest of the IR needs. It is insert-only for the lifetime of a module.
type Context struct {
	pointerWidthBytes int
	types             []typeData

	voidID ID
	ptrID  ID

	intCache   map[int]ID
	floatCache map[FloatKind]ID
	aliasCache map[string]ID

	// Structural caches for the composite kinds, which have no nominal
	// identity of their own: two InternArray/InternFixVec/InternStruct/
	// InternFunc calls describing the same shape must collapse to one ID,
	// mirroring context.rs's _find_or_register_type / structty.rs's
	// hash_cache, so Equal (handle comparison) stays valid for callers
	// that build the same composite independently.
	fixVecCache map[fixVecKey]ID
	arrayCache  map[arrayKey]ID
	structCache map[string]ID
	funcCache   map[string]ID
}

type fixVecKey struct {
	scalar ID
	count  int
}

type arrayKey struct {
	elem ID
	n    int
}

// encodeIDs renders a slice of IDs as a comma-separated key fragment, used
// to build map keys for the composite kinds whose field lists are
// variable-length and so can't be a plain comparable struct key.
func encodeIDs(ids []ID) string {
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id.index))
		b.WriteByte(',')
	}
	return b.String()
}

func structKey(fields []ID, packed bool) string {
	var b strings.Builder
	b.WriteString(encodeIDs(fields))
	b.WriteByte('|')
	if packed {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return b.String()
}

func funcKey(ret ID, args []ID, vararg bool) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(ret.index))
	b.WriteByte('|')
	b.WriteString(encodeIDs(args))
	b.WriteByte('|')
	if vararg {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
	return b.String()
}

// NewContext creates a type context targeting a platform with the given
// pointer width in bytes (e.g. 8 for a 64-bit target). The width is an
// explicit constructor parameter, held as a value, not hard-coded, so
// the same type system can serve multiple target widths.
func NewContext(pointerWidthBytes int) *Context {
	if pointerWidthBytes <= 0 {
		pointerWidthBytes = 8
	}
	c := &Context{
		pointerWidthBytes: pointerWidthBytes,
		intCache:          make(map[int]ID),
		floatCache:        make(map[FloatKind]ID),
		aliasCache:        make(map[string]ID),
		fixVecCache:       make(map[fixVecKey]ID),
		arrayCache:        make(map[arrayKey]ID),
		structCache:       make(map[string]ID),
		funcCache:         make(map[string]ID),
	}
	c.voidID = c.intern(typeData{kind: KindVoid})
	c.ptrID = c.intern(typeData{kind: KindPtr})
	return c
}

func (c *Context) intern(d typeData) ID {
	c.types = append(c.types, d)
	return ID{index: len(c.types) - 1}
}

func (c *Context) data(id ID) *typeData {
	if !id.Valid() || id.index >= len(c.types) {
		panic(fmt.Sprintf("types: invalid type id %v", id))
	}
	return &c.types[id.index]
}

// Kind returns the discriminant of an interned type.
func (c *Context) Kind(id ID) Kind { return c.data(id).kind }

func (c *Context) Void() ID { return c.voidID }
func (c *Context) Ptr() ID  { return c.ptrID }

// Int interns (or finds) an integer type of the given bit width, which
// must be in 1..=128.
func (c *Context) Int(bits int) ID {
	if bits < 1 || bits > 128 {
		panic(fmt.Sprintf("types: Int bit width %d out of range 1..=128", bits))
	}
	if id, ok := c.intCache[bits]; ok {
		return id
	}
	id := c.intern(typeData{kind: KindInt, intBits: bits})
	c.intCache[bits] = id
	return id
}

// Float interns (or finds) one of the two IEEE float types.
func (c *Context) Float(kind FloatKind) ID {
	if id, ok := c.floatCache[kind]; ok {
		return id
	}
	id := c.intern(typeData{kind: KindFloat, floatKind: kind})
	c.floatCache[kind] = id
	return id
}

// InternFixVec interns (or finds) a fixed-width SIMD-style vector of count
// lanes of scalar. Two calls describing the same lanes collapse to one ID.
func (c *Context) InternFixVec(scalar ID, count int) ID {
	key := fixVecKey{scalar: scalar, count: count}
	if id, ok := c.fixVecCache[key]; ok {
		return id
	}
	id := c.intern(typeData{kind: KindFixVec, fixVecScalar: scalar, fixVecCount: count})
	c.fixVecCache[key] = id
	return id
}

// InternArray interns (or finds) an array of n elements of elem. Two calls
// describing the same element/count collapse to one ID.
func (c *Context) InternArray(elem ID, n int) ID {
	key := arrayKey{elem: elem, n: n}
	if id, ok := c.arrayCache[key]; ok {
		return id
	}
	id := c.intern(typeData{kind: KindArray, arrayElem: elem, arrayN: n})
	c.arrayCache[key] = id
	return id
}

// InternStruct interns (or finds) a (possibly packed) structure with the
// given field types in order. Two calls describing the same field list and
// packing collapse to one ID -- structs have no nominal identity of their
// own, only InternAlias does.
func (c *Context) InternStruct(fields []ID, packed bool) ID {
	key := structKey(fields, packed)
	if id, ok := c.structCache[key]; ok {
		return id
	}
	fieldsCopy := append([]ID(nil), fields...)
	d := typeData{kind: KindStruct, structFields: fieldsCopy, structPacked: packed}
	d.offsetCache = make([]int, len(fieldsCopy))
	if packed {
		d.alignCache = 1
	}
	id := c.intern(d)
	c.structCache[key] = id
	return id
}

// InternAlias interns a named alias for a struct type. Aliases with the
// same name collapse to the same ID.
func (c *Context) InternAlias(name string, aliasee ID) ID {
	if c.Kind(aliasee) != KindStruct {
		panic("types: alias aliasee must be a struct type")
	}
	if id, ok := c.aliasCache[name]; ok {
		return id
	}
	id := c.intern(typeData{kind: KindStructAlias, aliasName: name, aliasAliasee: aliasee})
	c.aliasCache[name] = id
	return id
}

// InternFunc interns (or finds) a function signature type. Two calls
// describing the same return/args/vararg collapse to one ID.
func (c *Context) InternFunc(ret ID, args []ID, vararg bool) ID {
	key := funcKey(ret, args, vararg)
	if id, ok := c.funcCache[key]; ok {
		return id
	}
	argsCopy := append([]ID(nil), args...)
	id := c.intern(typeData{kind: KindFunc, funcRet: ret, funcArgs: argsCopy, funcVararg: vararg})
	c.funcCache[key] = id
	return id
}

// MakesInstance reports whether t denotes a type a value can actually
// have; false only for Void and Func.
func (c *Context) MakesInstance(t ID) bool {
	switch c.Kind(t) {
	case KindVoid, KindFunc:
		return false
	default:
		return true
	}
}

// resolveStruct follows a StructAlias down to its underlying Struct id.
func (c *Context) resolveStruct(t ID) ID {
	for c.Kind(t) == KindStructAlias {
		t = c.data(t).aliasAliasee
	}
	return t
}

// Size returns the size in bytes of t, or (0, false) if t does not make an
// instance.
func (c *Context) Size(t ID) (int, bool) {
	if !c.MakesInstance(t) {
		return 0, false
	}
	switch c.Kind(t) {
	case KindPtr:
		return c.pointerWidthBytes, true
	case KindInt:
		return (c.data(t).intBits + 7) / 8, true
	case KindFloat:
		if c.data(t).floatKind == Ieee32 {
			return 4, true
		}
		return 8, true
	case KindFixVec:
		d := c.data(t)
		scalarSize, ok := c.Size(d.fixVecScalar)
		if !ok {
			return 0, false
		}
		return d.fixVecCount * scalarSize, true
	case KindArray:
		d := c.data(t)
		elemAligned, ok := c.AlignedSize(d.arrayElem)
		if !ok {
			return 0, false
		}
		return d.arrayN * elemAligned, true
	case KindStruct, KindStructAlias:
		return c.structSize(c.resolveStruct(t))
	default:
		return 0, false
	}
}

// Align returns the alignment in bytes of t, or (0, false) if t does not
// make an instance.
func (c *Context) Align(t ID) (int, bool) {
	if !c.MakesInstance(t) {
		return 0, false
	}
	switch c.Kind(t) {
	case KindPtr:
		return c.pointerWidthBytes, true
	case KindInt:
		sz, _ := c.Size(t)
		return sz, true
	case KindFloat:
		return c.Size(t)
	case KindFixVec:
		// Alignment equals size: SIMD-style tight packing.
		return c.Size(t)
	case KindArray:
		d := c.data(t)
		return c.Align(d.arrayElem)
	case KindStruct, KindStructAlias:
		return c.structAlign(c.resolveStruct(t))
	default:
		return 0, false
	}
}

// AlignedSize returns size rounded up to a multiple of align -- the unit
// an Array multiplies by n.
func (c *Context) AlignedSize(t ID) (int, bool) {
	size, ok := c.Size(t)
	if !ok {
		return 0, false
	}
	align, ok := c.Align(t)
	if !ok || align == 0 {
		return size, ok
	}
	return roundUp(size, align), true
}

// FieldOffset returns the byte offset of field idx within struct type t, or
// (0, false) if t is not a struct/alias or idx is out of range.
func (c *Context) FieldOffset(t ID, idx int) (int, bool) {
	structID := c.resolveStruct(t)
	if c.Kind(structID) != KindStruct {
		return 0, false
	}
	d := c.data(structID)
	if idx < 0 || idx >= len(d.structFields) {
		return 0, false
	}
	c.ensureStructCache(structID, idx+1)
	if idx == 0 {
		return c.fieldStartOffset(d, 0), true
	}
	return c.fieldStartOffset(d, idx), true
}

// fieldStartOffset computes the start offset of field idx assuming the
// cache has already been filled up through at least idx+1 entries
// (offsetCache[i] holds the *end* offset of field i; field 0 always starts
// at 0).
func (c *Context) fieldStartOffset(d *typeData, idx int) int {
	if idx == 0 {
		return 0
	}
	start := d.offsetCache[idx-1]
	if !d.structPacked {
		if fieldAlign, ok := c.Align(d.structFields[idx]); ok {
			start = roundUp(start, fieldAlign)
		}
	}
	return start
}

// ensureStructCache extends the lazily-built offset cache up through index
// upTo (exclusive): walks fields in order, running offset aligned to
// each field's alignment (unless packed) before adding that field's size.
func (c *Context) ensureStructCache(structID ID, upTo int) {
	d := c.data(structID)
	if d.cacheTop >= upTo {
		return
	}
	running := 0
	if d.cacheTop > 0 {
		running = d.offsetCache[d.cacheTop-1]
	}
	for i := d.cacheTop; i < upTo; i++ {
		fieldSize, ok := c.Size(d.structFields[i])
		if !ok {
			fieldSize = 0
		}
		if !d.structPacked {
			fieldAlign, ok := c.Align(d.structFields[i])
			if !ok {
				fieldAlign = 1
			}
			if fieldAlign > d.alignCache {
				d.alignCache = fieldAlign
			}
			running = roundUp(running, fieldAlign)
		}
		running += fieldSize
		d.offsetCache[i] = running
	}
	d.cacheTop = upTo
}

// structSize/structAlign force the cache through every field and report
// the struct's overall size/alignment: the struct's alignment is the
// maximum field alignment, or 1 if packed.
func (c *Context) structSize(structID ID) (int, bool) {
	d := c.data(structID)
	if len(d.structFields) == 0 {
		return 0, true
	}
	c.ensureStructCache(structID, len(d.structFields))
	return d.offsetCache[len(d.structFields)-1], true
}

func (c *Context) structAlign(structID ID) (int, bool) {
	d := c.data(structID)
	if d.structPacked {
		return 1, true
	}
	if len(d.structFields) == 0 {
		return 1, true
	}
	c.ensureStructCache(structID, len(d.structFields))
	if d.alignCache == 0 {
		return 1, true
	}
	return d.alignCache, true
}

func roundUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// --- accessors used by the rest of the IR / validator ---

func (c *Context) IntBits(t ID) int { return c.data(t).intBits }
func (c *Context) FloatKindOf(t ID) FloatKind { return c.data(t).floatKind }
func (c *Context) FixVecElem(t ID) (ID, int) {
	d := c.data(t)
	return d.fixVecScalar, d.fixVecCount
}
func (c *Context) ArrayElem(t ID) (ID, int) {
	d := c.data(t)
	return d.arrayElem, d.arrayN
}
func (c *Context) StructFields(t ID) []ID {
	return append([]ID(nil), c.data(c.resolveStruct(t)).structFields...)
}
func (c *Context) StructPacked(t ID) bool {
	return c.data(c.resolveStruct(t)).structPacked
}
func (c *Context) AliasAliasee(t ID) ID { return c.data(t).aliasAliasee }
func (c *Context) AliasName(t ID) string { return c.data(t).aliasName }
func (c *Context) FuncSignature(t ID) (ret ID, args []ID, vararg bool) {
	d := c.data(t)
	return d.funcRet, append([]ID(nil), d.funcArgs...), d.funcVararg
}

// Equal reports whether two IDs denote the same interned type. Since
// interning is unique, this is the same as ID equality -- the method exists
// for call sites that read more naturally as a method than `a == b`.
func (c *Context) Equal(a, b ID) bool { return a == b }

// String renders a human-readable type name, used by debug dumps and
// test failure messages (not a full textual IR printer).
func (c *Context) String(t ID) string {
	switch c.Kind(t) {
	case KindVoid:
		return "void"
	case KindPtr:
		return "ptr"
	case KindInt:
		return fmt.Sprintf("i%d", c.IntBits(t))
	case KindFloat:
		if c.FloatKindOf(t) == Ieee32 {
			return "f32"
		}
		return "f64"
	case KindFixVec:
		scalar, n := c.FixVecElem(t)
		return fmt.Sprintf("<%d x %s>", n, c.String(scalar))
	case KindArray:
		elem, n := c.ArrayElem(t)
		return fmt.Sprintf("[%d x %s]", n, c.String(elem))
	case KindStruct:
		fields := c.StructFields(t)
		s := "{"
		for i, f := range fields {
			if i > 0 {
				s += ", "
			}
			s += c.String(f)
		}
		return s + "}"
	case KindStructAlias:
		return "%" + c.AliasName(t)
	case KindFunc:
		ret, args, vararg := c.FuncSignature(t)
		s := c.String(ret) + " ("
		for i, a := range args {
			if i > 0 {
				s += ", "
			}
			s += c.String(a)
		}
		if vararg {
			if len(args) > 0 {
				s += ", "
			}
			s += "..."
		}
		return s + ")"
	default:
		return "<?>"
	}
}
