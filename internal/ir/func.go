package ir

import (
	"github.com/medihbt/remusys-ir-go/internal/list"
	"github.com/medihbt/remusys-ir-go/internal/types"
)

// FuncArg is one formal parameter. Attrs is a small open string set
// (e.g. "noalias", "readonly") left untyped since the attribute
// vocabulary isn't fixed.
type FuncArg struct {
	Index int
	Ty    types.ID
	Users UserList
	Attrs []string
}

// FuncBody holds the block list of a non-extern function. entry is always
// Blocks.Front(): the entry block must be first in the intrusive block
// list.
type FuncBody struct {
	Entry  BlockID
	Blocks *list.SequenceList[BlockID]

	headSentinel BlockID
	tailSentinel BlockID
}

// FuncObj is a function or extern declaration. HasBody is false for
// externs, which have no body at all.
type FuncObj struct {
	Name     string
	Exported bool
	RetType  types.ID
	Args     []FuncArg
	HasBody  bool
	Body     FuncBody
	Attrs    []string
	Disposed bool
}

// funcBlockHooks maintains a block's ParentFunc back-pointer as it's
// linked/unlinked, mirroring blockInstHooks one layer up.
type funcBlockHooks struct {
	allocs *IRAllocs
	fn     FuncID
}

func (h funcBlockHooks) OnPushNext(curr, next BlockID) error {
	if bb := h.allocs.Blocks.TryDeref(next.H); bb != nil {
		bb.ParentFunc, bb.HasParent = h.fn, true
	}
	return nil
}
func (h funcBlockHooks) OnPushPrev(curr, prev BlockID) error {
	if bb := h.allocs.Blocks.TryDeref(prev.H); bb != nil {
		bb.ParentFunc, bb.HasParent = h.fn, true
	}
	return nil
}
func (h funcBlockHooks) OnUnplug(curr BlockID) error {
	if bb := h.allocs.Blocks.TryDeref(curr.H); bb != nil {
		bb.HasParent = false
	}
	return nil
}

// NewFunction declares a function (extern, no body) with the given
// signature. Call AddBody to give it a block list.
func NewFunction(allocs *IRAllocs, name string, retType types.ID, argTypes []types.ID) FuncID {
	h := allocs.Funcs.Allocate(FuncObj{})
	id := FuncID{H: h}
	fn := allocs.Funcs.Deref(h)
	fn.Name = name
	fn.RetType = retType
	fn.Args = make([]FuncArg, len(argTypes))
	for i, ty := range argTypes {
		fn.Args[i] = FuncArg{Index: i, Ty: ty, Users: newUserList(allocs, FromFuncArg(id, i))}
	}
	return id
}

// AddBody gives fn a block list with a freshly allocated entry block.
// Panics if fn already has a body (construction-time programmer error,
// not a recoverable runtime condition).
func AddBody(allocs *IRAllocs, fn FuncID) BlockID {
	f := allocs.Funcs.Deref(fn.H)
	if f.HasBody {
		panic("ir: function already has a body")
	}
	headH := allocs.Blocks.Allocate(BasicBlock{})
	tailH := allocs.Blocks.Allocate(BasicBlock{})
	headID, tailID := BlockID{H: headH}, BlockID{H: tailH}

	f.Body = FuncBody{
		headSentinel: headID,
		tailSentinel: tailID,
		Blocks:       list.NewSequenceList[BlockID](blockStoreOf(allocs), funcBlockHooks{allocs, fn}, headID, tailID, NullBlockID),
	}
	f.HasBody = true

	entry := NewBlock(allocs)
	_ = f.Body.Blocks.PushBack(entry)
	f.Body.Entry = entry
	return entry
}

func blockStoreOf(allocs *IRAllocs) list.Store[BlockID] { return blockStore{allocs} }

type blockStore struct{ allocs *IRAllocs }

func (s blockStore) LoadLink(h BlockID) list.Link[BlockID]     { return s.allocs.blockLinks[h.H] }
func (s blockStore) StoreLink(h BlockID, l list.Link[BlockID]) { s.allocs.blockLinks[h.H] = l }
