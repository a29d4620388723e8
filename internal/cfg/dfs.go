// Package cfg implements control-flow analyses over a function's blocks:
// DFS orderings, a dominator tree, and a dominance frontier, all
// addressed by the same CFG DFS index a transform pass walks in.
package cfg

import (
	"github.com/medihbt/remusys-ir-go/internal/ir"
	"github.com/medihbt/remusys-ir-go/internal/irerr"
)

// DfsOrder is an eight-way enum: four forward variants rooted at the
// entry block, and their four "backward" counterparts rooted at a
// virtual node joining every exit block.
type DfsOrder int

const (
	Pre DfsOrder = iota
	Post
	RevPre
	RevPost
	BackPre
	BackPost
	BackRevPre
	BackRevPost
)

func (o DfsOrder) IsRev() bool {
	switch o {
	case RevPre, RevPost, BackRevPre, BackRevPost:
		return true
	default:
		return false
	}
}

func (o DfsOrder) IsBack() bool {
	switch o {
	case BackPre, BackPost, BackRevPre, BackRevPost:
		return true
	default:
		return false
	}
}

func (o DfsOrder) IsPost() bool {
	switch o {
	case Post, RevPost, BackPost, BackRevPost:
		return true
	default:
		return false
	}
}

// IntoNorev strips the reversal bit, returning the underlying Pre/Post/
// BackPre/BackPost this order was derived from.
func (o DfsOrder) IntoNorev() DfsOrder {
	switch o {
	case Pre, RevPre:
		return Pre
	case Post, RevPost:
		return Post
	case BackPre, BackRevPre:
		return BackPre
	case BackPost, BackRevPost:
		return BackPost
	default:
		return o
	}
}

func (o DfsOrder) Reverse() DfsOrder {
	switch o {
	case Pre:
		return RevPre
	case Post:
		return RevPost
	case RevPre:
		return Pre
	case RevPost:
		return Post
	case BackPre:
		return BackRevPre
	case BackPost:
		return BackRevPost
	case BackRevPre:
		return BackPre
	case BackRevPost:
		return BackPost
	default:
		return o
	}
}

// NullParent marks a DFS tree root's absent parent index.
const NullParent = ^uint(0)

// CfgNode is one entry in a DfsSeq: a real block, or the virtual exit node
// that backward orders root themselves at.
type CfgNode struct {
	Block     ir.BlockID
	IsVirtual bool
	DfsIndex  uint
	Parent    uint
	Children  []uint
}

// DfsSeq is a computed DFS traversal of one function's CFG: the node
// array, the block->index map, and (for backward orders) the virtual
// root's index.
type DfsSeq struct {
	Order     DfsOrder
	Nodes     []CfgNode
	unseq     map[ir.BlockID]uint
	virtIndex int // -1 when absent
}

func (s *DfsSeq) TryBlockDfn(b ir.BlockID) (uint, bool) {
	idx, ok := s.unseq[b]
	return idx, ok
}

func (s *DfsSeq) BlockReachable(b ir.BlockID) bool {
	_, ok := s.unseq[b]
	return ok
}

func (s *DfsSeq) VirtualIndex() (uint, bool) {
	if s.virtIndex < 0 {
		return 0, false
	}
	return uint(s.virtIndex), true
}

// NewDfsSeq builds a function's DFS sequence in the requested order,
// mirroring dfs.rs's CfgDfsSeq::new: it delegates to the norev forward/
// backward builder and reverses the index space afterward when asked.
func NewDfsSeq(allocs *ir.IRAllocs, fn ir.FuncID, order DfsOrder) (*DfsSeq, error) {
	var seq *DfsSeq
	var err error
	switch order.IntoNorev() {
	case Pre:
		seq, err = buildForward(allocs, fn, false)
	case Post:
		seq, err = buildForward(allocs, fn, true)
	case BackPre:
		seq, err = buildBackward(allocs, fn, false)
	case BackPost:
		seq, err = buildBackward(allocs, fn, true)
	}
	if err != nil {
		return nil, err
	}
	seq.Order = order
	if order.IsRev() {
		seq.reverse()
	}
	return seq, nil
}

func (s *DfsSeq) reverse() {
	s.Order = s.Order.Reverse()
	n := len(s.Nodes)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		s.Nodes[i], s.Nodes[j] = s.Nodes[j], s.Nodes[i]
	}
	for i := range s.Nodes {
		s.Nodes[i].DfsIndex = uint(i)
	}
	for k, v := range s.unseq {
		s.unseq[k] = uint(n) - 1 - v
	}
	if s.virtIndex >= 0 {
		s.virtIndex = n - 1 - s.virtIndex
	}
}

func funcBody(allocs *ir.IRAllocs, fn ir.FuncID) (*ir.FuncBody, error) {
	fnObj := allocs.Funcs.TryDeref(fn.H)
	if fnObj == nil || !fnObj.HasBody {
		return nil, irerr.NewAnalysisErr(irerr.CodeFuncIsExtern, "function has no body")
	}
	return &fnObj.Body, nil
}

func successors(allocs *ir.IRAllocs, block ir.BlockID) []ir.BlockID {
	bb := allocs.Blocks.TryDeref(block.H)
	if bb == nil {
		return nil
	}
	term := bb.Terminator(allocs)
	if term.IsNull() {
		return nil
	}
	inst := allocs.Insts.TryDeref(term.H)
	if inst == nil {
		return nil
	}
	var out []ir.BlockID
	for _, jid := range inst.JumpTargets() {
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt != nil && jt.HasBlock {
			out = append(out, jt.Block)
		}
	}
	return out
}

func predecessors(allocs *ir.IRAllocs, block ir.BlockID) []ir.BlockID {
	bb := allocs.Blocks.TryDeref(block.H)
	if bb == nil {
		return nil
	}
	var out []ir.BlockID
	bb.Preds.ForEach(func(jid ir.JumpTargetID) bool {
		jt := allocs.JumpTargets.TryDeref(jid.H)
		if jt != nil && jt.HasTerm {
			if term := allocs.Insts.TryDeref(jt.Terminator.H); term != nil {
				out = append(out, term.ParentBB)
			}
		}
		return true
	})
	return out
}

// buildForward walks from the entry block using an explicit stack,
// iterative so it never overflows the goroutine stack on a large CFG.
func buildForward(allocs *ir.IRAllocs, fn ir.FuncID, post bool) (*DfsSeq, error) {
	body, err := funcBody(allocs, fn)
	if err != nil {
		return nil, err
	}
	b := &dfsBuilder{allocs: allocs, unseq: map[ir.BlockID]uint{}, succOf: successors}
	if post {
		b.postVisit(body.Entry)
	} else {
		b.preVisit(body.Entry, NullParent)
	}
	return &DfsSeq{Nodes: b.nodes, unseq: b.unseq, virtIndex: -1}, nil
}

// buildBackward roots the traversal at a virtual node joining every exit
// block (a block whose terminator is Ret or Unreachable), walking
// predecessor edges as if they were successors.
func buildBackward(allocs *ir.IRAllocs, fn ir.FuncID, post bool) (*DfsSeq, error) {
	body, err := funcBody(allocs, fn)
	if err != nil {
		return nil, err
	}
	var exits []ir.BlockID
	body.Blocks.ForEach(func(bid ir.BlockID) bool {
		bb := allocs.Blocks.TryDeref(bid.H)
		if bb == nil {
			return true
		}
		term := bb.Terminator(allocs)
		if term.IsNull() {
			return true
		}
		inst := allocs.Insts.TryDeref(term.H)
		if inst != nil && (inst.Opcode == ir.OpRet || inst.Opcode == ir.OpUnreachable) {
			exits = append(exits, bid)
		}
		return true
	})
	if len(exits) == 0 {
		return nil, irerr.NewAnalysisErr(irerr.CodeFuncCannotExit, "function has no reachable exit block")
	}

	b := &dfsBuilder{allocs: allocs, unseq: map[ir.BlockID]uint{}, succOf: predecessors}
	var exitIdx []uint
	if post {
		for _, exit := range exits {
			exitIdx = append(exitIdx, b.postVisit(exit))
		}
	} else {
		for _, exit := range exits {
			b.preVisit(exit, NullParent)
		}
	}

	rootIdx := uint(len(b.nodes))
	root := CfgNode{IsVirtual: true, DfsIndex: rootIdx, Parent: NullParent}
	for _, exit := range exits {
		idx := b.unseq[exit]
		root.Children = append(root.Children, idx)
		if post {
			b.nodes[idx].Parent = rootIdx
		}
	}
	b.nodes = append(b.nodes, root)
	_ = exitIdx

	return &DfsSeq{Nodes: b.nodes, unseq: b.unseq, virtIndex: int(rootIdx)}, nil
}

type dfsBuilder struct {
	allocs *ir.IRAllocs
	nodes  []CfgNode
	unseq  map[ir.BlockID]uint
	succOf func(*ir.IRAllocs, ir.BlockID) []ir.BlockID
}

func (b *dfsBuilder) preVisit(root ir.BlockID, parentIdx uint) {
	type frame struct {
		block  ir.BlockID
		parent uint
	}
	stack := []frame{{root, parentIdx}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := b.unseq[top.block]; seen {
			continue
		}
		idx := uint(len(b.nodes))
		b.unseq[top.block] = idx
		b.nodes = append(b.nodes, CfgNode{Block: top.block, DfsIndex: idx, Parent: top.parent})
		if top.parent != NullParent {
			b.nodes[top.parent].Children = append(b.nodes[top.parent].Children, idx)
		}
		succs := b.succOf(b.allocs, top.block)
		for i := len(succs) - 1; i >= 0; i-- {
			stack = append(stack, frame{succs[i], idx})
		}
	}
}

// postVisit runs an iterative post-order DFS rooted at root and returns
// root's own DFS index.
func (b *dfsBuilder) postVisit(root ir.BlockID) uint {
	type frame struct {
		block    ir.BlockID
		succs    []ir.BlockID
		children []uint
		pos      int
	}
	newFrame := func(block ir.BlockID) frame {
		return frame{block: block, succs: b.succOf(b.allocs, block)}
	}
	visiting := map[ir.BlockID]bool{root: true}
	stack := []frame{newFrame(root)}
	var lastIdx uint

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.pos < len(top.succs) {
			succ := top.succs[top.pos]
			top.pos++
			if _, done := b.unseq[succ]; done {
				continue
			}
			if visiting[succ] {
				continue
			}
			visiting[succ] = true
			stack = append(stack, newFrame(succ))
			continue
		}
		idx := uint(len(b.nodes))
		b.unseq[top.block] = idx
		b.nodes = append(b.nodes, CfgNode{Block: top.block, DfsIndex: idx, Parent: NullParent, Children: top.children})
		for _, c := range top.children {
			b.nodes[c].Parent = idx
		}
		lastIdx = idx
		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := &stack[len(stack)-1]
			parent.children = append(parent.children, idx)
		}
	}
	return lastIdx
}
