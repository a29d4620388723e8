package cfg

import "github.com/medihbt/remusys-ir-go/internal/ir"

// DominatorTree answers dominates(a, b) / idom(b) queries over one
// function's CFG, and exposes each node's children in the tree.
//
// Built with the iterative Cooper-Harvey-Kennedy algorithm over a
// reverse-postorder numbering: it is O(n log n)-ish in practice on real
// CFGs, needs no auxiliary union-find/forest structures, and composes
// directly with the DfsSeq this package already builds. Recorded as an
// Open Question decision in DESIGN.md.
type DominatorTree struct {
	seq      *DfsSeq
	idom     []uint // idom[i] = dfs index of immediate dominator, or NullParent for the root
	children [][]uint
}

// BuildDominatorTree computes the dominator tree of fn's CFG, rooted at
// its entry block. Returns an error if fn is extern.
func BuildDominatorTree(allocs *ir.IRAllocs, fn ir.FuncID) (*DominatorTree, error) {
	seq, err := NewDfsSeq(allocs, fn, RevPost)
	if err != nil {
		return nil, err
	}
	// seq is reverse-postorder; node 0 is the entry (it has no predecessors
	// among reachable nodes, so it's always first).
	preds := make([][]uint, len(seq.Nodes))
	for i, node := range seq.Nodes {
		for _, succBlock := range successors(allocs, node.Block) {
			succIdx, ok := seq.TryBlockDfn(succBlock)
			if !ok {
				continue
			}
			preds[succIdx] = append(preds[succIdx], uint(i))
		}
	}

	idom := make([]uint, len(seq.Nodes))
	for i := range idom {
		idom[i] = NullParent
	}
	idom[0] = 0 // entry dominates itself; sentinel, never read as "undefined"
	changed := true
	for changed {
		changed = false
		for i := 1; i < len(seq.Nodes); i++ {
			var newIdom uint
			found := false
			for _, p := range preds[i] {
				if idom[p] == NullParent && p != 0 {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(idom, newIdom, p)
			}
			if !found {
				continue
			}
			if idom[i] != newIdom {
				idom[i] = newIdom
				changed = true
			}
		}
	}
	idom[0] = NullParent

	children := make([][]uint, len(seq.Nodes))
	for i := 1; i < len(seq.Nodes); i++ {
		if idom[i] != NullParent {
			children[idom[i]] = append(children[idom[i]], uint(i))
		}
	}

	return &DominatorTree{seq: seq, idom: idom, children: children}, nil
}

// intersect walks two dominator-chain candidates up to their common
// ancestor in reverse-postorder index space (Cooper/Harvey/Kennedy's
// "finger" algorithm).
func intersect(idom []uint, a, b uint) uint {
	for a != b {
		for a > b {
			a = idom[a]
		}
		for b > a {
			b = idom[b]
		}
	}
	return a
}

// Idom returns b's immediate dominator block, or NullBlockID if b is the
// entry or unreachable.
func (t *DominatorTree) Idom(b ir.BlockID) (ir.BlockID, bool) {
	idx, ok := t.seq.TryBlockDfn(b)
	if !ok || t.idom[idx] == NullParent {
		return ir.NullBlockID, false
	}
	return t.seq.Nodes[t.idom[idx]].Block, true
}

// Children returns b's immediate dominator-tree children.
func (t *DominatorTree) Children(b ir.BlockID) []ir.BlockID {
	idx, ok := t.seq.TryBlockDfn(b)
	if !ok {
		return nil
	}
	out := make([]ir.BlockID, 0, len(t.children[idx]))
	for _, c := range t.children[idx] {
		out = append(out, t.seq.Nodes[c].Block)
	}
	return out
}

// Dominates reports whether a dominates b (every path from the entry to b
// passes through a; a dominates itself).
func (t *DominatorTree) Dominates(a, b ir.BlockID) bool {
	ai, aok := t.seq.TryBlockDfn(a)
	bi, bok := t.seq.TryBlockDfn(b)
	if !aok || !bok {
		return false
	}
	for bi != ai {
		if t.idom[bi] == NullParent {
			return false
		}
		bi = t.idom[bi]
	}
	return true
}

// Seq exposes the underlying reverse-postorder DFS sequence so callers
// (e.g. renaming passes) can iterate blocks in dominator-tree preorder
// compatible order without recomputing it.
func (t *DominatorTree) Seq() *DfsSeq { return t.seq }
