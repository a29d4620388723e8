package cfg

import "github.com/medihbt/remusys-ir-go/internal/ir"

// DominanceFrontier is the standard per-block dominance-frontier set,
// computed from a DominatorTree plus the raw CFG edges: for every block
// with 2+ predecessors, walk each predecessor's dominator chain up to
// (but not including) the block's own idom, adding the block to each
// visited node's frontier.
type DominanceFrontier struct {
	byBlock map[ir.BlockID][]ir.BlockID
}

func NewDominanceFrontier(dom *DominatorTree, allocs *ir.IRAllocs) *DominanceFrontier {
	df := &DominanceFrontier{byBlock: map[ir.BlockID][]ir.BlockID{}}
	seen := map[ir.BlockID]map[ir.BlockID]bool{}
	add := func(of, member ir.BlockID) {
		if seen[of] == nil {
			seen[of] = map[ir.BlockID]bool{}
		}
		if seen[of][member] {
			return
		}
		seen[of][member] = true
		df.byBlock[of] = append(df.byBlock[of], member)
	}

	for _, node := range dom.seq.Nodes {
		b := node.Block
		preds := predecessors(allocs, b)
		if len(preds) < 2 {
			continue
		}
		idomB, hasIdom := dom.Idom(b)
		for _, p := range preds {
			runner := p
			for {
				if hasIdom && runner == idomB {
					break
				}
				if !hasIdom && !dom.seq.BlockReachable(runner) {
					break
				}
				add(runner, b)
				next, ok := dom.Idom(runner)
				if !ok {
					break
				}
				runner = next
			}
		}
	}
	return df
}

// Of returns b's dominance frontier set.
func (df *DominanceFrontier) Of(b ir.BlockID) []ir.BlockID { return df.byBlock[b] }

// IteratedFrontier computes DF+(S): the dominance frontier closure of a
// set of definition blocks, the standard input to phi placement in an
// SSA-construction pass.
func (df *DominanceFrontier) IteratedFrontier(defs []ir.BlockID) []ir.BlockID {
	inSet := map[ir.BlockID]bool{}
	var out []ir.BlockID
	worklist := append([]ir.BlockID{}, defs...)
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, f := range df.byBlock[b] {
			if !inSet[f] {
				inSet[f] = true
				out = append(out, f)
				worklist = append(worklist, f)
			}
		}
	}
	return out
}
