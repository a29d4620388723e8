// Package transform implements mutating passes over a function's IR:
// dead-code elimination and a mem2reg promoter, both parameterized by an
// InstOrdering capability so dominance-adjacent queries ("does A come
// before B in this block?") aren't hardwired to one strategy.
package transform

import "github.com/medihbt/remusys-ir-go/internal/ir"

// InstOrdering answers "does a occur before b?" within their shared block,
// and is notified of every block mutation so a caching implementation can
// invalidate stale positions. Passes call the On*/Invalidate hooks
// themselves immediately after mutating a block; nothing in package ir
// calls them automatically.
type InstOrdering interface {
	Precedes(allocs *ir.IRAllocs, block ir.BlockID, a, b ir.InstID) bool
	OnInstInsert(block ir.BlockID, inserted ir.InstID)
	OnInstRemove(block ir.BlockID, removed ir.InstID)
	OnInstReplace(block ir.BlockID, old, new ir.InstID)
	InvalidateBlock(block ir.BlockID)
}

// LinearOrdering answers Precedes by walking the block's instruction list
// from the head each time. No state, so every hook is a no-op; correct
// under any mutation sequence but O(n) per query.
type LinearOrdering struct{}

func (LinearOrdering) Precedes(allocs *ir.IRAllocs, block ir.BlockID, a, b ir.InstID) bool {
	bb := allocs.Blocks.TryDeref(block.H)
	if bb == nil {
		return false
	}
	for _, id := range bb.Insts.ToSlice() {
		if id == a {
			return true
		}
		if id == b {
			return false
		}
	}
	return false
}

func (LinearOrdering) OnInstInsert(ir.BlockID, ir.InstID)         {}
func (LinearOrdering) OnInstRemove(ir.BlockID, ir.InstID)         {}
func (LinearOrdering) OnInstReplace(ir.BlockID, ir.InstID, ir.InstID) {}
func (LinearOrdering) InvalidateBlock(ir.BlockID)                 {}

// CachedOrdering memoizes each block's instruction positions the first
// time it's queried, and drops a block's cache whenever told the block
// changed rather than trying to patch positions incrementally -- simpler,
// and a full rebuild is still only O(block size).
type CachedOrdering struct {
	positions map[ir.BlockID]map[ir.InstID]int
}

func NewCachedOrdering() *CachedOrdering {
	return &CachedOrdering{positions: map[ir.BlockID]map[ir.InstID]int{}}
}

func (c *CachedOrdering) ensure(allocs *ir.IRAllocs, block ir.BlockID) map[ir.InstID]int {
	if pos, ok := c.positions[block]; ok {
		return pos
	}
	pos := map[ir.InstID]int{}
	if bb := allocs.Blocks.TryDeref(block.H); bb != nil {
		for i, id := range bb.Insts.ToSlice() {
			pos[id] = i
		}
	}
	c.positions[block] = pos
	return pos
}

func (c *CachedOrdering) Precedes(allocs *ir.IRAllocs, block ir.BlockID, a, b ir.InstID) bool {
	pos := c.ensure(allocs, block)
	pa, aok := pos[a]
	pb, bok := pos[b]
	if !aok || !bok {
		return false
	}
	return pa < pb
}

func (c *CachedOrdering) OnInstInsert(block ir.BlockID, _ ir.InstID)          { c.InvalidateBlock(block) }
func (c *CachedOrdering) OnInstRemove(block ir.BlockID, _ ir.InstID)          { c.InvalidateBlock(block) }
func (c *CachedOrdering) OnInstReplace(block ir.BlockID, _, _ ir.InstID)      { c.InvalidateBlock(block) }
func (c *CachedOrdering) InvalidateBlock(block ir.BlockID)                   { delete(c.positions, block) }
