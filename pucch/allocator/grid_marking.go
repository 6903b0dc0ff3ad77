package allocator

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/grid"
)

// markGrid fills one rectangle per hop of r on g, widened by guardPRBs on
// each side and clamped to bwp's CRB interval (§4.3.5). Widening never
// changes the PRB interval reported in an emitted PDU — only the rectangle
// painted on the grid.
func markGrid(g grid.Grid, r pucch.Resource, bwp pucch.BWPRef, guardPRBs uint16) {
	if g == nil {
		return
	}
	forEachHop(r, bwp, guardPRBs, g.Fill)
}

// unmarkGrid is markGrid's inverse, used by RemoveUEUCI.
func unmarkGrid(g grid.Grid, r pucch.Resource, bwp pucch.BWPRef, guardPRBs uint16) {
	if g == nil {
		return
	}
	forEachHop(r, bwp, guardPRBs, g.Clear)
}

// gridCollides reports whether any hop of r, widened the same way markGrid
// would widen it, collides with an existing grant on g. A nil grid never
// collides (tests that only exercise resource bookkeeping may omit one).
func gridCollides(g grid.Grid, r pucch.Resource, bwp pucch.BWPRef, guardPRBs uint16) bool {
	if g == nil {
		return false
	}
	collided := false
	forEachHop(r, bwp, guardPRBs, func(symbols ran.SymbolInterval, prb ran.PRBInterval) {
		if g.Collides(symbols, prb) {
			collided = true
		}
	})
	return collided
}

func forEachHop(r pucch.Resource, bwp pucch.BWPRef, guardPRBs uint16, fn func(ran.SymbolInterval, ran.PRBInterval)) {
	bwpInterval := bwp.CRBInterval()
	symbols := r.Symbols()
	fn(symbols, r.FirstHop().Widen(guardPRBs, bwpInterval))
	if second, ok := r.SecondHop(); ok {
		fn(symbols, second.Widen(guardPRBs, bwpInterval))
	}
}
