package allocator

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"
)

const maxDeltaPRI = 7
const numCommonResources = 16

// DCIContext carries the scheduling-DCI fields the Δ_PRI search needs: the
// first CCE index and the CORESET's CCE count.
type DCIContext struct {
	NCCE   uint32
	NofCCE uint32
}

// deltaPRISearch implements §4.3.1: for Δ_PRI = 0..7, compute r_PUCCH, skip
// candidates already taken or out of range, and prefer the smallest Δ_PRI
// whose candidate doesn't collide on the uplink grid; fall back to the
// smallest merely-free one if no collision-free candidate exists
// (testable property 7, Δ_PRI monotonicity).
func deltaPRISearch(
	rm *resourcemgr.Manager,
	slot ran.Slot,
	bwp pucch.BWPRef,
	guardPRBs uint16,
	gr grid.Grid,
	dci DCIContext,
) (pucch.ResourceID, uint8, bool) {
	if dci.NofCCE == 0 {
		return 0, 0, false
	}

	type candidate struct {
		deltaPRI uint8
		id       pucch.ResourceID
	}
	var free []candidate

	for delta := uint8(0); delta <= maxDeltaPRI; delta++ {
		rPUCCH := defaultResourceIndexOf(dci.NCCE, dci.NofCCE, delta)
		if rPUCCH >= numCommonResources {
			continue
		}
		id := pucch.ResourceID(rPUCCH)
		if !rm.IsCommonFree(slot, id) {
			continue
		}
		free = append(free, candidate{deltaPRI: delta, id: id})
	}

	for _, c := range free {
		info, ok := rm.ResourceInfo(c.id)
		if !ok || gridCollides(gr, info.Resource, bwp, guardPRBs) {
			continue
		}
		if rm.ReserveCommon(slot, c.id) {
			return c.id, c.deltaPRI, true
		}
	}
	for _, c := range free {
		if rm.ReserveCommon(slot, c.id) {
			return c.id, c.deltaPRI, true
		}
	}
	return 0, 0, false
}

// defaultResourceIndexOf mirrors collision.defaultResourceIndex (unexported
// in that package) so the allocator can evaluate Δ_PRI candidates without
// exposing common-resource table internals outside the collision package.
func defaultResourceIndexOf(nCCE, nofCCE uint32, deltaPRI uint8) uint32 {
	return (2*nCCE)/nofCCE + 2*uint32(deltaPRI)
}
