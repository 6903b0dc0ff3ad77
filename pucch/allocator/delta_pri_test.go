package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"
)

// TestDeltaPRISearch_Monotonicity exercises testable property 7: the search
// returns the smallest Δ_PRI whose candidate is collision-free, skipping
// over an already-reserved r_PUCCH along the way.
func TestDeltaPRISearch_Monotonicity(t *testing.T) {
	cm, err := collision.New(11, 52, nil, 64)
	require.NoError(t, err)
	rm, err := resourcemgr.NewManager(cm, 64)
	require.NoError(t, err)

	slot := testSlot(t, 0)
	bwp := testBWP()

	// n_CCE=0, N_CCE=4 -> r_PUCCH = 2*delta for each delta. Reserve r_PUCCH=0
	// (delta=0) out from under the search so it must fall through to delta=1.
	require.True(t, rm.ReserveCommon(slot, 0))

	id, delta, ok := deltaPRISearch(rm, slot, bwp, 0, grid.NewBitmap(52), DCIContext{NCCE: 0, NofCCE: 4})
	require.True(t, ok)
	require.EqualValues(t, 1, delta)
	require.EqualValues(t, 2, id)
}

// TestDeltaPRISearch_FallsBackToGridBusyWhenNoCollisionFreeCandidate covers
// the §4.3.1 step-4 fallback: when every collision-free candidate is
// exhausted by the grid, the search still returns the smallest merely-free
// one rather than failing outright.
func TestDeltaPRISearch_FallsBackToGridBusyWhenNoCollisionFreeCandidate(t *testing.T) {
	cm, err := collision.New(11, 52, nil, 64)
	require.NoError(t, err)
	rm, err := resourcemgr.NewManager(cm, 64)
	require.NoError(t, err)

	slot := testSlot(t, 0)
	bwp := testBWP()

	g := grid.NewBitmap(52)
	for delta := uint8(0); delta <= maxDeltaPRI; delta++ {
		rPUCCH := defaultResourceIndexOf(0, 4, delta)
		if rPUCCH >= numCommonResources {
			continue
		}
		info, ok := rm.ResourceInfo(pucch.ResourceID(rPUCCH))
		require.True(t, ok)
		markGrid(g, info.Resource, bwp, 0)
	}

	id, delta, ok := deltaPRISearch(rm, slot, bwp, 0, g, DCIContext{NCCE: 0, NofCCE: 4})
	require.True(t, ok, "must still succeed via the free-but-colliding fallback")
	require.EqualValues(t, 0, delta)
	require.EqualValues(t, 0, id)
}
