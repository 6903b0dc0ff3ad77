package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"
)

// newTestAllocator builds a 52-PRB, 15 kHz, pucch_resource_common=11 cell
// (the literal inputs spec.md §8's S1-S6 scenarios are stated against), with
// the given dedicated resources added to the pool.
func newTestAllocator(t *testing.T, dedicated []pucch.Resource, maxGrantsPerSlot int) (*Allocator, *resourcemgr.Manager) {
	t.Helper()
	const ringSize = 64
	cm, err := collision.New(11, 52, dedicated, ringSize)
	require.NoError(t, err)
	rm, err := resourcemgr.NewManager(cm, ringSize)
	require.NoError(t, err)

	bwp := pucch.BWPRef{SCS: ran.Numerology15kHz, CRBStart: 0, CRBCount: 52}
	cell, err := pucch.NewCellConfiguration(1, bwp, 11, 0, maxGrantsPerSlot, dedicated)
	require.NoError(t, err)

	a, err := New(cell, rm, ringSize)
	require.NoError(t, err)
	return a, rm
}

func testSlot(t *testing.T, idx uint32) ran.Slot {
	t.Helper()
	slot, err := ran.NewSlot(ran.Numerology15kHz, idx)
	require.NoError(t, err)
	return slot
}

func testBWP() pucch.BWPRef {
	return pucch.BWPRef{SCS: ran.Numerology15kHz, CRBStart: 0, CRBCount: 52}
}

// resolverFor adapts the Resource Manager's resource info lookup to the
// plain ResourceResolver the pucch package's UE-config validation expects.
func resolverFor(rm *resourcemgr.Manager) pucch.ResourceResolver {
	return func(id pucch.ResourceID) (pucch.Resource, bool) {
		info, ok := rm.ResourceInfo(id)
		if !ok {
			return pucch.Resource{}, false
		}
		return info.Resource, true
	}
}

func TestAllocator_S1_CommonOnlyHARQ(t *testing.T) {
	a, _ := newTestAllocator(t, nil, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()
	g := grid.NewBitmap(52)

	delta, ok := a.AllocCommonHARQ(slot, ran.RNTI(0x4601), DCIContext{NCCE: 0, NofCCE: 4}, bwp, 0, g)
	require.True(t, ok)
	require.EqualValues(t, 0, delta)

	grants := a.ueGrants(slot, ran.RNTI(0x4601))
	require.NotNil(t, grants.HARQ)
	require.Equal(t, pucch.Format1, grants.HARQ.Format)
	require.EqualValues(t, 1, grants.HARQ.UCI.HARQBits)
	require.False(t, grants.HARQ.UCI.SR)

	info, ok := a.rm.ResourceInfo(grants.HARQ.ResourceID)
	require.True(t, ok)
	require.EqualValues(t, 0, info.Resource.StartPRB)
	require.EqualValues(t, 1, info.Resource.PRBLength)
	require.NotNil(t, info.Resource.SecondHopPRB)
	require.EqualValues(t, 51, *info.Resource.SecondHopPRB)
	require.EqualValues(t, 0, info.Resource.StartSymbol)
	require.EqualValues(t, 14, info.Resource.NumSymbols)
	require.EqualValues(t, 0, info.Resource.Params.InitialCyclicShift)
}

func TestAllocator_S2_SROnly(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14}, // id 16
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	srID := pucch.ResourceID(16)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{0}, nil, &srID, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	ok := a.AllocateSR(slot, cfg.RNTI, cfg, bwp, 0, nil)
	require.True(t, ok)

	grants := a.ueGrants(slot, cfg.RNTI)
	require.NotNil(t, grants.SR)
	require.EqualValues(t, 1, grants.SR.UCI.Total())
	require.True(t, grants.SR.UCI.SR)
	require.EqualValues(t, 0, grants.SR.UCI.HARQBits)
}

func TestAllocator_S3_SRThenHARQFormat1(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14}, // id 16: HARQ set-0
		{Format: pucch.Format1, StartPRB: 2, PRBLength: 1, StartSymbol: 0, NumSymbols: 14}, // id 17: SR
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	harqID := pucch.ResourceID(16)
	srID := pucch.ResourceID(17)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{harqID}, nil, &srID, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	require.True(t, a.AllocateSR(slot, cfg.RNTI, cfg, bwp, 0, nil))

	indicator, ok := a.AllocDedHARQ(slot, cfg.RNTI, cfg, 1, bwp, 0, nil)
	require.True(t, ok)
	require.EqualValues(t, 0, indicator)

	grants := a.ueGrants(slot, cfg.RNTI)
	require.NotNil(t, grants.SR)
	require.NotNil(t, grants.HARQ)
	require.EqualValues(t, 1, grants.SR.UCI.HARQBits, "SR PDU must carry the merged HARQ bit")
	require.True(t, grants.SR.UCI.SR)
	require.EqualValues(t, 1, grants.HARQ.UCI.HARQBits)
	require.False(t, grants.HARQ.UCI.SR)
}

func TestAllocator_S6_RollbackOnCapacity(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14},
	}
	a, rm := newTestAllocator(t, dedicated, 1)
	slot := testSlot(t, 0)
	bwp := testBWP()

	harqID := pucch.ResourceID(16)
	makeCfg := func(rnti ran.RNTI) *pucch.UECellConfiguration {
		c, err := pucch.NewUECellConfiguration(rnti, []pucch.ResourceID{harqID}, nil, nil, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
		require.NoError(t, err)
		return c
	}

	first := makeCfg(0x4601)
	_, ok := a.AllocDedHARQ(slot, first.RNTI, first, 1, bwp, 0, nil)
	require.True(t, ok)

	second := makeCfg(0x4602)
	_, ok = a.AllocDedHARQ(slot, second.RNTI, second, 1, bwp, 0, nil)
	require.False(t, ok, "per-slot capacity limit must refuse the second UE")

	_, present := a.entry(slot)[second.RNTI]
	require.False(t, present, "a refused UE must leave no grant record behind")

	firstGrants := a.ueGrants(slot, first.RNTI)
	require.NotNil(t, firstGrants.HARQ, "the first UE's reservation must remain intact")
	require.EqualValues(t, harqID, firstGrants.HARQ.ResourceID)
}

func TestAllocator_RemoveThenRealloc(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14},
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()
	g := grid.NewBitmap(52)

	harqID := pucch.ResourceID(16)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{harqID}, nil, nil, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	_, ok := a.AllocDedHARQ(slot, cfg.RNTI, cfg, 1, bwp, 0, g)
	require.True(t, ok)

	a.RemoveUEUCI(slot, cfg.RNTI, bwp, 0, g)
	_, present := a.entry(slot)[cfg.RNTI]
	require.False(t, present)

	indicator, ok := a.AllocDedHARQ(slot, cfg.RNTI, cfg, 1, bwp, 0, g)
	require.True(t, ok, "a subsequent allocation for the same UE/slot must succeed exactly as the first did")
	require.EqualValues(t, 0, indicator)
}

func TestAllocator_SRThenCSI_MergesOntoCSIResource(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format2, StartPRB: 10, PRBLength: 1, StartSymbol: 0, NumSymbols: 2, Params: pucch.FormatParams{MaxPRBs: 4}}, // id 16: CSI
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14},                                         // id 17: SR
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	csiID := pucch.ResourceID(16)
	srID := pucch.ResourceID(17)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{0}, nil, &srID, &csiID, 7, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	require.True(t, a.AllocateSR(slot, cfg.RNTI, cfg, bwp, 0, nil))
	require.True(t, a.AllocateCSI(slot, cfg.RNTI, cfg, 4, bwp, 0, nil))
	grants := a.ueGrants(slot, cfg.RNTI)
	require.Nil(t, grants.SR, "SR must no longer stand alone once it merges onto the CSI resource")
	require.NotNil(t, grants.CSI)
	require.Equal(t, csiID, grants.CSI.ResourceID)
	require.EqualValues(t, 4, grants.CSI.UCI.CSIBits)
	require.True(t, grants.CSI.UCI.SR)
}

func TestAllocator_S4_HARQBitGrowthMovesSetOToSet1(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format2, StartPRB: 10, PRBLength: 1, StartSymbol: 0, NumSymbols: 2, Params: pucch.FormatParams{MaxPRBs: 4}}, // id 16: set-0
		{Format: pucch.Format2, StartPRB: 20, PRBLength: 1, StartSymbol: 0, NumSymbols: 2, Params: pucch.FormatParams{MaxPRBs: 4}}, // id 17: set-1
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	set0ID := pucch.ResourceID(16)
	set1ID := pucch.ResourceID(17)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{set0ID}, []pucch.ResourceID{set1ID}, nil, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	_, ok := a.AllocDedHARQ(slot, cfg.RNTI, cfg, 2, bwp, 0, nil)
	require.True(t, ok)
	grants := a.ueGrants(slot, cfg.RNTI)
	require.Equal(t, set0ID, grants.HARQ.ResourceID, "2 HARQ bits must still land in set-0")

	_, ok = a.AllocDedHARQ(slot, cfg.RNTI, cfg, 3, bwp, 0, nil)
	require.True(t, ok)
	grants = a.ueGrants(slot, cfg.RNTI)
	require.Equal(t, pucch.Format2, grants.HARQ.Format)
	require.Equal(t, set1ID, grants.HARQ.ResourceID, "raising bits past 2 must move the grant to set-1")
	require.EqualValues(t, 3, grants.HARQ.UCI.HARQBits)

	info, ok := rm.ResourceInfo(grants.HARQ.ResourceID)
	require.True(t, ok)
	_, rate, fits := recomputeGeometry(info, grants.HARQ.UCI, commonParamsFor(cfg, pucch.Format2))
	require.True(t, fits)
	require.LessOrEqual(t, rate, 0.80)

	// The set-0 resource must have been released back to the pool: a second
	// UE can now take it.
	other, err := pucch.NewUECellConfiguration(0x4602, []pucch.ResourceID{set0ID}, nil, nil, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)
	_, ok = a.AllocDedHARQ(slot, other.RNTI, other, 1, bwp, 0, nil)
	require.True(t, ok, "the original UE's set-0 resource must be free once its grant moved to set-1")
}

func TestAllocator_S5_HARQPlusCSIMergesOntoSet1(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format2, StartPRB: 10, PRBLength: 1, StartSymbol: 0, NumSymbols: 2, Params: pucch.FormatParams{MaxPRBs: 4}}, // id 16: CSI
		{Format: pucch.Format2, StartPRB: 20, PRBLength: 1, StartSymbol: 0, NumSymbols: 2, Params: pucch.FormatParams{MaxPRBs: 4}}, // id 17: HARQ set-1
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	csiID := pucch.ResourceID(16)
	set1ID := pucch.ResourceID(17)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{0}, []pucch.ResourceID{set1ID}, nil, &csiID, 7, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	require.True(t, a.AllocateCSI(slot, cfg.RNTI, cfg, 4, bwp, 0, nil))
	grants := a.ueGrants(slot, cfg.RNTI)
	require.NotNil(t, grants.CSI)
	require.EqualValues(t, 4, grants.CSI.UCI.CSIBits)

	_, ok := a.AllocDedHARQ(slot, cfg.RNTI, cfg, 1, bwp, 0, nil)
	require.True(t, ok)

	grants = a.ueGrants(slot, cfg.RNTI)
	require.Nil(t, grants.CSI, "CSI must no longer stand alone once HARQ merges onto the set-1 resource")
	require.NotNil(t, grants.HARQ)
	require.Equal(t, set1ID, grants.HARQ.ResourceID)
	require.EqualValues(t, 1, grants.HARQ.UCI.HARQBits)
	require.EqualValues(t, 4, grants.HARQ.UCI.CSIBits)
	require.False(t, grants.HARQ.UCI.SR)

	// The original CSI-only resource must have been released.
	other, err := pucch.NewUECellConfiguration(0x4602, []pucch.ResourceID{0}, nil, nil, &csiID, 7, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)
	require.True(t, a.AllocateCSI(slot, other.RNTI, other, 4, bwp, 0, nil), "the first UE's CSI resource must be free once it merged onto set-1")
	_ = rm
}

func TestAllocator_Idempotent_SRReserve(t *testing.T) {
	dedicated := []pucch.Resource{
		{Format: pucch.Format1, StartPRB: 1, PRBLength: 1, StartSymbol: 0, NumSymbols: 14},
	}
	a, rm := newTestAllocator(t, dedicated, 8)
	slot := testSlot(t, 0)
	bwp := testBWP()

	srID := pucch.ResourceID(16)
	cfg, err := pucch.NewUECellConfiguration(0x4601, []pucch.ResourceID{0}, nil, &srID, nil, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolverFor(rm))
	require.NoError(t, err)

	require.True(t, a.AllocateSR(slot, cfg.RNTI, cfg, bwp, 0, nil))
	first := a.ueGrants(slot, cfg.RNTI).SR.ResourceID
	require.True(t, a.AllocateSR(slot, cfg.RNTI, cfg, bwp, 0, nil))
	second := a.ueGrants(slot, cfg.RNTI).SR.ResourceID
	require.Equal(t, first, second, "repeated SR reservation for the same (slot, rnti) must not produce a second grant")
}
