package resourcemgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
)

func newTestManagers(t *testing.T, dedicated []pucch.Resource) (*collision.Manager, *Manager) {
	t.Helper()
	cm, err := collision.New(11, 52, dedicated, 64)
	require.NoError(t, err)
	rm, err := NewManager(cm, 64)
	require.NoError(t, err)
	return cm, rm
}

func testSlot(t *testing.T, idx uint32) ran.Slot {
	t.Helper()
	slot, err := ran.NewSlot(ran.Numerology15kHz, idx)
	require.NoError(t, err)
	return slot
}

func ueConfig(t *testing.T, set0, set1 []pucch.ResourceID, sr, csi *pucch.ResourceID) *pucch.UECellConfiguration {
	t.Helper()
	resources := map[pucch.ResourceID]pucch.Resource{}
	for _, id := range set0 {
		resources[id] = pucch.Resource{ID: id, Format: pucch.Format1}
	}
	for _, id := range set1 {
		resources[id] = pucch.Resource{ID: id, Format: pucch.Format1}
	}
	if sr != nil {
		resources[*sr] = pucch.Resource{ID: *sr, Format: pucch.Format1}
	}
	if csi != nil {
		resources[*csi] = pucch.Resource{ID: *csi, Format: pucch.Format2}
	}
	resolve := func(id pucch.ResourceID) (pucch.Resource, bool) {
		r, ok := resources[id]
		return r, ok
	}
	cfg, err := pucch.NewUECellConfiguration(42, set0, set1, sr, csi, 0, false, nil, pucch.PUSCHDedicatedConfig{}, resolve)
	require.NoError(t, err)
	return cfg
}

func TestReservationGuard_ReserveNextHARQSetI(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	cfg := ueConfig(t, []pucch.ResourceID{2, 3, 4}, nil, nil, nil)
	slot := testSlot(t, 5)

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	defer g.Close()

	id, indicator, ok := g.ReserveNextHARQSetI(0)
	require.True(t, ok)
	require.EqualValues(t, 2, id)
	require.EqualValues(t, 0, indicator)
}

func TestReservationGuard_SkipsBusyResources(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	cfg := ueConfig(t, []pucch.ResourceID{2, 3, 4}, nil, nil, nil)
	slot := testSlot(t, 5)

	blocker := rm.NewGuard(slot, ran.RNTI(99), ueConfig(t, []pucch.ResourceID{2}, nil, nil, nil))
	id, _, ok := blocker.ReserveNextHARQSetI(0)
	require.True(t, ok)
	require.EqualValues(t, 2, id)
	require.NoError(t, blocker.Commit())

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	defer g.Close()
	id, indicator, ok := g.ReserveNextHARQSetI(0)
	require.True(t, ok)
	require.EqualValues(t, 3, id, "resource 2 is already reserved by another RNTI")
	require.EqualValues(t, 1, indicator)
}

func TestReservationGuard_Idempotence(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	sr := pucch.ResourceID(10)
	cfg := ueConfig(t, []pucch.ResourceID{2}, nil, &sr, nil)
	slot := testSlot(t, 1)

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	defer g.Close()

	id1, ok := g.ReserveSR()
	require.True(t, ok)
	id2, ok := g.ReserveSR()
	require.True(t, ok, "re-reserving the same SR resource within one guard must succeed idempotently")
	require.Equal(t, id1, id2)
}

func TestReservationGuard_CommitCollapsesHARQSet0WhenBothSetsHeld(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	cfg := ueConfig(t, []pucch.ResourceID{2}, []pucch.ResourceID{5}, nil, nil)
	slot := testSlot(t, 1)

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	_, ok := g.ReserveNextHARQSetI(0)
	require.True(t, ok)
	_, ok = g.ReserveNextHARQSetI(1)
	require.True(t, ok)

	require.NoError(t, g.Commit())

	_, hasSet0 := g.Holds(0, true)
	id1, hasSet1 := g.Holds(1, true)
	require.False(t, hasSet0, "committing with both sets held must drop set 0")
	require.True(t, hasSet1)
	require.EqualValues(t, 5, id1)
}

func TestReservationGuard_CloseRollsBackUncommittedReservations(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	cfg := ueConfig(t, []pucch.ResourceID{2}, nil, nil, nil)
	slot := testSlot(t, 1)

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	id, ok := g.ReserveNextHARQSetI(0)
	require.True(t, ok)
	require.EqualValues(t, 2, id)
	g.Close()

	other := rm.NewGuard(slot, ran.RNTI(7), ueConfig(t, []pucch.ResourceID{2}, nil, nil, nil))
	defer other.Close()
	_, ok = other.ReserveNextHARQSetI(0)
	require.True(t, ok, "an uncommitted guard's reservations must be rolled back on Close")
}

func TestManager_SlotIndicationClearsRingEntry(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	cfg := ueConfig(t, []pucch.ResourceID{2}, nil, nil, nil)
	slot := testSlot(t, 0)

	g := rm.NewGuard(slot, cfg.RNTI, cfg)
	_, ok := g.ReserveNextHARQSetI(0)
	require.True(t, ok)
	require.NoError(t, g.Commit())

	wrapped := testSlot(t, 64)
	rm.SlotIndication(wrapped)

	other := rm.NewGuard(slot, ran.RNTI(7), ueConfig(t, []pucch.ResourceID{2}, nil, nil, nil))
	defer other.Close()
	_, ok = other.ReserveNextHARQSetI(0)
	require.True(t, ok, "SlotIndication must clear the ring entry that falls out of the window")
}

func TestManager_ReserveCommon(t *testing.T) {
	_, rm := newTestManagers(t, nil)
	slot := testSlot(t, 2)

	require.True(t, rm.IsCommonFree(slot, 0))
	require.True(t, rm.ReserveCommon(slot, 0))
	require.False(t, rm.IsCommonFree(slot, 0))

	rm.FreeCommon(slot, 0)
	require.True(t, rm.IsCommonFree(slot, 0))
}
