package allocator

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/grid"
)

// AllocCommonHARQ implements alloc_common_harq (§4.3): picks a common
// resource via the Δ_PRI search, marks the grid, and records the grant
// against tcRNTI. Used during Random Access, before a UE has any dedicated
// PUCCH configuration.
func (a *Allocator) AllocCommonHARQ(slot ran.Slot, tcRNTI ran.RNTI, dci DCIContext, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) (uint8, bool) {
	if !a.capacityAvailable(slot, tcRNTI) {
		a.logRefusal(pucch.KindCapacityReached, slot, tcRNTI, "per-slot grant limit reached")
		return 0, false
	}
	id, delta, ok := deltaPRISearch(a.rm, slot, bwp, guardPRBs, gr, dci)
	if !ok {
		a.logRefusal(pucch.KindResourceBusy, slot, tcRNTI, "no free common resource")
		return 0, false
	}
	info, _ := a.rm.ResourceInfo(id)
	if gr != nil {
		markGrid(gr, info.Resource, bwp, guardPRBs)
	}
	grants := a.ueGrants(slot, tcRNTI)
	g := pucch.Grant{Kind: pucch.GrantHARQ, ResourceID: id, Format: info.Format, Symbols: info.Symbols(), UCI: pucch.UCIBits{HARQBits: 1}}
	grants.HARQ = &g
	if a.metrics != nil {
		a.metrics.ObserveGrant("harq")
		a.metrics.ObserveDeltaPRI(int(delta))
	}
	return delta, true
}

// AllocCommonAndDedHARQ implements alloc_common_and_ded_harq (§4.3): the
// combined RA-completion path, which needs a single Δ_PRI whose common
// resource r_PUCCH and whose dedicated set-0 entry at indicator Δ_PRI are
// both free and mutually collision-free.
func (a *Allocator) AllocCommonAndDedHARQ(slot ran.Slot, rnti ran.RNTI, ueCfg *pucch.UECellConfiguration, dci DCIContext, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) (uint8, bool) {
	if !a.capacityAvailable(slot, rnti) {
		a.logRefusal(pucch.KindCapacityReached, slot, rnti, "per-slot grant limit reached")
		return 0, false
	}
	if dci.NofCCE == 0 {
		a.logRefusal(pucch.KindResourceBusy, slot, rnti, "invalid DCI context")
		return 0, false
	}

	for delta := uint8(0); delta <= maxDeltaPRI; delta++ {
		if int(delta) >= len(ueCfg.HARQSet0) {
			continue
		}
		rPUCCH := defaultResourceIndexOf(dci.NCCE, dci.NofCCE, delta)
		if rPUCCH >= numCommonResources {
			continue
		}
		commonID := pucch.ResourceID(rPUCCH)
		if !a.rm.IsCommonFree(slot, commonID) {
			continue
		}
		commonInfo, ok := a.rm.ResourceInfo(commonID)
		if !ok {
			continue
		}
		dedicatedID := ueCfg.HARQSet0[delta]
		dedicatedInfo, ok := a.rm.ResourceInfo(dedicatedID)
		if !ok {
			continue
		}
		if gridCollides(gr, commonInfo.Resource, bwp, guardPRBs) || gridCollides(gr, dedicatedInfo.Resource, bwp, guardPRBs) {
			continue
		}
		if !a.rm.ReserveCommon(slot, commonID) {
			continue
		}
		guard := a.rm.NewGuard(slot, rnti, ueCfg)
		dedID, reserved := guard.ReserveHARQByIndicator(0, delta)
		if !reserved {
			a.rm.FreeCommon(slot, commonID)
			guard.Close()
			continue
		}
		if gr != nil {
			markGrid(gr, commonInfo.Resource, bwp, guardPRBs)
			markGrid(gr, dedicatedInfo.Resource, bwp, guardPRBs)
		}
		_ = guard.Commit()

		grants := a.ueGrants(slot, rnti)
		g := pucch.Grant{Kind: pucch.GrantHARQ, ResourceID: dedID, Format: dedicatedInfo.Format, Symbols: dedicatedInfo.Symbols(), UCI: pucch.UCIBits{HARQBits: 1}}
		g = g.WithHARQPosition(0, delta)
		grants.HARQ = &g
		grants.HasCommonHARQ = true
		grants.CommonHARQResourceID = commonID

		if a.metrics != nil {
			a.metrics.ObserveGrant("harq")
			a.metrics.ObserveDeltaPRI(int(delta))
		}
		return delta, true
	}

	a.logRefusal(pucch.KindResourceBusy, slot, rnti, "no Δ_PRI with both common and dedicated resource free")
	return 0, false
}

// AllocDedHARQ implements alloc_ded_harq (§4.3): installs a HARQ-ACK grant
// carrying harqBits bits, or multiplexes it in with whatever the UE already
// holds this slot. harqBits is the UE's whole HARQ-ACK bit count for the
// slot, not an increment: it does not add to the count of a HARQ grant the
// UE already holds.
func (a *Allocator) AllocDedHARQ(slot ran.Slot, rnti ran.RNTI, ueCfg *pucch.UECellConfiguration, harqBits uint16, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) (uint8, bool) {
	if !a.capacityAvailable(slot, rnti) {
		a.logRefusal(pucch.KindCapacityReached, slot, rnti, "per-slot grant limit reached")
		return 0, false
	}
	grants := a.ueGrants(slot, rnti)
	res := a.reconcile(slot, ueCfg, bwp, guardPRBs, gr, grants, pucch.GrantHARQ, pucch.UCIBits{HARQBits: harqBits})
	if !res.ok {
		a.logRefusal(res.kind, slot, rnti, res.reason)
		return 0, false
	}
	return res.indicator, true
}

// AllocateSR implements pucch_allocate_sr (§4.3): installs an SR-only
// grant, or folds an SR bit into whatever else the UE already holds.
func (a *Allocator) AllocateSR(slot ran.Slot, rnti ran.RNTI, ueCfg *pucch.UECellConfiguration, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) bool {
	if !a.capacityAvailable(slot, rnti) {
		a.logRefusal(pucch.KindCapacityReached, slot, rnti, "per-slot grant limit reached")
		return false
	}
	grants := a.ueGrants(slot, rnti)
	res := a.reconcile(slot, ueCfg, bwp, guardPRBs, gr, grants, pucch.GrantSR, pucch.UCIBits{SR: true})
	if !res.ok {
		a.logRefusal(res.kind, slot, rnti, res.reason)
		return false
	}
	return true
}

// AllocateCSI implements pucch_allocate_csi (§4.3): installs a CSI grant
// carrying csiBits of CSI Part 1, or folds it into whatever else the UE
// already holds.
func (a *Allocator) AllocateCSI(slot ran.Slot, rnti ran.RNTI, ueCfg *pucch.UECellConfiguration, csiBits uint16, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) bool {
	if !a.capacityAvailable(slot, rnti) {
		a.logRefusal(pucch.KindCapacityReached, slot, rnti, "per-slot grant limit reached")
		return false
	}
	grants := a.ueGrants(slot, rnti)
	res := a.reconcile(slot, ueCfg, bwp, guardPRBs, gr, grants, pucch.GrantCSI, pucch.UCIBits{CSIBits: csiBits})
	if !res.ok {
		a.logRefusal(res.kind, slot, rnti, res.reason)
		return false
	}
	return true
}
