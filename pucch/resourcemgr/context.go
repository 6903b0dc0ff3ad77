package resourcemgr

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
)

// ueContext is the per-UE bookkeeping a slot entry keeps: which HARQ-set
// positions and whether the SR/CSI resources the UE's guards have taken.
// Guards write it and ClearUEContext drops it; nothing reads it back.
// Repeated SR/CSI requests are answered idempotently from the slot entry's
// resource-owner map instead. Grounded on original_source/lib/scheduler/pucch_scheduling/pucch_resource_manager.cpp's
// per-UE ue_context.
type ueContext struct {
	harqIndicator [2]uint8
	harqTaken     [2]bool

	srTaken  bool
	csiTaken bool
}

// slotEntry is one ring entry: the Resource Manager's per-slot reservation
// map (§3 "two arrays keyed by cell-level resource index"), collapsed into
// a single owner map since a dedicated resource's owner already encodes
// "free" as absence, and a common resource's owner is always the synthetic
// commonPoolOwner sentinel.
type slotEntry struct {
	owner map[pucch.ResourceID]ran.RNTI
	ue    map[ran.RNTI]*ueContext
}

// commonPoolOwner marks a common resource as reserved by "the cell pool"
// rather than any specific RNTI.
const commonPoolOwner ran.RNTI = 0

func newSlotEntry() slotEntry {
	return slotEntry{
		owner: make(map[pucch.ResourceID]ran.RNTI),
		ue:    make(map[ran.RNTI]*ueContext),
	}
}

func (e *slotEntry) clear() {
	for k := range e.owner {
		delete(e.owner, k)
	}
	for k := range e.ue {
		delete(e.ue, k)
	}
}

func (e *slotEntry) contextFor(rnti ran.RNTI) *ueContext {
	ctx, ok := e.ue[rnti]
	if !ok {
		ctx = &ueContext{}
		e.ue[rnti] = ctx
	}
	return ctx
}

// owns reports whether resource id is free, or already owned by rnti.
func (e *slotEntry) owns(id pucch.ResourceID, rnti ran.RNTI) (isOwner, isFree bool) {
	owner, taken := e.owner[id]
	if !taken {
		return false, true
	}
	return owner == rnti, false
}
