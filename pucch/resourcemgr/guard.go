package resourcemgr

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
)

// category is the usage category a ReservationGuard accumulates reservations
// under: HARQ-set-0, HARQ-set-1, SR, CSI (§4.2 table).
type category uint8

const (
	categoryHARQSet0 category = iota
	categoryHARQSet1
	categorySR
	categoryCSI
)

// guardState is the guard's own small state machine (§4.4: "Fresh →
// {Reserving*} → Committed | RolledBack").
type guardState uint8

const (
	stateFresh guardState = iota
	stateReserving
	stateCommitted
	stateRolledBack
)

// ReservationGuard accumulates up to four resource reservations on behalf
// of one (UE, slot) context and finalizes them transactionally: Commit
// keeps everything it holds (collapsing a HARQ-set-0+set-1 double
// reservation down to set-1 alone), while Close without a prior Commit
// rolls every reservation back. Close is idempotent and safe to defer
// immediately after NewGuard, the Go idiom standing in for the
// destructor-based rollback described in §4.2.
type ReservationGuard struct {
	mgr   *Manager
	slot  ran.Slot
	rnti  ran.RNTI
	ueCfg *pucch.UECellConfiguration
	state   guardState
	taken   map[category]pucch.ResourceID
	indices map[category]uint8
}

func (g *ReservationGuard) mutable() bool {
	return g.state == stateFresh || g.state == stateReserving
}

// ReserveNextHARQSetI scans the UE's PUCCH-resource-set i for the first
// entry not yet taken on this slot (owned by nobody, or already owned by
// this UE), returning its resolved resource id and its position within the
// set (the PUCCH resource indicator). When the UE is configured for Format
// 0 + Format 2 and i == 0, the last two entries of set 0 are excluded
// because they are reserved for SR/CSI multiplexing (§4.2 table).
func (g *ReservationGuard) ReserveNextHARQSetI(setIndex uint8) (pucch.ResourceID, uint8, bool) {
	if !g.mutable() {
		return 0, 0, false
	}
	set := g.set(setIndex)
	limit := len(set)
	if setIndex == 0 && g.ueCfg.Format0Plus2 && limit >= 2 {
		limit -= 2
	}
	for i := 0; i < limit; i++ {
		if id, ok := g.tryTakeHARQ(setIndex, uint8(i), set[i]); ok {
			return id, uint8(i), true
		}
	}
	return 0, 0, false
}

// ReserveHARQByIndicator returns the dth entry of set i if it is free or
// already owned by this UE, else reports failure.
func (g *ReservationGuard) ReserveHARQByIndicator(setIndex, d uint8) (pucch.ResourceID, bool) {
	if !g.mutable() {
		return 0, false
	}
	set := g.set(setIndex)
	if int(d) >= len(set) {
		return 0, false
	}
	return g.tryTakeHARQ(setIndex, d, set[d])
}

func (g *ReservationGuard) set(setIndex uint8) []pucch.ResourceID {
	if setIndex == 0 {
		return g.ueCfg.HARQSet0
	}
	return g.ueCfg.HARQSet1
}

func (g *ReservationGuard) tryTakeHARQ(setIndex, indicator uint8, id pucch.ResourceID) (pucch.ResourceID, bool) {
	entry := g.mgr.entry(g.slot)
	isOwner, isFree := entry.owns(id, g.rnti)
	if !isFree && !isOwner {
		return 0, false
	}
	if !isOwner && !g.mgr.cm.TryReserve(g.slot, id) {
		return 0, false
	}
	entry.owner[id] = g.rnti
	cat := categoryHARQSet0
	if setIndex == 1 {
		cat = categoryHARQSet1
	}
	g.taken[cat] = id
	g.indices[cat] = indicator
	ctx := entry.contextFor(g.rnti)
	ctx.harqTaken[setIndex] = true
	ctx.harqIndicator[setIndex] = indicator
	g.state = stateReserving
	return id, true
}

// ReserveSR returns the UE's unique SR resource if free on this slot, or
// already owned by this UE (idempotence, testable property 6).
func (g *ReservationGuard) ReserveSR() (pucch.ResourceID, bool) {
	if !g.mutable() || !g.ueCfg.HasSR {
		return 0, false
	}
	id := g.ueCfg.SRResourceID
	entry := g.mgr.entry(g.slot)
	isOwner, isFree := entry.owns(id, g.rnti)
	if !isFree && !isOwner {
		return 0, false
	}
	if !isOwner && !g.mgr.cm.TryReserve(g.slot, id) {
		return 0, false
	}
	entry.owner[id] = g.rnti
	entry.contextFor(g.rnti).srTaken = true
	g.taken[categorySR] = id
	g.state = stateReserving
	return id, true
}

// ReserveCSI returns the UE's unique CSI resource if free, or already owned
// by this UE.
func (g *ReservationGuard) ReserveCSI() (pucch.ResourceID, bool) {
	if !g.mutable() || !g.ueCfg.HasCSI {
		return 0, false
	}
	id := g.ueCfg.CSIResourceID
	entry := g.mgr.entry(g.slot)
	isOwner, isFree := entry.owns(id, g.rnti)
	if !isFree && !isOwner {
		return 0, false
	}
	if !isOwner && !g.mgr.cm.TryReserve(g.slot, id) {
		return 0, false
	}
	entry.owner[id] = g.rnti
	entry.contextFor(g.rnti).csiTaken = true
	g.taken[categoryCSI] = id
	g.state = stateReserving
	return id, true
}

// PeekSR returns the UE's configured SR resource id without taking
// ownership of it.
func (g *ReservationGuard) PeekSR() (pucch.ResourceID, bool) {
	if !g.ueCfg.HasSR {
		return 0, false
	}
	return g.ueCfg.SRResourceID, true
}

// PeekCSI returns the UE's configured CSI resource id without taking
// ownership of it.
func (g *ReservationGuard) PeekCSI() (pucch.ResourceID, bool) {
	if !g.ueCfg.HasCSI {
		return 0, false
	}
	return g.ueCfg.CSIResourceID, true
}

// ReleaseHARQ releases a previously taken HARQ-set-i reservation on this
// slot.
func (g *ReservationGuard) ReleaseHARQ(setIndex uint8) {
	cat := categoryHARQSet0
	if setIndex == 1 {
		cat = categoryHARQSet1
	}
	g.release(cat)
}

// ReleaseSR releases a previously taken SR reservation on this slot.
func (g *ReservationGuard) ReleaseSR() {
	g.release(categorySR)
}

// ReleaseCSI releases a previously taken CSI reservation on this slot.
func (g *ReservationGuard) ReleaseCSI() {
	g.release(categoryCSI)
}

func (g *ReservationGuard) release(cat category) {
	if g.state == stateCommitted || g.state == stateRolledBack {
		return
	}
	id, ok := g.taken[cat]
	if !ok {
		return
	}
	entry := g.mgr.entry(g.slot)
	delete(entry.owner, id)
	g.mgr.cm.Free(g.slot, id)
	delete(g.taken, cat)
	delete(g.indices, cat)

	ctx := entry.contextFor(g.rnti)
	switch cat {
	case categoryHARQSet0:
		ctx.harqTaken[0] = false
	case categoryHARQSet1:
		ctx.harqTaken[1] = false
	case categorySR:
		ctx.srTaken = false
	case categoryCSI:
		ctx.csiTaken = false
	}
}

// Commit finalizes the guard. If it ends up holding both HARQ-set-0 and
// HARQ-set-1 resources, set-0 is released — the multiplexing algorithm
// leaves only set-1 (§4.2 table). After Commit, further mutation is
// rejected.
func (g *ReservationGuard) Commit() error {
	if g.state == stateCommitted {
		return nil
	}
	if g.state == stateRolledBack {
		return pucch.ErrProtocolAssertion
	}
	if _, hasSet0 := g.taken[categoryHARQSet0]; hasSet0 {
		if _, hasSet1 := g.taken[categoryHARQSet1]; hasSet1 {
			g.release(categoryHARQSet0)
		}
	}
	g.state = stateCommitted
	return nil
}

// Close rolls back every reservation the guard still holds, unless it was
// already committed. It is safe to call more than once.
func (g *ReservationGuard) Close() {
	if g.state == stateCommitted || g.state == stateRolledBack {
		return
	}
	for cat := range g.taken {
		g.release(cat)
	}
	g.state = stateRolledBack
}

// Holds reports the resource id the guard currently holds for HARQ set
// setIndex when isHARQ is true, or for SR when isHARQ is false, if any. The
// CSI category is not reachable through it.
func (g *ReservationGuard) Holds(setIndex uint8, isHARQ bool) (pucch.ResourceID, bool) {
	cat := categorySR
	if isHARQ {
		cat = categoryHARQSet0
		if setIndex == 1 {
			cat = categoryHARQSet1
		}
	}
	id, ok := g.taken[cat]
	return id, ok
}

// Indicator returns the PUCCH resource indicator (position within the set)
// the guard took for HARQ-set-setIndex, if any.
func (g *ReservationGuard) Indicator(setIndex uint8) (uint8, bool) {
	cat := categoryHARQSet0
	if setIndex == 1 {
		cat = categoryHARQSet1
	}
	ind, ok := g.indices[cat]
	return ind, ok
}

// Exported aliases of the guard's HARQ-set, SR and CSI categories.
const (
	CategoryHARQSet0 = categoryHARQSet0
	CategoryHARQSet1 = categoryHARQSet1
	CategorySR       = categorySR
	CategoryCSI      = categoryCSI
)
