// Package resourcemgr implements the PUCCH Resource Manager: per-slot,
// ring-buffered bookkeeping of which cell-level PUCCH resources are
// reserved by which UE, exposed to callers only through a transactional
// ReservationGuard.
package resourcemgr

import (
	"fmt"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
)

// Manager owns the ring of per-slot reservation maps. SlotIndication/Stop
// are the only methods that advance or clear ring entries; reservations
// within an entry are added and removed through the guard returned by
// NewGuard and directly by ReserveCommon, FreeCommon, ReleaseDedicated and
// ClearUEContext.
type Manager struct {
	cm       *collision.Manager
	ringSize uint32
	ring     []slotEntry
	lastSlot *ran.Slot
}

// NewManager builds a Resource Manager backed by cm, with a ring the same
// size as cm's.
func NewManager(cm *collision.Manager, ringSize uint32) (*Manager, error) {
	if ringSize == 0 {
		return nil, fmt.Errorf("%w: ring size must be positive", pucch.ErrInvalidConfig)
	}
	ring := make([]slotEntry, ringSize)
	for i := range ring {
		ring[i] = newSlotEntry()
	}
	return &Manager{cm: cm, ringSize: ringSize, ring: ring}, nil
}

func (m *Manager) slotIndex(slot ran.Slot) uint32 {
	return slot.ToUint() % m.ringSize
}

func (m *Manager) entry(slot ran.Slot) *slotEntry {
	return &m.ring[m.slotIndex(slot)]
}

// SlotIndication advances the ring to next and clears the entry that falls
// out of the window (the oldest slot, ring_size behind next), per §4.2
// lifecycle. It also clears the collision manager's usage bitset for that
// same ring slot, keeping the two rings' lifetimes identical.
func (m *Manager) SlotIndication(next ran.Slot) {
	oldestIdx := m.slotIndex(next)
	m.ring[oldestIdx].clear()
	m.cm.ClearSlot(next)
	m.lastSlot = &next
}

// Stop resets every ring entry and invalidates the last-observed slot.
func (m *Manager) Stop() {
	for i := range m.ring {
		m.ring[i].clear()
	}
	m.cm.Stop()
	m.lastSlot = nil
}

// NewGuard opens a reservation transaction for (rnti, slot).
func (m *Manager) NewGuard(slot ran.Slot, rnti ran.RNTI, ueCfg *pucch.UECellConfiguration) *ReservationGuard {
	return &ReservationGuard{
		mgr:     m,
		slot:    slot,
		rnti:    rnti,
		ueCfg:   ueCfg,
		state:   stateFresh,
		taken:   make(map[category]pucch.ResourceID),
		indices: make(map[category]uint8),
	}
}

// ReserveCommon reserves a common resource for the cell pool on slot,
// independent of any guard (common resources are not owned by a specific
// UE). Used by the allocator's Δ_PRI search (§4.3.1).
func (m *Manager) ReserveCommon(slot ran.Slot, id pucch.ResourceID) bool {
	entry := m.entry(slot)
	isOwner, isFree := entry.owns(id, commonPoolOwner)
	if !isFree && !isOwner {
		return false
	}
	if !m.cm.TryReserve(slot, id) {
		return false
	}
	entry.owner[id] = commonPoolOwner
	return true
}

// FreeCommon releases a common resource reserved via ReserveCommon.
func (m *Manager) FreeCommon(slot ran.Slot, id pucch.ResourceID) {
	entry := m.entry(slot)
	delete(entry.owner, id)
	m.cm.Free(slot, id)
}

// ReleaseDedicated releases a dedicated resource owned by rnti on slot,
// outside of any guard transaction. Used by the Allocator's
// remove_ue_uci (§4.3), which tears down a UE's entire grant inventory at
// once rather than category by category through a guard.
func (m *Manager) ReleaseDedicated(slot ran.Slot, rnti ran.RNTI, id pucch.ResourceID) {
	entry := m.entry(slot)
	if owner, ok := entry.owner[id]; !ok || owner != rnti {
		return
	}
	delete(entry.owner, id)
	m.cm.Free(slot, id)
}

// ClearUEContext drops rnti's idempotence bookkeeping on slot, so a
// subsequent reservation attempt is not mistaken for a repeat of one that
// was already released.
func (m *Manager) ClearUEContext(slot ran.Slot, rnti ran.RNTI) {
	delete(m.entry(slot).ue, rnti)
}

// IsCommonFree reports whether a common resource is currently free on slot.
func (m *Manager) IsCommonFree(slot ran.Slot, id pucch.ResourceID) bool {
	_, isFree := m.entry(slot).owns(id, commonPoolOwner)
	return isFree
}

// ResourceInfo exposes the collision manager's resource table to callers
// that need resource geometry (the allocator).
func (m *Manager) ResourceInfo(id pucch.ResourceID) (collision.ResourceInfo, bool) {
	return m.cm.ResourceByID(id)
}

// CollisionManager returns the underlying collision manager, for callers
// (the allocator) that need direct access to Collides/MultiplexRegion.
func (m *Manager) CollisionManager() *collision.Manager {
	return m.cm
}
