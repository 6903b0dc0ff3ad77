// Package allocator implements the PUCCH Allocator: the stateful,
// per-slot entry points the higher MAC scheduler calls to reserve PUCCH
// resources, multiplex UCI contributions that land on the same UE in the
// same slot, and mark the uplink resource grid.
package allocator

import (
	"log/slog"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/metrics"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"
)

// Option configures an Allocator at construction, in the functional-option
// style this corpus uses throughout (e.g. controller.Option).
type Option func(*Allocator)

// WithLogger threads a structured logger through the Allocator. Local
// failures (§7) are logged here rather than returned as wrapped errors.
func WithLogger(log *slog.Logger) Option {
	return func(a *Allocator) { a.logger = log }
}

// WithMetrics attaches an optional metrics recorder. A nil recorder (the
// default) disables instrumentation entirely.
func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Allocator) { a.metrics = m }
}

// slotGrants is one ring entry: the UE grant lists currently live in that
// slot, keyed by RNTI (§3 "Per-slot allocation record").
type slotGrants map[ran.RNTI]*pucch.UEGrants

// Allocator is the per-cell PUCCH Allocator. It owns a ring of UE grant
// lists mirroring the Resource Manager's own ring, and never mutates the
// grid except inside one of its entry points.
type Allocator struct {
	cell *pucch.CellConfiguration
	rm   *resourcemgr.Manager

	ringSize uint32
	ring     []slotGrants

	logger  *slog.Logger
	metrics *metrics.Recorder
}

// New builds an Allocator for one cell, backed by rm (whose ring size must
// match ringSize).
func New(cell *pucch.CellConfiguration, rm *resourcemgr.Manager, ringSize uint32, opts ...Option) (*Allocator, error) {
	if ringSize == 0 {
		return nil, pucch.ErrInvalidConfig
	}
	ring := make([]slotGrants, ringSize)
	for i := range ring {
		ring[i] = slotGrants{}
	}
	a := &Allocator{
		cell:     cell,
		rm:       rm,
		ringSize: ringSize,
		ring:     ring,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Allocator) slotIndex(slot ran.Slot) uint32 {
	return slot.ToUint() % a.ringSize
}

func (a *Allocator) entry(slot ran.Slot) slotGrants {
	return a.ring[a.slotIndex(slot)]
}

func (a *Allocator) ueGrants(slot ran.Slot, rnti ran.RNTI) *pucch.UEGrants {
	e := a.entry(slot)
	g, ok := e[rnti]
	if !ok {
		g = &pucch.UEGrants{RNTI: rnti}
		e[rnti] = g
	}
	return g
}

// capacityAvailable reports whether rnti could be admitted to slot without
// exceeding the cell's configured per-slot grant limit. A UE already
// present in the slot is never refused for capacity reasons, so that
// re-allocation after a remove (testable property 5) is never spuriously
// blocked by the UE's own prior presence.
func (a *Allocator) capacityAvailable(slot ran.Slot, rnti ran.RNTI) bool {
	e := a.entry(slot)
	if _, present := e[rnti]; present {
		return true
	}
	return len(e) < a.cell.MaxPUCCHGrantsPerSlot
}

func (a *Allocator) logRefusal(kind pucch.Kind, slot ran.Slot, rnti ran.RNTI, reason string) {
	if a.logger == nil {
		return
	}
	a.logger.Debug("pucch allocation refused",
		"kind", kind.String(),
		"slot", slot.String(),
		"rnti", rnti,
		"reason", reason,
	)
	if a.metrics != nil {
		a.metrics.ObserveFailure(kind.String())
	}
}

// SlotIndication advances both the allocator's own grant-list ring and the
// underlying Resource Manager's ring together, keeping their lifetimes
// identical (§4.2/§4.4: "slot_indication(S+1) advances the ring... and is
// the point at which... oldest-slot state is cleared").
func (a *Allocator) SlotIndication(next ran.Slot) {
	a.ring[a.slotIndex(next)] = slotGrants{}
	a.rm.SlotIndication(next)
}

// Stop resets the allocator and its Resource Manager.
func (a *Allocator) Stop() {
	for i := range a.ring {
		a.ring[i] = slotGrants{}
	}
	a.rm.Stop()
}

// RemoveUEUCI drops every PUCCH PDU and resource reservation for rnti on
// slot, clearing gr's occupied rectangles for each (testable property 5:
// round-trip remove-then-realloc).
func (a *Allocator) RemoveUEUCI(slot ran.Slot, rnti ran.RNTI, bwp pucch.BWPRef, guardPRBs uint16, gr grid.Grid) {
	e := a.entry(slot)
	grants, ok := e[rnti]
	if !ok {
		return
	}
	for _, g := range []*pucch.Grant{grants.HARQ, grants.SR, grants.CSI} {
		if g == nil {
			continue
		}
		info, ok := a.rm.ResourceInfo(g.ResourceID)
		if !ok {
			continue
		}
		if gr != nil {
			unmarkGrid(gr, info.Resource, bwp, guardPRBs)
		}
		if info.IsCommon {
			a.rm.FreeCommon(slot, g.ResourceID)
			continue
		}
		a.rm.ReleaseDedicated(slot, rnti, g.ResourceID)
	}
	if grants.HasCommonHARQ {
		if info, ok := a.rm.ResourceInfo(grants.CommonHARQResourceID); ok {
			if gr != nil {
				unmarkGrid(gr, info.Resource, bwp, guardPRBs)
			}
			a.rm.FreeCommon(slot, grants.CommonHARQResourceID)
		}
	}
	a.rm.ClearUEContext(slot, rnti)
	delete(e, rnti)
}
