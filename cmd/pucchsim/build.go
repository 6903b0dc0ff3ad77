package main

import (
	"fmt"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/allocator"
	"github.com/ranscale/pucchsched/pucch/collision"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/metrics"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"

	"github.com/prometheus/client_golang/prometheus"
	"log/slog"
)

// builtScenario is the set of live objects built from a parsed scenario
// file: the cell/UE configuration the scenario validated, plus the
// allocator ready to take its event sequence.
type builtScenario struct {
	cell  *pucch.CellConfiguration
	ues   map[ran.RNTI]*pucch.UECellConfiguration
	bwp   pucch.BWPRef
	rm    *resourcemgr.Manager
	alloc *allocator.Allocator

	// grids mirrors the allocator's own ring, one reference Bitmap per slot
	// in the window, so the simulation exercises real Collides/Fill/Clear
	// calls instead of the nil grid a bookkeeping-only test would pass.
	grids    []*grid.Bitmap
	ringSize uint32
}

// gridFor returns the Bitmap backing slot's ring position.
func (bs *builtScenario) gridFor(slot ran.Slot) *grid.Bitmap {
	return bs.grids[slot.ToUint()%bs.ringSize]
}

// build validates sc and wires up a collision manager, resource manager,
// and allocator against it, the way a real MAC scheduler would at cell
// bring-up. log and reg may be nil; a nil reg disables metrics registration.
func build(sc *scenario, log *slog.Logger, reg prometheus.Registerer) (*builtScenario, error) {
	ringSize := sc.Cell.RingSize
	if ringSize == 0 {
		ringSize = 64
	}

	dedicated, err := sc.toResources()
	if err != nil {
		return nil, err
	}

	cm, err := collision.New(sc.Cell.PUCCHResourceCommon, sc.Cell.BWPCRBCount, dedicated, ringSize)
	if err != nil {
		return nil, fmt.Errorf("build collision manager: %w", err)
	}
	rm, err := resourcemgr.NewManager(cm, ringSize)
	if err != nil {
		return nil, fmt.Errorf("build resource manager: %w", err)
	}

	bwp := sc.bwpRef()
	cell, err := pucch.NewCellConfiguration(sc.Cell.CellID, bwp, sc.Cell.PUCCHResourceCommon, sc.Cell.GuardBandPRBs, sc.Cell.MaxGrantsPerSlot, dedicated)
	if err != nil {
		return nil, fmt.Errorf("build cell configuration: %w", err)
	}

	resolve := func(id pucch.ResourceID) (pucch.Resource, bool) {
		info, ok := rm.ResourceInfo(id)
		if !ok {
			return pucch.Resource{}, false
		}
		return info.Resource, true
	}

	ues := make(map[ran.RNTI]*pucch.UECellConfiguration, len(sc.UEs))
	for i, u := range sc.UEs {
		var srID, csiID *pucch.ResourceID
		if u.SRResource != nil {
			id := resourceIDAt(*u.SRResource)
			srID = &id
		}
		if u.CSIResource != nil {
			id := resourceIDAt(*u.CSIResource)
			csiID = &id
		}
		ueCfg, err := pucch.NewUECellConfiguration(
			ran.RNTI(u.RNTI),
			resourceIDsAt(u.HARQSet0),
			resourceIDsAt(u.HARQSet1),
			srID,
			csiID,
			u.CSIReportConfigID,
			u.Format0Plus2,
			nil,
			pucch.PUSCHDedicatedConfig{},
			resolve,
		)
		if err != nil {
			return nil, fmt.Errorf("ues[%d] (rnti %#x): %w", i, u.RNTI, err)
		}
		ues[ueCfg.RNTI] = ueCfg
	}

	opts := []allocator.Option{}
	if log != nil {
		opts = append(opts, allocator.WithLogger(log))
	}
	if reg != nil {
		m, err := metrics.New(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, allocator.WithMetrics(m))
	}

	a, err := allocator.New(cell, rm, ringSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("build allocator: %w", err)
	}

	grids := make([]*grid.Bitmap, ringSize)
	for i := range grids {
		grids[i] = grid.NewBitmap(bwp.CRBCount)
	}

	return &builtScenario{cell: cell, ues: ues, bwp: bwp, rm: rm, alloc: a, grids: grids, ringSize: ringSize}, nil
}
