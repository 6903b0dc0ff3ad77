package allocator

import (
	"sort"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
	"github.com/ranscale/pucchsched/pucch/grid"
	"github.com/ranscale/pucchsched/pucch/resourcemgr"
)

// reconcileResult carries the outcome of one reconcile call back to its
// caller so it can report the right failure Kind and, for HARQ, the PUCCH
// resource indicator.
type reconcileResult struct {
	ok        bool
	kind      pucch.Kind
	reason    string
	indicator uint8
	hasInd    bool
}

// reconcile implements the multiplexing algorithm of §4.3.2/§4.3.3 over the
// at most three fixed-kind grants (HARQ, SR, CSI) a UE can carry in one
// slot: multiplexRuns sorts their resources by symbol start and groups the
// overlapping ones into runs, and placeRun applies the merge case analysis
// to each run in one pass. It reserves whatever resource(s) the resulting
// grant(s) need through guard, builds their PDUs, and on success marks gr
// and replaces grants' HARQ/SR/CSI fields; on failure grants and gr are
// left exactly as they were.
func (a *Allocator) reconcile(
	slot ran.Slot,
	ueCfg *pucch.UECellConfiguration,
	bwp pucch.BWPRef,
	guardPRBs uint16,
	gr grid.Grid,
	grants *pucch.UEGrants,
	updated pucch.GrantKind,
	newUCI pucch.UCIBits,
) reconcileResult {
	guard := a.rm.NewGuard(slot, ueCfg.RNTI, ueCfg)
	defer guard.Close()

	harq, sr, csi := grants.HARQ, grants.SR, grants.CSI
	harqWasLow := a.harqTargetIsLowFormat(ueCfg, harq, newUCI.HARQBits)
	switch updated {
	case pucch.GrantHARQ:
		harq = withUCI(harq, pucch.GrantHARQ, newUCI)
	case pucch.GrantSR:
		sr = withUCI(sr, pucch.GrantSR, newUCI)
	case pucch.GrantCSI:
		csi = withUCI(csi, pucch.GrantCSI, newUCI)
	}

	oldResources := a.currentResourceInfos(grants)

	var outHARQ, outSR, outCSI *pucch.Grant
	res := reconcileResult{ok: true}

	for _, run := range a.multiplexRuns(ueCfg, grants.HARQ, harq, sr, csi) {
		var runHARQ, runSR, runCSI *pucch.Grant
		for _, k := range run {
			switch k {
			case pucch.GrantHARQ:
				runHARQ = harq
			case pucch.GrantSR:
				runSR = sr
			case pucch.GrantCSI:
				runCSI = csi
			}
		}

		oh, osr, oc, rres := a.placeRun(guard, ueCfg, runHARQ, runSR, runCSI, harqWasLow)
		if !rres.ok {
			res = rres
			break
		}
		if runHARQ != nil {
			outHARQ = oh
		}
		if runSR != nil {
			outSR = osr
		}
		if runCSI != nil {
			outCSI = oc
		}
		if rres.hasInd {
			res.indicator = rres.indicator
			res.hasInd = true
		}
	}

	if !res.ok {
		return res
	}

	newPDUs := a.pdusFor(guard, ueCfg, bwp, outHARQ, outSR, outCSI)
	if newPDUs == nil {
		return reconcileResult{ok: false, kind: pucch.KindPayloadOverflow, reason: "PDU geometry recomputation failed"}
	}

	for _, info := range oldResources {
		unmarkGrid(gr, info.Resource, bwp, guardPRBs)
	}
	collided := false
	for _, pdu := range newPDUs {
		if info, ok := a.rm.ResourceInfo(pdu.ResourceID()); ok && gridCollides(gr, info.Resource, bwp, guardPRBs) {
			collided = true
			break
		}
	}
	if collided {
		for _, info := range oldResources {
			markGrid(gr, info.Resource, bwp, guardPRBs)
		}
		return reconcileResult{ok: false, kind: pucch.KindCollisionOnGrid, reason: "candidate rectangle overlaps an existing uplink grant"}
	}
	for _, pdu := range newPDUs {
		if info, ok := a.rm.ResourceInfo(pdu.ResourceID()); ok {
			markGrid(gr, info.Resource, bwp, guardPRBs)
		}
	}

	_ = guard.Commit()

	// A merge can move a kind onto a different resource than it held before
	// (e.g. HARQ growing from set-0 to set-1, §4.3.2's "refreshed... so HARQ
	// set selection tracks the new bit count"). The old resource is not
	// part of this guard's accounting, so release its ownership directly.
	a.releaseStaleResource(slot, ueCfg.RNTI, grants.HARQ, outHARQ)
	a.releaseStaleResource(slot, ueCfg.RNTI, grants.SR, outSR)
	a.releaseStaleResource(slot, ueCfg.RNTI, grants.CSI, outCSI)

	grants.HARQ, grants.SR, grants.CSI = outHARQ, outSR, outCSI
	if a.metrics != nil {
		if outHARQ != nil {
			a.metrics.ObserveGrant("harq")
		}
		if outSR != nil {
			a.metrics.ObserveGrant("sr")
		}
		if outCSI != nil {
			a.metrics.ObserveGrant("csi")
		}
		present := 0
		for _, g := range []*pucch.Grant{harq, sr, csi} {
			if g != nil {
				present++
			}
		}
		if present > 1 {
			a.metrics.ObserveMerge()
		}
	}
	return res
}

// releaseStaleResource drops Resource Manager ownership of prev's resource
// when the new grant no longer sits on it: either the kind dropped out of
// the multiplex entirely (next == nil) or a merge moved it to a different
// resource id (e.g. HARQ set-0 -> set-1 as its bit count grows). Freeing is
// safe to call even when prev == nil or the id is unchanged.
func (a *Allocator) releaseStaleResource(slot ran.Slot, rnti ran.RNTI, prev, next *pucch.Grant) {
	if prev == nil {
		return
	}
	if next != nil && next.ResourceID == prev.ResourceID {
		return
	}
	a.rm.ReleaseDedicated(slot, rnti, prev.ResourceID)
}

func (a *Allocator) currentResourceInfos(grants *pucch.UEGrants) []collision.ResourceInfo {
	var out []collision.ResourceInfo
	for _, g := range []*pucch.Grant{grants.HARQ, grants.SR, grants.CSI} {
		if g == nil {
			continue
		}
		if info, ok := a.rm.ResourceInfo(g.ResourceID); ok {
			out = append(out, info)
		}
	}
	return out
}

// withUCI returns a copy of g (or, if g is nil, a fresh grant of kind k)
// carrying uci as its UCI-bit tuple, preserving any existing resource
// binding so format-dependent decisions downstream see the grant's real
// current format rather than a zero value.
func withUCI(g *pucch.Grant, k pucch.GrantKind, uci pucch.UCIBits) *pucch.Grant {
	if g == nil {
		return &pucch.Grant{Kind: k, UCI: uci}
	}
	upd := *g
	upd.UCI = uci
	return &upd
}

// harqCandidateInfo resolves the resource a HARQ contribution would use if
// placed on its own: the resource it already holds, or the first entry of
// whichever PUCCH resource set harqBits targets. Used both to classify the
// HARQ resource's format (harqTargetIsLowFormat) and to find its symbol
// footprint for the overlap scan (multiplexRuns).
func (a *Allocator) harqCandidateInfo(ueCfg *pucch.UECellConfiguration, existing *pucch.Grant, harqBits uint16) (collision.ResourceInfo, bool) {
	if existing != nil {
		if info, ok := a.rm.ResourceInfo(existing.ResourceID); ok {
			return info, true
		}
	}
	set := ueCfg.HARQSet0
	if harqBits > 2 {
		set = ueCfg.HARQSet1
	}
	if len(set) == 0 {
		return collision.ResourceInfo{}, false
	}
	return a.rm.ResourceInfo(set[0])
}

// harqTargetIsLowFormat reports whether the HARQ resource a UE currently
// holds (or, if it holds none yet, the first resource of the PUCCH
// resource set the given bit count would target) is a low format (0/1)
// rather than a long format (2/3/4). This decides whether an SR+HARQ
// multiplex uses the Format-1 split fix-up or the set-1 merge path
// (§4.3.2/§4.3.3).
func (a *Allocator) harqTargetIsLowFormat(ueCfg *pucch.UECellConfiguration, existing *pucch.Grant, harqBits uint16) bool {
	info, ok := a.harqCandidateInfo(ueCfg, existing, harqBits)
	if !ok {
		return true
	}
	return info.Format.IsLowFormat()
}

// multiplexRuns groups the UE's present UCI contributions (harq/sr/csi, any
// of which may be nil) into the maximal runs of pairwise-overlapping symbol
// intervals described by §4.3.2 step 2: sort the candidate resources by
// symbol start, then merge a resource into the running group as long as its
// interval overlaps the group's interval so far. Kinds whose resources don't
// overlap anything else come back as their own single-element run and are
// placed independently rather than multiplexed together. Grounded on
// original_source/lib/scheduler/pucch_scheduling/pucch_allocator_impl.cpp's
// multiplex_resources, which builds resource_set_q, sorts it by symbol
// start, and merges only the runs whose members' symbols overlap.
// heldHARQ is the HARQ grant the UE held before this update (nil if none),
// so a fresh HARQ contribution is located on its target set's first entry.
func (a *Allocator) multiplexRuns(ueCfg *pucch.UECellConfiguration, heldHARQ, harq, sr, csi *pucch.Grant) [][]pucch.GrantKind {
	type contribution struct {
		kind    pucch.GrantKind
		symbols ran.SymbolInterval
	}
	var contribs []contribution
	if harq != nil {
		if info, ok := a.harqCandidateInfo(ueCfg, heldHARQ, harq.UCI.HARQBits); ok {
			contribs = append(contribs, contribution{kind: pucch.GrantHARQ, symbols: info.Symbols()})
		}
	}
	if sr != nil {
		if info, ok := a.rm.ResourceInfo(ueCfg.SRResourceID); ok {
			contribs = append(contribs, contribution{kind: pucch.GrantSR, symbols: info.Symbols()})
		}
	}
	if csi != nil {
		if info, ok := a.rm.ResourceInfo(ueCfg.CSIResourceID); ok {
			contribs = append(contribs, contribution{kind: pucch.GrantCSI, symbols: info.Symbols()})
		}
	}
	if len(contribs) == 0 {
		return nil
	}

	sort.Slice(contribs, func(i, j int) bool { return contribs[i].symbols.Start < contribs[j].symbols.Start })

	runs := [][]pucch.GrantKind{{contribs[0].kind}}
	runEnd := contribs[0].symbols.End()
	for _, c := range contribs[1:] {
		if c.symbols.Start < runEnd {
			runs[len(runs)-1] = append(runs[len(runs)-1], c.kind)
			if end := c.symbols.End(); end > runEnd {
				runEnd = end
			}
			continue
		}
		runs = append(runs, []pucch.GrantKind{c.kind})
		runEnd = c.symbols.End()
	}
	return runs
}

// placeRun reserves and builds the grant(s) for one multiplexing run: the
// same case analysis reconcile used to apply to the UE's whole contribution
// set, now scoped to only the kinds that actually share a run. harq/sr/csi
// are nil for any kind not a member of this run.
func (a *Allocator) placeRun(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, harq, sr, csi *pucch.Grant, harqWasLow bool) (outHARQ, outSR, outCSI *pucch.Grant, res reconcileResult) {
	switch {
	case harq == nil && sr == nil && csi != nil:
		outCSI, res = a.placeCSIOnly(guard, ueCfg, csi.UCI)

	case harq == nil && sr != nil && csi == nil:
		outSR, res = a.placeSROnly(guard, ueCfg, sr.UCI)

	case harq == nil && sr != nil && csi != nil:
		// SR + CSI, overlapping -> lives on the CSI resource (§4.3.3).
		outCSI, res = a.placeCSIOnly(guard, ueCfg, csi.UCI.Add(sr.UCI))

	case harq != nil && sr == nil && csi == nil:
		outHARQ, res = a.placeHARQOnly(guard, ueCfg, harq.UCI)

	case harq != nil && csi != nil:
		// HARQ + CSI (+ optional SR), overlapping -> always lives in set-1
		// (§4.3.3).
		total := harq.UCI.Add(csi.UCI)
		if sr != nil {
			total = total.Add(sr.UCI)
		}
		outHARQ, res = a.placeHARQSet1(guard, ueCfg, total)

	case harq != nil && sr != nil:
		if harqWasLow {
			// SR + HARQ, both Format 0/1, overlapping -> the gNB-side
			// fix-up (§4.3.2): two grants, HARQ-resource carries HARQ bits
			// only, SR-resource carries HARQ+SR.
			outHARQ, outSR, res = a.placeSRHARQSplit(guard, ueCfg, harq.UCI, sr.UCI)
		} else {
			// SR + HARQ, HARQ already in a long format -> merge onto set-1.
			outHARQ, res = a.placeHARQSet1(guard, ueCfg, harq.UCI.Add(sr.UCI))
		}
	}
	return outHARQ, outSR, outCSI, res
}

func (a *Allocator) placeHARQOnly(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, uci pucch.UCIBits) (*pucch.Grant, reconcileResult) {
	setIndex := uint8(0)
	if uci.HARQBits > 2 {
		setIndex = 1
	}
	id, indicator, ok := guard.ReserveNextHARQSetI(setIndex)
	if !ok {
		return nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "no free HARQ resource in target set"}
	}
	info, _ := a.rm.ResourceInfo(id)
	g := pucch.Grant{Kind: pucch.GrantHARQ, ResourceID: id, Format: info.Format, Symbols: info.Symbols(), UCI: uci}
	g = g.WithHARQPosition(setIndex, indicator)
	return &g, reconcileResult{ok: true, indicator: indicator, hasInd: true}
}

func (a *Allocator) placeHARQSet1(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, uci pucch.UCIBits) (*pucch.Grant, reconcileResult) {
	id, indicator, ok := guard.ReserveNextHARQSetI(1)
	if !ok {
		return nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "no free HARQ set-1 resource"}
	}
	info, _ := a.rm.ResourceInfo(id)
	if !uci.FitsFormat(info.Format) {
		return nil, reconcileResult{ok: false, kind: pucch.KindPayloadOverflow, reason: "merged UCI exceeds format payload"}
	}
	g := pucch.Grant{Kind: pucch.GrantHARQ, ResourceID: id, Format: info.Format, Symbols: info.Symbols(), UCI: uci}
	g = g.WithHARQPosition(1, indicator)
	return &g, reconcileResult{ok: true, indicator: indicator, hasInd: true}
}

func (a *Allocator) placeSROnly(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, uci pucch.UCIBits) (*pucch.Grant, reconcileResult) {
	id, ok := guard.ReserveSR()
	if !ok {
		return nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "SR resource busy"}
	}
	info, _ := a.rm.ResourceInfo(id)
	g := pucch.Grant{Kind: pucch.GrantSR, ResourceID: id, Format: info.Format, Symbols: info.Symbols(), UCI: uci}
	return &g, reconcileResult{ok: true}
}

func (a *Allocator) placeCSIOnly(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, uci pucch.UCIBits) (*pucch.Grant, reconcileResult) {
	id, ok := guard.ReserveCSI()
	if !ok {
		return nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "CSI resource busy"}
	}
	info, _ := a.rm.ResourceInfo(id)
	if !uci.FitsFormat(info.Format) {
		return nil, reconcileResult{ok: false, kind: pucch.KindPayloadOverflow, reason: "CSI UCI exceeds format payload"}
	}
	g := pucch.Grant{Kind: pucch.GrantCSI, ResourceID: id, Format: info.Format, Symbols: info.Symbols(), UCI: uci}
	return &g, reconcileResult{ok: true}
}

func (a *Allocator) placeSRHARQSplit(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, harqUCI, srUCI pucch.UCIBits) (*pucch.Grant, *pucch.Grant, reconcileResult) {
	setIndex := uint8(0)
	if harqUCI.HARQBits > 2 {
		setIndex = 1
	}
	harqID, indicator, ok := guard.ReserveNextHARQSetI(setIndex)
	if !ok {
		return nil, nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "no free HARQ resource"}
	}
	srID, ok := guard.ReserveSR()
	if !ok {
		return nil, nil, reconcileResult{ok: false, kind: pucch.KindResourceBusy, reason: "SR resource busy"}
	}
	harqInfo, _ := a.rm.ResourceInfo(harqID)
	srInfo, _ := a.rm.ResourceInfo(srID)

	harqOnly := pucch.UCIBits{HARQBits: harqUCI.HARQBits}
	harqPlusSR := pucch.UCIBits{HARQBits: harqUCI.HARQBits, SR: true, CSIBits: srUCI.CSIBits}

	hg := pucch.Grant{Kind: pucch.GrantHARQ, ResourceID: harqID, Format: harqInfo.Format, Symbols: harqInfo.Symbols(), UCI: harqOnly}
	hg = hg.WithHARQPosition(setIndex, indicator)
	sg := pucch.Grant{Kind: pucch.GrantSR, ResourceID: srID, Format: srInfo.Format, Symbols: srInfo.Symbols(), UCI: harqPlusSR}

	return &hg, &sg, reconcileResult{ok: true, indicator: indicator, hasInd: true}
}

func (a *Allocator) pdusFor(guard *resourcemgr.ReservationGuard, ueCfg *pucch.UECellConfiguration, bwp pucch.BWPRef, harq, sr, csi *pucch.Grant) []pucch.PDU {
	var out []pucch.PDU
	for _, g := range []*pucch.Grant{harq, sr, csi} {
		if g == nil {
			continue
		}
		info, ok := a.rm.ResourceInfo(g.ResourceID)
		if !ok {
			return nil
		}
		pdu, rate, ok := buildPDU(info, ueCfg, bwp, *g)
		if !ok {
			return nil
		}
		if a.metrics != nil && rate > 0 {
			a.metrics.ObserveCodeRate(rate)
		}
		out = append(out, pdu)
	}
	return out
}
