package allocator

import (
	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
	"github.com/ranscale/pucchsched/pucch/collision"
)

// recomputeGeometry returns the resource's first-hop PRB geometry after
// Format 2/3 PRB recomputation (§4.3.4), the effective code rate that
// geometry achieves, and whether that rate is within params.MaxCodeRate.
// Format 4 keeps its configured geometry and its rate is derived from
// Format 4's spreading-scaled channel-bit capacity. Any other format gets
// its configured first hop, rate 0 and true (0/1 never call this — their
// payload ceiling is the fixed 2-HARQ/1-SR check in UCIBits.FitsFormat).
func recomputeGeometry(info collision.ResourceInfo, uci pucch.UCIBits, params CommonParams) (ran.PRBInterval, float64, bool) {
	r := info.Resource
	payload := uci.Total()

	switch r.Format {
	case pucch.Format2:
		prbs := format2PRBs(payload, r.NumSymbols, params.MaxCodeRate, r.Params.MaxPRBs)
		channelBits := format2ChannelBits(prbs, r.NumSymbols)
		rate := effectiveCodeRate(payload, channelBits)
		return ran.PRBInterval{Start: r.StartPRB, Length: prbs}, rate, rate <= params.MaxCodeRate
	case pucch.Format3:
		prbs := format3PRBs(payload, r.NumSymbols, r.Hops(), params.AdditionalDMRS, params.Pi2BPSK, params.MaxCodeRate, r.Params.MaxPRBs)
		channelBits := format3ChannelBits(prbs, r.NumSymbols, r.Hops(), params.AdditionalDMRS, params.Pi2BPSK)
		rate := effectiveCodeRate(payload, channelBits)
		return ran.PRBInterval{Start: r.StartPRB, Length: prbs}, rate, rate <= params.MaxCodeRate
	case pucch.Format4:
		channelBits := format4ChannelBits(r.NumSymbols, r.Hops(), params.AdditionalDMRS, params.Pi2BPSK, r.Params.OCCLength)
		rate := effectiveCodeRate(payload, channelBits)
		return r.FirstHop(), rate, rate <= params.MaxCodeRate
	default:
		return r.FirstHop(), 0, true
	}
}

// CommonParams is the subset of a UE's per-format common parameters the
// recomputation and PDU-construction helpers need.
type CommonParams struct {
	MaxCodeRate    float64
	Pi2BPSK        bool
	AdditionalDMRS bool
}

func commonParamsFor(ueCfg *pucch.UECellConfiguration, f pucch.Format) CommonParams {
	if ueCfg.CommonParams != nil {
		if p, ok := ueCfg.CommonParams[f]; ok {
			return CommonParams{MaxCodeRate: p.MaxCodeRate, Pi2BPSK: p.Pi2BPSK, AdditionalDMRS: p.AdditionalDMRS}
		}
	}
	return CommonParams{MaxCodeRate: 0.80}
}

// buildPDU materializes a PDU for grant g against its resource's current
// geometry (re-derived, since Format 2/3 geometry depends on the grant's
// current UCI payload), along with the effective code rate that geometry
// achieves (0 for formats the ceiling doesn't apply to).
func buildPDU(info collision.ResourceInfo, ueCfg *pucch.UECellConfiguration, bwp pucch.BWPRef, g pucch.Grant) (pucch.PDU, float64, bool) {
	r := info.Resource
	params := commonParamsFor(ueCfg, r.Format)

	first := r.FirstHop()
	var rate float64
	if r.Format == pucch.Format2 || r.Format == pucch.Format3 || r.Format == pucch.Format4 {
		geom, codeRate, ok := recomputeGeometry(info, g.UCI, params)
		if !ok {
			return pucch.PDU{}, 0, false
		}
		first = geom
		rate = codeRate
	}

	var second *ran.PRBInterval
	if hop, ok := r.SecondHop(); ok {
		s := hop
		if r.Format == pucch.Format2 || r.Format == pucch.Format3 {
			s.Length = first.Length
		}
		second = &s
	}

	scramblingID0 := ueCfg.PUSCH.ScramblingID0
	scramblingID1 := ueCfg.PUSCH.ScramblingID1

	pduParams := pucch.PDUParams{
		ScramblingID0:  scramblingID0,
		ScramblingID1:  scramblingID1,
		MaxCodeRate:    params.MaxCodeRate,
		Pi2BPSK:        params.Pi2BPSK,
		AdditionalDMRS: params.AdditionalDMRS,
		CyclicShift:    r.Params.InitialCyclicShift,
		TimeDomainOCC:  r.Params.TimeDomainOCC,
		OCCLength:      r.Params.OCCLength,
		OCCIndex:       r.Params.OCCIndex,
		NumPRBs:        first.Length,
	}
	if g.Kind == pucch.GrantCSI || g.UCI.CSIBits > 0 {
		pduParams.CSIReportConfigID = ueCfg.CSIReportConfigID
		pduParams.HasCSIReportConfig = true
	}

	pdu := pucch.NewPDU(ueCfg.RNTI, bwp, g.ResourceID, r.Format, first, second, r.Symbols(), g.UCI, pduParams)
	if setIndex, indicator, ok := g.HARQPosition(); ok {
		_ = setIndex
		pdu = pdu.WithIndicator(indicator)
	}
	return pdu, rate, true
}
