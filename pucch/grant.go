package pucch

import "github.com/ranscale/pucchsched/internal/ran"

// GrantKind distinguishes the three kinds of UCI contribution a UE can own
// in a slot. A UE has at most one grant of each kind per slot.
type GrantKind uint8

const (
	GrantHARQ GrantKind = iota
	GrantSR
	GrantCSI
)

func (k GrantKind) String() string {
	switch k {
	case GrantHARQ:
		return "harq"
	case GrantSR:
		return "sr"
	case GrantCSI:
		return "csi"
	default:
		return "grant?"
	}
}

// Grant is a mutable record of one UCI contribution currently occupying a
// PUCCH resource. For HARQ-ACK grants, SetIndex/Indicator carry the
// PUCCH-resource-set index (0 or 1) and the PUCCH resource indicator (the
// 3-bit Δ_PRI value) that the DCI reports to the UE.
type Grant struct {
	Kind       GrantKind
	ResourceID ResourceID
	Format     Format
	Symbols    ran.SymbolInterval
	UCI        UCIBits

	SetIndex  uint8
	Indicator uint8
	hasHARQPosition bool
}

// HARQPosition returns (set index, indicator, true) for a HARQ grant that
// carries a resource-set position, or (0, 0, false) otherwise (SR/CSI grants,
// or a HARQ grant placed via common resource, have no set position).
func (g Grant) HARQPosition() (setIndex, indicator uint8, ok bool) {
	return g.SetIndex, g.Indicator, g.hasHARQPosition
}

// WithHARQPosition returns a copy of g carrying the given HARQ resource-set
// position.
func (g Grant) WithHARQPosition(setIndex, indicator uint8) Grant {
	g.SetIndex = setIndex
	g.Indicator = indicator
	g.hasHARQPosition = true
	return g
}

// UEGrants is the grant inventory for one (UE, slot) pair: at most one grant
// per kind, plus whether the UE currently holds a common-pool reservation.
// Invariant: SR and CSI grants cannot both carry a non-zero SR bit, and a UE
// must never hold both a dedicated-HARQ and a common-HARQ grant at once.
type UEGrants struct {
	RNTI ran.RNTI

	HARQ *Grant
	SR   *Grant
	CSI  *Grant

	// HasCommonHARQ and CommonHARQResourceID track a common-pool HARQ
	// reservation made alongside (not instead of) a dedicated one, via
	// alloc_common_and_ded_harq's RA-completion path (§4.3).
	HasCommonHARQ        bool
	CommonHARQResourceID ResourceID
}

// Empty reports whether the UE holds no grants at all in this slot.
func (g UEGrants) Empty() bool {
	return g.HARQ == nil && g.SR == nil && g.CSI == nil && !g.HasCommonHARQ
}

// Count returns the number of HARQ/SR/CSI grants currently held (0-3).
func (g UEGrants) Count() int {
	n := 0
	if g.HARQ != nil {
		n++
	}
	if g.SR != nil {
		n++
	}
	if g.CSI != nil {
		n++
	}
	return n
}
