package pucch

import "github.com/ranscale/pucchsched/internal/ran"

// BWPRef identifies the uplink bandwidth part a PDU is scheduled against.
type BWPRef struct {
	SCS      ran.Numerology
	CRBStart uint16
	CRBCount uint16
}

// CRBInterval returns the BWP's CRB footprint as a PRBInterval.
func (b BWPRef) CRBInterval() ran.PRBInterval {
	return ran.PRBInterval{Start: b.CRBStart, Length: b.CRBCount}
}

// PDUParams carries the format-specific fields a PHY needs beyond geometry
// and UCI bits: hopping/scrambling identifiers, the configured maximum code
// rate, the π/2-BPSK and additional-DMRS flags, and (when CSI bits are
// carried) a reference to the CSI report configuration that produced them.
type PDUParams struct {
	HoppingID     uint16
	ScramblingID0 uint16
	ScramblingID1 uint16
	MaxCodeRate   float64
	Pi2BPSK       bool
	AdditionalDMRS bool

	CyclicShift uint8
	TimeDomainOCC uint8
	OCCLength     uint8
	OCCIndex      uint8
	NumPRBs       uint16

	CSIReportConfigID uint32
	HasCSIReportConfig bool
}

// PDU is the output unit this core writes to the uplink resource-grid
// allocator: one PUCCH transmission for one UE in one slot.
type PDU struct {
	RNTI   ran.RNTI
	BWP    BWPRef
	Format Format

	FirstHopPRB  ran.PRBInterval
	SecondHopPRB *ran.PRBInterval
	Symbols      ran.SymbolInterval

	UCI UCIBits

	Params PDUParams

	// ResourceIndicator is the 3-bit PUCCH resource indicator (Δ_PRI) to be
	// placed in the downlink DCI scheduling the feedback's PDSCH. Only
	// meaningful for grants carrying a HARQ-ACK resource-set position.
	ResourceIndicator uint8
	HasIndicator      bool

	resourceID ResourceID
}

// NewPDU builds a PDU bound to the cell-resource-id that produced its
// geometry. The allocator is its only caller in this module. resourceID is
// unexported, so NewPDU is the only way to set it from outside this
// package; NewPDU does not check the id against the collision/resource
// managers.
func NewPDU(rnti ran.RNTI, bwp BWPRef, resourceID ResourceID, format Format, firstHop ran.PRBInterval, secondHop *ran.PRBInterval, symbols ran.SymbolInterval, uci UCIBits, params PDUParams) PDU {
	return PDU{
		RNTI:         rnti,
		BWP:          bwp,
		Format:       format,
		FirstHopPRB:  firstHop,
		SecondHopPRB: secondHop,
		Symbols:      symbols,
		UCI:          uci,
		Params:       params,
		resourceID:   resourceID,
	}
}

// ResourceID returns the cell-resource-id this PDU's geometry was derived
// from.
func (p PDU) ResourceID() ResourceID {
	return p.resourceID
}

// WithIndicator returns a copy of p carrying the given PUCCH resource
// indicator, for HARQ PDUs whose DCI must report it.
func (p PDU) WithIndicator(indicator uint8) PDU {
	p.ResourceIndicator = indicator
	p.HasIndicator = true
	return p
}
