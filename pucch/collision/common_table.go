package collision

import "github.com/ranscale/pucchsched/pucch"

// commonResourceRow is one row of TS38.213 Table 9.2.1-1: a format and
// symbol-interval choice for the 16 common PUCCH resources, parameterized
// further per-resource by PRB offset and cyclic shift (see
// defaultPRBIndices/defaultCyclicShift). Grounded on
// original_source/lib/scheduler/support/pucch/pucch_default_resource.cpp.
type commonResourceRow struct {
	format       pucch.Format
	firstSymbol  uint8
	numSymbols   uint8
	rbBWPOffset  uint16
	csIndexes    []uint8
}

// commonResourceTable mirrors the 16-row table from TS38.213 Section 9.2.1,
// table 9.2.1-1, one row selected cell-wide by pucch_resource_common.
var commonResourceTable = [16]commonResourceRow{
	{pucch.Format0, 12, 2, 0, []uint8{0, 3}},
	{pucch.Format0, 12, 2, 0, []uint8{0, 4, 8}},
	{pucch.Format0, 12, 2, 3, []uint8{0, 4, 8}},
	{pucch.Format1, 10, 4, 0, []uint8{0, 6}},
	{pucch.Format1, 10, 4, 0, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 10, 4, 2, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 10, 4, 4, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 4, 10, 0, []uint8{0, 6}},
	{pucch.Format1, 4, 10, 0, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 4, 10, 2, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 4, 10, 4, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 0, 14, 0, []uint8{0, 6}},
	{pucch.Format1, 0, 14, 0, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 0, 14, 2, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 0, 14, 4, []uint8{0, 3, 6, 9}},
	{pucch.Format1, 0, 14, 0, []uint8{0, 3, 6, 9}},
}

// defaultResourceRow returns the table row for rowIndex, with the
// index-15 special case (rb_bwp_offset = bwpSize/4) applied.
func defaultResourceRow(rowIndex uint8, bwpSize uint16) commonResourceRow {
	row := commonResourceTable[rowIndex]
	if rowIndex == 15 {
		row.rbBWPOffset = bwpSize / 4
	}
	return row
}

// defaultResourceIndex computes r_PUCCH = floor(2*n_CCE/N_CCE) + 2*Δ_PRI,
// per §4.3.1 step 1.
func defaultResourceIndex(nCCE, nofCCE uint32, deltaPRI uint8) uint32 {
	return (2*nCCE)/nofCCE + 2*uint32(deltaPRI)
}

// defaultPRBIndices returns the first- and second-hop PRB index for r_pucch
// given the row's PRB offset and cyclic-shift-set size.
func defaultPRBIndices(rPUCCH uint32, rbOffset uint16, nofCS uint8, bwpSize uint16) (first, second uint16) {
	prbFirst := rbOffset + uint16(rPUCCH)/uint16(nofCS)
	prbSecond := bwpSize - 1 - prbFirst
	if rPUCCH/8 == 1 {
		prbSecond = rbOffset + uint16(rPUCCH-8)/uint16(nofCS)
		prbFirst = bwpSize - 1 - prbSecond
	}
	return prbFirst, prbSecond
}

// defaultCyclicShift returns the cyclic shift for r_pucch within a
// cyclic-shift set of size nofCS.
func defaultCyclicShift(rPUCCH uint32, nofCS uint8) uint8 {
	r := rPUCCH
	if rPUCCH > 8 {
		r = rPUCCH - 8
	}
	return uint8(r % uint32(nofCS))
}

// buildCommonResources enumerates all 16 common PUCCH resources for the
// given pucch_resource_common row index and BWP size, assigning ids
// [0,16) (§4.1 construction step 1).
func buildCommonResources(pucchResourceCommon uint8, bwpSize uint16) []pucch.Resource {
	row := defaultResourceRow(pucchResourceCommon, bwpSize)
	nofCS := uint8(len(row.csIndexes))

	resources := make([]pucch.Resource, 0, 16)
	for r := uint32(0); r < 16; r++ {
		first, second := defaultPRBIndices(r, row.rbBWPOffset, nofCS, bwpSize)
		cs := defaultCyclicShift(r, nofCS)

		res := pucch.Resource{
			ID:          pucch.ResourceID(r),
			UEAlias:     "",
			Format:      row.format,
			StartPRB:    first,
			PRBLength:   1,
			StartSymbol: row.firstSymbol,
			NumSymbols:  row.numSymbols,
			Params: pucch.FormatParams{
				InitialCyclicShift: row.csIndexes[cs],
			},
		}
		secondHop := second
		res.SecondHopPRB = &secondHop
		resources = append(resources, res)
	}
	return resources
}
