package collision

import "github.com/ranscale/pucchsched/pucch"

// ResourceInfo is a cell-resource-id-indexed entry in the collision
// manager's immutable resource table: the resource descriptor plus its
// derived multiplexing index.
type ResourceInfo struct {
	pucch.Resource

	// MultiplexIndex is the scalar derived from cyclic-shift / OCC /
	// time-domain-OCC that distinguishes orthogonal sequences sharing the
	// same RB/symbol grant. Formats 2 and 3 always have multiplexing index
	// 0 (§4.1 construction step 2): they are never multiplexed.
	MultiplexIndex int

	// IsCommon distinguishes the 16 common resources (ids [0,16)) from
	// dedicated resources (ids [16, 16+N)).
	IsCommon bool
}

// multiplexIndexOf computes the multiplexing index for a dedicated
// resource, per §4.1 construction step 2:
//
//	Format 0: initial cyclic shift
//	Format 1: ICS + time_occ*12
//	Format 4: OCC index
//	Format 2/3: always 0
func multiplexIndexOf(r pucch.Resource) int {
	switch r.Format {
	case pucch.Format0:
		return int(r.Params.InitialCyclicShift)
	case pucch.Format1:
		return int(r.Params.InitialCyclicShift) + int(r.Params.TimeDomainOCC)*12
	case pucch.Format4:
		return int(r.Params.OCCIndex)
	default:
		return 0
	}
}
