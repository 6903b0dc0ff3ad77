package pucch

import (
	"fmt"

	"github.com/ranscale/pucchsched/internal/ran"
)

// CommonFormatParams holds the per-format parameters configured cell- or
// UE-wide: maximum code rate, the π/2-BPSK flag, and the additional-DMRS
// flag (§6 ue_cell_configuration: "common-parameter blocks per format").
type CommonFormatParams struct {
	MaxCodeRate    float64
	Pi2BPSK        bool
	AdditionalDMRS bool
}

// PUSCHDedicatedConfig carries the scrambling identifiers used to derive
// N_ID^0 for PUCCH DMRS generation (§6: "PUSCH dedicated configuration
// (scrambling identifiers, mapping-type DM-RS for N_ID^0 derivation)").
type PUSCHDedicatedConfig struct {
	ScramblingID0 uint16
	ScramblingID1 uint16
	HasScrambling bool
}

// CellConfiguration is the immutable, validated, cell-wide configuration
// supplied at boot (§6 sched_cell_configuration). Unknown fields are
// rejected at construction — in Go terms, there is simply no field to set
// them in.
type CellConfiguration struct {
	CellID                uint32
	InitialULBWP          BWPRef
	PUCCHResourceCommon   uint8
	GuardBandPRBs         uint16
	MaxPUCCHGrantsPerSlot int

	// DedicatedResources is the cell's full pool of dedicated PUCCH
	// resources. Their cell-resource-ids are assigned by the collision
	// manager at construction time, common resources first (§9).
	DedicatedResources []Resource
}

// NewCellConfiguration validates and returns a cell configuration. Failures
// here are InvalidConfig (§7): fatal, detected only at construction.
func NewCellConfiguration(cellID uint32, bwp BWPRef, pucchResourceCommon uint8, guardBandPRBs uint16, maxPUCCHGrantsPerSlot int, dedicated []Resource) (*CellConfiguration, error) {
	if bwp.CRBCount == 0 {
		return nil, fmt.Errorf("%w: initial uplink BWP must have a positive CRB count", ErrInvalidConfig)
	}
	if pucchResourceCommon > 15 {
		return nil, fmt.Errorf("%w: pucch_resource_common must be in [0,15], got %d", ErrInvalidConfig, pucchResourceCommon)
	}
	if maxPUCCHGrantsPerSlot <= 0 {
		return nil, fmt.Errorf("%w: max_pucch_grants_per_slot must be positive", ErrInvalidConfig)
	}
	return &CellConfiguration{
		CellID:                cellID,
		InitialULBWP:          bwp,
		PUCCHResourceCommon:   pucchResourceCommon,
		GuardBandPRBs:         guardBandPRBs,
		MaxPUCCHGrantsPerSlot: maxPUCCHGrantsPerSlot,
		DedicatedResources:    append([]Resource(nil), dedicated...),
	}, nil
}

// ResourceResolver looks up a resource descriptor by cell-resource-id. The
// collision manager provides one; UE-config validation takes it as a
// callback rather than a concrete dependency to avoid an import cycle
// between pucch and pucch/collision.
type ResourceResolver func(ResourceID) (Resource, bool)

// UECellConfiguration is the immutable, validated, per-UE configuration
// (§6 ue_cell_configuration).
type UECellConfiguration struct {
	RNTI ran.RNTI

	// HARQSet0/HARQSet1 are the UE's two PUCCH-resource-set id lists; the
	// DCI's PUCCH resource indicator indexes into whichever set the
	// scheduler selects.
	HARQSet0 []ResourceID
	HARQSet1 []ResourceID

	SRResourceID ResourceID
	HasSR        bool

	CSIResourceID     ResourceID
	HasCSI            bool
	CSIReportConfigID uint32

	// Format0Plus2 marks a UE configured for Format 0 HARQ + Format 2
	// SR/CSI, whose last two PUCCH-resource-set-0 entries are reserved for
	// SR/CSI multiplexing and therefore excluded from the "next HARQ"
	// scan (§4.2 table, reserve_next_harq_set_i).
	Format0Plus2 bool

	CommonParams map[Format]CommonFormatParams
	PUSCH        PUSCHDedicatedConfig
}

// NewUECellConfiguration validates and returns a UE's cell configuration.
// resolve may be nil, in which case only shape checks (duplicate ids, empty
// sets) are performed; the format-dependent Open-Question checks below are
// skipped, and nothing later in this module runs them.
func NewUECellConfiguration(
	rnti ran.RNTI,
	harqSet0, harqSet1 []ResourceID,
	srResourceID *ResourceID,
	csiResourceID *ResourceID,
	csiReportConfigID uint32,
	format0Plus2 bool,
	commonParams map[Format]CommonFormatParams,
	pusch PUSCHDedicatedConfig,
	resolve ResourceResolver,
) (*UECellConfiguration, error) {
	if len(harqSet0) == 0 {
		return nil, fmt.Errorf("%w: PUCCH resource set 0 must be non-empty", ErrInvalidConfig)
	}

	seen := make(map[ResourceID]bool, len(harqSet0)+len(harqSet1))
	for _, list := range [][]ResourceID{harqSet0, harqSet1} {
		for _, id := range list {
			if seen[id] {
				return nil, fmt.Errorf("%w: resource id %d appears more than once across PUCCH resource sets", ErrInvalidConfig, id)
			}
			seen[id] = true
			if resolve != nil {
				if _, ok := resolve(id); !ok {
					return nil, fmt.Errorf("%w: PUCCH resource set references unknown resource id %d", ErrInvalidConfig, id)
				}
			}
		}
	}

	cfg := &UECellConfiguration{
		RNTI:              rnti,
		HARQSet0:          append([]ResourceID(nil), harqSet0...),
		HARQSet1:          append([]ResourceID(nil), harqSet1...),
		CSIReportConfigID: csiReportConfigID,
		Format0Plus2:      format0Plus2,
		CommonParams:      commonParams,
		PUSCH:             pusch,
	}
	if srResourceID != nil {
		if resolve != nil {
			if _, ok := resolve(*srResourceID); !ok {
				return nil, fmt.Errorf("%w: SR resource id %d does not exist", ErrInvalidConfig, *srResourceID)
			}
		}
		cfg.SRResourceID = *srResourceID
		cfg.HasSR = true
	}
	if csiResourceID != nil {
		if resolve != nil {
			if _, ok := resolve(*csiResourceID); !ok {
				return nil, fmt.Errorf("%w: CSI resource id %d does not exist", ErrInvalidConfig, *csiResourceID)
			}
		}
		cfg.CSIResourceID = *csiResourceID
		cfg.HasCSI = true
	}

	if resolve != nil {
		if err := validateOpenQuestionConfigs(cfg, resolve); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// validateOpenQuestionConfigs rejects the two configurations spec.md's
// design notes leave to the implementer to reject outright: Format-0
// HARQ-ACK combined with Format-3/4 SR, and CSI+SR where SR sits on a
// Format-0 resource.
func validateOpenQuestionConfigs(cfg *UECellConfiguration, resolve ResourceResolver) error {
	if !cfg.HasSR {
		return nil
	}
	srRes, ok := resolve(cfg.SRResourceID)
	if !ok {
		return nil
	}

	if srRes.Format == Format3 || srRes.Format == Format4 {
		for _, list := range [][]ResourceID{cfg.HARQSet0, cfg.HARQSet1} {
			for _, id := range list {
				if r, ok := resolve(id); ok && r.Format == Format0 {
					return fmt.Errorf("%w: format-0 HARQ-ACK combined with format-3/4 SR is not a supported configuration", ErrInvalidConfig)
				}
			}
		}
	}

	if cfg.HasCSI && srRes.Format == Format0 {
		return fmt.Errorf("%w: CSI+SR merge is not supported when SR is carried on a format-0 resource", ErrInvalidConfig)
	}

	return nil
}
