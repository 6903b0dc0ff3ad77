package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch"
)

// scenarioResource is one entry of a scenario file's dedicated-resource
// pool. Its position in the list is its cell-resource-id offset: the
// collision manager assigns dedicated ids sequentially after the 16 common
// resources, so the first entry here becomes id 16, the second id 17, and
// so on.
type scenarioResource struct {
	Format             string  `yaml:"format"`
	StartPRB           uint16  `yaml:"startPRB"`
	SecondHopPRB       *uint16 `yaml:"secondHopPRB,omitempty"`
	PRBLength          uint16  `yaml:"prbLength"`
	StartSymbol        uint8   `yaml:"startSymbol"`
	NumSymbols         uint8   `yaml:"numSymbols"`
	InitialCyclicShift uint8   `yaml:"initialCyclicShift,omitempty"`
	TimeDomainOCC      uint8   `yaml:"timeDomainOCC,omitempty"`
	MaxPRBs            uint16  `yaml:"maxPRBs,omitempty"`
	OCCLength          uint8   `yaml:"occLength,omitempty"`
	OCCIndex           uint8   `yaml:"occIndex,omitempty"`
}

type scenarioCell struct {
	CellID              uint32             `yaml:"cellID"`
	Numerology          uint8              `yaml:"numerology"`
	BWPCRBStart         uint16             `yaml:"bwpCRBStart"`
	BWPCRBCount         uint16             `yaml:"bwpCRBCount"`
	PUCCHResourceCommon uint8              `yaml:"pucchResourceCommon"`
	GuardBandPRBs       uint16             `yaml:"guardBandPRBs"`
	MaxGrantsPerSlot    int                `yaml:"maxGrantsPerSlot"`
	RingSize            uint32             `yaml:"ringSize"`
	DedicatedResources  []scenarioResource `yaml:"dedicatedResources"`
}

// scenarioUE is a UE's cell configuration, with HARQ-set/SR/CSI resources
// referenced by their scenarioCell.DedicatedResources index rather than by
// raw cell-resource-id, since the latter is an implementation detail of how
// the collision manager numbers its pool.
type scenarioUE struct {
	RNTI              uint32 `yaml:"rnti"`
	HARQSet0          []int  `yaml:"harqSet0"`
	HARQSet1          []int  `yaml:"harqSet1"`
	SRResource        *int   `yaml:"srResource,omitempty"`
	CSIResource       *int   `yaml:"csiResource,omitempty"`
	CSIReportConfigID uint32 `yaml:"csiReportConfigID,omitempty"`
	Format0Plus2      bool   `yaml:"format0Plus2,omitempty"`
}

// scenarioEvent is one call into the allocator, in the order it appears in
// the file. Fields irrelevant to Op are left zero.
type scenarioEvent struct {
	Slot     uint32 `yaml:"slot"`
	Op       string `yaml:"op"`
	RNTI     uint32 `yaml:"rnti,omitempty"`
	HARQBits uint16 `yaml:"harqBits,omitempty"`
	CSIBits  uint16 `yaml:"csiBits,omitempty"`
	NCCE     uint32 `yaml:"nCCE,omitempty"`
	NofCCE   uint32 `yaml:"nofCCE,omitempty"`
}

type scenario struct {
	Cell   scenarioCell    `yaml:"cell"`
	UEs    []scenarioUE    `yaml:"ues"`
	Events []scenarioEvent `yaml:"events"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var sc scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	return &sc, nil
}

func formatFromString(s string) (pucch.Format, error) {
	switch s {
	case "format0":
		return pucch.Format0, nil
	case "format1":
		return pucch.Format1, nil
	case "format2":
		return pucch.Format2, nil
	case "format3":
		return pucch.Format3, nil
	case "format4":
		return pucch.Format4, nil
	default:
		return 0, fmt.Errorf("unknown PUCCH format %q", s)
	}
}

// toResources converts the scenario's dedicated-resource list to
// pucch.Resource values in the order the collision manager will assign
// their ids.
func (sc *scenario) toResources() ([]pucch.Resource, error) {
	out := make([]pucch.Resource, 0, len(sc.Cell.DedicatedResources))
	for i, r := range sc.Cell.DedicatedResources {
		format, err := formatFromString(r.Format)
		if err != nil {
			return nil, fmt.Errorf("dedicatedResources[%d]: %w", i, err)
		}
		out = append(out, pucch.Resource{
			Format:       format,
			StartPRB:     r.StartPRB,
			SecondHopPRB: r.SecondHopPRB,
			PRBLength:    r.PRBLength,
			StartSymbol:  r.StartSymbol,
			NumSymbols:   r.NumSymbols,
			Params: pucch.FormatParams{
				InitialCyclicShift: r.InitialCyclicShift,
				TimeDomainOCC:      r.TimeDomainOCC,
				MaxPRBs:            r.MaxPRBs,
				OCCLength:          r.OCCLength,
				OCCIndex:           r.OCCIndex,
			},
		})
	}
	return out, nil
}

// resourceIDAt converts a scenarioCell.DedicatedResources index to the
// cell-resource-id the collision manager assigned it (common resources
// occupy ids 0-15, so dedicated resources start at 16).
func resourceIDAt(idx int) pucch.ResourceID {
	return pucch.ResourceID(16 + idx)
}

func resourceIDsAt(idxs []int) []pucch.ResourceID {
	out := make([]pucch.ResourceID, len(idxs))
	for i, idx := range idxs {
		out[i] = resourceIDAt(idx)
	}
	return out
}

func (sc *scenario) bwpRef() pucch.BWPRef {
	return pucch.BWPRef{
		SCS:      ran.Numerology(sc.Cell.Numerology),
		CRBStart: sc.Cell.BWPCRBStart,
		CRBCount: sc.Cell.BWPCRBCount,
	}
}
