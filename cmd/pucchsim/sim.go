package main

import (
	"fmt"
	"log/slog"

	"github.com/ranscale/pucchsched/internal/ran"
	"github.com/ranscale/pucchsched/pucch/allocator"
)

// runScenario executes sc's events in file order against bs, logging the
// outcome of each one. It stops at the first event referencing an unknown
// RNTI or slot, since that is a scenario-file error rather than a normal
// allocation refusal.
func runScenario(bs *builtScenario, sc *scenario, log *slog.Logger) error {
	for i, ev := range sc.Events {
		slot, err := ran.NewSlot(ran.Numerology(sc.Cell.Numerology), ev.Slot)
		if err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}

		if ev.Op == "slot_indication" {
			bs.alloc.SlotIndication(slot)
			bs.gridFor(slot).Reset()
			log.Info("slot_indication", "slot", slot.String())
			continue
		}

		rnti := ran.RNTI(ev.RNTI)
		ueCfg, ok := bs.ues[rnti]
		if ev.Op != "alloc_common_harq" && !ok {
			return fmt.Errorf("events[%d]: no UE configured for rnti %#x", i, ev.RNTI)
		}

		gr := bs.gridFor(slot)

		switch ev.Op {
		case "alloc_common_harq":
			dci := allocator.DCIContext{NCCE: ev.NCCE, NofCCE: ev.NofCCE}
			delta, ok := bs.alloc.AllocCommonHARQ(slot, rnti, dci, bs.bwp, bs.cell.GuardBandPRBs, gr)
			logOutcome(log, "alloc_common_harq", slot, rnti, ok, "delta_pri", delta)

		case "alloc_common_and_ded_harq":
			dci := allocator.DCIContext{NCCE: ev.NCCE, NofCCE: ev.NofCCE}
			delta, ok := bs.alloc.AllocCommonAndDedHARQ(slot, rnti, ueCfg, dci, bs.bwp, bs.cell.GuardBandPRBs, gr)
			logOutcome(log, "alloc_common_and_ded_harq", slot, rnti, ok, "delta_pri", delta)

		case "alloc_ded_harq":
			indicator, ok := bs.alloc.AllocDedHARQ(slot, rnti, ueCfg, ev.HARQBits, bs.bwp, bs.cell.GuardBandPRBs, gr)
			logOutcome(log, "alloc_ded_harq", slot, rnti, ok, "indicator", indicator)

		case "allocate_sr":
			ok := bs.alloc.AllocateSR(slot, rnti, ueCfg, bs.bwp, bs.cell.GuardBandPRBs, gr)
			logOutcome(log, "allocate_sr", slot, rnti, ok)

		case "allocate_csi":
			ok := bs.alloc.AllocateCSI(slot, rnti, ueCfg, ev.CSIBits, bs.bwp, bs.cell.GuardBandPRBs, gr)
			logOutcome(log, "allocate_csi", slot, rnti, ok)

		case "remove_ue":
			bs.alloc.RemoveUEUCI(slot, rnti, bs.bwp, bs.cell.GuardBandPRBs, gr)
			log.Info("remove_ue", "slot", slot.String(), "rnti", rnti)

		default:
			return fmt.Errorf("events[%d]: unknown op %q", i, ev.Op)
		}
	}
	return nil
}

func logOutcome(log *slog.Logger, op string, slot ran.Slot, rnti ran.RNTI, ok bool, extra ...any) {
	args := append([]any{"slot", slot.String(), "rnti", rnti, "ok", ok}, extra...)
	if ok {
		log.Info(op, args...)
	} else {
		log.Warn(op+" refused", args...)
	}
}
