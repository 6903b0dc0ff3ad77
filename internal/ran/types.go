package ran

// RNTI is a radio-network temporary identifier of a UE within a cell.
type RNTI uint32

// SymbolInterval is a half-open range of OFDM symbols within a slot,
// [Start, Start+Length).
type SymbolInterval struct {
	Start  uint8
	Length uint8
}

// End returns the exclusive end symbol.
func (s SymbolInterval) End() uint8 {
	return s.Start + s.Length
}

// Overlaps reports whether the two symbol intervals share at least one symbol.
func (s SymbolInterval) Overlaps(o SymbolInterval) bool {
	return s.Start < o.End() && o.Start < s.End()
}

// PRBInterval is a half-open range of physical resource blocks, [Start,
// Start+Length).
type PRBInterval struct {
	Start  uint16
	Length uint16
}

// End returns the exclusive end PRB.
func (p PRBInterval) End() uint16 {
	return p.Start + p.Length
}

// Overlaps reports whether the two PRB intervals share at least one PRB.
func (p PRBInterval) Overlaps(o PRBInterval) bool {
	return p.Start < o.End() && o.Start < p.End()
}

// Empty reports whether the interval carries no PRBs.
func (p PRBInterval) Empty() bool {
	return p.Length == 0
}

// Widen returns the interval expanded by guard PRBs on each side, clamped to
// bwp. Used for the §4.3.5 guard-band occupancy mark — it never changes the
// emitted PRB interval of a PDU, only the rectangle painted on the grid.
func (p PRBInterval) Widen(guard uint16, bwp PRBInterval) PRBInterval {
	if p.Empty() {
		return p
	}
	start := int(p.Start) - int(guard)
	if start < int(bwp.Start) {
		start = int(bwp.Start)
	}
	end := int(p.End()) + int(guard)
	if end > int(bwp.End()) {
		end = int(bwp.End())
	}
	if end < start {
		end = start
	}
	return PRBInterval{Start: uint16(start), Length: uint16(end - start)}
}
